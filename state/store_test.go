// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/ava-labs/avalanchego/codec"
	"github.com/ava-labs/avalanchego/codec/linearcodec"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClass = Class{Space: 1, Type: 7}

type testObject struct {
	Base  `serialize:"true"`
	Name  string `serialize:"true"`
	Group uint64 `serialize:"true"`
}

func (*testObject) Class() Class { return testClass }

func (o *testObject) Indexes() []Index {
	group := make([]byte, 8)
	binary.BigEndian.PutUint64(group, o.Group)
	return []Index{
		{Name: "by_name", Key: []byte(o.Name), Unique: true},
		{Name: "by_group", Key: group},
	}
}

func testCodec(t *testing.T) codec.Manager {
	c := linearcodec.NewDefault()
	m := codec.NewDefaultManager()
	errs := wrappers.Errs{}
	errs.Add(
		c.RegisterType(&testObject{}),
		m.RegisterCodec(CodecVersion, c),
	)
	require.NoError(t, errs.Err)
	return m
}

func newTestStore(t *testing.T) (*Store, database.Database) {
	db := memdb.New()
	return New(db, testCodec(t)), db
}

func getTest(t *testing.T, s *Store, id ObjectID) *testObject {
	obj, err := s.Get(id)
	require.NoError(t, err)
	o, ok := obj.(*testObject)
	require.True(t, ok)
	return o
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestStore(t)

	first, err := s.Create(&testObject{Name: "alice"})
	assert.NoError(err)
	second, err := s.Create(&testObject{Name: "bob"})
	assert.NoError(err)

	assert.Equal(ObjectID{Space: 1, Type: 7, Instance: 0}, first)
	assert.Equal(ObjectID{Space: 1, Type: 7, Instance: 1}, second)
	assert.Equal("bob", getTest(t, s, second).Name)
}

func TestGetReturnsSnapshot(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestStore(t)

	id, err := s.Create(&testObject{Name: "alice", Group: 1})
	assert.NoError(err)

	snapshot := getTest(t, s, id)
	snapshot.Group = 99

	assert.Equal(uint64(1), getTest(t, s, id).Group)
}

func TestModifyUpdatesIndexes(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestStore(t)

	id, err := s.Create(&testObject{Name: "alice"})
	assert.NoError(err)

	assert.NoError(s.Modify(id, func(obj Object) error {
		obj.(*testObject).Name = "carol"
		return nil
	}))

	_, err = s.FindUnique(testClass, "by_name", []byte("alice"))
	assert.ErrorIs(err, ErrNotFound)
	found, err := s.FindUnique(testClass, "by_name", []byte("carol"))
	assert.NoError(err)
	assert.Equal(id, found.ID())
}

func TestModifyFailureWritesNothing(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestStore(t)

	id, err := s.Create(&testObject{Name: "alice"})
	assert.NoError(err)
	before, err := s.Checksum()
	assert.NoError(err)

	errMutator := errors.New("mutator failed")
	err = s.Modify(id, func(obj Object) error {
		obj.(*testObject).Name = "mallory"
		return errMutator
	})
	assert.ErrorIs(err, errMutator)

	err = s.Modify(id, func(obj Object) error {
		obj.SetID(ObjectID{Space: 1, Type: 7, Instance: 42})
		return nil
	})
	assert.ErrorIs(err, ErrIDChanged)

	after, err := s.Checksum()
	assert.NoError(err)
	assert.Equal(before, after)
}

func TestUniqueIndexCollision(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestStore(t)

	_, err := s.Create(&testObject{Name: "alice"})
	assert.NoError(err)
	bob, err := s.Create(&testObject{Name: "bob"})
	assert.NoError(err)

	rejected := &testObject{Name: "alice"}
	_, err = s.Create(rejected)
	assert.ErrorIs(err, ErrDuplicate)
	assert.Equal(ObjectID{}, rejected.ID(), "a rejected object gets no id")

	carol, err := s.Create(&testObject{Name: "carol"})
	assert.NoError(err)
	assert.Equal(uint64(2), carol.Instance)

	err = s.Modify(bob, func(obj Object) error {
		obj.(*testObject).Name = "alice"
		return nil
	})
	assert.ErrorIs(err, ErrDuplicate)
	assert.Equal("bob", getTest(t, s, bob).Name)
}

func TestRemoveReportsStaleReference(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestStore(t)

	id, err := s.Create(&testObject{Name: "alice"})
	assert.NoError(err)
	assert.NoError(s.Remove(id))

	_, err = s.Get(id)
	assert.ErrorIs(err, ErrStaleReference)
	_, err = s.Get(testClass.ID(5))
	assert.ErrorIs(err, ErrNotFound)
	assert.ErrorIs(s.Remove(id), ErrStaleReference)

	_, err = s.FindUnique(testClass, "by_name", []byte("alice"))
	assert.ErrorIs(err, ErrNotFound)

	next, err := s.Create(&testObject{Name: "alice"})
	assert.NoError(err)
	assert.Equal(uint64(1), next.Instance, "instances are never reused")
}

func TestIterateIndexOrder(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestStore(t)

	for i, name := range []string{"a", "b", "c", "d"} {
		_, err := s.Create(&testObject{Name: name, Group: uint64(2 - i%2)})
		assert.NoError(err)
	}

	var names []string
	err := s.IterateIndex(testClass, "by_group", nil, func(obj Object) (bool, error) {
		names = append(names, obj.(*testObject).Name)
		return true, nil
	})
	assert.NoError(err)
	assert.Equal([]string{"b", "d", "a", "c"}, names)

	group := make([]byte, 8)
	binary.BigEndian.PutUint64(group, 2)
	names = nil
	err = s.IterateIndex(testClass, "by_group", group, func(obj Object) (bool, error) {
		names = append(names, obj.(*testObject).Name)
		return len(names) < 1, nil
	})
	assert.NoError(err)
	assert.Equal([]string{"a"}, names)
}

func TestIterateAllowsMutation(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestStore(t)

	for _, name := range []string{"a", "b", "c"} {
		_, err := s.Create(&testObject{Name: name})
		assert.NoError(err)
	}
	err := s.Iterate(testClass, func(obj Object) (bool, error) {
		return true, s.Remove(obj.ID())
	})
	assert.NoError(err)

	count := 0
	assert.NoError(s.Iterate(testClass, func(Object) (bool, error) {
		count++
		return true, nil
	}))
	assert.Zero(count)
}

func TestNestedSessions(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestStore(t)

	base, err := s.Create(&testObject{Name: "base"})
	assert.NoError(err)
	empty, err := s.Checksum()
	assert.NoError(err)

	outer := s.StartUndoSession()
	_, err = s.Create(&testObject{Name: "outer"})
	assert.NoError(err)

	inner := s.StartUndoSession()
	created, err := s.Create(&testObject{Name: "inner"})
	assert.NoError(err)
	assert.NoError(s.Modify(base, func(obj Object) error {
		obj.(*testObject).Group = 7
		return nil
	}))
	assert.Equal(2, s.Depth())
	assert.NoError(inner.Merge())

	assert.Equal("inner", getTest(t, s, created).Name)
	assert.NoError(outer.Undo())
	assert.Equal(0, s.Depth())

	_, err = s.Get(created)
	assert.ErrorIs(err, ErrNotFound, "instance counters roll back with the session")
	assert.Equal(uint64(0), getTest(t, s, base).Group)

	after, err := s.Checksum()
	assert.NoError(err)
	assert.Equal(empty, after)
}

func TestSessionOrder(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestStore(t)

	outer := s.StartUndoSession()
	inner := s.StartUndoSession()

	assert.ErrorIs(outer.Merge(), ErrSessionOrder)
	assert.ErrorIs(outer.Undo(), ErrSessionOrder)
	assert.NoError(inner.Merge())
	assert.ErrorIs(inner.Merge(), ErrSessionClosed)
	assert.NoError(outer.Merge())

	// deferred aborts after merge are no-ops
	inner.Abort()
	outer.Abort()
	assert.Equal(0, s.Depth())
}

func TestAbortUnwindsOpenSessions(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestStore(t)

	outer := s.StartUndoSession()
	_, err := s.Create(&testObject{Name: "a"})
	assert.NoError(err)
	inner := s.StartUndoSession()
	_, err = s.Create(&testObject{Name: "b"})
	assert.NoError(err)

	outer.Abort()
	assert.Equal(0, s.Depth())
	assert.True(outer.Closed())

	inner.Abort()
	next, err := s.NextInstance(testClass)
	assert.NoError(err)
	assert.Zero(next)
}

func TestCommitPersists(t *testing.T) {
	assert := assert.New(t)
	s, db := newTestStore(t)

	sess := s.StartUndoSession()
	id, err := s.Create(&testObject{Name: "alice"})
	assert.NoError(err)
	assert.ErrorIs(s.Commit(), ErrSessionsOpen)
	assert.NoError(sess.Merge())
	assert.NoError(s.Commit())

	reopened := New(db, testCodec(t))
	assert.Equal("alice", getTest(t, reopened, id).Name)
}

func TestObjectIDEncoding(t *testing.T) {
	assert := assert.New(t)

	id := ObjectID{Space: 1, Type: 2, Instance: 300}
	parsed, err := ObjectIDFromBytes(id.Bytes())
	assert.NoError(err)
	assert.Equal(id, parsed)

	parsed, err = ParseObjectID("1.2.300")
	assert.NoError(err)
	assert.Equal(id, parsed)

	_, err = ParseObjectID("1.2")
	assert.Error(err)

	lower := ObjectID{Space: 1, Type: 2, Instance: 255}
	assert.True(lower.Less(id))
	assert.Less(compareBytes(lower.Bytes(), id.Bytes()), 0)
}

func compareBytes(a, b []byte) int {
	for i := range a {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}

func TestSessionDatabaseFollowsSession(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	s, _ := newTestStore(t)

	before, err := s.Checksum()
	require.NoError(err)

	key := []byte("beside")
	sess := s.StartUndoSession()
	require.NoError(sess.Database().Put(key, []byte("undone")))
	require.NoError(sess.Undo())
	has, err := s.Database().Has(key)
	require.NoError(err)
	assert.False(has)

	sess = s.StartUndoSession()
	_, err = s.Create(&testObject{Name: "alice"})
	require.NoError(err)
	require.NoError(sess.Database().Put(key, []byte("merged")))
	require.NoError(sess.Merge())
	value, err := s.Database().Get(key)
	require.NoError(err)
	assert.Equal([]byte("merged"), value)

	// keys beside the objects do not change the checksum
	withObject, err := s.Checksum()
	require.NoError(err)
	require.NoError(s.Database().Put([]byte("other"), []byte{1}))
	after, err := s.Checksum()
	require.NoError(err)
	assert.NotEqual(before, withObject)
	assert.Equal(withObject, after)
}
