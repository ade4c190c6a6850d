// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"bytes"
	"encoding/binary"
	"sync"

	"github.com/ava-labs/avalanchego/codec"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/pkg/errors"
)

// CodecVersion is the codec version objects are stored with
const CodecVersion = 0

var (
	// These are prefixes for db keys.
	// It's important to set different prefixes for each separate database objects.
	objectPrefix = []byte("object")
	indexPrefix  = []byte("index")
	metaPrefix   = []byte("meta")

	nextInstancePrefix = []byte("next")

	ErrNotFound       = errors.New("object not found")
	ErrStaleReference = errors.New("object was removed")
	ErrDuplicate      = errors.New("unique index collision")
	ErrWrongType      = errors.New("object has unexpected type")
	ErrIDChanged      = errors.New("mutator changed object id")
	ErrSessionOrder   = errors.New("undo sessions must close in reverse order of creation")
	ErrSessionClosed  = errors.New("undo session already closed")
	ErrSessionsOpen   = errors.New("undo sessions still open")

	errWrongVersion = errors.New("wrong codec version")

	_ Reader = &Store{}
)

// layer is one level of versioned state. The root layer sits on the base
// database, each undo session pushes one more on top of the current top.
type layer struct {
	db      *versiondb.Database
	objects database.Database
	indexes database.Database
	meta    database.Database
}

func newLayer(db database.Database) *layer {
	vdb := versiondb.New(db)
	return &layer{
		db:      vdb,
		objects: prefixdb.New(objectPrefix, vdb),
		indexes: prefixdb.New(indexPrefix, vdb),
		meta:    prefixdb.New(metaPrefix, vdb),
	}
}

// Store is an id-addressed object store with secondary indexes and nested
// undo sessions. It is not safe for concurrent writers; callers serialize
// mutation, reads may run concurrently with each other.
type Store struct {
	lock   sync.RWMutex
	codec  codec.Manager
	root   *layer
	layers []*layer
}

// New returns a store persisting to [db] and encoding objects with [c].
func New(db database.Database, c codec.Manager) *Store {
	return &Store{
		codec: c,
		root:  newLayer(db),
	}
}

func (s *Store) top() *layer {
	if n := len(s.layers); n > 0 {
		return s.layers[n-1]
	}
	return s.root
}

// Depth returns the number of open undo sessions.
func (s *Store) Depth() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.layers)
}

// StartUndoSession opens a session capturing every mutation made until it is
// merged or undone.
func (s *Store) StartUndoSession() *Session {
	s.lock.Lock()
	defer s.lock.Unlock()

	l := newLayer(s.top().db)
	s.layers = append(s.layers, l)
	return &Session{store: s, layer: l, depth: len(s.layers)}
}

// Commit writes the working state to the base database.
func (s *Store) Commit() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if len(s.layers) != 0 {
		return errors.Wrapf(ErrSessionsOpen, "%d open", len(s.layers))
	}
	return errors.WithStack(s.root.db.Commit())
}

// Abort discards every uncommitted change, including open sessions.
func (s *Store) Abort() {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, l := range s.layers {
		l.db.Abort()
	}
	s.layers = nil
	s.root.db.Abort()
}

// Database returns the working state database. Keys written to it outside
// of the object namespaces are committed and aborted with the objects.
func (s *Store) Database() database.Database { return s.root.db }

// Create assigns the next instance of the object's class to [obj] and
// inserts it.
func (s *Store) Create(obj Object) (ObjectID, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	l := s.top()
	class := obj.Class()
	next, err := nextInstance(l, class)
	if err != nil {
		return ObjectID{}, err
	}
	id := class.ID(next)

	entries := obj.Indexes()
	for _, entry := range entries {
		if err := checkUnique(l, class, entry, id); err != nil {
			return ObjectID{}, err
		}
	}
	prev := obj.ID()
	obj.SetID(id)
	if err := s.putObject(l, obj); err != nil {
		obj.SetID(prev)
		return ObjectID{}, err
	}
	for _, entry := range entries {
		if err := putIndex(l, class, entry, id); err != nil {
			return ObjectID{}, err
		}
	}
	if err := setNextInstance(l, class, next+1); err != nil {
		return ObjectID{}, err
	}
	return id, nil
}

// Get returns a private copy of the object; changes to it are not
// observable until passed through Modify.
func (s *Store) Get(id ObjectID) (Object, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.get(s.top(), id)
}

// Modify runs [mutator] on a copy of the object and stores the result,
// updating every secondary index whose key changed. Nothing is written when
// [mutator] fails.
func (s *Store) Modify(id ObjectID, mutator func(Object) error) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	l := s.top()
	obj, err := s.get(l, id)
	if err != nil {
		return err
	}
	before := obj.Indexes()
	if err := mutator(obj); err != nil {
		return err
	}
	if obj.ID() != id {
		return errors.Wrapf(ErrIDChanged, "%s became %s", id, obj.ID())
	}
	after := obj.Indexes()

	class := id.Class()
	var stale, fresh []Index
	for _, entry := range before {
		if !containsIndex(after, entry) {
			stale = append(stale, entry)
		}
	}
	for _, entry := range after {
		if containsIndex(before, entry) {
			continue
		}
		if err := checkUnique(l, class, entry, id); err != nil {
			return err
		}
		fresh = append(fresh, entry)
	}

	for _, entry := range stale {
		if err := l.indexes.Delete(indexKey(class, entry, id)); err != nil {
			return errors.WithStack(err)
		}
	}
	for _, entry := range fresh {
		if err := putIndex(l, class, entry, id); err != nil {
			return err
		}
	}
	return s.putObject(l, obj)
}

// Remove erases the object and its index entries. Later lookups of [id]
// report ErrStaleReference.
func (s *Store) Remove(id ObjectID) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	l := s.top()
	obj, err := s.get(l, id)
	if err != nil {
		return err
	}
	class := id.Class()
	for _, entry := range obj.Indexes() {
		if err := l.indexes.Delete(indexKey(class, entry, id)); err != nil {
			return errors.WithStack(err)
		}
	}
	return errors.WithStack(l.objects.Delete(id.Bytes()))
}

// FindUnique returns the object stored under [key] in the unique [index].
func (s *Store) FindUnique(c Class, index string, key []byte) (Object, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	l := s.top()
	raw, err := l.indexes.Get(indexKey(c, Index{Name: index, Key: key, Unique: true}, ObjectID{}))
	if err == database.ErrNotFound {
		return nil, errors.Wrapf(ErrNotFound, "%s %s[%x]", c, index, key)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	id, err := ObjectIDFromBytes(raw)
	if err != nil {
		return nil, err
	}
	return s.get(l, id)
}

// NextInstance returns the instance the next object of [c] will receive.
func (s *Store) NextInstance(c Class) (uint64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return nextInstance(s.top(), c)
}

// Iterate calls [f] on every object of [c] in ascending id order until [f]
// returns false or an error. [f] may mutate the store.
func (s *Store) Iterate(c Class, f func(Object) (bool, error)) error {
	s.lock.RLock()
	objIDs, err := collectIDs(s.top().objects, c.prefix(), func(key, _ []byte) ([]byte, bool) {
		return key, len(key) == ObjectIDLen
	})
	s.lock.RUnlock()
	if err != nil {
		return err
	}
	return s.visit(objIDs, f)
}

// IterateIndex calls [f] on every object of [c] whose [index] key starts
// with [prefix], in ascending key order.
func (s *Store) IterateIndex(c Class, index string, prefix []byte, f func(Object) (bool, error)) error {
	full := append(indexNamePrefix(c, index), prefix...)

	s.lock.RLock()
	objIDs, err := collectIDs(s.top().indexes, full, func(_, value []byte) ([]byte, bool) {
		return value, true
	})
	s.lock.RUnlock()
	if err != nil {
		return err
	}
	return s.visit(objIDs, f)
}

// Checksum hashes every object, index entry and instance counter of the
// working state.
func (s *Store) Checksum() (ids.ID, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	l := s.top()
	var buf bytes.Buffer
	for _, db := range []database.Database{l.objects, l.indexes, l.meta} {
		if err := hashInto(&buf, db); err != nil {
			return ids.Empty, err
		}
	}
	return ids.ID(hashing.ComputeHash256Array(buf.Bytes())), nil
}

func hashInto(buf *bytes.Buffer, db database.Database) error {
	it := db.NewIterator()
	defer it.Release()

	for it.Next() {
		buf.Write(it.Key())
		buf.Write(it.Value())
	}
	return errors.WithStack(it.Error())
}

func (s *Store) visit(objIDs []ObjectID, f func(Object) (bool, error)) error {
	for _, id := range objIDs {
		obj, err := s.Get(id)
		if err != nil {
			return err
		}
		more, err := f(obj)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

func (s *Store) get(l *layer, id ObjectID) (Object, error) {
	raw, err := l.objects.Get(id.Bytes())
	if err == database.ErrNotFound {
		next, nerr := nextInstance(l, id.Class())
		if nerr != nil {
			return nil, nerr
		}
		if id.Instance < next {
			return nil, errors.Wrapf(ErrStaleReference, "%s", id)
		}
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	env := envelope{}
	parsedVersion, err := s.codec.Unmarshal(raw, &env)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", id)
	}
	if parsedVersion != CodecVersion {
		return nil, errors.Wrapf(errWrongVersion, "%s has version %d", id, parsedVersion)
	}
	return env.Object, nil
}

func (s *Store) putObject(l *layer, obj Object) error {
	raw, err := s.codec.Marshal(CodecVersion, &envelope{Object: obj})
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", obj.ID())
	}
	return errors.WithStack(l.objects.Put(obj.ID().Bytes(), raw))
}

func collectIDs(db database.Database, prefix []byte, pick func(key, value []byte) ([]byte, bool)) ([]ObjectID, error) {
	it := db.NewIteratorWithPrefix(prefix)
	defer it.Release()

	var objIDs []ObjectID
	for it.Next() {
		raw, ok := pick(it.Key(), it.Value())
		if !ok {
			continue
		}
		id, err := ObjectIDFromBytes(raw)
		if err != nil {
			return nil, err
		}
		objIDs = append(objIDs, id)
	}
	return objIDs, errors.WithStack(it.Error())
}

func nextInstance(l *layer, c Class) (uint64, error) {
	raw, err := l.meta.Get(nextInstanceKey(c))
	if err == database.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return binary.BigEndian.Uint64(raw), nil
}

func setNextInstance(l *layer, c Class, next uint64) error {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, next)
	return errors.WithStack(l.meta.Put(nextInstanceKey(c), raw))
}

func nextInstanceKey(c Class) []byte {
	key := make([]byte, 0, len(nextInstancePrefix)+2)
	key = append(key, nextInstancePrefix...)
	return append(key, c.Space, c.Type)
}

// indexNamePrefix is class | len(name) | name.
func indexNamePrefix(c Class, name string) []byte {
	key := make([]byte, 0, 3+len(name))
	key = append(key, c.Space, c.Type, byte(len(name)))
	return append(key, name...)
}

// indexKey orders entries by key; non-unique entries are disambiguated by
// the owning object id.
func indexKey(c Class, entry Index, id ObjectID) []byte {
	key := append(indexNamePrefix(c, entry.Name), entry.Key...)
	if entry.Unique {
		return key
	}
	return append(key, id.Bytes()...)
}

func checkUnique(l *layer, c Class, entry Index, id ObjectID) error {
	if !entry.Unique {
		return nil
	}
	raw, err := l.indexes.Get(indexKey(c, entry, id))
	if err == database.ErrNotFound {
		return nil
	}
	if err != nil {
		return errors.WithStack(err)
	}
	if bytes.Equal(raw, id.Bytes()) {
		return nil
	}
	return errors.Wrapf(ErrDuplicate, "%s %s[%x]", c, entry.Name, entry.Key)
}

func putIndex(l *layer, c Class, entry Index, id ObjectID) error {
	return errors.WithStack(l.indexes.Put(indexKey(c, entry, id), id.Bytes()))
}

func containsIndex(entries []Index, entry Index) bool {
	for _, e := range entries {
		if e.Name == entry.Name && e.Unique == entry.Unique && bytes.Equal(e.Key, entry.Key) {
			return true
		}
	}
	return false
}
