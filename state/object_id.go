// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/pkg/errors"
)

const (
	// ObjectIDLen is the length of an encoded ObjectID
	ObjectIDLen = 2 + wrappers.LongLen
)

var errInvalidObjectID = errors.New("invalid object id")

// Class identifies the (space, type) pair shared by every object of one kind.
type Class struct {
	Space uint8 `serialize:"true" json:"space"`
	Type  uint8 `serialize:"true" json:"type"`
}

// ID returns the object id with the given instance in this class.
func (c Class) ID(instance uint64) ObjectID {
	return ObjectID{Space: c.Space, Type: c.Type, Instance: instance}
}

func (c Class) String() string { return fmt.Sprintf("%d.%d", c.Space, c.Type) }

func (c Class) prefix() []byte { return []byte{c.Space, c.Type} }

// ObjectID is the globally unique identity of a ledger object.
// Instances are assigned sequentially per class and never reused.
type ObjectID struct {
	Space    uint8  `serialize:"true" json:"space"`
	Type     uint8  `serialize:"true" json:"type"`
	Instance uint64 `serialize:"true" json:"instance"`
}

func (id ObjectID) Class() Class { return Class{Space: id.Space, Type: id.Type} }

func (id ObjectID) String() string {
	return fmt.Sprintf("%d.%d.%d", id.Space, id.Type, id.Instance)
}

// Bytes returns the big-endian encoding of the id, so that encoded ids
// sort in the same order as (space, type, instance).
func (id ObjectID) Bytes() []byte {
	raw := make([]byte, ObjectIDLen)
	raw[0] = id.Space
	raw[1] = id.Type
	binary.BigEndian.PutUint64(raw[2:], id.Instance)
	return raw
}

func (id ObjectID) Less(other ObjectID) bool {
	if id.Space != other.Space {
		return id.Space < other.Space
	}
	if id.Type != other.Type {
		return id.Type < other.Type
	}
	return id.Instance < other.Instance
}

// ObjectIDFromBytes parses the encoding produced by Bytes.
func ObjectIDFromBytes(raw []byte) (ObjectID, error) {
	if len(raw) != ObjectIDLen {
		return ObjectID{}, errors.Wrapf(errInvalidObjectID, "expected %d bytes, got %d", ObjectIDLen, len(raw))
	}
	return ObjectID{
		Space:    raw[0],
		Type:     raw[1],
		Instance: binary.BigEndian.Uint64(raw[2:]),
	}, nil
}

// ParseObjectID parses the "space.type.instance" form.
func ParseObjectID(s string) (ObjectID, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return ObjectID{}, errors.Wrapf(errInvalidObjectID, "%q", s)
	}
	space, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return ObjectID{}, errors.Wrapf(errInvalidObjectID, "%q: %s", s, err)
	}
	typ, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return ObjectID{}, errors.Wrapf(errInvalidObjectID, "%q: %s", s, err)
	}
	instance, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return ObjectID{}, errors.Wrapf(errInvalidObjectID, "%q: %s", s, err)
	}
	return ObjectID{Space: uint8(space), Type: uint8(typ), Instance: instance}, nil
}

func (id ObjectID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

func (id *ObjectID) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.Wrapf(errInvalidObjectID, "%s", b)
	}
	parsed, err := ParseObjectID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
