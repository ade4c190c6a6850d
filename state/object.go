// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

// Object is a ledger object owned by the Store.
//
// Implementations must be registered with the codec handed to New, since the
// store persists objects through an interface-typed envelope.
type Object interface {
	// Class returns the (space, type) the object is created in.
	Class() Class
	ID() ObjectID
	SetID(ObjectID)
	// Indexes returns the secondary index entries of the object's current
	// value. Names must be stable for a Class.
	Indexes() []Index
}

// Index is one secondary index entry of an object.
// Entries of a unique index may not share a Key within a Class.
type Index struct {
	Name   string
	Key    []byte
	Unique bool
}

// Base carries the identity of an object. Embed it to implement ID and SetID.
type Base struct {
	ObjectID ObjectID `serialize:"true" json:"id"`
}

func (b *Base) ID() ObjectID      { return b.ObjectID }
func (b *Base) SetID(id ObjectID) { b.ObjectID = id }

// envelope lets the codec record the concrete type of a stored Object.
type envelope struct {
	Object Object `serialize:"true"`
}

// Reader is the read-only view of the object store.
type Reader interface {
	Get(id ObjectID) (Object, error)
	FindUnique(c Class, index string, key []byte) (Object, error)
	Iterate(c Class, f func(Object) (bool, error)) error
	IterateIndex(c Class, index string, prefix []byte, f func(Object) (bool, error)) error
}
