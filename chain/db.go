// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/ledgervm/protocol"
	"github.com/ava-labs/ledgervm/state"
)

var (
	// These are prefixes for db keys.
	// It's important to set different prefixes for each separate database objects.
	singletonStatePrefix = []byte("singleton")
	blockStatePrefix     = []byte("block")
)

// persistence splits the engine's database into the object store, the block
// index and the singletons. The block index and the singletons live in the
// object store's working state, so they move with it. Nothing reaches the
// underlying database until commit.
type persistence struct {
	SingletonState
	BlockState

	objects *state.Store
	baseDB  *versiondb.Database
}

func newPersistence(db database.Database, blockCacheSize int) *persistence {
	// create a new baseDB
	baseDB := versiondb.New(db)

	objects := state.New(baseDB, Codec)
	working := objects.Database()

	return &persistence{
		SingletonState: NewSingletonState(prefixdb.New(singletonStatePrefix, working)),
		BlockState:     NewBlockState(prefixdb.New(blockStatePrefix, working), blockCacheSize),
		objects:        objects,
		baseDB:         baseDB,
	}
}

// acceptBlock indexes [blk] and makes it the last accepted block inside
// [sess]. The index only advances when [sess] merges.
func acceptBlock(sess *state.Session, blk *protocol.Block) (ids.ID, error) {
	db := sess.Database()
	blkID, err := NewBlockState(prefixdb.New(blockStatePrefix, db), 0).PutBlock(blk)
	if err != nil {
		return ids.Empty, err
	}
	return blkID, NewSingletonState(prefixdb.New(singletonStatePrefix, db)).SetLastAccepted(blkID)
}

// commit flushes the working state to the underlying database.
func (p *persistence) commit() error {
	if err := p.objects.Commit(); err != nil {
		return err
	}
	return p.baseDB.Commit()
}

// abort drops everything written since the last commit.
func (p *persistence) abort() {
	p.objects.Abort()
	p.baseDB.Abort()
	p.BlockState.ClearCache()
}

func (p *persistence) close() error {
	return p.baseDB.Close()
}
