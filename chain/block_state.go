// (c) 2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"

	"github.com/ava-labs/ledgervm/protocol"
)

var (
	heightPrefix = []byte("height")
	blockPrefix  = []byte("block")

	_ BlockState = &blockState{}
)

// BlockState indexes accepted blocks by id and by height.
type BlockState interface {
	// GetBlock returns a block of the caller's own; changing it does not
	// change the index.
	GetBlock(blkID ids.ID) (*protocol.Block, error)
	GetBlockIDAtHeight(height uint64) (ids.ID, error)
	PutBlock(blk *protocol.Block) (ids.ID, error)

	ClearCache()
}

type blockState struct {
	// blkCache holds encoded blocks. It is nil when caching is disabled.
	blkCache cache.Cacher
	blockDB  database.Database
	heightDB database.Database
}

// NewBlockState returns the block index stored in [db]. A [cacheSize] of
// zero disables the cache.
func NewBlockState(db database.Database, cacheSize int) BlockState {
	s := &blockState{
		blockDB:  prefixdb.New(blockPrefix, db),
		heightDB: prefixdb.New(heightPrefix, db),
	}
	if cacheSize > 0 {
		s.blkCache = &cache.LRU{Size: cacheSize}
	}
	return s
}

func (s *blockState) GetBlock(blkID ids.ID) (*protocol.Block, error) {
	if s.blkCache != nil {
		if blkBytes, ok := s.blkCache.Get(blkID); ok {
			return protocol.ParseBlock(blkBytes.([]byte))
		}
	}

	blkBytes, err := s.blockDB.Get(blkID[:])
	if err != nil {
		return nil, err
	}
	blk, err := protocol.ParseBlock(blkBytes)
	if err != nil {
		return nil, err
	}

	if s.blkCache != nil {
		s.blkCache.Put(blkID, blkBytes)
	}
	return blk, nil
}

func (s *blockState) GetBlockIDAtHeight(height uint64) (ids.ID, error) {
	raw, err := s.heightDB.Get(uint64Key(height))
	if err != nil {
		return ids.Empty, err
	}
	return ids.ToID(raw)
}

// PutBlock writes [blk]. The cache is filled on reads only, so a write that
// is later aborted never leaves a cached block behind.
func (s *blockState) PutBlock(blk *protocol.Block) (ids.ID, error) {
	bytes, err := blk.Bytes()
	if err != nil {
		return ids.Empty, err
	}

	blkID := ids.ID(hashing.ComputeHash256Array(bytes))
	if err := s.blockDB.Put(blkID[:], bytes); err != nil {
		return ids.Empty, err
	}
	return blkID, s.heightDB.Put(uint64Key(blk.Height), blkID[:])
}

func (s *blockState) ClearCache() {
	if s.blkCache != nil {
		s.blkCache.Flush()
	}
}
