// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
)

var errInvalidConfig = errors.New("invalid engine config")

// Config holds the node local settings of an Engine. Consensus relevant
// settings live in the genesis and the global properties object.
type Config struct {
	ChainID ids.ID `json:"chainID"`
	// SignatureCacheSize is how many recovered signers are kept. Zero
	// disables the cache.
	SignatureCacheSize int `json:"signatureCacheSize"`
	BlockCacheSize     int `json:"blockCacheSize"`
	// SkipAuthorityOnReplay skips authority checks for blocks applied in
	// BlockReplay mode.
	SkipAuthorityOnReplay bool `json:"skipAuthorityOnReplay"`
	// MetricsNamespace prefixes every metric the engine registers.
	MetricsNamespace string `json:"metricsNamespace"`
}

func DefaultConfig() Config {
	return Config{
		SignatureCacheSize: 2048,
		BlockCacheSize:     8192,
		MetricsNamespace:   "ledgervm",
	}
}

func (c *Config) Validate() error {
	switch {
	case c.SignatureCacheSize < 0:
		return fmt.Errorf("%w: negative signature cache size %d", errInvalidConfig, c.SignatureCacheSize)
	case c.BlockCacheSize <= 0:
		return fmt.Errorf("%w: block cache size must be positive", errInvalidConfig)
	}
	return nil
}
