// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/cache/metercacher"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/crypto"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/ledgervm/protocol"
)

var (
	_ SignatureRecoverer = &Secp256k1Recoverer{}
	_ SignatureRecoverer = &CachingRecoverer{}
)

// SignatureRecoverer recovers the address that produced a signature over a
// digest. Implementations must be safe for concurrent use.
type SignatureRecoverer interface {
	RecoverSigner(digest, sig []byte) (ids.ShortID, error)
}

type Secp256k1Recoverer struct {
	factory crypto.FactorySECP256K1R
}

func (r *Secp256k1Recoverer) RecoverSigner(digest, sig []byte) (ids.ShortID, error) {
	pk, err := r.factory.RecoverHashPublicKey(digest, sig)
	if err != nil {
		return ids.ShortEmpty, err
	}
	return pk.Address(), nil
}

// CachingRecoverer remembers recovered signers, keyed by digest and
// signature.
type CachingRecoverer struct {
	recoverer SignatureRecoverer
	cache     cache.Cacher
}

func NewCachingRecoverer(
	recoverer SignatureRecoverer,
	size int,
	namespace string,
	registerer prometheus.Registerer,
) (*CachingRecoverer, error) {
	c, err := metercacher.New(namespace+"_signature_cache", registerer, &cache.LRU{Size: size})
	if err != nil {
		return nil, err
	}
	return &CachingRecoverer{recoverer: recoverer, cache: c}, nil
}

func (r *CachingRecoverer) RecoverSigner(digest, sig []byte) (ids.ShortID, error) {
	msg := make([]byte, 0, len(digest)+len(sig))
	msg = append(msg, digest...)
	msg = append(msg, sig...)
	key := ids.ID(hashing.ComputeHash256Array(msg))

	if signer, ok := r.cache.Get(key); ok {
		return signer.(ids.ShortID), nil
	}
	signer, err := r.recoverer.RecoverSigner(digest, sig)
	if err != nil {
		return ids.ShortEmpty, err
	}
	r.cache.Put(key, signer)
	return signer, nil
}

// recoverSigners returns the addresses that signed [tx].
func recoverSigners(r SignatureRecoverer, chainID ids.ID, tx *protocol.SignedTransaction) ([]ids.ShortID, error) {
	digest, err := tx.SigDigest(chainID)
	if err != nil {
		return nil, err
	}
	signers := make([]ids.ShortID, len(tx.Signatures))
	for i, sig := range tx.Signatures {
		signer, err := r.RecoverSigner(digest, sig)
		if err != nil {
			return nil, fmt.Errorf("%w: signature %d: %s", protocol.ErrInvalidOperation, i, err)
		}
		signers[i] = signer
	}
	return signers, nil
}

// recoverBlockSigners recovers the signers of every transaction of [blk] in
// parallel. The store is not touched.
func recoverBlockSigners(r SignatureRecoverer, chainID ids.ID, blk *protocol.Block) ([][]ids.ShortID, error) {
	signers := make([][]ids.ShortID, len(blk.Transactions))
	errs := make([]error, len(blk.Transactions))

	var wg sync.WaitGroup
	for i := range blk.Transactions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			signers[i], errs[i] = recoverSigners(r, chainID, &blk.Transactions[i])
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, newTxError(-1, err))
		}
	}
	return signers, nil
}
