// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/crypto"
	"github.com/ava-labs/avalanchego/utils/hashing"
)

var errWrongVersion = errors.New("wrong codec version")

// Transaction is an ordered list of operations applied atomically.
type Transaction struct {
	// Expiration is the unix time after which the transaction is invalid.
	Expiration uint64      `serialize:"true" json:"expiration"`
	Operations []Operation `serialize:"true" json:"operations"`
}

// Bytes returns the canonical encoding of the unsigned transaction.
func (tx *Transaction) Bytes() ([]byte, error) {
	return Codec.Marshal(CodecVersion, tx)
}

// ID identifies the transaction regardless of its signatures.
func (tx *Transaction) ID() (ids.ID, error) {
	bytes, err := tx.Bytes()
	if err != nil {
		return ids.Empty, err
	}
	return hashing.ComputeHash256Array(bytes), nil
}

// SigDigest is the hash signers sign: the chain id followed by the
// transaction bytes, so signatures do not replay across chains.
func (tx *Transaction) SigDigest(chainID ids.ID) ([]byte, error) {
	bytes, err := tx.Bytes()
	if err != nil {
		return nil, err
	}
	msg := make([]byte, 0, len(chainID)+len(bytes))
	msg = append(msg, chainID[:]...)
	msg = append(msg, bytes...)
	return hashing.ComputeHash256(msg), nil
}

// SignedTransaction is a transaction with the signatures approving it.
type SignedTransaction struct {
	Transaction `serialize:"true"`
	Signatures  [][]byte `serialize:"true" json:"signatures"`
}

// Sign appends a signature by each of [keys].
func (tx *SignedTransaction) Sign(chainID ids.ID, keys ...crypto.PrivateKey) error {
	digest, err := tx.SigDigest(chainID)
	if err != nil {
		return err
	}
	for _, key := range keys {
		sig, err := key.SignHash(digest)
		if err != nil {
			return fmt.Errorf("failed to sign transaction: %w", err)
		}
		tx.Signatures = append(tx.Signatures, sig)
	}
	return nil
}

// Bytes returns the encoding of the transaction with its signatures.
func (tx *SignedTransaction) Bytes() ([]byte, error) {
	return Codec.Marshal(CodecVersion, tx)
}

// ParseSignedTransaction decodes the output of SignedTransaction.Bytes.
func ParseSignedTransaction(bytes []byte) (*SignedTransaction, error) {
	tx := &SignedTransaction{}
	parsedVersion, err := Codec.Unmarshal(bytes, tx)
	if err != nil {
		return nil, err
	}
	if parsedVersion != CodecVersion {
		return nil, fmt.Errorf("%w: %d", errWrongVersion, parsedVersion)
	}
	return tx, nil
}

// Block is an ordered list of signed transactions on top of a parent block.
type Block struct {
	ParentID     ids.ID              `serialize:"true" json:"parentID"`
	Height       uint64              `serialize:"true" json:"height"`
	Timestamp    uint64              `serialize:"true" json:"timestamp"`
	Transactions []SignedTransaction `serialize:"true" json:"transactions"`
}

func (b *Block) Bytes() ([]byte, error) {
	return Codec.Marshal(CodecVersion, b)
}

func (b *Block) ID() (ids.ID, error) {
	bytes, err := b.Bytes()
	if err != nil {
		return ids.Empty, err
	}
	return hashing.ComputeHash256Array(bytes), nil
}

// ParseBlock decodes the output of Block.Bytes.
func ParseBlock(bytes []byte) (*Block, error) {
	blk := &Block{}
	parsedVersion, err := Codec.Unmarshal(bytes, blk)
	if err != nil {
		return nil, err
	}
	if parsedVersion != CodecVersion {
		return nil, fmt.Errorf("%w: %d", errWrongVersion, parsedVersion)
	}
	return blk, nil
}
