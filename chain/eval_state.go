// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/ledgervm/state"
)

// ApplyMode is the context a transaction is applied in.
type ApplyMode uint8

const (
	// Propagation applies a transaction received outside of a block.
	Propagation ApplyMode = iota
	// BlockProduction applies a transaction while building a block.
	BlockProduction
	// BlockReplay re-applies transactions of an already accepted block.
	BlockReplay
)

func (m ApplyMode) String() string {
	switch m {
	case Propagation:
		return "propagation"
	case BlockProduction:
		return "block_production"
	case BlockReplay:
		return "block_replay"
	default:
		return "unknown"
	}
}

// OperationResult is the outcome of one applied operation.
type OperationResult struct {
	Fee       uint64         `json:"fee"`
	NewObject state.ObjectID `json:"newObject"`
	Created   bool           `json:"created"`
}

// EvalState is the per transaction evaluation context. It is created for
// one transaction and discarded afterwards.
type EvalState struct {
	Mode    ApplyMode
	TxID    ids.ID
	SigKeys []ids.ShortID
	// Now is the head block time the transaction is evaluated at.
	Now            uint64
	OperationIndex int
	Results        []OperationResult
}

// evalContext is what an evaluator borrows while it runs. It never outlives
// the operation.
type evalContext struct {
	store  *state.Store
	global *GlobalProperties
	es     *EvalState

	// payer and fee of the current operation
	payer state.ObjectID
	fee   uint64
}
