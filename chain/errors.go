// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"
	"fmt"

	"github.com/ava-labs/ledgervm/authority"
	"github.com/ava-labs/ledgervm/protocol"
	"github.com/ava-labs/ledgervm/state"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvariantViolation = errors.New("invariant violation")

	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrTransactionExpired   = errors.New("transaction expired")
	ErrExpirationTooFar     = errors.New("transaction expiration too far in the future")

	ErrWrongHeight   = errors.New("block height does not follow the head")
	ErrWrongParent   = errors.New("block does not build on the head")
	ErrBlockTooEarly = errors.New("block timestamp does not advance the head")
)

// FailureKind classifies why a transaction was rejected.
type FailureKind uint8

const (
	InvariantViolation FailureKind = iota
	SyntacticFailure
	InsufficientAuthority
	InsufficientFunds
	NotFound
	StaleReference
)

func (k FailureKind) String() string {
	switch k {
	case InvariantViolation:
		return "invariant_violation"
	case SyntacticFailure:
		return "syntactic_failure"
	case InsufficientAuthority:
		return "insufficient_authority"
	case InsufficientFunds:
		return "insufficient_funds"
	case NotFound:
		return "not_found"
	case StaleReference:
		return "stale_reference"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by the engine onto its failure kind.
// Errors of no known kind are invariant violations.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, protocol.ErrInvalidOperation):
		return SyntacticFailure
	case errors.Is(err, authority.ErrInsufficientAuthority),
		errors.Is(err, authority.ErrCommitteeMayOnlyPropose),
		errors.Is(err, authority.ErrIrrelevantSignature),
		errors.Is(err, authority.ErrDuplicateSignature):
		return InsufficientAuthority
	case errors.Is(err, ErrInsufficientFunds):
		return InsufficientFunds
	case errors.Is(err, state.ErrStaleReference):
		return StaleReference
	case errors.Is(err, state.ErrNotFound):
		return NotFound
	default:
		return InvariantViolation
	}
}

// ObjectError names the object an evaluation failed on.
type ObjectError struct {
	ID  state.ObjectID
	Err error
}

func (e *ObjectError) Error() string { return fmt.Sprintf("%s: %s", e.ID, e.Err) }
func (e *ObjectError) Unwrap() error { return e.Err }

// TxError reports a rejected transaction. Index is the failing operation, or
// -1 when the transaction as a whole was rejected.
type TxError struct {
	Index  int
	Kind   FailureKind
	Object state.ObjectID
	Err    error
}

func newTxError(index int, err error) *TxError {
	txErr := &TxError{Index: index, Kind: Classify(err), Err: err}
	var objErr *ObjectError
	if errors.As(err, &objErr) {
		txErr.Object = objErr.ID
	}
	return txErr
}

func (e *TxError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("transaction rejected (%s): %s", e.Kind, e.Err)
	}
	return fmt.Sprintf("operation %d rejected (%s): %s", e.Index, e.Kind, e.Err)
}

func (e *TxError) Unwrap() error { return e.Err }

func invariantf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}
