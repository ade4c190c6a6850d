// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ava-labs/ledgervm/authority"
	"github.com/ava-labs/ledgervm/protocol"
	"github.com/ava-labs/ledgervm/state"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		kind FailureKind
	}{
		{err: protocol.ErrInvalidOperation, kind: SyntacticFailure},
		{err: fmt.Errorf("op: %w", authority.ErrInsufficientAuthority), kind: InsufficientAuthority},
		{err: authority.ErrCommitteeMayOnlyPropose, kind: InsufficientAuthority},
		{err: authority.ErrIrrelevantSignature, kind: InsufficientAuthority},
		{err: authority.ErrDuplicateSignature, kind: InsufficientAuthority},
		{err: ErrInsufficientFunds, kind: InsufficientFunds},
		{err: state.ErrNotFound, kind: NotFound},
		{err: state.ErrStaleReference, kind: StaleReference},
		{err: ErrTransactionExpired, kind: InvariantViolation},
		{err: errors.New("anything else"), kind: InvariantViolation},
	}
	for _, test := range tests {
		t.Run(test.err.Error(), func(t *testing.T) {
			assert.Equal(t, test.kind, Classify(test.err))
		})
	}
}

func TestTxErrorNamesObject(t *testing.T) {
	assert := assert.New(t)

	id := protocol.AssetClass.ID(7)
	err := fmt.Errorf("issue: %w", &ObjectError{ID: id, Err: invariantf("supply exceeded")})
	txErr := newTxError(2, err)

	assert.Equal(2, txErr.Index)
	assert.Equal(InvariantViolation, txErr.Kind)
	assert.Equal(id, txErr.Object)
	assert.ErrorIs(txErr, ErrInvariantViolation)
	assert.Contains(txErr.Error(), "operation 2 rejected (invariant_violation)")

	assert.Contains(newTxError(-1, ErrDuplicateTransaction).Error(), "transaction rejected")
}
