// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package authority

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/ava-labs/ledgervm/protocol"
	"github.com/ava-labs/ledgervm/state"
)

// weightBits is how many significant bits the largest vote keeps.
const weightBits = 16

var (
	ErrVotesNotDescending = errors.New("votes must be added in descending order")
	ErrVoteTotalOverflow  = errors.New("vote weight total overflows")
)

// VoteCounter turns a descending sequence of (account, votes) pairs into a
// weighted threshold authority. The largest vote fixes a right shift so that
// it fits in 16 bits; every later vote is shifted the same way and keeps a
// weight of at least 1.
type VoteCounter struct {
	auth  protocol.Authority
	total uint64
	shift int
	last  uint64
	begun bool
}

// Add records [votes] for [who]. Zero votes are ignored.
func (vc *VoteCounter) Add(who state.ObjectID, votes uint64) error {
	if votes == 0 {
		return nil
	}
	if !vc.begun {
		vc.shift = bits.Len64(votes) - weightBits
		if vc.shift < 0 {
			vc.shift = 0
		}
		vc.begun = true
	} else if votes > vc.last {
		return fmt.Errorf("%w: %d after %d", ErrVotesNotDescending, votes, vc.last)
	}
	vc.last = votes

	weight := votes >> uint(vc.shift)
	if weight == 0 {
		weight = 1
	}
	if vc.total+weight > math.MaxUint32 {
		return fmt.Errorf("%w: adding %d to %d", ErrVoteTotalOverflow, weight, vc.total)
	}
	vc.total += weight
	vc.auth.AddAccount(who, uint16(weight))
	return nil
}

// IsEmpty reports whether any vote was counted.
func (vc *VoteCounter) IsEmpty() bool { return vc.total == 0 }

// Total is the sum of the weights counted so far.
func (vc *VoteCounter) Total() uint32 { return uint32(vc.total) }

// Finish returns the resulting authority with a simple majority threshold.
// It returns false when no votes were counted, in which case the caller
// keeps whatever authority it had.
func (vc *VoteCounter) Finish() (protocol.Authority, bool) {
	if vc.total == 0 {
		return protocol.Authority{}, false
	}
	auth := vc.auth
	auth.Accounts = append([]protocol.AccountWeight(nil), vc.auth.Accounts...)
	auth.Threshold = uint32(vc.total>>1) + 1
	return auth, true
}
