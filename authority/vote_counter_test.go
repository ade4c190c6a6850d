// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package authority

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ava-labs/ledgervm/protocol"
)

func TestVoteCounterWeights(t *testing.T) {
	assert := assert.New(t)

	a, b, c := protocol.AccountClass.ID(10), protocol.AccountClass.ID(11), protocol.AccountClass.ID(12)

	vc := VoteCounter{}
	assert.NoError(vc.Add(b, 1000000))
	assert.NoError(vc.Add(a, 500000))
	assert.NoError(vc.Add(c, 10))

	auth, ok := vc.Finish()
	assert.True(ok)
	assert.Equal([]protocol.AccountWeight{
		{Account: a, Weight: 31250},
		{Account: b, Weight: 62500},
		{Account: c, Weight: 1},
	}, auth.Accounts)
	assert.Equal(uint32(93751/2+1), auth.Threshold)
	assert.Equal(uint32(93751), vc.Total())

	// the same input always yields the same authority
	again := VoteCounter{}
	assert.NoError(again.Add(b, 1000000))
	assert.NoError(again.Add(a, 500000))
	assert.NoError(again.Add(c, 10))
	auth2, _ := again.Finish()
	assert.True(auth.Equal(&auth2))
}

func TestVoteCounterSmallVotesKeepFullWeight(t *testing.T) {
	assert := assert.New(t)

	vc := VoteCounter{}
	assert.NoError(vc.Add(protocol.AccountClass.ID(1), 300))
	assert.NoError(vc.Add(protocol.AccountClass.ID(2), 0))
	assert.NoError(vc.Add(protocol.AccountClass.ID(3), 200))

	auth, ok := vc.Finish()
	assert.True(ok)
	assert.Len(auth.Accounts, 2)
	assert.Equal(uint16(300), auth.Accounts[0].Weight)
	assert.Equal(uint32(251), auth.Threshold)
}

func TestVoteCounterEmpty(t *testing.T) {
	assert := assert.New(t)

	vc := VoteCounter{}
	assert.True(vc.IsEmpty())
	assert.NoError(vc.Add(protocol.AccountClass.ID(1), 0))
	_, ok := vc.Finish()
	assert.False(ok)
}

func TestVoteCounterRejectsAscendingVotes(t *testing.T) {
	vc := VoteCounter{}
	assert.NoError(t, vc.Add(protocol.AccountClass.ID(1), 10))
	assert.ErrorIs(t, vc.Add(protocol.AccountClass.ID(2), 11), ErrVotesNotDescending)
}

func TestVoteCounterTotalOverflow(t *testing.T) {
	assert := assert.New(t)

	vc := VoteCounter{}
	var err error
	for i := uint64(0); i < 70000; i++ {
		if err = vc.Add(protocol.AccountClass.ID(i), math.MaxUint16); err != nil {
			break
		}
	}
	assert.ErrorIs(err, ErrVoteTotalOverflow)
	assert.Equal(uint32(math.MaxUint32), vc.Total())
}
