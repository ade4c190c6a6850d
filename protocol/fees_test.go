// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"bytes"
	"math"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgervm/state"
)

func TestDataFee(t *testing.T) {
	assert := assert.New(t)

	fee, err := DataFee(2048, 100)
	assert.NoError(err)
	assert.Equal(uint64(200), fee)

	fee, err = DataFee(10, 100)
	assert.NoError(err)
	assert.Equal(uint64(0), fee)

	_, err = DataFee(math.MaxUint64, 2)
	assert.ErrorIs(err, ErrInvalidOperation)
}

// Doubling the size dependent payload of an operation never lowers its fee.
func TestFeeMonotonicity(t *testing.T) {
	schedule := DefaultFeeSchedule()
	key := ids.GenerateTestShortID()

	tests := []struct {
		name string
		op   func(size int) Operation
	}{
		{"transfer memo", func(size int) Operation {
			return &Transfer{From: alice, To: bob, Amount: Asset{Amount: 1, AssetID: CoreAsset}, Memo: bytes.Repeat([]byte{1}, size)}
		}},
		{"asset issue memo", func(size int) Operation {
			return &AssetIssue{Issuer: alice, IssueTo: bob, Amount: Asset{Amount: 1, AssetID: CoreAsset}, Memo: bytes.Repeat([]byte{1}, size)}
		}},
		{"file content", func(size int) Operation {
			return &FileCreate{Owner: alice, Name: "report", Content: bytes.Repeat([]byte{1}, size)}
		}},
		{"file signature", func(size int) Operation {
			return &FileSign{Account: alice, File: file0, Signature: string(bytes.Repeat([]byte{'s'}, size))}
		}},
		{"nh asset describe", func(size int) Operation {
			return &NHAssetCreate{Creator: alice, Owner: bob, WorldView: "w", BaseDescribe: string(bytes.Repeat([]byte{'d'}, size))}
		}},
		{"account update votes", func(size int) Operation {
			votes := make([]VoteID, size)
			for i := range votes {
				votes[i] = NewVoteID(VoteForWitness, uint32(i))
			}
			return &AccountUpdate{Account: alice, UpdateOptions: true, Options: AccountOptions{MemoKey: key, Votes: votes}}
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			previous := uint64(0)
			for size := 1; size <= 1<<14; size *= 2 {
				fee, err := CalculateFee(test.op(size), &schedule)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, fee, previous, "size %d", size)
				previous = fee
			}
			assert.Greater(t, previous, uint64(0))
		})
	}
}

func TestFileRelatedAccountFee(t *testing.T) {
	assert := assert.New(t)
	schedule := DefaultFeeSchedule()

	fee, err := CalculateFee(&FileAddRelatedAccounts{Owner: alice, File: file0, Related: []state.ObjectID{alice, bob}}, &schedule)
	assert.NoError(err)
	assert.Equal(schedule.FileAddRelatedAccounts.Fee+2*schedule.FileAddRelatedAccounts.PricePerRelatedAccount, fee)
}

func TestAccountCreatePremiumName(t *testing.T) {
	assert := assert.New(t)
	schedule := DefaultFeeSchedule()
	key := ids.GenerateTestShortID()

	cheap, err := CalculateFee(&AccountCreate{Registrar: alice, Name: "carol1", Owner: NewKeyAuthority(key), Active: NewKeyAuthority(key)}, &schedule)
	assert.NoError(err)
	premium, err := CalculateFee(&AccountCreate{Registrar: alice, Name: "carol", Owner: NewKeyAuthority(key), Active: NewKeyAuthority(key)}, &schedule)
	assert.NoError(err)
	assert.Less(cheap, premium)
	assert.GreaterOrEqual(cheap, schedule.AccountCreate.BasicFee)
}
