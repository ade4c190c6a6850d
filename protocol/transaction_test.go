// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedTransactionEncoding(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	factory := crypto.FactorySECP256K1R{}
	key, err := factory.NewPrivateKey()
	require.NoError(err)

	chainID := ids.GenerateTestID()
	tx := &SignedTransaction{Transaction: Transaction{
		Expiration: 1000,
		Operations: []Operation{
			&Transfer{From: alice, To: bob, Amount: Asset{Amount: 5, AssetID: CoreAsset}, Memo: []byte("hi")},
			&FileCreate{Owner: alice, Name: "report", Content: []byte("body")},
		},
	}}
	unsignedID, err := tx.ID()
	require.NoError(err)
	require.NoError(tx.Sign(chainID, key))
	assert.Len(tx.Signatures, 1)

	signedID, err := tx.ID()
	require.NoError(err)
	assert.Equal(unsignedID, signedID, "signatures do not change the id")

	bytes, err := tx.Bytes()
	require.NoError(err)
	parsed, err := ParseSignedTransaction(bytes)
	require.NoError(err)
	assert.Equal(tx, parsed)

	digest, err := parsed.SigDigest(chainID)
	require.NoError(err)
	pub, err := factory.RecoverHashPublicKey(digest, parsed.Signatures[0])
	require.NoError(err)
	assert.Equal(key.PublicKey().Address(), pub.Address())

	otherDigest, err := parsed.SigDigest(ids.GenerateTestID())
	require.NoError(err)
	assert.NotEqual(digest, otherDigest)
}

func TestBlockEncoding(t *testing.T) {
	assert := assert.New(t)

	blk := &Block{
		ParentID:  ids.GenerateTestID(),
		Height:    3,
		Timestamp: 42,
		Transactions: []SignedTransaction{{
			Transaction: Transaction{Operations: []Operation{&NHAssetDelete{Owner: alice, NHAsset: NHAssetClass.ID(1)}}},
			Signatures:  [][]byte{{1, 2, 3}},
		}},
	}
	bytes, err := blk.Bytes()
	assert.NoError(err)
	parsed, err := ParseBlock(bytes)
	assert.NoError(err)
	assert.Equal(blk, parsed)

	id, err := blk.ID()
	assert.NoError(err)
	parsedID, err := parsed.ID()
	assert.NoError(err)
	assert.Equal(id, parsedID)
}

func TestAuthorityEntries(t *testing.T) {
	assert := assert.New(t)

	k1, k2 := ids.ShortID{1}, ids.ShortID{2}
	a := Authority{Threshold: 3}
	a.AddKey(k2, 1)
	a.AddKey(k1, 1)
	a.AddAccount(bob, 1)
	a.AddAccount(alice, 1)
	assert.NoError(a.Validate())
	assert.Equal(k1, a.Keys[0].Key)
	assert.Equal(alice, a.Accounts[0].Account)
	assert.Equal(4, a.NumAuths())
	assert.False(a.IsImpossible())

	a.AddKey(k1, 5)
	assert.Len(a.Keys, 2)
	assert.Equal(uint16(5), a.Keys[0].Weight)

	a.Threshold = 100
	assert.True(a.IsImpossible())

	unsorted := Authority{Threshold: 1, Keys: []KeyWeight{{Key: k2, Weight: 1}, {Key: k1, Weight: 1}}}
	assert.ErrorIs(unsorted.Validate(), ErrInvalidOperation)

	single := NewKeyAuthority(k1)
	assert.True(single.Equal(&Authority{Threshold: 1, Keys: []KeyWeight{{Key: k1, Weight: 1}}}))
	assert.False(single.Equal(&Authority{Threshold: 2, Keys: []KeyWeight{{Key: k1, Weight: 1}}}))
}

func TestVoteID(t *testing.T) {
	assert := assert.New(t)

	v := NewVoteID(VoteForWitness, 7)
	assert.Equal(VoteForWitness, v.Type())
	assert.Equal(uint32(7), v.Instance())

	opts := AccountOptions{Votes: []VoteID{NewVoteID(VoteForCommittee, 1), v}}
	assert.NoError(opts.Validate())
	opts.Votes = []VoteID{v, v}
	assert.ErrorIs(opts.Validate(), ErrInvalidOperation)
	opts.Votes = []VoteID{VoteID(9)}
	assert.ErrorIs(opts.Validate(), ErrInvalidOperation)
}
