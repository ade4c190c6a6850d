// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgervm/authority"
	"github.com/ava-labs/ledgervm/protocol"
)

func TestTopHoldersActiveAuthority(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	l := newTestLedger(t)
	derek, carol := l.id("derek"), l.id("carol")

	l.mustApply([]protocol.Operation{&protocol.AccountUpdate{
		Account:             derek,
		UpdateActiveSpecial: true,
		ActiveSpecial: protocol.SpecialAuthority{
			Kind:          protocol.TopHoldersAuthority,
			Asset:         protocol.CoreAsset,
			NumTopHolders: 2,
		},
	}}, "derek")

	holders, err := l.engine.TopHolders(protocol.CoreAsset, 2)
	require.NoError(err)
	require.Len(holders, 2)
	assert.Equal(l.id("alice"), holders[0].Owner)
	assert.Equal(l.id("brian"), holders[1].Owner)

	pay := func() []protocol.Operation {
		return []protocol.Operation{&protocol.Transfer{
			From:   derek,
			To:     carol,
			Amount: protocol.Asset{Amount: 1, AssetID: protocol.CoreAsset},
		}}
	}

	// brian holds less than half of the top holders' stake
	_, err = l.apply(l.tx(pay(), "brian"))
	requireKind(t, err, -1, InsufficientAuthority)

	// alice holds the majority
	_, err = l.apply(l.tx(pay(), "alice"))
	assert.NoError(err)
	_, err = l.apply(l.tx(pay(), "alice", "brian"))
	assert.NoError(err)

	// the owner authority still stands in for the active one
	_, err = l.apply(l.tx(pay(), "derek"))
	assert.NoError(err)
}

func TestTopHoldersBoundedByParameters(t *testing.T) {
	l := newTestLedger(t)
	derek := l.id("derek")

	before := l.checksum()
	_, err := l.apply(l.tx([]protocol.Operation{&protocol.AccountUpdate{
		Account:             derek,
		UpdateActiveSpecial: true,
		ActiveSpecial: protocol.SpecialAuthority{
			Kind:          protocol.TopHoldersAuthority,
			Asset:         protocol.CoreAsset,
			NumTopHolders: l.genesis.Parameters.MaxTopHolders + 1,
		},
	}}, "derek"))
	requireKind(t, err, 0, InvariantViolation)
	assert.Equal(t, before, l.checksum())
}

func TestTopHoldersWithoutHoldersKeepsStoredAuthority(t *testing.T) {
	l := newTestLedger(t, zeroFees)
	derek := l.id("derek")

	results := l.mustApply([]protocol.Operation{&protocol.AssetCreate{
		Issuer:    derek,
		Symbol:    "EMPTY",
		MaxSupply: 1000,
	}}, "derek")
	empty := results[0].NewObject

	l.mustApply([]protocol.Operation{&protocol.AccountUpdate{
		Account:             derek,
		UpdateActiveSpecial: true,
		ActiveSpecial: protocol.SpecialAuthority{
			Kind:          protocol.TopHoldersAuthority,
			Asset:         empty,
			NumTopHolders: 3,
		},
	}}, "derek")

	// nobody holds the asset, so derek's own key still signs
	l.mustApply([]protocol.Operation{&protocol.FileCreate{Owner: derek, Name: "derek-file", Content: []byte("x")}}, "derek")
}

func TestUnusedSignatureLimit(t *testing.T) {
	require := require.New(t)

	l := newTestLedger(t)
	alice, brian := l.id("alice"), l.id("brian")
	limit := int(l.genesis.Parameters.MaxUnusedSignatures)

	factory := crypto.FactorySECP256K1R{}
	extra := make([]crypto.PrivateKey, limit+1)
	for i := range extra {
		key, err := factory.NewPrivateKey()
		require.NoError(err)
		extra[i] = key
	}

	signed := func(keys ...crypto.PrivateKey) *protocol.SignedTransaction {
		tx := l.tx([]protocol.Operation{&protocol.Transfer{
			From:   alice,
			To:     brian,
			Amount: protocol.Asset{Amount: 1, AssetID: protocol.CoreAsset},
		}}, "alice")
		require.NoError(tx.Sign(l.config.ChainID, keys...))
		return tx
	}

	_, err := l.apply(signed(extra[:limit]...))
	require.NoError(err)

	_, err = l.apply(signed(extra...))
	txErr := requireKind(t, err, -1, InsufficientAuthority)
	assert.ErrorIs(t, txErr, authority.ErrIrrelevantSignature)
}

func TestCommitteeOverride(t *testing.T) {
	assert := assert.New(t)

	withCommittee := func(allow bool) func(*Genesis) {
		return func(g *Genesis) {
			g.Parameters.AllowCommitteeOverride = allow
			g.Committee = []GenesisCommitteeMember{{Account: "alice"}}
		}
	}

	l := newTestLedger(t, withCommittee(true))
	brianBefore := l.balance("brian")
	results, err := l.apply(l.tx([]protocol.Operation{&protocol.Transfer{
		From:   l.id("brian"),
		To:     l.id("carol"),
		Amount: protocol.Asset{Amount: 7, AssetID: protocol.CoreAsset},
	}}, "alice"))
	assert.NoError(err)
	assert.Equal(brianBefore-7-results[0].Fee, l.balance("brian"))

	l = newTestLedger(t, withCommittee(false))
	_, err = l.apply(l.tx([]protocol.Operation{&protocol.Transfer{
		From:   l.id("brian"),
		To:     l.id("carol"),
		Amount: protocol.Asset{Amount: 7, AssetID: protocol.CoreAsset},
	}}, "alice"))
	requireKind(t, err, -1, InsufficientAuthority)

	_, err = l.apply(l.tx([]protocol.Operation{&protocol.Transfer{
		From:   protocol.CommitteeAccount,
		To:     l.id("carol"),
		Amount: protocol.Asset{Amount: 7, AssetID: protocol.CoreAsset},
	}}, "alice"))
	requireKind(t, err, -1, InsufficientAuthority)
	assert.ErrorIs(err, authority.ErrCommitteeMayOnlyPropose)
}

func TestTempAccountNeedsNoSignature(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	l := newTestLedger(t, zeroFees)
	l.mustApply([]protocol.Operation{&protocol.Transfer{
		From:   l.id("alice"),
		To:     protocol.TempAccount,
		Amount: protocol.Asset{Amount: 100, AssetID: protocol.CoreAsset},
	}}, "alice")

	brianBefore := l.balance("brian")
	_, err := l.apply(l.tx([]protocol.Operation{&protocol.Transfer{
		From:   protocol.TempAccount,
		To:     l.id("brian"),
		Amount: protocol.Asset{Amount: 60, AssetID: protocol.CoreAsset},
	}}))
	require.NoError(err)
	assert.Equal(brianBefore+60, l.balance("brian"))

	left, err := l.engine.GetBalance(protocol.TempAccount, protocol.CoreAsset)
	require.NoError(err)
	assert.Equal(uint64(40), left)
}

func TestRequiredSignatures(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	l := newTestLedger(t)
	alice, brian, carol := l.id("alice"), l.id("brian"), l.id("carol")
	address := func(name string) ids.ShortID { return l.keys[name].PublicKey().Address() }
	available := []ids.ShortID{address("alice"), address("brian"), address("carol")}

	tx := &protocol.Transaction{Operations: []protocol.Operation{
		&protocol.Transfer{From: alice, To: carol, Amount: protocol.Asset{Amount: 1, AssetID: protocol.CoreAsset}},
		&protocol.FileRelateParent{
			SubFileOwner:    brian,
			ParentFile:      protocol.FileClass.ID(0),
			ParentFileOwner: alice,
			SubFile:         protocol.FileClass.ID(1),
		},
	}}
	keys, err := l.engine.RequiredSignatures(tx, available)
	require.NoError(err)
	assert.ElementsMatch([]ids.ShortID{address("alice"), address("brian")}, keys)

	_, err = l.engine.RequiredSignatures(tx, []ids.ShortID{address("carol")})
	assert.ErrorIs(err, authority.ErrInsufficientAuthority)
}
