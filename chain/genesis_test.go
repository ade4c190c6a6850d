// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"encoding/json"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ledgervm/protocol"
)

func TestParseGenesis(t *testing.T) {
	require := require.New(t)

	g, _ := newTestGenesis(t)
	g.Committee = []GenesisCommitteeMember{{Account: "alice", URL: "https://alice.example"}}
	bytes, err := json.Marshal(g)
	require.NoError(err)

	parsed, err := ParseGenesis(bytes)
	require.NoError(err)
	require.Equal(g, parsed)

	// omitted sections keep their defaults
	parsed, err = ParseGenesis([]byte(`{"timestamp": 5}`))
	require.NoError(err)
	require.Equal(uint64(5), parsed.Timestamp)
	require.Equal(DefaultGenesis().Parameters, parsed.Parameters)

	_, err = ParseGenesis([]byte(`{"timestamp": "soon"}`))
	require.ErrorIs(err, errInvalidGenesis)
}

func TestGenesisValidate(t *testing.T) {
	account := func(name string, balance uint64) GenesisAccount {
		return GenesisAccount{Name: name, Key: ids.GenerateTestShortID(), Balance: balance}
	}
	tests := []struct {
		name   string
		modify func(*Genesis)
	}{
		{
			name:   "invalid core symbol",
			modify: func(g *Genesis) { g.CoreSymbol = "c" },
		},
		{
			name:   "invalid account name",
			modify: func(g *Genesis) { g.Accounts = append(g.Accounts, account("Bad Name", 1)) },
		},
		{
			name:   "duplicate account",
			modify: func(g *Genesis) { g.Accounts = append(g.Accounts, account("alice", 1)) },
		},
		{
			name:   "reserved account name",
			modify: func(g *Genesis) { g.Accounts = append(g.Accounts, account("null-account", 1)) },
		},
		{
			name: "supply overflow",
			modify: func(g *Genesis) {
				g.Accounts = append(g.Accounts, account("frank", protocol.MaxShareSupply))
			},
		},
		{
			name:   "unknown witness",
			modify: func(g *Genesis) { g.Witnesses = []GenesisWitness{{Account: "nobody"}} },
		},
		{
			name:   "unknown committee member",
			modify: func(g *Genesis) { g.Committee = []GenesisCommitteeMember{{Account: "nobody"}} },
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g, _ := newTestGenesis(t)
			require.NoError(t, g.Validate())
			test.modify(g)
			assert.ErrorIs(t, g.Validate(), errInvalidGenesis)
		})
	}
}
