// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/ledgervm/chain"
	"github.com/ava-labs/ledgervm/protocol"
)

const genesisTime = 1000

// newTestServer serves a ledger holding the accounts alice and brian and
// returns a client for it together with alice's key.
func newTestServer(t *testing.T) (Client, ids.ID, crypto.PrivateKey) {
	factory := crypto.FactorySECP256K1R{}
	aliceKey, err := factory.NewPrivateKey()
	require.NoError(t, err)

	g := chain.DefaultGenesis()
	g.Timestamp = genesisTime
	g.Accounts = []chain.GenesisAccount{
		{Name: "alice", Key: aliceKey.PublicKey().Address(), Balance: 2000 * protocol.Precision},
		{Name: "brian", Key: ids.GenerateTestShortID(), Balance: 1000 * protocol.Precision},
	}

	config := chain.DefaultConfig()
	config.ChainID = ids.GenerateTestID()
	logger := log.New()
	logger.SetHandler(log.DiscardHandler())

	engine, err := chain.New(memdb.New(), g, config, logger, prometheus.NewRegistry())
	require.NoError(t, err)
	handler, err := chain.NewHandler(engine)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.Handle(chain.Endpoint, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return New(server.URL), config.ChainID, aliceKey
}

func TestClient(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	cli, chainID, aliceKey := newTestServer(t)

	head, err := cli.GetHead(ctx)
	require.NoError(err)
	assert.Zero(uint64(head.Height))

	blk, err := cli.GetBlock(ctx, ids.Empty, 0)
	require.NoError(err)
	assert.Equal(uint64(genesisTime), blk.Timestamp)
	blkID, err := blk.ID()
	require.NoError(err)
	assert.Equal(head.ID, blkID)

	alice, err := cli.GetAccountByName(ctx, "alice")
	require.NoError(err)
	brian, err := cli.GetAccountByName(ctx, "brian")
	require.NoError(err)
	_, err = cli.GetAccountByName(ctx, "nobody")
	assert.Error(err)

	balances, err := cli.GetBalances(ctx, alice.ID())
	require.NoError(err)
	require.Len(balances, 1)
	assert.Equal(2000*protocol.Precision, uint64(balances[0].Amount))

	holders, err := cli.GetTopHolders(ctx, protocol.CoreAsset, 0)
	require.NoError(err)
	require.Len(holders, 2)
	assert.Equal(alice.ID(), holders[0].Owner)
	assert.Equal(brian.ID(), holders[1].Owner)

	raw, err := cli.GetObject(ctx, brian.ID())
	require.NoError(err)
	account := chain.Account{}
	require.NoError(json.Unmarshal(raw, &account))
	assert.Equal("brian", account.Name)

	tx := &protocol.SignedTransaction{Transaction: protocol.Transaction{
		Expiration: genesisTime + 60,
		Operations: []protocol.Operation{&protocol.Transfer{
			From:   alice.ID(),
			To:     brian.ID(),
			Amount: protocol.Asset{Amount: 5000 * protocol.Precision, AssetID: protocol.CoreAsset},
		}},
	}}
	require.NoError(tx.Sign(chainID, aliceKey))

	reply, err := cli.ValidateTransaction(ctx, tx)
	require.NoError(err)
	assert.False(reply.Valid)
	assert.Equal(0, reply.Index)
	assert.Equal(chain.InsufficientFunds.String(), reply.Kind)

	tx.Operations[0].(*protocol.Transfer).Amount.Amount = 5
	tx.Signatures = nil
	require.NoError(tx.Sign(chainID, aliceKey))
	reply, err = cli.ValidateTransaction(ctx, tx)
	require.NoError(err)
	assert.True(reply.Valid)
	require.Len(reply.Results, 1)

	// validation never changes the ledger
	balances, err = cli.GetBalances(ctx, alice.ID())
	require.NoError(err)
	assert.Equal(2000*protocol.Precision, uint64(balances[0].Amount))
}

func TestClientWrongEndpoint(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	_, err := New(server.URL).GetHead(context.Background())
	assert.Error(t, err)
}
