// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"
	"encoding/json"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/rpc"

	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/ledgervm/chain"
	"github.com/ava-labs/ledgervm/protocol"
	"github.com/ava-labs/ledgervm/state"
)

// Client defines ledgervm client operations.
type Client interface {
	// GetObject fetches the JSON form of the object with id [id]
	GetObject(ctx context.Context, id state.ObjectID) (json.RawMessage, error)

	// GetAccountByName fetches the account called [name]
	GetAccountByName(ctx context.Context, name string) (*chain.Account, error)

	// GetBalances fetches every balance held by [owner]
	GetBalances(ctx context.Context, owner state.ObjectID) ([]chain.BalanceReply, error)

	// GetTopHolders fetches the [count] largest holders of [asset]. A zero
	// count fetches as many as the chain parameters allow.
	GetTopHolders(ctx context.Context, asset state.ObjectID, count uint32) ([]chain.BalanceReply, error)

	// ValidateTransaction evaluates [tx] against the head state without
	// applying it
	ValidateTransaction(ctx context.Context, tx *protocol.SignedTransaction) (*chain.ValidateTransactionReply, error)

	// GetHead fetches the head block summary
	GetHead(ctx context.Context) (*chain.HeadReply, error)

	// GetBlock fetches the block [blkID], or the block at [height] when
	// [blkID] is empty
	GetBlock(ctx context.Context, blkID ids.ID, height uint64) (*protocol.Block, error)
}

// New creates a new client object for the node at [uri], for example
// http://127.0.0.1:9650.
func New(uri string) Client {
	req := rpc.NewEndpointRequester(uri, chain.Endpoint, chain.ServiceName)
	return &client{req: req}
}

type client struct {
	req rpc.EndpointRequester
}

func (cli *client) GetObject(ctx context.Context, id state.ObjectID) (json.RawMessage, error) {
	resp := new(struct {
		Object json.RawMessage `json:"object"`
	})
	if err := cli.req.SendRequest(ctx, "getObject", &chain.ObjectArgs{ID: id}, resp); err != nil {
		return nil, err
	}
	return resp.Object, nil
}

func (cli *client) GetAccountByName(ctx context.Context, name string) (*chain.Account, error) {
	resp := new(chain.AccountReply)
	if err := cli.req.SendRequest(ctx, "getAccountByName", &chain.AccountNameArgs{Name: name}, resp); err != nil {
		return nil, err
	}
	return resp.Account, nil
}

func (cli *client) GetBalances(ctx context.Context, owner state.ObjectID) ([]chain.BalanceReply, error) {
	resp := new(chain.BalancesReply)
	err := cli.req.SendRequest(ctx, "getBalances", &chain.BalancesArgs{Owner: owner}, resp)
	return resp.Balances, err
}

func (cli *client) GetTopHolders(ctx context.Context, asset state.ObjectID, count uint32) ([]chain.BalanceReply, error) {
	resp := new(chain.BalancesReply)
	err := cli.req.SendRequest(ctx,
		"getTopHolders",
		&chain.TopHoldersArgs{AssetID: asset, Count: cjson.Uint32(count)},
		resp,
	)
	return resp.Balances, err
}

func (cli *client) ValidateTransaction(ctx context.Context, tx *protocol.SignedTransaction) (*chain.ValidateTransactionReply, error) {
	txBytes, err := tx.Bytes()
	if err != nil {
		return nil, err
	}
	str, err := formatting.EncodeWithChecksum(formatting.Hex, txBytes)
	if err != nil {
		return nil, err
	}

	resp := new(chain.ValidateTransactionReply)
	err = cli.req.SendRequest(ctx,
		"validateTransaction",
		&chain.TransactionArgs{Tx: str, Encoding: formatting.Hex},
		resp,
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (cli *client) GetHead(ctx context.Context) (*chain.HeadReply, error) {
	resp := new(chain.HeadReply)
	if err := cli.req.SendRequest(ctx, "getHead", struct{}{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (cli *client) GetBlock(ctx context.Context, blkID ids.ID, height uint64) (*protocol.Block, error) {
	resp := new(chain.BlockReply)
	err := cli.req.SendRequest(ctx,
		"getBlock",
		&chain.BlockArgs{ID: blkID, Height: cjson.Uint64(height)},
		resp,
	)
	if err != nil {
		return nil, err
	}
	blkBytes, err := formatting.Decode(resp.Encoding, resp.Block)
	if err != nil {
		return nil, err
	}
	return protocol.ParseBlock(blkBytes)
}
