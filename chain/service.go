// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/rpc/v2"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"

	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/ledgervm/protocol"
	"github.com/ava-labs/ledgervm/state"
)

const (
	// ServiceName is the name the query service is registered under.
	ServiceName = "ledgervm"
	// Endpoint is the path the query service is served on.
	Endpoint = "/ext/ledger"
)

var errNoAccountName = errors.New("account name is required")

// NewHandler returns the JSON-RPC handler serving [engine]'s ledger.
func NewHandler(engine *Engine) (http.Handler, error) {
	server := rpc.NewServer()
	codec := cjson.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	return server, server.RegisterService(&Service{engine: engine}, ServiceName)
}

// Service is the API service of the ledger
type Service struct{ engine *Engine }

// ObjectArgs names an object by its "space.type.instance" id
type ObjectArgs struct {
	ID state.ObjectID `json:"id"`
}

// ObjectReply carries an object in its JSON form
type ObjectReply struct {
	ID     state.ObjectID `json:"id"`
	Object state.Object   `json:"object"`
}

// GetObject returns the object with id [args.ID]
func (s *Service) GetObject(_ *http.Request, args *ObjectArgs, reply *ObjectReply) error {
	s.engine.lock.Lock()
	defer s.engine.lock.Unlock()

	obj, err := s.engine.store.Get(args.ID)
	if err != nil {
		return err
	}
	reply.ID = args.ID
	reply.Object = obj
	return nil
}

type AccountNameArgs struct {
	Name string `json:"name"`
}

type AccountReply struct {
	Account *Account `json:"account"`
}

// GetAccountByName returns the account called [args.Name]
func (s *Service) GetAccountByName(_ *http.Request, args *AccountNameArgs, reply *AccountReply) error {
	if args.Name == "" {
		return errNoAccountName
	}
	s.engine.lock.Lock()
	defer s.engine.lock.Unlock()

	acct, err := s.engine.GetAccountByName(args.Name)
	if err != nil {
		return err
	}
	reply.Account = acct
	return nil
}

type BalancesArgs struct {
	Owner state.ObjectID `json:"owner"`
}

type BalanceReply struct {
	Owner   state.ObjectID `json:"owner"`
	AssetID state.ObjectID `json:"assetID"`
	Amount  cjson.Uint64   `json:"amount"`
}

type BalancesReply struct {
	Balances []BalanceReply `json:"balances"`
}

// GetBalances returns every balance held by [args.Owner]
func (s *Service) GetBalances(_ *http.Request, args *BalancesArgs, reply *BalancesReply) error {
	s.engine.lock.Lock()
	defer s.engine.lock.Unlock()

	if err := requireExists(s.engine.store, args.Owner); err != nil {
		return err
	}
	balances, err := s.engine.GetBalances(args.Owner)
	if err != nil {
		return err
	}
	reply.Balances = toBalanceReplies(balances)
	return nil
}

type TopHoldersArgs struct {
	AssetID state.ObjectID `json:"assetID"`
	Count   cjson.Uint32   `json:"count"`
}

// GetTopHolders returns the largest holders of [args.AssetID], at most
// MaxTopHolders of them
func (s *Service) GetTopHolders(_ *http.Request, args *TopHoldersArgs, reply *BalancesReply) error {
	s.engine.lock.Lock()
	defer s.engine.lock.Unlock()

	global, err := getObject[*GlobalProperties](s.engine.store, globalPropertiesID)
	if err != nil {
		return err
	}
	if err := requireExists(s.engine.store, args.AssetID); err != nil {
		return err
	}
	count := int(args.Count)
	if limit := int(global.Parameters.MaxTopHolders); count == 0 || count > limit {
		count = limit
	}
	holders, err := s.engine.TopHolders(args.AssetID, count)
	if err != nil {
		return err
	}
	reply.Balances = toBalanceReplies(holders)
	return nil
}

func toBalanceReplies(balances []*Balance) []BalanceReply {
	out := make([]BalanceReply, len(balances))
	for i, b := range balances {
		out[i] = BalanceReply{Owner: b.Owner, AssetID: b.AssetID, Amount: cjson.Uint64(b.Amount)}
	}
	return out
}

// TransactionArgs carries a hex encoded signed transaction
type TransactionArgs struct {
	Tx       string              `json:"tx"`
	Encoding formatting.Encoding `json:"encoding"`
}

type ValidateTransactionReply struct {
	TxID    ids.ID            `json:"txID"`
	Valid   bool              `json:"valid"`
	Index   int               `json:"index"`
	Kind    string            `json:"kind,omitempty"`
	Error   string            `json:"error,omitempty"`
	Results []OperationResult `json:"results"`
}

// ValidateTransaction evaluates [args.Tx] against the current ledger without
// changing it. A transaction that would fail is not an RPC error; the reply
// says why it failed.
func (s *Service) ValidateTransaction(r *http.Request, args *TransactionArgs, reply *ValidateTransactionReply) error {
	txBytes, err := formatting.Decode(args.Encoding, args.Tx)
	if err != nil {
		return fmt.Errorf("problem decoding transaction: %w", err)
	}
	tx, err := protocol.ParseSignedTransaction(txBytes)
	if err != nil {
		return err
	}
	if reply.TxID, err = tx.ID(); err != nil {
		return err
	}

	results, err := s.engine.EvaluateOnly(r.Context(), tx)
	if err != nil {
		var txErr *TxError
		if !errors.As(err, &txErr) {
			return err
		}
		reply.Index = txErr.Index
		reply.Kind = txErr.Kind.String()
		reply.Error = txErr.Err.Error()
		return nil
	}
	reply.Valid = true
	reply.Index = -1
	reply.Results = results
	return nil
}

type HeadReply struct {
	Height              cjson.Uint64 `json:"height"`
	ID                  ids.ID       `json:"id"`
	Timestamp           cjson.Uint64 `json:"timestamp"`
	NextMaintenanceTime cjson.Uint64 `json:"nextMaintenanceTime"`
	AccumulatedFees     cjson.Uint64 `json:"accumulatedFees"`
}

// GetHead returns the head block of the ledger
func (s *Service) GetHead(_ *http.Request, _ *struct{}, reply *HeadReply) error {
	s.engine.lock.Lock()
	defer s.engine.lock.Unlock()

	dyn, err := s.engine.DynamicGlobalProperties()
	if err != nil {
		return err
	}
	reply.Height = cjson.Uint64(dyn.HeadBlockNumber)
	reply.ID = dyn.HeadBlockID
	reply.Timestamp = cjson.Uint64(dyn.Time)
	reply.NextMaintenanceTime = cjson.Uint64(dyn.NextMaintenanceTime)
	reply.AccumulatedFees = cjson.Uint64(dyn.AccumulatedFees)
	return nil
}

// BlockArgs names a block by id, or by height when the id is empty
type BlockArgs struct {
	ID     ids.ID       `json:"id"`
	Height cjson.Uint64 `json:"height"`
}

type BlockReply struct {
	ID       ids.ID              `json:"id"`
	Block    string              `json:"block"`
	Encoding formatting.Encoding `json:"encoding"`
}

// GetBlock returns an accepted block
func (s *Service) GetBlock(_ *http.Request, args *BlockArgs, reply *BlockReply) error {
	s.engine.lock.Lock()
	defer s.engine.lock.Unlock()

	var (
		blkID = args.ID
		err   error
	)
	if blkID == ids.Empty {
		blkID, err = s.engine.GetBlockIDAtHeight(uint64(args.Height))
		if err != nil {
			return err
		}
	}
	blk, err := s.engine.GetBlock(blkID)
	if err != nil {
		return err
	}
	blkBytes, err := blk.Bytes()
	if err != nil {
		return err
	}
	reply.ID = blkID
	reply.Encoding = formatting.Hex
	reply.Block, err = formatting.EncodeWithChecksum(formatting.Hex, blkBytes)
	return err
}
