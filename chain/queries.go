// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/ledgervm/protocol"
	"github.com/ava-labs/ledgervm/state"
)

func (e *Engine) GlobalProperties() (*GlobalProperties, error) {
	return getObject[*GlobalProperties](e.store, globalPropertiesID)
}

func (e *Engine) DynamicGlobalProperties() (*DynamicGlobalProperties, error) {
	return getObject[*DynamicGlobalProperties](e.store, dynamicGlobalPropertiesID)
}

func (e *Engine) GetAccount(id state.ObjectID) (*Account, error) {
	return getObject[*Account](e.store, id)
}

// GetAccountByName looks an account up through its unique name.
func (e *Engine) GetAccountByName(name string) (*Account, error) {
	acct, ok, err := findUnique[*Account](e.store, protocol.AccountClass, IndexByName, []byte(name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: account %q", state.ErrNotFound, name)
	}
	return acct, nil
}

func (e *Engine) GetAsset(id state.ObjectID) (*Asset, error) {
	return getObject[*Asset](e.store, id)
}

func (e *Engine) GetFile(id state.ObjectID) (*File, error) {
	return getObject[*File](e.store, id)
}

func (e *Engine) GetNHAsset(id state.ObjectID) (*NHAsset, error) {
	return getObject[*NHAsset](e.store, id)
}

func (e *Engine) GetWitness(id state.ObjectID) (*Witness, error) {
	return getObject[*Witness](e.store, id)
}

func (e *Engine) GetCommitteeMember(id state.ObjectID) (*CommitteeMember, error) {
	return getObject[*CommitteeMember](e.store, id)
}

// GetBalance returns how much of [asset] [owner] holds.
func (e *Engine) GetBalance(owner, asset state.ObjectID) (uint64, error) {
	return balanceOf(e.store, owner, asset)
}

// GetBalances returns every balance of [owner], ordered by asset.
func (e *Engine) GetBalances(owner state.ObjectID) ([]*Balance, error) {
	var balances []*Balance
	err := e.store.IterateIndex(protocol.BalanceClass, IndexByAccountAsset, owner.Bytes(), func(obj state.Object) (bool, error) {
		balances = append(balances, obj.(*Balance))
		return true, nil
	})
	return balances, err
}

// TopHolders returns the [n] largest positive balances of [asset].
func (e *Engine) TopHolders(asset state.ObjectID, n int) ([]*Balance, error) {
	return topHolders(e.store, asset, n, state.ObjectID{})
}

// NHAssetsOf returns the non-homogeneous assets owned by [owner].
func (e *Engine) NHAssetsOf(owner state.ObjectID) ([]*NHAsset, error) {
	var assets []*NHAsset
	err := e.store.IterateIndex(protocol.NHAssetClass, IndexByOwner, owner.Bytes(), func(obj state.Object) (bool, error) {
		assets = append(assets, obj.(*NHAsset))
		return true, nil
	})
	return assets, err
}

// GetBlock returns an accepted block.
func (e *Engine) GetBlock(blkID ids.ID) (*protocol.Block, error) {
	return e.db.GetBlock(blkID)
}

// GetBlockIDAtHeight returns the id of the accepted block at [height].
func (e *Engine) GetBlockIDAtHeight(height uint64) (ids.ID, error) {
	return e.db.GetBlockIDAtHeight(height)
}

// LastAccepted returns the id of the head block.
func (e *Engine) LastAccepted() (ids.ID, error) {
	return e.db.GetLastAccepted()
}
