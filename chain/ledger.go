// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"
	"fmt"

	safemath "github.com/ava-labs/avalanchego/utils/math"

	"github.com/ava-labs/ledgervm/protocol"
	"github.com/ava-labs/ledgervm/state"
)

// getObject loads [id] and checks it has type T.
func getObject[T state.Object](r state.Reader, id state.ObjectID) (T, error) {
	var zero T
	obj, err := r.Get(id)
	if err != nil {
		return zero, &ObjectError{ID: id, Err: err}
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, &ObjectError{ID: id, Err: fmt.Errorf("%w: found %T", state.ErrWrongType, obj)}
	}
	return typed, nil
}

// findUnique loads the object stored under [key] in a unique index. It
// returns false when there is none.
func findUnique[T state.Object](r state.Reader, c state.Class, index string, key []byte) (T, bool, error) {
	var zero T
	obj, err := r.FindUnique(c, index, key)
	if errors.Is(err, state.ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, false, fmt.Errorf("%w: %s found %T", state.ErrWrongType, index, obj)
	}
	return typed, true, nil
}

func requireExists(r state.Reader, objIDs ...state.ObjectID) error {
	for _, id := range objIDs {
		if _, err := r.Get(id); err != nil {
			return &ObjectError{ID: id, Err: err}
		}
	}
	return nil
}

func balanceObject(r state.Reader, owner, asset state.ObjectID) (*Balance, bool, error) {
	return findUnique[*Balance](r, protocol.BalanceClass, IndexByAccountAsset, accountAssetKey(owner, asset))
}

// balanceOf returns how much of [asset] [owner] holds.
func balanceOf(r state.Reader, owner, asset state.ObjectID) (uint64, error) {
	b, ok, err := balanceObject(r, owner, asset)
	if err != nil || !ok {
		return 0, err
	}
	return b.Amount, nil
}

func addBalance(s *state.Store, owner, asset state.ObjectID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	b, ok, err := balanceObject(s, owner, asset)
	if err != nil {
		return err
	}
	if !ok {
		_, err := s.Create(&Balance{Owner: owner, AssetID: asset, Amount: amount})
		return err
	}
	return s.Modify(b.ID(), func(obj state.Object) error {
		b := obj.(*Balance)
		sum, err := safemath.Add64(b.Amount, amount)
		if err != nil {
			return invariantf("balance of %s in %s overflows", owner, asset)
		}
		b.Amount = sum
		return nil
	})
}

func subtractBalance(s *state.Store, owner, asset state.ObjectID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	b, ok, err := balanceObject(s, owner, asset)
	if err != nil {
		return err
	}
	if !ok || b.Amount < amount {
		have := uint64(0)
		if ok {
			have = b.Amount
		}
		return &ObjectError{
			ID:  owner,
			Err: fmt.Errorf("%w: has %d of %s, needs %d", ErrInsufficientFunds, have, asset, amount),
		}
	}
	return s.Modify(b.ID(), func(obj state.Object) error {
		obj.(*Balance).Amount -= amount
		return nil
	})
}

// topHolders returns up to [n] positive balances of [asset] in descending
// order, skipping [exclude].
func topHolders(r state.Reader, asset state.ObjectID, n int, exclude state.ObjectID) ([]*Balance, error) {
	var holders []*Balance
	if n <= 0 {
		return nil, nil
	}
	err := r.IterateIndex(protocol.BalanceClass, IndexByAssetBalance, asset.Bytes(), func(obj state.Object) (bool, error) {
		b, ok := obj.(*Balance)
		if !ok {
			return false, fmt.Errorf("%w: balance index holds %T", state.ErrWrongType, obj)
		}
		if b.Amount == 0 {
			return false, nil
		}
		if b.Owner == exclude {
			return true, nil
		}
		holders = append(holders, b)
		return len(holders) < n, nil
	})
	return holders, err
}
