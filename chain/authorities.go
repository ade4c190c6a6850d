// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/ledgervm/authority"
	"github.com/ava-labs/ledgervm/protocol"
	"github.com/ava-labs/ledgervm/state"
)

// authorityResolver answers authority lookups against a fixed view of the
// store. Special authorities are computed on first use and remembered, so a
// transaction is checked against the state it started from.
type authorityResolver struct {
	reader state.Reader
	params *protocol.ChainParameters
	owner  map[state.ObjectID]*protocol.Authority
	active map[state.ObjectID]*protocol.Authority
}

func newAuthorityResolver(r state.Reader, params *protocol.ChainParameters) *authorityResolver {
	return &authorityResolver{
		reader: r,
		params: params,
		owner:  make(map[state.ObjectID]*protocol.Authority),
		active: make(map[state.ObjectID]*protocol.Authority),
	}
}

func (a *authorityResolver) getActive(id state.ObjectID) (*protocol.Authority, error) {
	return a.resolve(id, protocol.ActiveRole, a.active)
}

func (a *authorityResolver) getOwner(id state.ObjectID) (*protocol.Authority, error) {
	return a.resolve(id, protocol.OwnerRole, a.owner)
}

func (a *authorityResolver) resolve(
	id state.ObjectID,
	role protocol.Role,
	memo map[state.ObjectID]*protocol.Authority,
) (*protocol.Authority, error) {
	if auth, ok := memo[id]; ok {
		return auth, nil
	}
	acct, err := getObject[*Account](a.reader, id)
	if err != nil {
		return nil, err
	}
	stored, special := &acct.Active, &acct.ActiveSpecial
	if role == protocol.OwnerRole {
		stored, special = &acct.Owner, &acct.OwnerSpecial
	}

	auth := stored
	if special.IsSet() {
		computed, ok, err := specialAuthority(a.reader, a.params, acct.ID(), special)
		if err != nil {
			return nil, err
		}
		if ok {
			auth = &computed
		}
	}
	memo[id] = auth
	return auth, nil
}

// specialAuthority computes the authority [special] describes for [account].
// It returns false when no holder qualifies, in which case the stored
// authority stays in force.
func specialAuthority(
	r state.Reader,
	params *protocol.ChainParameters,
	account state.ObjectID,
	special *protocol.SpecialAuthority,
) (protocol.Authority, bool, error) {
	if special.Kind != protocol.TopHoldersAuthority {
		return protocol.Authority{}, false, nil
	}
	n := special.NumTopHolders
	if n > params.MaxTopHolders {
		n = params.MaxTopHolders
	}
	holders, err := topHolders(r, special.Asset, int(n), account)
	if err != nil {
		return protocol.Authority{}, false, err
	}
	vc := authority.VoteCounter{}
	for _, b := range holders {
		if err := vc.Add(b.Owner, b.Amount); err != nil {
			return protocol.Authority{}, false, err
		}
	}
	auth, ok := vc.Finish()
	return auth, ok, nil
}

// RequiredSignatures returns the keys out of [available] that a wallet needs
// to sign [tx] with, dropping every key the transaction is satisfied without.
func (e *Engine) RequiredSignatures(tx *protocol.Transaction, available []ids.ShortID) ([]ids.ShortID, error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	global, err := getObject[*GlobalProperties](e.store, globalPropertiesID)
	if err != nil {
		return nil, err
	}
	resolver := newAuthorityResolver(e.store, &global.Parameters)
	return authority.MinimizeRequiredSignatures(
		protocol.Collect(tx.Operations),
		available,
		resolver.getActive,
		resolver.getOwner,
		verifyOptions(&global.Parameters),
	)
}

func verifyOptions(params *protocol.ChainParameters) authority.Options {
	return authority.Options{
		MaxDepth:            params.MaxAuthorityDepth,
		AllowCommittee:      params.AllowCommitteeOverride,
		CommitteeAccount:    protocol.CommitteeAccount,
		MaxUnusedSignatures: int(params.MaxUnusedSignatures),
		Approved:            []state.ObjectID{protocol.TempAccount},
	}
}
