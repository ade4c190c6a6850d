// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"bytes"
	"sort"

	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/ledgervm/state"
)

// Role names which authority of an account is meant.
type Role uint8

const (
	ActiveRole Role = iota
	OwnerRole
	// OtherRole is an authority given inline by an operation.
	OtherRole
)

func (r Role) String() string {
	switch r {
	case ActiveRole:
		return "active"
	case OwnerRole:
		return "owner"
	case OtherRole:
		return "other"
	default:
		return "unknown"
	}
}

type AccountWeight struct {
	Account state.ObjectID `serialize:"true" json:"account"`
	Weight  uint16         `serialize:"true" json:"weight"`
}

type KeyWeight struct {
	Key    ids.ShortID `serialize:"true" json:"key"`
	Weight uint16      `serialize:"true" json:"weight"`
}

// Authority is a weighted threshold over keys and other accounts.
// Entries are kept sorted and unique.
type Authority struct {
	Threshold uint32          `serialize:"true" json:"threshold"`
	Accounts  []AccountWeight `serialize:"true" json:"accounts"`
	Keys      []KeyWeight     `serialize:"true" json:"keys"`
}

// NewKeyAuthority returns an authority satisfied by [key] alone.
func NewKeyAuthority(key ids.ShortID) Authority {
	return Authority{Threshold: 1, Keys: []KeyWeight{{Key: key, Weight: 1}}}
}

// NewAccountAuthority returns an authority satisfied by [account] alone.
func NewAccountAuthority(account state.ObjectID) Authority {
	return Authority{Threshold: 1, Accounts: []AccountWeight{{Account: account, Weight: 1}}}
}

// AddKey sets the weight of [key], keeping entries sorted.
func (a *Authority) AddKey(key ids.ShortID, weight uint16) {
	i := sort.Search(len(a.Keys), func(i int) bool { return bytes.Compare(a.Keys[i].Key[:], key[:]) >= 0 })
	if i < len(a.Keys) && a.Keys[i].Key == key {
		a.Keys[i].Weight = weight
		return
	}
	a.Keys = append(a.Keys, KeyWeight{})
	copy(a.Keys[i+1:], a.Keys[i:])
	a.Keys[i] = KeyWeight{Key: key, Weight: weight}
}

// AddAccount sets the weight of [account], keeping entries sorted.
func (a *Authority) AddAccount(account state.ObjectID, weight uint16) {
	i := sort.Search(len(a.Accounts), func(i int) bool { return !a.Accounts[i].Account.Less(account) })
	if i < len(a.Accounts) && a.Accounts[i].Account == account {
		a.Accounts[i].Weight = weight
		return
	}
	a.Accounts = append(a.Accounts, AccountWeight{})
	copy(a.Accounts[i+1:], a.Accounts[i:])
	a.Accounts[i] = AccountWeight{Account: account, Weight: weight}
}

func (a *Authority) NumAuths() int { return len(a.Accounts) + len(a.Keys) }

// IsImpossible reports whether the total weight of every entry cannot reach
// the threshold.
func (a *Authority) IsImpossible() bool {
	var total uint64
	for _, acct := range a.Accounts {
		total += uint64(acct.Weight)
	}
	for _, key := range a.Keys {
		total += uint64(key.Weight)
	}
	return total < uint64(a.Threshold)
}

// Validate checks the entry ordering and account ids.
func (a *Authority) Validate() error {
	for i, acct := range a.Accounts {
		if err := checkClass(acct.Account, AccountClass, "authority account"); err != nil {
			return err
		}
		if i > 0 && !a.Accounts[i-1].Account.Less(acct.Account) {
			return invalidf("authority accounts are not sorted and unique")
		}
	}
	for i, key := range a.Keys {
		if key.Key == ids.ShortEmpty {
			return invalidf("authority contains an empty key")
		}
		if i > 0 && bytes.Compare(a.Keys[i-1].Key[:], key.Key[:]) >= 0 {
			return invalidf("authority keys are not sorted and unique")
		}
	}
	return nil
}

// validateRole is the check every account owner or active authority must
// pass.
func (a *Authority) validateRole(role Role) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.NumAuths() == 0 {
		return invalidf("%s authority has no entries", role)
	}
	if a.IsImpossible() {
		return invalidf("%s authority threshold is unreachable", role)
	}
	return nil
}

func (a *Authority) Equal(other *Authority) bool {
	if a.Threshold != other.Threshold || len(a.Accounts) != len(other.Accounts) || len(a.Keys) != len(other.Keys) {
		return false
	}
	for i := range a.Accounts {
		if a.Accounts[i] != other.Accounts[i] {
			return false
		}
	}
	for i := range a.Keys {
		if a.Keys[i] != other.Keys[i] {
			return false
		}
	}
	return true
}

// SpecialAuthorityKind selects how a special authority is derived.
type SpecialAuthorityKind uint8

const (
	NoSpecialAuthority SpecialAuthorityKind = iota
	// TopHoldersAuthority derives the authority from the largest holders of
	// an asset, weighted by balance.
	TopHoldersAuthority
)

// SpecialAuthority replaces an account's stored role authority with one
// computed from ledger state at check time.
type SpecialAuthority struct {
	Kind          SpecialAuthorityKind `serialize:"true" json:"kind"`
	Asset         state.ObjectID       `serialize:"true" json:"asset"`
	NumTopHolders uint8                `serialize:"true" json:"numTopHolders"`
}

func (s *SpecialAuthority) IsSet() bool { return s.Kind != NoSpecialAuthority }

func (s *SpecialAuthority) Validate() error {
	switch s.Kind {
	case NoSpecialAuthority:
		return nil
	case TopHoldersAuthority:
		if s.NumTopHolders == 0 {
			return invalidf("top holders authority needs at least one holder")
		}
		return checkClass(s.Asset, AssetClass, "top holders asset")
	default:
		return invalidf("unknown special authority kind %d", s.Kind)
	}
}
