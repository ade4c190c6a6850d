// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package authority

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/ledgervm/protocol"
	"github.com/ava-labs/ledgervm/state"
)

var (
	ErrInsufficientAuthority   = errors.New("insufficient authority")
	ErrCommitteeMayOnlyPropose = errors.New("committee account may only propose transactions")
	ErrIrrelevantSignature     = errors.New("transaction carries irrelevant signatures")
	ErrDuplicateSignature      = errors.New("duplicate signature")
)

// MissingAuthorityError names the account and role whose authority the
// signers did not satisfy.
type MissingAuthorityError struct {
	Account state.ObjectID
	Role    protocol.Role
}

func (e *MissingAuthorityError) Error() string {
	if e.Role == protocol.OtherRole {
		return fmt.Sprintf("%s: missing inline authority", ErrInsufficientAuthority)
	}
	return fmt.Sprintf("%s: missing %s authority of %s", ErrInsufficientAuthority, e.Role, e.Account)
}

func (e *MissingAuthorityError) Unwrap() error { return ErrInsufficientAuthority }

// Lookup returns the authority an account currently has in one role.
type Lookup func(account state.ObjectID) (*protocol.Authority, error)

// Options tune a verification.
type Options struct {
	// MaxDepth is how many account levels below a required authority are
	// resolved. Deeper account entries contribute no weight.
	MaxDepth uint8
	// AllowCommittee lets a satisfied committee authority approve everything.
	AllowCommittee   bool
	CommitteeAccount state.ObjectID
	// MaxUnusedSignatures is how many signers may go unused. Negative
	// disables the check.
	MaxUnusedSignatures int
	// Approved accounts count as satisfied without signatures.
	Approved []state.ObjectID
}

// Result describes a successful verification.
type Result struct {
	// ByCommittee is set when the committee override approved the
	// transaction instead of the individual requirements.
	ByCommittee bool
	UsedKeys    []ids.ShortID
	UnusedKeys  []ids.ShortID
}

// Verify checks that [signers] satisfy every requirement of [req].
//
// Active requirements are met by the account's active authority or, failing
// that, its owner authority. Account entries are resolved through their
// active authority up to opts.MaxDepth levels, skipping accounts already on
// the resolution path.
func Verify(
	req protocol.RequiredAuthorities,
	signers []ids.ShortID,
	getActive Lookup,
	getOwner Lookup,
	opts Options,
) (Result, error) {
	if !opts.AllowCommittee {
		for _, id := range req.Active {
			if id == opts.CommitteeAccount {
				return Result{}, ErrCommitteeMayOnlyPropose
			}
		}
	}

	s, err := newSignState(signers, getActive, opts)
	if err != nil {
		return Result{}, err
	}

	if opts.AllowCommittee {
		ok, err := s.checkAccount(opts.CommitteeAccount)
		if err != nil {
			return Result{}, err
		}
		if ok {
			return s.result(true), nil
		}
	}

	for i := range req.Other {
		ok, err := s.check(&req.Other[i], 0)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, &MissingAuthorityError{Role: protocol.OtherRole}
		}
	}

	for _, id := range req.Active {
		ok, err := s.checkAccount(id)
		if err != nil {
			return Result{}, err
		}
		if ok {
			continue
		}
		ok, err = s.checkRole(id, getOwner)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, &MissingAuthorityError{Account: id, Role: protocol.ActiveRole}
		}
	}

	for _, id := range req.Owner {
		ok, err := s.checkRole(id, getOwner)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, &MissingAuthorityError{Account: id, Role: protocol.OwnerRole}
		}
	}

	res := s.result(false)
	if opts.MaxUnusedSignatures >= 0 && len(res.UnusedKeys) > opts.MaxUnusedSignatures {
		return Result{}, fmt.Errorf("%w: %d unused", ErrIrrelevantSignature, len(res.UnusedKeys))
	}
	return res, nil
}

// signState tracks which signers contributed and which accounts are
// already known to be satisfied.
type signState struct {
	getActive Lookup
	maxDepth  uint8
	signers   []ids.ShortID
	used      map[ids.ShortID]bool
	approved  map[state.ObjectID]bool
	path      map[state.ObjectID]bool
}

func newSignState(signers []ids.ShortID, getActive Lookup, opts Options) (*signState, error) {
	s := &signState{
		getActive: getActive,
		maxDepth:  opts.MaxDepth,
		signers:   signers,
		used:      make(map[ids.ShortID]bool, len(signers)),
		approved:  make(map[state.ObjectID]bool, len(opts.Approved)),
		path:      make(map[state.ObjectID]bool),
	}
	for _, key := range signers {
		if _, ok := s.used[key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSignature, key)
		}
		s.used[key] = false
	}
	for _, id := range opts.Approved {
		s.approved[id] = true
	}
	return s, nil
}

// checkAccount checks the active authority of a top level requirement.
func (s *signState) checkAccount(id state.ObjectID) (bool, error) {
	if s.approved[id] {
		return true, nil
	}
	ok, err := s.checkRole(id, s.getActive)
	if ok {
		s.approved[id] = true
	}
	return ok, err
}

func (s *signState) checkRole(id state.ObjectID, lookup Lookup) (bool, error) {
	auth, err := lookup(id)
	if err != nil {
		return false, err
	}
	s.path[id] = true
	defer delete(s.path, id)

	return s.check(auth, 0)
}

// check returns whether [auth] is satisfied, stopping as soon as the
// threshold is reached. Keys are counted before accounts.
func (s *signState) check(auth *protocol.Authority, depth uint8) (bool, error) {
	var total uint64
	threshold := uint64(auth.Threshold)

	for _, kw := range auth.Keys {
		if _, ok := s.used[kw.Key]; !ok {
			continue
		}
		s.used[kw.Key] = true
		total += uint64(kw.Weight)
		if total >= threshold {
			return true, nil
		}
	}

	for _, aw := range auth.Accounts {
		satisfied := s.approved[aw.Account]
		if !satisfied && depth < s.maxDepth && !s.path[aw.Account] {
			nested, err := s.getActive(aw.Account)
			if err != nil {
				return false, err
			}
			s.path[aw.Account] = true
			satisfied, err = s.check(nested, depth+1)
			delete(s.path, aw.Account)
			if err != nil {
				return false, err
			}
			if satisfied {
				s.approved[aw.Account] = true
			}
		}
		if !satisfied {
			continue
		}
		total += uint64(aw.Weight)
		if total >= threshold {
			return true, nil
		}
	}
	return total >= threshold, nil
}

func (s *signState) result(byCommittee bool) Result {
	res := Result{ByCommittee: byCommittee}
	for _, key := range s.signers {
		if s.used[key] {
			res.UsedKeys = append(res.UsedKeys, key)
		} else {
			res.UnusedKeys = append(res.UnusedKeys, key)
		}
	}
	return res
}

// RequiredSignatures returns the subset of [available] keys a signer
// would use to satisfy [req].
func RequiredSignatures(
	req protocol.RequiredAuthorities,
	available []ids.ShortID,
	getActive Lookup,
	getOwner Lookup,
	opts Options,
) ([]ids.ShortID, error) {
	opts.MaxUnusedSignatures = -1
	opts.AllowCommittee = false
	res, err := Verify(req, available, getActive, getOwner, opts)
	if err != nil {
		return nil, err
	}
	return res.UsedKeys, nil
}

// MinimizeRequiredSignatures drops every key from the required set whose
// removal keeps [req] satisfied.
func MinimizeRequiredSignatures(
	req protocol.RequiredAuthorities,
	available []ids.ShortID,
	getActive Lookup,
	getOwner Lookup,
	opts Options,
) ([]ids.ShortID, error) {
	keys, err := RequiredSignatures(req, available, getActive, getOwner, opts)
	if err != nil {
		return nil, err
	}
	opts.MaxUnusedSignatures = -1
	opts.AllowCommittee = false
	for i := 0; i < len(keys); {
		candidate := make([]ids.ShortID, 0, len(keys)-1)
		candidate = append(candidate, keys[:i]...)
		candidate = append(candidate, keys[i+1:]...)
		if _, err := Verify(req, candidate, getActive, getOwner, opts); err == nil {
			keys = candidate
			continue
		}
		i++
	}
	return keys, nil
}
