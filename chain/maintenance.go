// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"math"
	"sort"

	safemath "github.com/ava-labs/avalanchego/utils/math"

	"github.com/ava-labs/ledgervm/authority"
	"github.com/ava-labs/ledgervm/protocol"
	"github.com/ava-labs/ledgervm/state"
)

// candidate is a witness or committee member standing for election.
type candidate struct {
	id      state.ObjectID
	account state.ObjectID
	votes   uint64
}

// tallyVotes sums the core balance of every account behind each vote id it
// casts.
func tallyVotes(r state.Reader) (map[protocol.VoteID]uint64, error) {
	tally := make(map[protocol.VoteID]uint64)
	err := r.Iterate(protocol.AccountClass, func(obj state.Object) (bool, error) {
		acct := obj.(*Account)
		if len(acct.Options.Votes) == 0 {
			return true, nil
		}
		stake, err := balanceOf(r, acct.ID(), protocol.CoreAsset)
		if err != nil || stake == 0 {
			return err == nil, err
		}
		for _, vote := range acct.Options.Votes {
			sum, err := safemath.Add64(tally[vote], stake)
			if err != nil {
				sum = math.MaxUint64
			}
			tally[vote] = sum
		}
		return true, nil
	})
	return tally, err
}

// elect orders candidates by votes descending, then id, and keeps at most
// [n] of those with any votes.
func elect(candidates []candidate, n int) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].votes != candidates[j].votes {
			return candidates[i].votes > candidates[j].votes
		}
		return candidates[i].id.Less(candidates[j].id)
	})
	elected := make([]candidate, 0, n)
	for _, c := range candidates {
		if len(elected) == n || c.votes == 0 {
			break
		}
		elected = append(elected, c)
	}
	return elected
}

// performMaintenance recounts votes, elects witnesses and committee members
// and hands the reserved accounts' active authorities to the winners.
func (e *Engine) performMaintenance(now uint64) error {
	global, err := getObject[*GlobalProperties](e.store, globalPropertiesID)
	if err != nil {
		return err
	}
	tally, err := tallyVotes(e.store)
	if err != nil {
		return err
	}

	witnesses, err := e.updateWitnessVotes(tally)
	if err != nil {
		return err
	}
	members, err := e.updateCommitteeVotes(tally)
	if err != nil {
		return err
	}

	electedWitnesses := elect(witnesses, int(global.Parameters.WitnessCount))
	electedMembers := elect(members, int(global.Parameters.CommitteeCount))

	if len(electedWitnesses) > 0 {
		vc := authority.VoteCounter{}
		for _, c := range electedWitnesses {
			if err := vc.Add(c.account, c.votes); err != nil {
				return err
			}
		}
		if err := setActiveAuthority(e.store, protocol.WitnessAccount, &vc); err != nil {
			return err
		}
	}
	if len(electedMembers) > 0 {
		equal := authority.VoteCounter{}
		weighted := authority.VoteCounter{}
		for _, c := range electedMembers {
			if err := equal.Add(c.account, 1); err != nil {
				return err
			}
			if err := weighted.Add(c.account, c.votes); err != nil {
				return err
			}
		}
		if err := setActiveAuthority(e.store, protocol.CommitteeAccount, &equal); err != nil {
			return err
		}
		if err := setActiveAuthority(e.store, protocol.RelaxedCommitteeAccount, &weighted); err != nil {
			return err
		}
	}

	err = e.store.Modify(globalPropertiesID, func(obj state.Object) error {
		gp := obj.(*GlobalProperties)
		if len(electedWitnesses) > 0 {
			gp.ActiveWitnesses = candidateIDs(electedWitnesses)
		}
		if len(electedMembers) > 0 {
			gp.ActiveCommittee = candidateIDs(electedMembers)
		}
		return nil
	})
	if err != nil {
		return err
	}

	interval := uint64(global.Parameters.MaintenanceInterval)
	err = e.store.Modify(dynamicGlobalPropertiesID, func(obj state.Object) error {
		dyn := obj.(*DynamicGlobalProperties)
		for dyn.NextMaintenanceTime <= now {
			dyn.NextMaintenanceTime += interval
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.metrics.maintenances.Inc()
	e.log.Info("performed maintenance",
		"witnesses", len(electedWitnesses),
		"committee", len(electedMembers),
	)
	return nil
}

func (e *Engine) updateWitnessVotes(tally map[protocol.VoteID]uint64) ([]candidate, error) {
	var candidates []candidate
	err := e.store.Iterate(protocol.WitnessClass, func(obj state.Object) (bool, error) {
		wit := obj.(*Witness)
		votes := tally[wit.VoteID]
		candidates = append(candidates, candidate{id: wit.ID(), account: wit.WitnessAccount, votes: votes})
		if wit.TotalVotes == votes {
			return true, nil
		}
		return true, e.store.Modify(wit.ID(), func(obj state.Object) error {
			obj.(*Witness).TotalVotes = votes
			return nil
		})
	})
	return candidates, err
}

func (e *Engine) updateCommitteeVotes(tally map[protocol.VoteID]uint64) ([]candidate, error) {
	var candidates []candidate
	err := e.store.Iterate(protocol.CommitteeMemberClass, func(obj state.Object) (bool, error) {
		member := obj.(*CommitteeMember)
		votes := tally[member.VoteID]
		candidates = append(candidates, candidate{id: member.ID(), account: member.Account, votes: votes})
		if member.TotalVotes == votes {
			return true, nil
		}
		return true, e.store.Modify(member.ID(), func(obj state.Object) error {
			obj.(*CommitteeMember).TotalVotes = votes
			return nil
		})
	})
	return candidates, err
}

// setActiveAuthority replaces the active authority of [account] with the
// counter's result. An empty counter leaves it unchanged.
func setActiveAuthority(s *state.Store, account state.ObjectID, vc *authority.VoteCounter) error {
	auth, ok := vc.Finish()
	if !ok {
		return nil
	}
	return setAccountActive(s, account, auth)
}

func candidateIDs(candidates []candidate) []state.ObjectID {
	out := make([]state.ObjectID, len(candidates))
	for i, c := range candidates {
		out[i] = c.id
	}
	return out
}
