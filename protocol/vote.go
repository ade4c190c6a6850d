// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
)

// VoteType is the kind of candidate a VoteID refers to.
type VoteType uint8

const (
	VoteForCommittee VoteType = iota
	VoteForWitness
	numVoteTypes
)

// VoteID packs a VoteType in the low 8 bits and a sequence number above it.
type VoteID uint32

func NewVoteID(typ VoteType, instance uint32) VoteID {
	return VoteID(instance<<8 | uint32(typ))
}

func (v VoteID) Type() VoteType   { return VoteType(v & 0xff) }
func (v VoteID) Instance() uint32 { return uint32(v) >> 8 }

func (v VoteID) String() string { return fmt.Sprintf("%d:%d", v.Type(), v.Instance()) }

// AccountOptions are the user settable options of an account.
type AccountOptions struct {
	MemoKey ids.ShortID `serialize:"true" json:"memoKey"`
	// Votes is sorted ascending without duplicates.
	Votes []VoteID `serialize:"true" json:"votes"`
}

func (o *AccountOptions) Validate() error {
	for i, vote := range o.Votes {
		if vote.Type() >= numVoteTypes {
			return invalidf("vote %s has an unknown type", vote)
		}
		if i > 0 && o.Votes[i-1] >= vote {
			return invalidf("votes are not sorted and unique")
		}
	}
	return nil
}
