// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"errors"
	"fmt"
)

const (
	// MaxWitnessCount bounds how many witnesses maintenance elects.
	MaxWitnessCount = 1001
	// MaxCommitteeCount bounds how many committee members maintenance elects.
	MaxCommitteeCount = 1001
)

var errInvalidParameters = errors.New("invalid chain parameters")

// ChainParameters are the global, committee controlled settings of the chain.
type ChainParameters struct {
	// MaxAuthorityDepth bounds how many account levels an authority check
	// resolves.
	MaxAuthorityDepth uint8 `serialize:"true" json:"maxAuthorityDepth"`
	// MaxTopHolders bounds NumTopHolders of a special authority.
	MaxTopHolders uint8 `serialize:"true" json:"maxTopHolders"`
	// MaxUnusedSignatures is how many irrelevant signatures a transaction
	// may carry.
	MaxUnusedSignatures uint8 `serialize:"true" json:"maxUnusedSignatures"`
	// AllowCommitteeOverride lets the committee account's authority satisfy
	// every requirement of a transaction.
	AllowCommitteeOverride bool `serialize:"true" json:"allowCommitteeOverride"`

	MaxTransactionSize     uint32 `serialize:"true" json:"maxTransactionSize"`
	MaxOperations          uint16 `serialize:"true" json:"maxOperations"`
	MaxTimeUntilExpiration uint32 `serialize:"true" json:"maxTimeUntilExpiration"`
	BlockInterval          uint32 `serialize:"true" json:"blockInterval"`
	MaintenanceInterval    uint32 `serialize:"true" json:"maintenanceInterval"`
	WitnessCount           uint16 `serialize:"true" json:"witnessCount"`
	CommitteeCount         uint16 `serialize:"true" json:"committeeCount"`
}

// DefaultChainParameters returns the parameters used when genesis sets none.
func DefaultChainParameters() ChainParameters {
	return ChainParameters{
		MaxAuthorityDepth:      2,
		MaxTopHolders:          10,
		MaxUnusedSignatures:    5,
		AllowCommitteeOverride: false,
		MaxTransactionSize:     1 << 16,
		MaxOperations:          64,
		MaxTimeUntilExpiration: 60 * 60 * 24,
		BlockInterval:          5,
		MaintenanceInterval:    60 * 60 * 24,
		WitnessCount:           11,
		CommitteeCount:         11,
	}
}

func (p *ChainParameters) Validate() error {
	switch {
	case p.MaxAuthorityDepth == 0:
		return fmt.Errorf("%w: max authority depth must be positive", errInvalidParameters)
	case p.MaxTransactionSize == 0:
		return fmt.Errorf("%w: max transaction size must be positive", errInvalidParameters)
	case p.MaxOperations == 0:
		return fmt.Errorf("%w: max operations must be positive", errInvalidParameters)
	case p.BlockInterval == 0:
		return fmt.Errorf("%w: block interval must be positive", errInvalidParameters)
	case p.MaintenanceInterval < p.BlockInterval:
		return fmt.Errorf("%w: maintenance interval %d shorter than block interval %d",
			errInvalidParameters, p.MaintenanceInterval, p.BlockInterval)
	case p.WitnessCount > MaxWitnessCount:
		return fmt.Errorf("%w: witness count %d exceeds %d", errInvalidParameters, p.WitnessCount, MaxWitnessCount)
	case p.CommitteeCount > MaxCommitteeCount:
		return fmt.Errorf("%w: committee count %d exceeds %d", errInvalidParameters, p.CommitteeCount, MaxCommitteeCount)
	}
	return nil
}
