// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	safemath "github.com/ava-labs/avalanchego/utils/math"

	"github.com/ava-labs/ledgervm/protocol"
	"github.com/ava-labs/ledgervm/state"
)

const defaultCoreSymbol = "CORE"

// reservedAccountNames are the names of the reserved accounts, in the order
// of their ids.
var reservedAccountNames = []string{
	"committee-account",
	"relaxed-committee-account",
	"witness-account",
	"null-account",
	"temp-account",
}

var (
	errMissingGenesis = errors.New("database is empty and no genesis was given")
	errInvalidGenesis = errors.New("invalid genesis")
)

// GenesisAccount is an account that exists from the first block, controlled
// by a single key.
type GenesisAccount struct {
	Name    string      `json:"name"`
	Key     ids.ShortID `json:"key"`
	Balance uint64      `json:"balance"`
}

type GenesisWitness struct {
	Account    string      `json:"account"`
	SigningKey ids.ShortID `json:"signingKey"`
	URL        string      `json:"url"`
}

type GenesisCommitteeMember struct {
	Account string `json:"account"`
	URL     string `json:"url"`
}

// Genesis describes the initial ledger.
type Genesis struct {
	Timestamp  uint64                   `json:"timestamp"`
	CoreSymbol string                   `json:"coreSymbol"`
	Parameters protocol.ChainParameters `json:"parameters"`
	Fees       protocol.FeeSchedule     `json:"fees"`

	Accounts  []GenesisAccount         `json:"accounts"`
	Witnesses []GenesisWitness         `json:"witnesses"`
	Committee []GenesisCommitteeMember `json:"committee"`
}

// DefaultGenesis returns a genesis with default parameters and fees and no
// accounts.
func DefaultGenesis() *Genesis {
	return &Genesis{
		CoreSymbol: defaultCoreSymbol,
		Parameters: protocol.DefaultChainParameters(),
		Fees:       protocol.DefaultFeeSchedule(),
	}
}

// ParseGenesis decodes a JSON genesis on top of DefaultGenesis and validates
// it.
func ParseGenesis(bytes []byte) (*Genesis, error) {
	g := DefaultGenesis()
	if err := json.Unmarshal(bytes, g); err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidGenesis, err)
	}
	return g, g.Validate()
}

func (g *Genesis) Validate() error {
	if err := g.Parameters.Validate(); err != nil {
		return err
	}
	if !protocol.IsValidSymbol(g.CoreSymbol) {
		return fmt.Errorf("%w: invalid core symbol %q", errInvalidGenesis, g.CoreSymbol)
	}
	names := make(map[string]bool, len(g.Accounts))
	reserved := make(map[string]bool, len(reservedAccountNames))
	for _, name := range reservedAccountNames {
		reserved[name] = true
	}
	var supply uint64
	for _, acct := range g.Accounts {
		if !protocol.IsValidAccountName(acct.Name) {
			return fmt.Errorf("%w: invalid account name %q", errInvalidGenesis, acct.Name)
		}
		if names[acct.Name] || reserved[acct.Name] {
			return fmt.Errorf("%w: duplicate account %q", errInvalidGenesis, acct.Name)
		}
		names[acct.Name] = true
		var err error
		if supply, err = safemath.Add64(supply, acct.Balance); err != nil || supply > protocol.MaxShareSupply {
			return fmt.Errorf("%w: initial supply exceeds %d", errInvalidGenesis, protocol.MaxShareSupply)
		}
	}
	for _, wit := range g.Witnesses {
		if !names[wit.Account] {
			return fmt.Errorf("%w: witness %q is not a genesis account", errInvalidGenesis, wit.Account)
		}
	}
	for _, member := range g.Committee {
		if !names[member.Account] {
			return fmt.Errorf("%w: committee member %q is not a genesis account", errInvalidGenesis, member.Account)
		}
	}
	return nil
}

// Block is the block the ledger starts from.
func (g *Genesis) Block() *protocol.Block {
	return &protocol.Block{Timestamp: g.Timestamp}
}

// initGenesis creates the global objects, the reserved accounts, the core
// asset and the genesis accounts and candidates, and indexes the genesis
// block.
func (e *Engine) initGenesis(g *Genesis) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s := e.store

	if _, err := s.Create(&GlobalProperties{Parameters: g.Parameters, Fees: g.Fees}); err != nil {
		return err
	}
	genesisBlock := g.Block()
	blkID, err := genesisBlock.ID()
	if err != nil {
		return err
	}
	_, err = s.Create(&DynamicGlobalProperties{
		HeadBlockID:         blkID,
		Time:                g.Timestamp,
		NextMaintenanceTime: g.Timestamp + uint64(g.Parameters.MaintenanceInterval),
	})
	if err != nil {
		return err
	}

	impossible := protocol.Authority{Threshold: 1}
	for _, name := range reservedAccountNames {
		acct := &Account{Name: name, Owner: impossible, Active: impossible}
		if name == "temp-account" {
			// the temporary account needs no signature
			acct.Owner, acct.Active = protocol.Authority{}, protocol.Authority{}
		}
		if _, err := s.Create(acct); err != nil {
			return err
		}
	}

	var supply uint64
	for _, acct := range g.Accounts {
		supply += acct.Balance
	}
	_, err = s.Create(&Asset{
		Symbol:        g.CoreSymbol,
		Precision:     5,
		Issuer:        protocol.CommitteeAccount,
		MaxSupply:     protocol.MaxShareSupply,
		CurrentSupply: supply,
	})
	if err != nil {
		return err
	}

	byName := make(map[string]state.ObjectID, len(g.Accounts))
	for _, acct := range g.Accounts {
		key := protocol.NewKeyAuthority(acct.Key)
		id, err := s.Create(&Account{
			Registrar: protocol.CommitteeAccount,
			Name:      acct.Name,
			Owner:     key,
			Active:    key,
		})
		if err != nil {
			return err
		}
		byName[acct.Name] = id
		if err := addBalance(s, id, protocol.CoreAsset, acct.Balance); err != nil {
			return err
		}
	}

	witnessAuth := protocol.Authority{}
	var activeWitnesses []state.ObjectID
	for _, wit := range g.Witnesses {
		vote, err := nextVoteID(s, protocol.VoteForWitness)
		if err != nil {
			return err
		}
		account := byName[wit.Account]
		id, err := s.Create(&Witness{
			WitnessAccount: account,
			SigningKey:     wit.SigningKey,
			URL:            wit.URL,
			VoteID:         vote,
		})
		if err != nil {
			return err
		}
		activeWitnesses = append(activeWitnesses, id)
		witnessAuth.AddAccount(account, 1)
	}

	committeeAuth := protocol.Authority{}
	var activeCommittee []state.ObjectID
	for _, member := range g.Committee {
		vote, err := nextVoteID(s, protocol.VoteForCommittee)
		if err != nil {
			return err
		}
		account := byName[member.Account]
		id, err := s.Create(&CommitteeMember{
			Account: account,
			URL:     member.URL,
			VoteID:  vote,
		})
		if err != nil {
			return err
		}
		activeCommittee = append(activeCommittee, id)
		committeeAuth.AddAccount(account, 1)
	}

	if n := witnessAuth.NumAuths(); n > 0 {
		witnessAuth.Threshold = uint32(n/2 + 1)
		if err := setAccountActive(s, protocol.WitnessAccount, witnessAuth); err != nil {
			return err
		}
	}
	if n := committeeAuth.NumAuths(); n > 0 {
		committeeAuth.Threshold = uint32(n/2 + 1)
		if err := setAccountActive(s, protocol.CommitteeAccount, committeeAuth); err != nil {
			return err
		}
		if err := setAccountActive(s, protocol.RelaxedCommitteeAccount, committeeAuth); err != nil {
			return err
		}
	}
	err = s.Modify(globalPropertiesID, func(obj state.Object) error {
		gp := obj.(*GlobalProperties)
		gp.ActiveWitnesses = activeWitnesses
		gp.ActiveCommittee = activeCommittee
		return nil
	})
	if err != nil {
		return err
	}

	if _, err := e.db.PutBlock(genesisBlock); err != nil {
		return err
	}
	if err := e.db.SetLastAccepted(blkID); err != nil {
		return err
	}
	if err := e.db.SetInitialized(); err != nil {
		return err
	}
	e.log.Info("initialized genesis state",
		"accounts", len(g.Accounts),
		"witnesses", len(g.Witnesses),
		"committee", len(g.Committee),
		"block", blkID,
	)
	return nil
}

func setAccountActive(s *state.Store, account state.ObjectID, auth protocol.Authority) error {
	return s.Modify(account, func(obj state.Object) error {
		obj.(*Account).Active = auth
		return nil
	})
}
