// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"encoding/binary"
	"math"

	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/ledgervm/protocol"
	"github.com/ava-labs/ledgervm/state"
)

// Secondary orderings of the ledger objects.
const (
	IndexByName          = "by_name"
	IndexBySymbol        = "by_symbol"
	IndexByAccountAsset  = "by_account_asset"
	IndexByAssetBalance  = "by_asset_balance"
	IndexByAccount       = "by_account"
	IndexByVoteID        = "by_vote_id"
	IndexByOwnerName     = "by_owner_name"
	IndexByCreateTime    = "by_create_time"
	IndexByOwner         = "by_owner"
	IndexByTransactionID = "by_trx_id"
	IndexByExpiration    = "by_expiration"
)

var (
	_ state.Object = &Account{}
	_ state.Object = &Asset{}
	_ state.Object = &Balance{}
	_ state.Object = &Witness{}
	_ state.Object = &CommitteeMember{}
	_ state.Object = &File{}
	_ state.Object = &NHAsset{}
	_ state.Object = &TransactionRecord{}
	_ state.Object = &GlobalProperties{}
	_ state.Object = &DynamicGlobalProperties{}
)

func uint64Key(v uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, v)
	return key
}

func uint32Key(v uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, v)
	return key
}

func concat(parts ...[]byte) []byte {
	var key []byte
	for _, part := range parts {
		key = append(key, part...)
	}
	return key
}

// Account is a named holder of balances and authorities.
type Account struct {
	state.Base    `serialize:"true"`
	Registrar     state.ObjectID            `serialize:"true" json:"registrar"`
	Name          string                    `serialize:"true" json:"name"`
	Owner         protocol.Authority        `serialize:"true" json:"owner"`
	Active        protocol.Authority        `serialize:"true" json:"active"`
	Options       protocol.AccountOptions   `serialize:"true" json:"options"`
	OwnerSpecial  protocol.SpecialAuthority `serialize:"true" json:"ownerSpecialAuthority"`
	ActiveSpecial protocol.SpecialAuthority `serialize:"true" json:"activeSpecialAuthority"`
}

func (*Account) Class() state.Class { return protocol.AccountClass }

func (a *Account) Indexes() []state.Index {
	return []state.Index{{Name: IndexByName, Key: []byte(a.Name), Unique: true}}
}

// Asset is a fungible asset definition.
type Asset struct {
	state.Base    `serialize:"true"`
	Symbol        string         `serialize:"true" json:"symbol"`
	Precision     uint8          `serialize:"true" json:"precision"`
	Issuer        state.ObjectID `serialize:"true" json:"issuer"`
	MaxSupply     uint64         `serialize:"true" json:"maxSupply"`
	CurrentSupply uint64         `serialize:"true" json:"currentSupply"`
}

func (*Asset) Class() state.Class { return protocol.AssetClass }

func (a *Asset) Indexes() []state.Index {
	return []state.Index{{Name: IndexBySymbol, Key: []byte(a.Symbol), Unique: true}}
}

// Balance is the amount of one asset held by one account.
type Balance struct {
	state.Base `serialize:"true"`
	Owner      state.ObjectID `serialize:"true" json:"owner"`
	AssetID    state.ObjectID `serialize:"true" json:"assetID"`
	Amount     uint64         `serialize:"true" json:"amount"`
}

func (*Balance) Class() state.Class { return protocol.BalanceClass }

// Indexes orders balances of an asset by amount descending, then owner.
func (b *Balance) Indexes() []state.Index {
	return []state.Index{
		{Name: IndexByAccountAsset, Key: accountAssetKey(b.Owner, b.AssetID), Unique: true},
		{Name: IndexByAssetBalance, Key: concat(b.AssetID.Bytes(), uint64Key(math.MaxUint64-b.Amount), b.Owner.Bytes())},
	}
}

func accountAssetKey(owner, asset state.ObjectID) []byte {
	return concat(owner.Bytes(), asset.Bytes())
}

// Witness is a block producer candidate.
type Witness struct {
	state.Base     `serialize:"true"`
	WitnessAccount state.ObjectID  `serialize:"true" json:"witnessAccount"`
	SigningKey     ids.ShortID     `serialize:"true" json:"signingKey"`
	URL            string          `serialize:"true" json:"url"`
	VoteID         protocol.VoteID `serialize:"true" json:"voteID"`
	TotalVotes     uint64          `serialize:"true" json:"totalVotes"`
}

func (*Witness) Class() state.Class { return protocol.WitnessClass }

func (w *Witness) Indexes() []state.Index {
	return []state.Index{
		{Name: IndexByAccount, Key: w.WitnessAccount.Bytes(), Unique: true},
		{Name: IndexByVoteID, Key: uint32Key(uint32(w.VoteID)), Unique: true},
	}
}

// CommitteeMember is a committee candidate.
type CommitteeMember struct {
	state.Base `serialize:"true"`
	Account    state.ObjectID  `serialize:"true" json:"account"`
	URL        string          `serialize:"true" json:"url"`
	VoteID     protocol.VoteID `serialize:"true" json:"voteID"`
	TotalVotes uint64          `serialize:"true" json:"totalVotes"`
}

func (*CommitteeMember) Class() state.Class { return protocol.CommitteeMemberClass }

func (c *CommitteeMember) Indexes() []state.Index {
	return []state.Index{
		{Name: IndexByAccount, Key: c.Account.Bytes(), Unique: true},
		{Name: IndexByVoteID, Key: uint32Key(uint32(c.VoteID)), Unique: true},
	}
}

type FileSignature struct {
	Account   state.ObjectID `serialize:"true" json:"account"`
	Signature string         `serialize:"true" json:"signature"`
}

// File is named content owned by an account. Parent and sub files are held
// by id only.
type File struct {
	state.Base `serialize:"true"`
	Owner      state.ObjectID   `serialize:"true" json:"owner"`
	Name       string           `serialize:"true" json:"name"`
	Content    []byte           `serialize:"true" json:"content"`
	CreateTime uint64           `serialize:"true" json:"createTime"`
	Related    []state.ObjectID `serialize:"true" json:"related"`
	Signatures []FileSignature  `serialize:"true" json:"signatures"`
	HasParent  bool             `serialize:"true" json:"hasParent"`
	Parent     state.ObjectID   `serialize:"true" json:"parent"`
	SubFiles   []state.ObjectID `serialize:"true" json:"subFiles"`
}

func (*File) Class() state.Class { return protocol.FileClass }

func (f *File) Indexes() []state.Index {
	return []state.Index{
		{Name: IndexByName, Key: []byte(f.Name), Unique: true},
		{Name: IndexByOwnerName, Key: concat(f.Owner.Bytes(), []byte(f.Name)), Unique: true},
		{Name: IndexByCreateTime, Key: uint64Key(f.CreateTime)},
	}
}

func (f *File) isRelated(account state.ObjectID) bool {
	for _, id := range f.Related {
		if id == account {
			return true
		}
	}
	return false
}

func (f *File) signedBy(account state.ObjectID) bool {
	for _, sig := range f.Signatures {
		if sig.Account == account {
			return true
		}
	}
	return false
}

// NHAsset is a non-homogeneous asset.
type NHAsset struct {
	state.Base   `serialize:"true"`
	Creator      state.ObjectID `serialize:"true" json:"creator"`
	Owner        state.ObjectID `serialize:"true" json:"owner"`
	Qualifier    string         `serialize:"true" json:"qualifier"`
	WorldView    string         `serialize:"true" json:"worldView"`
	BaseDescribe string         `serialize:"true" json:"baseDescribe"`
	CreateTime   uint64         `serialize:"true" json:"createTime"`
}

func (*NHAsset) Class() state.Class { return protocol.NHAssetClass }

func (n *NHAsset) Indexes() []state.Index {
	return []state.Index{{Name: IndexByOwner, Key: n.Owner.Bytes()}}
}

// TransactionRecord remembers an applied transaction until it expires so
// that it can not be applied twice.
type TransactionRecord struct {
	state.Base `serialize:"true"`
	TxID       ids.ID `serialize:"true" json:"txID"`
	Expiration uint64 `serialize:"true" json:"expiration"`
}

func (*TransactionRecord) Class() state.Class { return protocol.TransactionRecordClass }

func (t *TransactionRecord) Indexes() []state.Index {
	return []state.Index{
		{Name: IndexByTransactionID, Key: t.TxID[:], Unique: true},
		{Name: IndexByExpiration, Key: uint64Key(t.Expiration)},
	}
}

// GlobalProperties holds the committee controlled chain configuration.
type GlobalProperties struct {
	state.Base       `serialize:"true"`
	Parameters       protocol.ChainParameters `serialize:"true" json:"parameters"`
	Fees             protocol.FeeSchedule     `serialize:"true" json:"fees"`
	NextVoteInstance uint32                   `serialize:"true" json:"nextVoteInstance"`
	ActiveWitnesses  []state.ObjectID         `serialize:"true" json:"activeWitnesses"`
	ActiveCommittee  []state.ObjectID         `serialize:"true" json:"activeCommittee"`
}

func (*GlobalProperties) Class() state.Class     { return protocol.GlobalPropertiesClass }
func (*GlobalProperties) Indexes() []state.Index { return nil }

// DynamicGlobalProperties tracks the head of the chain.
type DynamicGlobalProperties struct {
	state.Base          `serialize:"true"`
	HeadBlockNumber     uint64 `serialize:"true" json:"headBlockNumber"`
	HeadBlockID         ids.ID `serialize:"true" json:"headBlockID"`
	Time                uint64 `serialize:"true" json:"time"`
	NextMaintenanceTime uint64 `serialize:"true" json:"nextMaintenanceTime"`
	AccumulatedFees     uint64 `serialize:"true" json:"accumulatedFees"`
}

func (*DynamicGlobalProperties) Class() state.Class     { return protocol.DynamicGlobalPropertiesClass }
func (*DynamicGlobalProperties) Indexes() []state.Index { return nil }

var (
	globalPropertiesID        = protocol.GlobalPropertiesClass.ID(0)
	dynamicGlobalPropertiesID = protocol.DynamicGlobalPropertiesClass.ID(0)
)
