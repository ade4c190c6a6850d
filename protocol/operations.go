// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/ledgervm/state"
)

var (
	_ Operation = &Transfer{}
	_ Operation = &AccountCreate{}
	_ Operation = &AccountUpdate{}
	_ Operation = &AssetCreate{}
	_ Operation = &AssetIssue{}
	_ Operation = &WitnessCreate{}
	_ Operation = &WitnessUpdate{}
	_ Operation = &CommitteeMemberCreate{}
	_ Operation = &FileCreate{}
	_ Operation = &FileAddRelatedAccounts{}
	_ Operation = &FileSign{}
	_ Operation = &FileRelateParent{}
	_ Operation = &NHAssetCreate{}
	_ Operation = &NHAssetTransfer{}
	_ Operation = &NHAssetDelete{}
)

// Operation is one state transition carried by a transaction. The set of
// operations is closed: the codec type id of each implementation is its tag.
type Operation interface {
	// FeePayer is the account charged the operation's fee.
	FeePayer() state.ObjectID
	// Validate performs every check that does not need ledger state.
	Validate() error
	// RequiredAuthorities adds the authorities that must approve the operation.
	RequiredAuthorities(*RequiredAuthorities)

	isOperation()
}

// RequiredAuthorities collects what a transaction's signers must satisfy.
type RequiredAuthorities struct {
	Active []state.ObjectID
	Owner  []state.ObjectID
	Other  []Authority
}

// Collect returns the authorities required by every operation of [ops],
// de-duplicated and sorted.
func Collect(ops []Operation) RequiredAuthorities {
	req := RequiredAuthorities{}
	for _, op := range ops {
		op.RequiredAuthorities(&req)
	}
	req.Active = uniqueIDs(req.Active)
	req.Owner = uniqueIDs(req.Owner)
	return req
}

func uniqueIDs(in []state.ObjectID) []state.ObjectID {
	if len(in) == 0 {
		return nil
	}
	out := make([]state.ObjectID, 0, len(in))
	for _, id := range in {
		i := 0
		for i < len(out) && out[i].Less(id) {
			i++
		}
		if i < len(out) && out[i] == id {
			continue
		}
		out = append(out, state.ObjectID{})
		copy(out[i+1:], out[i:])
		out[i] = id
	}
	return out
}

// Transfer moves an amount of an asset between accounts.
type Transfer struct {
	From   state.ObjectID `serialize:"true" json:"from"`
	To     state.ObjectID `serialize:"true" json:"to"`
	Amount Asset          `serialize:"true" json:"amount"`
	Memo   []byte         `serialize:"true" json:"memo"`
}

func (*Transfer) isOperation()                {}
func (op *Transfer) FeePayer() state.ObjectID { return op.From }

func (op *Transfer) RequiredAuthorities(req *RequiredAuthorities) {
	req.Active = append(req.Active, op.From)
}

func (op *Transfer) Validate() error {
	switch {
	case op.From == op.To:
		return invalidf("transfer to self")
	case op.Amount.Amount == 0:
		return invalidf("transfer of zero amount")
	case len(op.Memo) > MaxMemoLength:
		return invalidf("memo is %d bytes", len(op.Memo))
	}
	if err := checkClass(op.From, AccountClass, "from"); err != nil {
		return err
	}
	if err := checkClass(op.To, AccountClass, "to"); err != nil {
		return err
	}
	return checkClass(op.Amount.AssetID, AssetClass, "asset")
}

// AccountCreate registers a new named account.
type AccountCreate struct {
	Registrar     state.ObjectID   `serialize:"true" json:"registrar"`
	Name          string           `serialize:"true" json:"name"`
	Owner         Authority        `serialize:"true" json:"owner"`
	Active        Authority        `serialize:"true" json:"active"`
	Options       AccountOptions   `serialize:"true" json:"options"`
	OwnerSpecial  SpecialAuthority `serialize:"true" json:"ownerSpecialAuthority"`
	ActiveSpecial SpecialAuthority `serialize:"true" json:"activeSpecialAuthority"`
}

func (*AccountCreate) isOperation()                {}
func (op *AccountCreate) FeePayer() state.ObjectID { return op.Registrar }

func (op *AccountCreate) RequiredAuthorities(req *RequiredAuthorities) {
	req.Active = append(req.Active, op.Registrar)
}

func (op *AccountCreate) Validate() error {
	if err := checkClass(op.Registrar, AccountClass, "registrar"); err != nil {
		return err
	}
	if !IsValidAccountName(op.Name) {
		return invalidf("invalid account name %q", op.Name)
	}
	if err := op.Owner.validateRole(OwnerRole); err != nil {
		return err
	}
	if err := op.Active.validateRole(ActiveRole); err != nil {
		return err
	}
	if err := op.Options.Validate(); err != nil {
		return err
	}
	if err := op.OwnerSpecial.Validate(); err != nil {
		return err
	}
	return op.ActiveSpecial.Validate()
}

// AccountUpdate changes the authorities or options of an account. Only the
// parts whose Update flag is set are changed.
type AccountUpdate struct {
	Account             state.ObjectID   `serialize:"true" json:"account"`
	UpdateOwner         bool             `serialize:"true" json:"updateOwner"`
	Owner               Authority        `serialize:"true" json:"owner"`
	UpdateActive        bool             `serialize:"true" json:"updateActive"`
	Active              Authority        `serialize:"true" json:"active"`
	UpdateOptions       bool             `serialize:"true" json:"updateOptions"`
	Options             AccountOptions   `serialize:"true" json:"options"`
	UpdateOwnerSpecial  bool             `serialize:"true" json:"updateOwnerSpecialAuthority"`
	OwnerSpecial        SpecialAuthority `serialize:"true" json:"ownerSpecialAuthority"`
	UpdateActiveSpecial bool             `serialize:"true" json:"updateActiveSpecialAuthority"`
	ActiveSpecial       SpecialAuthority `serialize:"true" json:"activeSpecialAuthority"`
}

func (*AccountUpdate) isOperation()                {}
func (op *AccountUpdate) FeePayer() state.ObjectID { return op.Account }

// RequiredAuthorities asks for the owner authority when the owner role is
// touched, the active authority otherwise.
func (op *AccountUpdate) RequiredAuthorities(req *RequiredAuthorities) {
	if op.UpdateOwner || op.UpdateOwnerSpecial {
		req.Owner = append(req.Owner, op.Account)
		return
	}
	req.Active = append(req.Active, op.Account)
}

func (op *AccountUpdate) Validate() error {
	if err := checkClass(op.Account, AccountClass, "account"); err != nil {
		return err
	}
	if op.Account == TempAccount {
		return invalidf("the temporary account can not be updated")
	}
	if !op.UpdateOwner && !op.UpdateActive && !op.UpdateOptions && !op.UpdateOwnerSpecial && !op.UpdateActiveSpecial {
		return invalidf("account update changes nothing")
	}
	if op.UpdateOwner {
		if err := op.Owner.validateRole(OwnerRole); err != nil {
			return err
		}
	}
	if op.UpdateActive {
		if err := op.Active.validateRole(ActiveRole); err != nil {
			return err
		}
	}
	if op.UpdateOptions {
		if err := op.Options.Validate(); err != nil {
			return err
		}
	}
	if op.UpdateOwnerSpecial {
		if err := op.OwnerSpecial.Validate(); err != nil {
			return err
		}
	}
	if op.UpdateActiveSpecial {
		return op.ActiveSpecial.Validate()
	}
	return nil
}

// AssetCreate defines a new user issued asset.
type AssetCreate struct {
	Issuer    state.ObjectID `serialize:"true" json:"issuer"`
	Symbol    string         `serialize:"true" json:"symbol"`
	Precision uint8          `serialize:"true" json:"precision"`
	MaxSupply uint64         `serialize:"true" json:"maxSupply"`
}

func (*AssetCreate) isOperation()                {}
func (op *AssetCreate) FeePayer() state.ObjectID { return op.Issuer }

func (op *AssetCreate) RequiredAuthorities(req *RequiredAuthorities) {
	req.Active = append(req.Active, op.Issuer)
}

func (op *AssetCreate) Validate() error {
	switch {
	case !IsValidSymbol(op.Symbol):
		return invalidf("invalid asset symbol %q", op.Symbol)
	case op.Precision > MaxAssetPrecision:
		return invalidf("precision %d exceeds %d", op.Precision, MaxAssetPrecision)
	case op.MaxSupply == 0 || op.MaxSupply > MaxShareSupply:
		return invalidf("max supply %d out of range", op.MaxSupply)
	}
	return checkClass(op.Issuer, AccountClass, "issuer")
}

// AssetIssue mints new supply of an asset to an account.
type AssetIssue struct {
	Issuer  state.ObjectID `serialize:"true" json:"issuer"`
	Amount  Asset          `serialize:"true" json:"amount"`
	IssueTo state.ObjectID `serialize:"true" json:"issueTo"`
	Memo    []byte         `serialize:"true" json:"memo"`
}

func (*AssetIssue) isOperation()                {}
func (op *AssetIssue) FeePayer() state.ObjectID { return op.Issuer }

func (op *AssetIssue) RequiredAuthorities(req *RequiredAuthorities) {
	req.Active = append(req.Active, op.Issuer)
}

func (op *AssetIssue) Validate() error {
	switch {
	case op.Amount.Amount == 0 || op.Amount.Amount > MaxShareSupply:
		return invalidf("issue amount %d out of range", op.Amount.Amount)
	case len(op.Memo) > MaxMemoLength:
		return invalidf("memo is %d bytes", len(op.Memo))
	}
	if err := checkClass(op.Issuer, AccountClass, "issuer"); err != nil {
		return err
	}
	if err := checkClass(op.IssueTo, AccountClass, "issue to"); err != nil {
		return err
	}
	return checkClass(op.Amount.AssetID, AssetClass, "asset")
}

// WitnessCreate registers an account as a block producing candidate.
type WitnessCreate struct {
	WitnessAccount state.ObjectID `serialize:"true" json:"witnessAccount"`
	SigningKey     ids.ShortID    `serialize:"true" json:"signingKey"`
	URL            string         `serialize:"true" json:"url"`
}

func (*WitnessCreate) isOperation()                {}
func (op *WitnessCreate) FeePayer() state.ObjectID { return op.WitnessAccount }

func (op *WitnessCreate) RequiredAuthorities(req *RequiredAuthorities) {
	req.Active = append(req.Active, op.WitnessAccount)
}

func (op *WitnessCreate) Validate() error {
	if len(op.URL) > MaxURLLength {
		return invalidf("url is %d bytes", len(op.URL))
	}
	if op.SigningKey == ids.ShortEmpty {
		return invalidf("empty signing key")
	}
	return checkClass(op.WitnessAccount, AccountClass, "witness account")
}

// WitnessUpdate changes the url or signing key of a witness.
type WitnessUpdate struct {
	Witness          state.ObjectID `serialize:"true" json:"witness"`
	WitnessAccount   state.ObjectID `serialize:"true" json:"witnessAccount"`
	UpdateURL        bool           `serialize:"true" json:"updateURL"`
	URL              string         `serialize:"true" json:"url"`
	UpdateSigningKey bool           `serialize:"true" json:"updateSigningKey"`
	SigningKey       ids.ShortID    `serialize:"true" json:"signingKey"`
}

func (*WitnessUpdate) isOperation()                {}
func (op *WitnessUpdate) FeePayer() state.ObjectID { return op.WitnessAccount }

func (op *WitnessUpdate) RequiredAuthorities(req *RequiredAuthorities) {
	req.Active = append(req.Active, op.WitnessAccount)
}

func (op *WitnessUpdate) Validate() error {
	switch {
	case !op.UpdateURL && !op.UpdateSigningKey:
		return invalidf("witness update changes nothing")
	case op.UpdateURL && len(op.URL) > MaxURLLength:
		return invalidf("url is %d bytes", len(op.URL))
	case op.UpdateSigningKey && op.SigningKey == ids.ShortEmpty:
		return invalidf("empty signing key")
	}
	if err := checkClass(op.Witness, WitnessClass, "witness"); err != nil {
		return err
	}
	return checkClass(op.WitnessAccount, AccountClass, "witness account")
}

// CommitteeMemberCreate registers an account as a committee candidate.
type CommitteeMemberCreate struct {
	Account state.ObjectID `serialize:"true" json:"account"`
	URL     string         `serialize:"true" json:"url"`
}

func (*CommitteeMemberCreate) isOperation()                {}
func (op *CommitteeMemberCreate) FeePayer() state.ObjectID { return op.Account }

func (op *CommitteeMemberCreate) RequiredAuthorities(req *RequiredAuthorities) {
	req.Active = append(req.Active, op.Account)
}

func (op *CommitteeMemberCreate) Validate() error {
	if len(op.URL) > MaxURLLength {
		return invalidf("url is %d bytes", len(op.URL))
	}
	return checkClass(op.Account, AccountClass, "account")
}

// FileCreate stores a named file owned by an account.
type FileCreate struct {
	Owner   state.ObjectID `serialize:"true" json:"owner"`
	Name    string         `serialize:"true" json:"name"`
	Content []byte         `serialize:"true" json:"content"`
}

func (*FileCreate) isOperation()                {}
func (op *FileCreate) FeePayer() state.ObjectID { return op.Owner }

func (op *FileCreate) RequiredAuthorities(req *RequiredAuthorities) {
	req.Active = append(req.Active, op.Owner)
}

func (op *FileCreate) Validate() error {
	switch {
	case !IsValidFileName(op.Name):
		return invalidf("invalid file name %q", op.Name)
	case len(op.Content) == 0:
		return invalidf("empty file content")
	}
	return checkClass(op.Owner, AccountClass, "owner")
}

// FileAddRelatedAccounts names the accounts allowed to sign a file.
type FileAddRelatedAccounts struct {
	Owner   state.ObjectID   `serialize:"true" json:"owner"`
	File    state.ObjectID   `serialize:"true" json:"file"`
	Related []state.ObjectID `serialize:"true" json:"related"`
}

func (*FileAddRelatedAccounts) isOperation()                {}
func (op *FileAddRelatedAccounts) FeePayer() state.ObjectID { return op.Owner }

func (op *FileAddRelatedAccounts) RequiredAuthorities(req *RequiredAuthorities) {
	req.Active = append(req.Active, op.Owner)
}

func (op *FileAddRelatedAccounts) Validate() error {
	if len(op.Related) == 0 {
		return invalidf("no related accounts")
	}
	for i, id := range op.Related {
		if err := checkClass(id, AccountClass, "related account"); err != nil {
			return err
		}
		if i > 0 && !op.Related[i-1].Less(id) {
			return invalidf("related accounts are not sorted and unique")
		}
	}
	if err := checkClass(op.Owner, AccountClass, "owner"); err != nil {
		return err
	}
	return checkClass(op.File, FileClass, "file")
}

// FileSign records a related account's signature on a file.
type FileSign struct {
	Account   state.ObjectID `serialize:"true" json:"account"`
	File      state.ObjectID `serialize:"true" json:"file"`
	Signature string         `serialize:"true" json:"signature"`
}

func (*FileSign) isOperation()                {}
func (op *FileSign) FeePayer() state.ObjectID { return op.Account }

func (op *FileSign) RequiredAuthorities(req *RequiredAuthorities) {
	req.Active = append(req.Active, op.Account)
}

func (op *FileSign) Validate() error {
	if len(op.Signature) == 0 {
		return invalidf("empty file signature")
	}
	if err := checkClass(op.Account, AccountClass, "account"); err != nil {
		return err
	}
	return checkClass(op.File, FileClass, "file")
}

// FileRelateParent makes one file the child of another. Both owners approve,
// the parent's owner pays.
type FileRelateParent struct {
	SubFileOwner    state.ObjectID `serialize:"true" json:"subFileOwner"`
	ParentFile      state.ObjectID `serialize:"true" json:"parentFile"`
	ParentFileOwner state.ObjectID `serialize:"true" json:"parentFileOwner"`
	SubFile         state.ObjectID `serialize:"true" json:"subFile"`
}

func (*FileRelateParent) isOperation()                {}
func (op *FileRelateParent) FeePayer() state.ObjectID { return op.ParentFileOwner }

func (op *FileRelateParent) RequiredAuthorities(req *RequiredAuthorities) {
	req.Active = append(req.Active, op.ParentFileOwner, op.SubFileOwner)
}

func (op *FileRelateParent) Validate() error {
	if op.ParentFile == op.SubFile {
		return invalidf("file can not be its own parent")
	}
	for _, check := range []struct {
		id    state.ObjectID
		class state.Class
		field string
	}{
		{op.SubFileOwner, AccountClass, "sub file owner"},
		{op.ParentFileOwner, AccountClass, "parent file owner"},
		{op.ParentFile, FileClass, "parent file"},
		{op.SubFile, FileClass, "sub file"},
	} {
		if err := checkClass(check.id, check.class, check.field); err != nil {
			return err
		}
	}
	return nil
}

// NHAssetCreate mints a non-homogeneous asset.
type NHAssetCreate struct {
	Creator      state.ObjectID `serialize:"true" json:"creator"`
	Owner        state.ObjectID `serialize:"true" json:"owner"`
	Qualifier    string         `serialize:"true" json:"qualifier"`
	WorldView    string         `serialize:"true" json:"worldView"`
	BaseDescribe string         `serialize:"true" json:"baseDescribe"`
}

func (*NHAssetCreate) isOperation()                {}
func (op *NHAssetCreate) FeePayer() state.ObjectID { return op.Creator }

func (op *NHAssetCreate) RequiredAuthorities(req *RequiredAuthorities) {
	req.Active = append(req.Active, op.Creator)
}

func (op *NHAssetCreate) Validate() error {
	switch {
	case len(op.BaseDescribe) == 0:
		return invalidf("empty base describe")
	case len(op.WorldView) == 0:
		return invalidf("empty world view")
	}
	if err := checkClass(op.Creator, AccountClass, "creator"); err != nil {
		return err
	}
	return checkClass(op.Owner, AccountClass, "owner")
}

// NHAssetTransfer hands a non-homogeneous asset to another account.
type NHAssetTransfer struct {
	From    state.ObjectID `serialize:"true" json:"from"`
	To      state.ObjectID `serialize:"true" json:"to"`
	NHAsset state.ObjectID `serialize:"true" json:"nhAsset"`
}

func (*NHAssetTransfer) isOperation()                {}
func (op *NHAssetTransfer) FeePayer() state.ObjectID { return op.From }

func (op *NHAssetTransfer) RequiredAuthorities(req *RequiredAuthorities) {
	req.Active = append(req.Active, op.From)
}

func (op *NHAssetTransfer) Validate() error {
	if op.From == op.To {
		return invalidf("transfer to self")
	}
	if err := checkClass(op.From, AccountClass, "from"); err != nil {
		return err
	}
	if err := checkClass(op.To, AccountClass, "to"); err != nil {
		return err
	}
	return checkClass(op.NHAsset, NHAssetClass, "nh asset")
}

// NHAssetDelete destroys a non-homogeneous asset.
type NHAssetDelete struct {
	Owner   state.ObjectID `serialize:"true" json:"owner"`
	NHAsset state.ObjectID `serialize:"true" json:"nhAsset"`
}

func (*NHAssetDelete) isOperation()                {}
func (op *NHAssetDelete) FeePayer() state.ObjectID { return op.Owner }

func (op *NHAssetDelete) RequiredAuthorities(req *RequiredAuthorities) {
	req.Active = append(req.Active, op.Owner)
}

func (op *NHAssetDelete) Validate() error {
	if err := checkClass(op.Owner, AccountClass, "owner"); err != nil {
		return err
	}
	return checkClass(op.NHAsset, NHAssetClass, "nh asset")
}
