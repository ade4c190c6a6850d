// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"
	"sort"

	safemath "github.com/ava-labs/avalanchego/utils/math"

	"github.com/ava-labs/ledgervm/authority"
	"github.com/ava-labs/ledgervm/protocol"
	"github.com/ava-labs/ledgervm/state"
)

// evaluator is the state dependent half of an operation. evaluate only reads
// the store; apply performs the mutation and returns the id of the object it
// created, if any.
type evaluator interface {
	evaluate(ctx *evalContext) error
	apply(ctx *evalContext) (state.ObjectID, bool, error)
}

// newEvaluator dispatches on the closed operation set.
func newEvaluator(op protocol.Operation) (evaluator, error) {
	switch op := op.(type) {
	case *protocol.Transfer:
		return &transferEvaluator{op: op}, nil
	case *protocol.AccountCreate:
		return &accountCreateEvaluator{op: op}, nil
	case *protocol.AccountUpdate:
		return &accountUpdateEvaluator{op: op}, nil
	case *protocol.AssetCreate:
		return &assetCreateEvaluator{op: op}, nil
	case *protocol.AssetIssue:
		return &assetIssueEvaluator{op: op}, nil
	case *protocol.WitnessCreate:
		return &witnessCreateEvaluator{op: op}, nil
	case *protocol.WitnessUpdate:
		return &witnessUpdateEvaluator{op: op}, nil
	case *protocol.CommitteeMemberCreate:
		return &committeeMemberCreateEvaluator{op: op}, nil
	case *protocol.FileCreate:
		return &fileCreateEvaluator{op: op}, nil
	case *protocol.FileAddRelatedAccounts:
		return &fileAddRelatedEvaluator{op: op}, nil
	case *protocol.FileSign:
		return &fileSignEvaluator{op: op}, nil
	case *protocol.FileRelateParent:
		return &fileRelateParentEvaluator{op: op}, nil
	case *protocol.NHAssetCreate:
		return &nhAssetCreateEvaluator{op: op}, nil
	case *protocol.NHAssetTransfer:
		return &nhAssetTransferEvaluator{op: op}, nil
	case *protocol.NHAssetDelete:
		return &nhAssetDeleteEvaluator{op: op}, nil
	default:
		return nil, fmt.Errorf("%w: unknown operation %T", protocol.ErrInvalidOperation, op)
	}
}

func notAuthorized(id state.ObjectID, format string, args ...interface{}) error {
	return &ObjectError{
		ID:  id,
		Err: fmt.Errorf("%w: %s", authority.ErrInsufficientAuthority, fmt.Sprintf(format, args...)),
	}
}

type transferEvaluator struct{ op *protocol.Transfer }

func (e *transferEvaluator) evaluate(ctx *evalContext) error {
	op := e.op
	if err := requireExists(ctx.store, op.From, op.To, op.Amount.AssetID); err != nil {
		return err
	}
	need := op.Amount.Amount
	if op.Amount.AssetID == protocol.CoreAsset && op.From == ctx.payer {
		sum, err := safemath.Add64(need, ctx.fee)
		if err != nil {
			return invariantf("transfer amount and fee overflow")
		}
		need = sum
	}
	have, err := balanceOf(ctx.store, op.From, op.Amount.AssetID)
	if err != nil {
		return err
	}
	if have < need {
		return &ObjectError{
			ID:  op.From,
			Err: fmt.Errorf("%w: has %d of %s, needs %d", ErrInsufficientFunds, have, op.Amount.AssetID, need),
		}
	}
	return nil
}

func (e *transferEvaluator) apply(ctx *evalContext) (state.ObjectID, bool, error) {
	op := e.op
	if err := subtractBalance(ctx.store, op.From, op.Amount.AssetID, op.Amount.Amount); err != nil {
		return state.ObjectID{}, false, err
	}
	return state.ObjectID{}, false, addBalance(ctx.store, op.To, op.Amount.AssetID, op.Amount.Amount)
}

// checkAuthorityAccounts checks that every account an authority delegates to
// exists.
func checkAuthorityAccounts(r state.Reader, auth *protocol.Authority) error {
	for _, aw := range auth.Accounts {
		if err := requireExists(r, aw.Account); err != nil {
			return err
		}
	}
	return nil
}

func checkVotes(r state.Reader, opts *protocol.AccountOptions) error {
	for _, vote := range opts.Votes {
		var (
			found bool
			err   error
		)
		switch vote.Type() {
		case protocol.VoteForWitness:
			_, found, err = findUnique[*Witness](r, protocol.WitnessClass, IndexByVoteID, uint32Key(uint32(vote)))
		case protocol.VoteForCommittee:
			_, found, err = findUnique[*CommitteeMember](r, protocol.CommitteeMemberClass, IndexByVoteID, uint32Key(uint32(vote)))
		}
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: vote %s names no candidate", state.ErrNotFound, vote)
		}
	}
	return nil
}

func checkSpecialAuthority(r state.Reader, params *protocol.ChainParameters, special *protocol.SpecialAuthority) error {
	if !special.IsSet() {
		return nil
	}
	if special.NumTopHolders > params.MaxTopHolders {
		return invariantf("special authority asks for %d top holders, at most %d allowed",
			special.NumTopHolders, params.MaxTopHolders)
	}
	return requireExists(r, special.Asset)
}

type accountCreateEvaluator struct{ op *protocol.AccountCreate }

func (e *accountCreateEvaluator) evaluate(ctx *evalContext) error {
	op := e.op
	if err := requireExists(ctx.store, op.Registrar); err != nil {
		return err
	}
	_, taken, err := findUnique[*Account](ctx.store, protocol.AccountClass, IndexByName, []byte(op.Name))
	if err != nil {
		return err
	}
	if taken {
		return invariantf("account name %q is taken", op.Name)
	}
	if err := checkAuthorityAccounts(ctx.store, &op.Owner); err != nil {
		return err
	}
	if err := checkAuthorityAccounts(ctx.store, &op.Active); err != nil {
		return err
	}
	if err := checkVotes(ctx.store, &op.Options); err != nil {
		return err
	}
	if err := checkSpecialAuthority(ctx.store, &ctx.global.Parameters, &op.OwnerSpecial); err != nil {
		return err
	}
	return checkSpecialAuthority(ctx.store, &ctx.global.Parameters, &op.ActiveSpecial)
}

func (e *accountCreateEvaluator) apply(ctx *evalContext) (state.ObjectID, bool, error) {
	op := e.op
	id, err := ctx.store.Create(&Account{
		Registrar:     op.Registrar,
		Name:          op.Name,
		Owner:         op.Owner,
		Active:        op.Active,
		Options:       op.Options,
		OwnerSpecial:  op.OwnerSpecial,
		ActiveSpecial: op.ActiveSpecial,
	})
	return id, err == nil, err
}

type accountUpdateEvaluator struct{ op *protocol.AccountUpdate }

func (e *accountUpdateEvaluator) evaluate(ctx *evalContext) error {
	op := e.op
	if err := requireExists(ctx.store, op.Account); err != nil {
		return err
	}
	if op.UpdateOwner {
		if err := checkAuthorityAccounts(ctx.store, &op.Owner); err != nil {
			return err
		}
	}
	if op.UpdateActive {
		if err := checkAuthorityAccounts(ctx.store, &op.Active); err != nil {
			return err
		}
	}
	if op.UpdateOptions {
		if err := checkVotes(ctx.store, &op.Options); err != nil {
			return err
		}
	}
	if op.UpdateOwnerSpecial {
		if err := checkSpecialAuthority(ctx.store, &ctx.global.Parameters, &op.OwnerSpecial); err != nil {
			return err
		}
	}
	if op.UpdateActiveSpecial {
		return checkSpecialAuthority(ctx.store, &ctx.global.Parameters, &op.ActiveSpecial)
	}
	return nil
}

func (e *accountUpdateEvaluator) apply(ctx *evalContext) (state.ObjectID, bool, error) {
	op := e.op
	return state.ObjectID{}, false, ctx.store.Modify(op.Account, func(obj state.Object) error {
		acct := obj.(*Account)
		if op.UpdateOwner {
			acct.Owner = op.Owner
		}
		if op.UpdateActive {
			acct.Active = op.Active
		}
		if op.UpdateOptions {
			acct.Options = op.Options
		}
		if op.UpdateOwnerSpecial {
			acct.OwnerSpecial = op.OwnerSpecial
		}
		if op.UpdateActiveSpecial {
			acct.ActiveSpecial = op.ActiveSpecial
		}
		return nil
	})
}

type assetCreateEvaluator struct{ op *protocol.AssetCreate }

func (e *assetCreateEvaluator) evaluate(ctx *evalContext) error {
	if err := requireExists(ctx.store, e.op.Issuer); err != nil {
		return err
	}
	_, taken, err := findUnique[*Asset](ctx.store, protocol.AssetClass, IndexBySymbol, []byte(e.op.Symbol))
	if err != nil {
		return err
	}
	if taken {
		return invariantf("asset symbol %q is taken", e.op.Symbol)
	}
	return nil
}

func (e *assetCreateEvaluator) apply(ctx *evalContext) (state.ObjectID, bool, error) {
	id, err := ctx.store.Create(&Asset{
		Symbol:    e.op.Symbol,
		Precision: e.op.Precision,
		Issuer:    e.op.Issuer,
		MaxSupply: e.op.MaxSupply,
	})
	return id, err == nil, err
}

type assetIssueEvaluator struct{ op *protocol.AssetIssue }

func (e *assetIssueEvaluator) evaluate(ctx *evalContext) error {
	op := e.op
	asset, err := getObject[*Asset](ctx.store, op.Amount.AssetID)
	if err != nil {
		return err
	}
	if asset.Issuer != op.Issuer {
		return notAuthorized(asset.ID(), "%s is not the issuer", op.Issuer)
	}
	if err := requireExists(ctx.store, op.IssueTo); err != nil {
		return err
	}
	supply, err := safemath.Add64(asset.CurrentSupply, op.Amount.Amount)
	if err != nil || supply > asset.MaxSupply {
		return &ObjectError{
			ID:  asset.ID(),
			Err: invariantf("issuing %d exceeds max supply %d", op.Amount.Amount, asset.MaxSupply),
		}
	}
	return nil
}

func (e *assetIssueEvaluator) apply(ctx *evalContext) (state.ObjectID, bool, error) {
	op := e.op
	err := ctx.store.Modify(op.Amount.AssetID, func(obj state.Object) error {
		obj.(*Asset).CurrentSupply += op.Amount.Amount
		return nil
	})
	if err != nil {
		return state.ObjectID{}, false, err
	}
	return state.ObjectID{}, false, addBalance(ctx.store, op.IssueTo, op.Amount.AssetID, op.Amount.Amount)
}

// nextVoteID hands out the next vote id of [typ].
func nextVoteID(s *state.Store, typ protocol.VoteType) (protocol.VoteID, error) {
	var vote protocol.VoteID
	err := s.Modify(globalPropertiesID, func(obj state.Object) error {
		gp := obj.(*GlobalProperties)
		vote = protocol.NewVoteID(typ, gp.NextVoteInstance)
		gp.NextVoteInstance++
		return nil
	})
	return vote, err
}

type witnessCreateEvaluator struct{ op *protocol.WitnessCreate }

func (e *witnessCreateEvaluator) evaluate(ctx *evalContext) error {
	if err := requireExists(ctx.store, e.op.WitnessAccount); err != nil {
		return err
	}
	_, exists, err := findUnique[*Witness](ctx.store, protocol.WitnessClass, IndexByAccount, e.op.WitnessAccount.Bytes())
	if err != nil {
		return err
	}
	if exists {
		return invariantf("%s is already a witness", e.op.WitnessAccount)
	}
	return nil
}

func (e *witnessCreateEvaluator) apply(ctx *evalContext) (state.ObjectID, bool, error) {
	vote, err := nextVoteID(ctx.store, protocol.VoteForWitness)
	if err != nil {
		return state.ObjectID{}, false, err
	}
	id, err := ctx.store.Create(&Witness{
		WitnessAccount: e.op.WitnessAccount,
		SigningKey:     e.op.SigningKey,
		URL:            e.op.URL,
		VoteID:         vote,
	})
	return id, err == nil, err
}

type witnessUpdateEvaluator struct{ op *protocol.WitnessUpdate }

func (e *witnessUpdateEvaluator) evaluate(ctx *evalContext) error {
	wit, err := getObject[*Witness](ctx.store, e.op.Witness)
	if err != nil {
		return err
	}
	if wit.WitnessAccount != e.op.WitnessAccount {
		return notAuthorized(wit.ID(), "%s does not operate the witness", e.op.WitnessAccount)
	}
	return nil
}

func (e *witnessUpdateEvaluator) apply(ctx *evalContext) (state.ObjectID, bool, error) {
	op := e.op
	return state.ObjectID{}, false, ctx.store.Modify(op.Witness, func(obj state.Object) error {
		wit := obj.(*Witness)
		if op.UpdateURL {
			wit.URL = op.URL
		}
		if op.UpdateSigningKey {
			wit.SigningKey = op.SigningKey
		}
		return nil
	})
}

type committeeMemberCreateEvaluator struct {
	op *protocol.CommitteeMemberCreate
}

func (e *committeeMemberCreateEvaluator) evaluate(ctx *evalContext) error {
	if err := requireExists(ctx.store, e.op.Account); err != nil {
		return err
	}
	_, exists, err := findUnique[*CommitteeMember](ctx.store, protocol.CommitteeMemberClass, IndexByAccount, e.op.Account.Bytes())
	if err != nil {
		return err
	}
	if exists {
		return invariantf("%s is already a committee member", e.op.Account)
	}
	return nil
}

func (e *committeeMemberCreateEvaluator) apply(ctx *evalContext) (state.ObjectID, bool, error) {
	vote, err := nextVoteID(ctx.store, protocol.VoteForCommittee)
	if err != nil {
		return state.ObjectID{}, false, err
	}
	id, err := ctx.store.Create(&CommitteeMember{
		Account: e.op.Account,
		URL:     e.op.URL,
		VoteID:  vote,
	})
	return id, err == nil, err
}

type fileCreateEvaluator struct{ op *protocol.FileCreate }

func (e *fileCreateEvaluator) evaluate(ctx *evalContext) error {
	if err := requireExists(ctx.store, e.op.Owner); err != nil {
		return err
	}
	_, taken, err := findUnique[*File](ctx.store, protocol.FileClass, IndexByName, []byte(e.op.Name))
	if err != nil {
		return err
	}
	if taken {
		return invariantf("file name %q is taken", e.op.Name)
	}
	return nil
}

func (e *fileCreateEvaluator) apply(ctx *evalContext) (state.ObjectID, bool, error) {
	id, err := ctx.store.Create(&File{
		Owner:      e.op.Owner,
		Name:       e.op.Name,
		Content:    e.op.Content,
		CreateTime: ctx.es.Now,
	})
	return id, err == nil, err
}

type fileAddRelatedEvaluator struct {
	op *protocol.FileAddRelatedAccounts
}

func (e *fileAddRelatedEvaluator) evaluate(ctx *evalContext) error {
	file, err := getObject[*File](ctx.store, e.op.File)
	if err != nil {
		return err
	}
	if file.Owner != e.op.Owner {
		return notAuthorized(file.ID(), "%s does not own the file", e.op.Owner)
	}
	return requireExists(ctx.store, e.op.Related...)
}

func (e *fileAddRelatedEvaluator) apply(ctx *evalContext) (state.ObjectID, bool, error) {
	return state.ObjectID{}, false, ctx.store.Modify(e.op.File, func(obj state.Object) error {
		file := obj.(*File)
		for _, id := range e.op.Related {
			if !file.isRelated(id) {
				file.Related = append(file.Related, id)
			}
		}
		sort.Slice(file.Related, func(i, j int) bool { return file.Related[i].Less(file.Related[j]) })
		return nil
	})
}

type fileSignEvaluator struct{ op *protocol.FileSign }

func (e *fileSignEvaluator) evaluate(ctx *evalContext) error {
	file, err := getObject[*File](ctx.store, e.op.File)
	if err != nil {
		return err
	}
	if !file.isRelated(e.op.Account) {
		return notAuthorized(file.ID(), "%s is not related to the file", e.op.Account)
	}
	if file.signedBy(e.op.Account) {
		return &ObjectError{ID: file.ID(), Err: invariantf("%s already signed", e.op.Account)}
	}
	return nil
}

func (e *fileSignEvaluator) apply(ctx *evalContext) (state.ObjectID, bool, error) {
	return state.ObjectID{}, false, ctx.store.Modify(e.op.File, func(obj state.Object) error {
		file := obj.(*File)
		file.Signatures = append(file.Signatures, FileSignature{
			Account:   e.op.Account,
			Signature: e.op.Signature,
		})
		return nil
	})
}

type fileRelateParentEvaluator struct{ op *protocol.FileRelateParent }

func (e *fileRelateParentEvaluator) evaluate(ctx *evalContext) error {
	op := e.op
	parent, err := getObject[*File](ctx.store, op.ParentFile)
	if err != nil {
		return err
	}
	if parent.Owner != op.ParentFileOwner {
		return notAuthorized(parent.ID(), "%s does not own the parent file", op.ParentFileOwner)
	}
	sub, err := getObject[*File](ctx.store, op.SubFile)
	if err != nil {
		return err
	}
	if sub.Owner != op.SubFileOwner {
		return notAuthorized(sub.ID(), "%s does not own the sub file", op.SubFileOwner)
	}
	if sub.HasParent {
		return &ObjectError{ID: sub.ID(), Err: invariantf("file already has parent %s", sub.Parent)}
	}
	// walk up from the parent so the relation can not close a cycle
	for cur := parent; cur.HasParent; {
		if cur.Parent == sub.ID() {
			return &ObjectError{ID: sub.ID(), Err: invariantf("file is an ancestor of %s", parent.ID())}
		}
		if cur, err = getObject[*File](ctx.store, cur.Parent); err != nil {
			return err
		}
	}
	return nil
}

func (e *fileRelateParentEvaluator) apply(ctx *evalContext) (state.ObjectID, bool, error) {
	op := e.op
	err := ctx.store.Modify(op.SubFile, func(obj state.Object) error {
		sub := obj.(*File)
		sub.HasParent = true
		sub.Parent = op.ParentFile
		return nil
	})
	if err != nil {
		return state.ObjectID{}, false, err
	}
	return state.ObjectID{}, false, ctx.store.Modify(op.ParentFile, func(obj state.Object) error {
		parent := obj.(*File)
		parent.SubFiles = append(parent.SubFiles, op.SubFile)
		return nil
	})
}

type nhAssetCreateEvaluator struct{ op *protocol.NHAssetCreate }

func (e *nhAssetCreateEvaluator) evaluate(ctx *evalContext) error {
	return requireExists(ctx.store, e.op.Creator, e.op.Owner)
}

func (e *nhAssetCreateEvaluator) apply(ctx *evalContext) (state.ObjectID, bool, error) {
	op := e.op
	id, err := ctx.store.Create(&NHAsset{
		Creator:      op.Creator,
		Owner:        op.Owner,
		Qualifier:    op.Qualifier,
		WorldView:    op.WorldView,
		BaseDescribe: op.BaseDescribe,
		CreateTime:   ctx.es.Now,
	})
	return id, err == nil, err
}

type nhAssetTransferEvaluator struct{ op *protocol.NHAssetTransfer }

func (e *nhAssetTransferEvaluator) evaluate(ctx *evalContext) error {
	nh, err := getObject[*NHAsset](ctx.store, e.op.NHAsset)
	if err != nil {
		return err
	}
	if nh.Owner != e.op.From {
		return notAuthorized(nh.ID(), "%s does not own the asset", e.op.From)
	}
	return requireExists(ctx.store, e.op.To)
}

func (e *nhAssetTransferEvaluator) apply(ctx *evalContext) (state.ObjectID, bool, error) {
	return state.ObjectID{}, false, ctx.store.Modify(e.op.NHAsset, func(obj state.Object) error {
		obj.(*NHAsset).Owner = e.op.To
		return nil
	})
}

type nhAssetDeleteEvaluator struct{ op *protocol.NHAssetDelete }

func (e *nhAssetDeleteEvaluator) evaluate(ctx *evalContext) error {
	nh, err := getObject[*NHAsset](ctx.store, e.op.NHAsset)
	if err != nil {
		return err
	}
	if nh.Owner != e.op.Owner {
		return notAuthorized(nh.ID(), "%s does not own the asset", e.op.Owner)
	}
	return nil
}

func (e *nhAssetDeleteEvaluator) apply(ctx *evalContext) (state.ObjectID, bool, error) {
	return state.ObjectID{}, false, ctx.store.Remove(e.op.NHAsset)
}
