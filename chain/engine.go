// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	safemath "github.com/ava-labs/avalanchego/utils/math"
	"github.com/prometheus/client_golang/prometheus"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/ledgervm/authority"
	"github.com/ava-labs/ledgervm/protocol"
	"github.com/ava-labs/ledgervm/state"
)

// Engine applies transactions and blocks to the ledger. Every entry point
// serializes on one lock; a transaction or block either applies completely
// or leaves the ledger untouched.
//
// Transactions applied outside of a block are pending. They sit in an undo
// session above the last block until the next block is applied, which undoes
// them first and re-applies the ones still valid afterwards.
type Engine struct {
	lock sync.Mutex

	config    Config
	log       log.Logger
	db        *persistence
	store     *state.Store
	recoverer SignatureRecoverer
	metrics   *metrics

	// evaluators maps an operation onto the evaluator that applies it.
	evaluators func(protocol.Operation) (evaluator, error)

	pending    *state.Session
	pendingTxs []pendingTx
}

type pendingTx struct {
	tx      *protocol.SignedTransaction
	signers []ids.ShortID
	mode    ApplyMode
}

// New opens an engine on [db]. When [db] holds no ledger yet, [genesis]
// initializes it and the result is committed.
func New(
	db database.Database,
	genesis *Genesis,
	config Config,
	logger log.Logger,
	registerer prometheus.Registerer,
) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New("module", "chain")
	}
	m, err := newMetrics(config.MetricsNamespace, registerer)
	if err != nil {
		return nil, err
	}

	var recoverer SignatureRecoverer = &Secp256k1Recoverer{}
	if config.SignatureCacheSize > 0 {
		recoverer, err = NewCachingRecoverer(recoverer, config.SignatureCacheSize, config.MetricsNamespace, registerer)
		if err != nil {
			return nil, err
		}
	}

	p := newPersistence(db, config.BlockCacheSize)
	e := &Engine{
		config:    config,
		log:       logger,
		db:        p,
		store:     p.objects,
		recoverer: recoverer,
		metrics:   m,

		evaluators: newEvaluator,
	}

	initialized, err := p.IsInitialized()
	if err != nil {
		return nil, err
	}
	if initialized {
		lastAccepted, err := p.GetLastAccepted()
		if err != nil {
			return nil, err
		}
		e.log.Info("opened ledger", "lastAccepted", lastAccepted)
		return e, nil
	}

	if genesis == nil {
		return nil, errMissingGenesis
	}
	if err := e.initGenesis(genesis); err != nil {
		e.log.Error("error while creating genesis state", "err", err)
		p.abort()
		return nil, err
	}
	if err := p.commit(); err != nil {
		e.log.Error("error while committing db", "err", err)
		return nil, err
	}
	return e, nil
}

// State is a read only view of the working state.
func (e *Engine) State() state.Reader { return e.store }

// Checksum hashes the working state.
func (e *Engine) Checksum() (ids.ID, error) { return e.store.Checksum() }

// Commit persists every block applied since the last commit. Pending
// transactions stay pending.
func (e *Engine) Commit() error {
	e.lock.Lock()
	defer e.lock.Unlock()

	defer e.pushPending(e.popPending())
	return e.db.commit()
}

// Abort drops every change applied since the last commit, pending
// transactions included.
func (e *Engine) Abort() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.pending, e.pendingTxs = nil, nil
	e.db.abort()
}

func (e *Engine) Close() error {
	e.lock.Lock()
	defer e.lock.Unlock()

	return e.db.close()
}

// ApplyTransaction applies [tx] on top of the working state as a pending
// transaction.
func (e *Engine) ApplyTransaction(ctx context.Context, tx *protocol.SignedTransaction, mode ApplyMode) ([]OperationResult, error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	signers, err := recoverSigners(e.recoverer, e.config.ChainID, tx)
	if err != nil {
		txErr := newTxError(-1, err)
		e.rejected(txErr)
		return nil, txErr
	}

	if e.pending == nil {
		e.pending = e.store.StartUndoSession()
	}
	results, err := e.applyTransaction(tx, signers, mode, false)
	if err != nil {
		return nil, err
	}
	e.pendingTxs = append(e.pendingTxs, pendingTx{tx: tx, signers: signers, mode: mode})
	return results, nil
}

// popPending undoes the pending transactions and returns them.
func (e *Engine) popPending() []pendingTx {
	txs := e.pendingTxs
	if e.pending != nil {
		e.pending.Abort()
	}
	e.pending, e.pendingTxs = nil, nil
	return txs
}

// pushPending re-applies [txs] in order. A transaction a block made invalid,
// because the block included or expired it, is dropped.
func (e *Engine) pushPending(txs []pendingTx) {
	if len(txs) == 0 {
		return
	}
	e.pending = e.store.StartUndoSession()
	for _, p := range txs {
		if _, err := e.applyTransactionSession(p.tx, p.signers, p.mode, false); err != nil {
			e.log.Debug("dropped pending transaction", "err", err)
			continue
		}
		e.pendingTxs = append(e.pendingTxs, p)
	}
}

// EvaluateOnly runs [tx] through every check and operation and then rolls
// it back. The working state is left exactly as it was.
func (e *Engine) EvaluateOnly(ctx context.Context, tx *protocol.SignedTransaction) ([]OperationResult, error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	signers, err := recoverSigners(e.recoverer, e.config.ChainID, tx)
	if err != nil {
		return nil, newTxError(-1, err)
	}
	return e.applyTransaction(tx, signers, Propagation, true)
}

func (e *Engine) rejected(err *TxError) {
	e.metrics.txRejected.WithLabelValues(err.Kind.String()).Inc()
	e.log.Debug("rejected transaction", "index", err.Index, "kind", err.Kind, "err", err.Err)
}

func (e *Engine) applyTransaction(
	tx *protocol.SignedTransaction,
	signers []ids.ShortID,
	mode ApplyMode,
	dryRun bool,
) ([]OperationResult, error) {
	results, err := e.applyTransactionSession(tx, signers, mode, dryRun)
	if err != nil {
		var txErr *TxError
		if !errors.As(err, &txErr) {
			txErr = newTxError(-1, err)
		}
		if !dryRun {
			e.rejected(txErr)
		}
		return nil, txErr
	}
	if !dryRun {
		e.metrics.txAccepted.Inc()
		e.metrics.opsApplied.Add(float64(len(results)))
	}
	return results, nil
}

func (e *Engine) applyTransactionSession(
	tx *protocol.SignedTransaction,
	signers []ids.ShortID,
	mode ApplyMode,
	dryRun bool,
) ([]OperationResult, error) {
	global, err := getObject[*GlobalProperties](e.store, globalPropertiesID)
	if err != nil {
		return nil, err
	}
	dyn, err := getObject[*DynamicGlobalProperties](e.store, dynamicGlobalPropertiesID)
	if err != nil {
		return nil, err
	}

	if err := checkTransaction(tx, &global.Parameters); err != nil {
		return nil, err
	}
	txID, err := tx.ID()
	if err != nil {
		return nil, err
	}
	if err := e.checkExpiration(txID, tx, &global.Parameters, dyn); err != nil {
		return nil, err
	}
	if err := e.verifyAuthority(tx, signers, &global.Parameters, mode); err != nil {
		return nil, err
	}

	sess := e.store.StartUndoSession()
	defer sess.Abort()

	_, err = e.store.Create(&TransactionRecord{TxID: txID, Expiration: tx.Expiration})
	if err != nil {
		return nil, err
	}

	es := &EvalState{
		Mode:    mode,
		TxID:    txID,
		SigKeys: signers,
		Now:     dyn.Time,
		Results: make([]OperationResult, 0, len(tx.Operations)),
	}
	ctx := &evalContext{
		store:  e.store,
		global: global,
		es:     es,
	}
	for i, op := range tx.Operations {
		es.OperationIndex = i
		ev, err := e.evaluators(op)
		if err != nil {
			return nil, newTxError(i, err)
		}
		res, err := applyOperation(ctx, ev, op)
		if err != nil {
			return nil, newTxError(i, err)
		}
		es.Results = append(es.Results, res)
	}

	if dryRun {
		return es.Results, sess.Undo()
	}
	return es.Results, sess.Merge()
}

// checkTransaction performs the checks that need no ledger state.
func checkTransaction(tx *protocol.SignedTransaction, params *protocol.ChainParameters) error {
	switch n := len(tx.Operations); {
	case n == 0:
		return newTxError(-1, fmt.Errorf("%w: transaction has no operations", protocol.ErrInvalidOperation))
	case n > int(params.MaxOperations):
		return newTxError(-1, fmt.Errorf("%w: %d operations exceed %d", protocol.ErrInvalidOperation, n, params.MaxOperations))
	}
	size, err := protocol.EncodedSize(tx)
	if err != nil {
		return newTxError(-1, err)
	}
	if size > uint64(params.MaxTransactionSize) {
		return newTxError(-1, fmt.Errorf("%w: %d bytes exceed %d", protocol.ErrInvalidOperation, size, params.MaxTransactionSize))
	}
	for i, op := range tx.Operations {
		if err := op.Validate(); err != nil {
			return newTxError(i, err)
		}
	}
	return nil
}

// checkExpiration rejects transactions outside the expiration window and
// transactions already applied. The window is not enforced before the
// first block.
func (e *Engine) checkExpiration(
	txID ids.ID,
	tx *protocol.SignedTransaction,
	params *protocol.ChainParameters,
	dyn *DynamicGlobalProperties,
) error {
	if dyn.HeadBlockNumber > 0 {
		switch {
		case tx.Expiration < dyn.Time:
			return newTxError(-1, fmt.Errorf("%w: expired at %d, head time %d", ErrTransactionExpired, tx.Expiration, dyn.Time))
		case tx.Expiration > dyn.Time+uint64(params.MaxTimeUntilExpiration):
			return newTxError(-1, fmt.Errorf("%w: expires at %d, head time %d", ErrExpirationTooFar, tx.Expiration, dyn.Time))
		}
	}
	_, seen, err := findUnique[*TransactionRecord](e.store, protocol.TransactionRecordClass, IndexByTransactionID, txID[:])
	if err != nil {
		return err
	}
	if seen {
		return newTxError(-1, fmt.Errorf("%w: %s", ErrDuplicateTransaction, txID))
	}
	return nil
}

func (e *Engine) verifyAuthority(
	tx *protocol.SignedTransaction,
	signers []ids.ShortID,
	params *protocol.ChainParameters,
	mode ApplyMode,
) error {
	if mode == BlockReplay && e.config.SkipAuthorityOnReplay {
		return nil
	}
	resolver := newAuthorityResolver(e.store, params)
	res, err := authority.Verify(
		protocol.Collect(tx.Operations),
		signers,
		resolver.getActive,
		resolver.getOwner,
		verifyOptions(params),
	)
	if err != nil {
		return newTxError(-1, err)
	}
	if res.ByCommittee {
		e.metrics.committeeApprovals.Inc()
		e.log.Info("committee approved transaction", "signers", len(signers))
	}
	return nil
}

// applyOperation charges the fee of [op] and applies it. The fee payer must
// afford the fee before the operation is evaluated.
func applyOperation(ctx *evalContext, ev evaluator, op protocol.Operation) (OperationResult, error) {
	fee, err := protocol.CalculateFee(op, &ctx.global.Fees)
	if err != nil {
		return OperationResult{}, err
	}
	payer := op.FeePayer()
	if err := requireExists(ctx.store, payer); err != nil {
		return OperationResult{}, err
	}
	have, err := balanceOf(ctx.store, payer, protocol.CoreAsset)
	if err != nil {
		return OperationResult{}, err
	}
	if have < fee {
		return OperationResult{}, &ObjectError{
			ID:  payer,
			Err: fmt.Errorf("%w: fee %d exceeds balance %d", ErrInsufficientFunds, fee, have),
		}
	}
	ctx.payer, ctx.fee = payer, fee

	if err := ev.evaluate(ctx); err != nil {
		return OperationResult{}, err
	}
	if err := payFee(ctx.store, payer, fee); err != nil {
		return OperationResult{}, err
	}
	id, created, err := ev.apply(ctx)
	if err != nil {
		return OperationResult{}, err
	}
	return OperationResult{Fee: fee, NewObject: id, Created: created}, nil
}

func payFee(s *state.Store, payer state.ObjectID, fee uint64) error {
	if fee == 0 {
		return nil
	}
	if err := subtractBalance(s, payer, protocol.CoreAsset, fee); err != nil {
		return err
	}
	return s.Modify(dynamicGlobalPropertiesID, func(obj state.Object) error {
		dyn := obj.(*DynamicGlobalProperties)
		sum, err := safemath.Add64(dyn.AccumulatedFees, fee)
		if err != nil {
			return invariantf("accumulated fees overflow")
		}
		dyn.AccumulatedFees = sum
		return nil
	})
}

// ApplyBlock applies every transaction of [blk] in order and advances the
// head. Either the whole block applies or none of it does; cancelling [ctx]
// between transactions unwinds everything the block changed.
func (e *Engine) ApplyBlock(ctx context.Context, blk *protocol.Block, mode ApplyMode) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	dyn, err := getObject[*DynamicGlobalProperties](e.store, dynamicGlobalPropertiesID)
	if err != nil {
		return err
	}
	switch {
	case blk.Height != dyn.HeadBlockNumber+1:
		return fmt.Errorf("%w: height %d, head %d", ErrWrongHeight, blk.Height, dyn.HeadBlockNumber)
	case blk.ParentID != dyn.HeadBlockID:
		return fmt.Errorf("%w: parent %s, head %s", ErrWrongParent, blk.ParentID, dyn.HeadBlockID)
	case blk.Timestamp <= dyn.Time:
		return fmt.Errorf("%w: timestamp %d, head time %d", ErrBlockTooEarly, blk.Timestamp, dyn.Time)
	}

	signers, err := recoverBlockSigners(e.recoverer, e.config.ChainID, blk)
	if err != nil {
		return err
	}

	defer e.pushPending(e.popPending())
	sess := e.store.StartUndoSession()
	defer sess.Abort()

	for i := range blk.Transactions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := e.applyTransaction(&blk.Transactions[i], signers[i], mode, false); err != nil {
			return fmt.Errorf("transaction %d of block %d: %w", i, blk.Height, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	blkID, err := blk.ID()
	if err != nil {
		return err
	}
	err = e.store.Modify(dynamicGlobalPropertiesID, func(obj state.Object) error {
		dyn := obj.(*DynamicGlobalProperties)
		dyn.HeadBlockNumber = blk.Height
		dyn.HeadBlockID = blkID
		dyn.Time = blk.Timestamp
		return nil
	})
	if err != nil {
		return err
	}
	if err := e.removeExpiredTransactions(blk.Timestamp); err != nil {
		return err
	}
	if blk.Timestamp >= dyn.NextMaintenanceTime {
		if err := e.performMaintenance(blk.Timestamp); err != nil {
			return err
		}
	}
	if _, err := acceptBlock(sess, blk); err != nil {
		return err
	}
	if err := sess.Merge(); err != nil {
		return err
	}

	e.metrics.blocksApplied.Inc()
	e.log.Debug("applied block", "height", blk.Height, "id", blkID, "txs", len(blk.Transactions), "mode", mode)
	return nil
}

// removeExpiredTransactions forgets transactions that can no longer be
// replayed because they expired before [now].
func (e *Engine) removeExpiredTransactions(now uint64) error {
	var expired []state.ObjectID
	err := e.store.IterateIndex(protocol.TransactionRecordClass, IndexByExpiration, nil, func(obj state.Object) (bool, error) {
		rec := obj.(*TransactionRecord)
		if rec.Expiration >= now {
			return false, nil
		}
		expired = append(expired, rec.ID())
		return true, nil
	})
	if err != nil {
		return err
	}
	for _, id := range expired {
		if err := e.store.Remove(id); err != nil {
			return err
		}
	}
	return nil
}
