package engine

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/log"

	"github.com/brc20indexer/indexer/internal/ledger"
)

// defaultMaxRetries bounds the number of times a transient store error
// causes a whole block to be retried before the Engine escalates as
// fatal, per §7.
const defaultMaxRetries = 5

// Engine is the single-threaded consensus-rule applier sitting behind
// the Ingestion Coordinator: at most one block (apply or rollback)
// transaction is ever in flight.
type Engine struct {
	store      ledger.Store
	maxRetries uint64
	tip        uint64
	tipKnown   bool
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithMaxRetries overrides the default bounded-retry count for transient
// store errors.
func WithMaxRetries(n uint64) Option {
	return func(e *Engine) { e.maxRetries = n }
}

// New builds an Engine over the given Store.
func New(store ledger.Store, opts ...Option) *Engine {
	e := &Engine{store: store, maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ApplyBlock applies every inscription event in block, in delivery
// order, inside a single transaction. Consensus rejections are absorbed
// silently; a transient store error rolls back and retries the whole
// block with bounded exponential backoff; retry exhaustion (or any
// non-retryable store error) is returned to the caller as fatal.
func (e *Engine) ApplyBlock(ctx context.Context, block Block) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), e.maxRetries), ctx)

	err := backoff.Retry(func() error {
		applyErr := e.applyBlockOnce(ctx, block)
		if applyErr == nil {
			return nil
		}
		if !ledger.IsRetryable(applyErr) {
			return backoff.Permanent(applyErr)
		}
		log.Warn("retrying block apply after transient store error", "height", block.Height, "err", applyErr)
		return applyErr
	}, bo)

	if err != nil {
		return fmt.Errorf("engine: apply block %d: %w", block.Height, err)
	}

	e.tip, e.tipKnown = block.Height, true
	lastAppliedHeightGauge.Update(int64(block.Height))
	return nil
}

func (e *Engine) applyBlockOnce(ctx context.Context, block Block) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}

	for _, ev := range block.Inscriptions {
		switch {
		case ev.Genesis != nil:
			if err := ApplyInscriptionGenesis(ctx, tx, block.Height, ev.Location.TxID, *ev.Genesis, ev.Location); err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		case ev.Transfer != nil:
			if err := ApplyInscriptionTransfer(ctx, tx, block.Height, ev.Location.TxID, ev.Transfer.InscriptionID, ev.Location); err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		default:
			_ = tx.Rollback(ctx)
			return fmt.Errorf("engine: inscription event with neither genesis nor transfer set")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	return nil
}

// ErrNotTip is returned by Rollback when asked to revert a height other
// than the current tip; §5 requires rollbacks be offered strictly in
// decreasing height from the tip.
var ErrNotTip = fmt.Errorf("engine: rollback height is not the current tip")

// Rollback reverts every ledger row committed at height, restoring prior
// balances exactly (they are delta rows, so deletion is exact). Must be
// called with heights in strictly decreasing order from the current tip.
func (e *Engine) Rollback(ctx context.Context, height uint64) error {
	if e.tipKnown && height != e.tip {
		return ErrNotTip
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), e.maxRetries), ctx)
	err := backoff.Retry(func() error {
		rbErr := e.rollbackOnce(ctx, height)
		if rbErr == nil {
			return nil
		}
		if !ledger.IsRetryable(rbErr) {
			return backoff.Permanent(rbErr)
		}
		return rbErr
	}, bo)
	if err != nil {
		return fmt.Errorf("engine: rollback height %d: %w", height, err)
	}

	rollbackCounter.Inc(1)
	if height == 0 {
		e.tipKnown = false
	} else {
		e.tip = height - 1
	}
	return nil
}

func (e *Engine) rollbackOnce(ctx context.Context, height uint64) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := tx.DeleteByHeight(ctx, height); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// SetTip seeds the Engine's notion of the current tip height, used at
// startup once the collaborator reports where the ledger last left off.
func (e *Engine) SetTip(height uint64) {
	e.tip, e.tipKnown = height, true
}
