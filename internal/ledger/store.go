package ledger

import (
	"context"
	"errors"

	"github.com/brc20indexer/indexer/internal/decimal"
)

// ErrTokenNotFound is returned by GetToken when no deploy exists for the
// given ticker.
var ErrTokenNotFound = errors.New("ledger: token not found")

// Store opens transactions against the ledger. The pgx-backed
// implementation lives in pg_store.go; tests exercise the Engine against
// an in-memory fake (see internal/engine/fake_store_test.go) instead of a
// real database.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a single transactional unit of work: one block application or
// one rollback. All writes issued through a
// Tx become visible together at Commit, never partially.
type Tx interface {
	GetToken(ctx context.Context, ticker string) (*Token, error)

	// InsertDeployIfAbsent is a conditional insert keyed by
	// lower(ticker): a no-op that reports created=false on collision.
	InsertDeployIfAbsent(ctx context.Context, t Token) (id int64, created bool, err error)

	// SumEffectiveMints returns the running total of effective (not
	// requested) amounts credited for a token, derived from its balance
	// deltas rather than stored redundantly.
	SumEffectiveMints(ctx context.Context, deployID int64) (decimal.Decimal, error)

	InsertMint(ctx context.Context, m Mint) (id int64, err error)

	// CurrentBalance sums all balance deltas for (address, deployID).
	CurrentBalance(ctx context.Context, address string, deployID int64) (Balance, error)

	InsertBalanceDelta(ctx context.Context, d BalanceDelta) error

	InsertTransferIntent(ctx context.Context, t TransferIntent) (id int64, err error)

	// TransferIntentsByInscription returns up to limit transfer-intent
	// rows for an inscription, oldest first.
	TransferIntentsByInscription(ctx context.Context, inscriptionID string, limit int) ([]TransferIntent, error)

	// SettleTransferIntent sets to_address on a pending intent. toAddress
	// is BurnedSentinel when the settling move spent the inscription as
	// a fee.
	SettleTransferIntent(ctx context.Context, id int64, toAddress string) error

	InsertEvent(ctx context.Context, e Event) (id int64, err error)

	// DeleteByHeight deletes every row at the given block height across
	// all ledger tables, restoring the state to what it was before that
	// height was ever applied.
	DeleteByHeight(ctx context.Context, height uint64) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
