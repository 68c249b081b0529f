// Package ledger provides transactional persistence of BRC-20 deploys,
// mints, transfer-intents, balance deltas, and the event log, backed by
// PostgreSQL through pgx. Grounded on the Begin/Exec/Commit/Rollback idiom
// used for batched chain-data ingestion elsewhere in the ecosystem (see
// DESIGN.md for the reference file) and on the teacher's own typed-row,
// interface-seamed storage style.
package ledger

import (
	"time"

	"github.com/brc20indexer/indexer/internal/decimal"
)

// EventKind discriminates the append-only event log.
type EventKind string

const (
	EventDeploy          EventKind = "deploy"
	EventMint            EventKind = "mint"
	EventTransferReserve EventKind = "transfer-reserve"
	EventTransferSettle  EventKind = "transfer-settle"
)

// BurnedSentinel marks a transfer intent settled by a fee-spend: the
// inscription carrying it was spent with no output address, so the
// reserved amount is burned out of the transferable balance rather than
// credited anywhere.
const BurnedSentinel = "<burned>"

// Token is a committed BRC-20 deploy. Immutable once created, except for
// deletion on rollback of its genesis block.
type Token struct {
	ID              int64
	InscriptionID   string
	BlockHeight     uint64
	TxID            string
	Address         string
	Ticker          string // original casing, as deployed
	Max             decimal.Decimal
	Limit           *decimal.Decimal
	Decimals        int32
}

// Mint is a committed mint row. Amount is the requested amount; the
// effective amount actually credited is recorded on the balance delta,
// not here, since it is derivable and the mint row is the audit record of
// what was asked for.
type Mint struct {
	ID            int64
	InscriptionID string
	DeployID      int64
	BlockHeight   uint64
	TxID          string
	Address       string
	Amount        decimal.Decimal
}

// TransferIntent is a committed inscribe-transfer, settled by the first
// subsequent move of its carrier inscription.
type TransferIntent struct {
	ID            int64
	InscriptionID string
	DeployID      int64
	BlockHeight   uint64
	TxID          string
	FromAddress   string
	ToAddress     *string // nil until settled; BurnedSentinel on fee-spend settlement
	Amount        decimal.Decimal
}

// SignedAmount pairs a non-negative decimal.Decimal magnitude with a sign,
// since decimal.Decimal itself is deliberately non-negative-only (see
// internal/decimal). Balance deltas are the one place in the ledger that
// need signed quantities.
type SignedAmount struct {
	Magnitude decimal.Decimal
	Negative  bool
}

// Zero is the additive identity signed amount.
func Zero() SignedAmount {
	return SignedAmount{Magnitude: decimal.Zero()}
}

// Pos builds a non-negative signed amount (a credit).
func Pos(d decimal.Decimal) SignedAmount {
	return SignedAmount{Magnitude: d}
}

// Neg builds a negative signed amount (a debit), provided d itself is
// non-negative (the debit's size).
func Neg(d decimal.Decimal) SignedAmount {
	if d.IsZero() {
		return Zero()
	}
	return SignedAmount{Magnitude: d, Negative: true}
}

// BalanceDelta is one append-only row contributing to an address's
// current (avail, trans) balance for a token.
type BalanceDelta struct {
	ID            int64
	InscriptionID string
	DeployID      int64
	BlockHeight   uint64
	Address       string
	AvailDelta    SignedAmount
	TransDelta    SignedAmount
}

// Event is one append-only row in the audit log.
type Event struct {
	ID            int64
	InscriptionID string
	DeployID      int64
	Kind          EventKind
	DeployRowID   *int64
	MintRowID     *int64
	TransferRowID *int64
	CreatedAt     time.Time
	BlockHeight   uint64
}

// Balance is the current summed balance for an (address, token) pair.
type Balance struct {
	Avail decimal.Decimal
	Trans decimal.Decimal
}

// Total returns Avail + Trans, the figure the Query Surface reports
// alongside the two components.
func (b Balance) Total() decimal.Decimal {
	return b.Avail.Add(b.Trans)
}
