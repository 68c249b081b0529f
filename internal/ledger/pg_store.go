package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brc20indexer/indexer/internal/decimal"
)

// PGStore is the pgx-pool-backed Store implementation.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps an already-constructed pgxpool.Pool. Callers own the
// pool's lifecycle (Close it on shutdown).
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Begin starts a serializable transaction, matching §5's requirement that
// writes run at serializable (or equivalent) isolation.
func (s *PGStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("ledger: begin tx: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("ledger: commit: %w", err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("ledger: rollback: %w", err)
	}
	return nil
}

func (t *pgTx) GetToken(ctx context.Context, ticker string) (*Token, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT id, inscription_id, block_height, tx_id, address, ticker, max, "limit", decimals
		FROM brc20_deploys
		WHERE lower(ticker) = lower($1)`, ticker)

	var tok Token
	var maxStr string
	var limitStr *string
	if err := row.Scan(&tok.ID, &tok.InscriptionID, &tok.BlockHeight, &tok.TxID, &tok.Address,
		&tok.Ticker, &maxStr, &limitStr, &tok.Decimals); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("ledger: get token %q: %w", ticker, err)
	}

	maxAmt, err := decimal.Parse(maxStr)
	if err != nil {
		return nil, fmt.Errorf("ledger: corrupt max amount for %q: %w", ticker, err)
	}
	tok.Max = maxAmt

	if limitStr != nil {
		lim, err := decimal.Parse(*limitStr)
		if err != nil {
			return nil, fmt.Errorf("ledger: corrupt limit amount for %q: %w", ticker, err)
		}
		tok.Limit = &lim
	}
	return &tok, nil
}

func (t *pgTx) InsertDeployIfAbsent(ctx context.Context, tok Token) (int64, bool, error) {
	var limitStr *string
	if tok.Limit != nil {
		s := tok.Limit.String()
		limitStr = &s
	}

	var id int64
	row := t.tx.QueryRow(ctx, `
		INSERT INTO brc20_deploys (inscription_id, block_height, tx_id, address, ticker, max, "limit", decimals)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (lower_ticker) DO NOTHING
		RETURNING id`,
		tok.InscriptionID, tok.BlockHeight, tok.TxID, tok.Address, tok.Ticker,
		tok.Max.String(), limitStr, tok.Decimals)

	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("ledger: insert deploy %q: %w", tok.Ticker, err)
	}
	return id, true, nil
}

func (t *pgTx) SumEffectiveMints(ctx context.Context, deployID int64) (decimal.Decimal, error) {
	var sumStr *string
	row := t.tx.QueryRow(ctx, `
		SELECT SUM(avail_delta) FILTER (WHERE NOT avail_negative)
		FROM brc20_balances
		WHERE brc20_deploy_id = $1 AND inscription_id IN (
			SELECT inscription_id FROM brc20_mints WHERE brc20_deploy_id = $1
		)`, deployID)
	if err := row.Scan(&sumStr); err != nil {
		return decimal.Decimal{}, fmt.Errorf("ledger: sum effective mints: %w", err)
	}
	if sumStr == nil {
		return decimal.Zero(), nil
	}
	return decimal.Parse(*sumStr)
}

func (t *pgTx) InsertMint(ctx context.Context, m Mint) (int64, error) {
	var id int64
	row := t.tx.QueryRow(ctx, `
		INSERT INTO brc20_mints (inscription_id, brc20_deploy_id, block_height, tx_id, address, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		m.InscriptionID, m.DeployID, m.BlockHeight, m.TxID, m.Address, m.Amount.String())
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("ledger: insert mint: %w", err)
	}
	return id, nil
}

func (t *pgTx) CurrentBalance(ctx context.Context, address string, deployID int64) (Balance, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN avail_negative THEN -avail_delta::numeric ELSE avail_delta::numeric END), 0),
			COALESCE(SUM(CASE WHEN trans_negative THEN -trans_delta::numeric ELSE trans_delta::numeric END), 0)
		FROM brc20_balances
		WHERE address = $1 AND brc20_deploy_id = $2`, address, deployID)

	var availStr, transStr string
	if err := row.Scan(&availStr, &transStr); err != nil {
		return Balance{}, fmt.Errorf("ledger: current balance: %w", err)
	}
	avail, err := decimal.Parse(strings.TrimPrefix(availStr, "-"))
	if err != nil {
		return Balance{}, fmt.Errorf("ledger: parse avail balance: %w", err)
	}
	trans, err := decimal.Parse(strings.TrimPrefix(transStr, "-"))
	if err != nil {
		return Balance{}, fmt.Errorf("ledger: parse trans balance: %w", err)
	}
	return Balance{Avail: avail, Trans: trans}, nil
}

func (t *pgTx) InsertBalanceDelta(ctx context.Context, d BalanceDelta) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO brc20_balances
			(inscription_id, brc20_deploy_id, block_height, address, avail_delta, avail_negative, trans_delta, trans_negative)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.InscriptionID, d.DeployID, d.BlockHeight, d.Address,
		d.AvailDelta.Magnitude.String(), d.AvailDelta.Negative,
		d.TransDelta.Magnitude.String(), d.TransDelta.Negative)
	if err != nil {
		return fmt.Errorf("ledger: insert balance delta: %w", err)
	}
	return nil
}

func (t *pgTx) InsertTransferIntent(ctx context.Context, tr TransferIntent) (int64, error) {
	var id int64
	row := t.tx.QueryRow(ctx, `
		INSERT INTO brc20_transfers
			(inscription_id, brc20_deploy_id, block_height, tx_id, from_address, to_address, amount)
		VALUES ($1, $2, $3, $4, $5, NULL, $6)
		RETURNING id`,
		tr.InscriptionID, tr.DeployID, tr.BlockHeight, tr.TxID, tr.FromAddress, tr.Amount.String())
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("ledger: insert transfer intent: %w", err)
	}
	return id, nil
}

func (t *pgTx) TransferIntentsByInscription(ctx context.Context, inscriptionID string, limit int) ([]TransferIntent, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, inscription_id, brc20_deploy_id, block_height, tx_id, from_address, to_address, amount
		FROM brc20_transfers
		WHERE inscription_id = $1
		ORDER BY id ASC
		LIMIT $2`, inscriptionID, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: transfer intents by inscription: %w", err)
	}
	defer rows.Close()

	var out []TransferIntent
	for rows.Next() {
		var tr TransferIntent
		var amtStr string
		if err := rows.Scan(&tr.ID, &tr.InscriptionID, &tr.DeployID, &tr.BlockHeight, &tr.TxID,
			&tr.FromAddress, &tr.ToAddress, &amtStr); err != nil {
			return nil, fmt.Errorf("ledger: scan transfer intent: %w", err)
		}
		amt, err := decimal.Parse(amtStr)
		if err != nil {
			return nil, fmt.Errorf("ledger: parse transfer amount: %w", err)
		}
		tr.Amount = amt
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate transfer intents: %w", err)
	}
	return out, nil
}

func (t *pgTx) SettleTransferIntent(ctx context.Context, id int64, toAddress string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE brc20_transfers SET to_address = $1 WHERE id = $2`, toAddress, id)
	if err != nil {
		return fmt.Errorf("ledger: settle transfer intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ledger: settle transfer intent %d: no such row", id)
	}
	return nil
}

func (t *pgTx) InsertEvent(ctx context.Context, e Event) (int64, error) {
	var id int64
	row := t.tx.QueryRow(ctx, `
		INSERT INTO brc20_events
			(inscription_id, brc20_deploy_id, deploy_id, mint_id, transfer_id, kind, block_height, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		e.InscriptionID, e.DeployID, e.DeployRowID, e.MintRowID, e.TransferRowID,
		string(e.Kind), e.BlockHeight, time.Now().UTC())
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("ledger: insert event: %w", err)
	}
	return id, nil
}

func (t *pgTx) DeleteByHeight(ctx context.Context, height uint64) error {
	// Settlements at this height updated transfer rows from earlier
	// heights; clear them back to pending before their events are deleted.
	if _, err := t.tx.Exec(ctx, `
		UPDATE brc20_transfers SET to_address = NULL
		WHERE id IN (SELECT transfer_id FROM brc20_events WHERE block_height = $1 AND kind = $2)`,
		height, string(EventTransferSettle)); err != nil {
		return fmt.Errorf("ledger: unsettle transfers at height %d: %w", height, err)
	}
	tables := []string{"brc20_events", "brc20_balances", "brc20_transfers", "brc20_mints", "brc20_deploys"}
	for _, table := range tables {
		if _, err := t.tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE block_height = $1`, table), height); err != nil {
			return fmt.Errorf("ledger: delete %s at height %d: %w", table, height, err)
		}
	}
	return nil
}

// IsRetryable reports whether err represents a transient store condition
// (deadlock, serialization failure, connection loss) that §7 says the
// Engine should retry with bounded backoff rather than escalate
// immediately as fatal.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"08000", "08003", "08006", "08001", "08004": // connection_exception class
			return true
		}
	}
	return errors.As(err, new(*pgconn.ConnectError))
}
