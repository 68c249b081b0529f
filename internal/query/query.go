// Package query exposes the read-side aggregations over the ledger:
// token listings, per-address balances, supply summaries, holder
// rankings, and event history. Queries run directly against the pool
// at its default read-committed snapshot (never inside a writer's
// serializable transaction), matching §5's separation of reads from
// writes.
package query

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brc20indexer/indexer/internal/decimal"
)

// Paging is a stable limit/offset window; all Query Surface methods
// accept it and return the total row count alongside the page.
type Paging struct {
	Limit  int
	Offset int
}

func (p Paging) normalized() Paging {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Surface is the read-only query API over a pgxpool.Pool.
type Surface struct {
	pool *pgxpool.Pool
}

// New wraps an already-constructed pool. Callers own its lifecycle.
func New(pool *pgxpool.Pool) *Surface {
	return &Surface{pool: pool}
}

// TokenRow is one row of ListTokens.
type TokenRow struct {
	Ticker   string
	Max      decimal.Decimal
	Limit    *decimal.Decimal
	Decimals int32
}

// ListTokens returns deployed tokens, optionally filtered by a
// case-insensitive ticker substring, newest-first.
func (s *Surface) ListTokens(ctx context.Context, tickerFilter *string, paging Paging) ([]TokenRow, int, error) {
	paging = paging.normalized()

	var (
		rows pgx.Rows
		err  error
	)
	const baseQuery = `SELECT ticker, max, "limit", decimals FROM brc20_deploys`
	const countQuery = `SELECT count(*) FROM brc20_deploys`

	var total int
	if tickerFilter != nil {
		if err := s.pool.QueryRow(ctx, countQuery+` WHERE lower(ticker) LIKE lower($1)`, "%"+*tickerFilter+"%").Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("query: count tokens: %w", err)
		}
		rows, err = s.pool.Query(ctx, baseQuery+` WHERE lower(ticker) LIKE lower($1) ORDER BY id DESC LIMIT $2 OFFSET $3`,
			"%"+*tickerFilter+"%", paging.Limit, paging.Offset)
	} else {
		if err := s.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("query: count tokens: %w", err)
		}
		rows, err = s.pool.Query(ctx, baseQuery+` ORDER BY id DESC LIMIT $1 OFFSET $2`, paging.Limit, paging.Offset)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("query: list tokens: %w", err)
	}
	defer rows.Close()

	out, err := scanTokenRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanTokenRows(rows pgx.Rows) ([]TokenRow, error) {
	var out []TokenRow
	for rows.Next() {
		var tr TokenRow
		var maxStr string
		var limitStr *string
		if err := rows.Scan(&tr.Ticker, &maxStr, &limitStr, &tr.Decimals); err != nil {
			return nil, fmt.Errorf("query: scan token row: %w", err)
		}
		max, err := decimal.Parse(maxStr)
		if err != nil {
			return nil, fmt.Errorf("query: parse max: %w", err)
		}
		tr.Max = max
		if limitStr != nil {
			lim, err := decimal.Parse(*limitStr)
			if err != nil {
				return nil, fmt.Errorf("query: parse limit: %w", err)
			}
			tr.Limit = &lim
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: iterate token rows: %w", err)
	}
	return out, nil
}

// BalanceRow is one row of Balances: a single token's available and
// transferable balance for the queried address.
type BalanceRow struct {
	Ticker string
	Avail  decimal.Decimal
	Trans  decimal.Decimal
}

// Total returns Avail + Trans for the row.
func (b BalanceRow) Total() decimal.Decimal {
	return b.Avail.Add(b.Trans)
}

// Balances returns per-token balances for address, summed from delta
// rows, optionally filtered to a single ticker.
func (s *Surface) Balances(ctx context.Context, address string, tickerFilter *string, paging Paging) ([]BalanceRow, int, error) {
	paging = paging.normalized()

	const grouped = `
		SELECT d.ticker,
			COALESCE(SUM(CASE WHEN b.avail_negative THEN -b.avail_delta::numeric ELSE b.avail_delta::numeric END), 0),
			COALESCE(SUM(CASE WHEN b.trans_negative THEN -b.trans_delta::numeric ELSE b.trans_delta::numeric END), 0)
		FROM brc20_deploys d
		LEFT JOIN brc20_balances b ON b.brc20_deploy_id = d.id AND b.address = $1
		WHERE ($2::text IS NULL OR lower(d.ticker) = lower($2))
		GROUP BY d.ticker, d.id
		HAVING COALESCE(SUM(CASE WHEN b.avail_negative THEN -b.avail_delta::numeric ELSE b.avail_delta::numeric END), 0) != 0
			OR COALESCE(SUM(CASE WHEN b.trans_negative THEN -b.trans_delta::numeric ELSE b.trans_delta::numeric END), 0) != 0
		ORDER BY d.ticker`

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM (`+grouped+`) t`, address, tickerFilter).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("query: count balances for %q: %w", address, err)
	}

	rows, err := s.pool.Query(ctx, grouped+` LIMIT $3 OFFSET $4`, address, tickerFilter, paging.Limit, paging.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query: balances for %q: %w", address, err)
	}
	defer rows.Close()

	var out []BalanceRow
	for rows.Next() {
		var br BalanceRow
		var availStr, transStr string
		if err := rows.Scan(&br.Ticker, &availStr, &transStr); err != nil {
			return nil, 0, fmt.Errorf("query: scan balance row: %w", err)
		}
		avail, err := decimal.Parse(availStr)
		if err != nil {
			return nil, 0, fmt.Errorf("query: parse avail: %w", err)
		}
		trans, err := decimal.Parse(transStr)
		if err != nil {
			return nil, 0, fmt.Errorf("query: parse trans: %w", err)
		}
		br.Avail, br.Trans = avail, trans
		out = append(out, br)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("query: iterate balance rows: %w", err)
	}
	return out, total, nil
}

// Supply returns the deployed max supply, the total effectively
// minted, and the count of addresses currently holding a positive
// balance for ticker.
func (s *Surface) Supply(ctx context.Context, ticker string) (max, minted decimal.Decimal, holders int, err error) {
	const query = `
		SELECT d.max,
			COALESCE((
				SELECT SUM(CASE WHEN b.avail_negative THEN -b.avail_delta::numeric ELSE b.avail_delta::numeric END)
				FROM brc20_balances b
				WHERE b.brc20_deploy_id = d.id AND b.inscription_id IN (
					SELECT inscription_id FROM brc20_mints WHERE brc20_deploy_id = d.id
				)
			), 0)
		FROM brc20_deploys d
		WHERE lower(d.ticker) = lower($1)`

	var maxStr, mintedStr string
	if err := s.pool.QueryRow(ctx, query, ticker).Scan(&maxStr, &mintedStr); err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, 0, fmt.Errorf("query: supply %q: %w", ticker, err)
	}
	max, err = decimal.Parse(maxStr)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, 0, fmt.Errorf("query: parse max: %w", err)
	}
	minted, err = decimal.Parse(mintedStr)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, 0, fmt.Errorf("query: parse minted: %w", err)
	}

	const holdersQuery = `
		SELECT count(*) FROM (
			SELECT b.address
			FROM brc20_balances b
			JOIN brc20_deploys d ON d.id = b.brc20_deploy_id
			WHERE lower(d.ticker) = lower($1)
			GROUP BY b.address
			HAVING SUM(CASE WHEN b.avail_negative THEN -b.avail_delta::numeric ELSE b.avail_delta::numeric END)
				+ SUM(CASE WHEN b.trans_negative THEN -b.trans_delta::numeric ELSE b.trans_delta::numeric END) > 0
		) t`
	if err := s.pool.QueryRow(ctx, holdersQuery, ticker).Scan(&holders); err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, 0, fmt.Errorf("query: holders %q: %w", ticker, err)
	}
	return max, minted, holders, nil
}

// HolderRow is one row of Holders, ordered by total balance desc.
type HolderRow struct {
	Address string
	Avail   decimal.Decimal
	Trans   decimal.Decimal
}

// Holders ranks addresses holding ticker by total balance descending.
func (s *Surface) Holders(ctx context.Context, ticker string, paging Paging) ([]HolderRow, int, error) {
	paging = paging.normalized()

	const countQuery = `
		SELECT count(*) FROM (
			SELECT b.address
			FROM brc20_balances b
			JOIN brc20_deploys d ON d.id = b.brc20_deploy_id
			WHERE lower(d.ticker) = lower($1)
			GROUP BY b.address
			HAVING SUM(CASE WHEN b.avail_negative THEN -b.avail_delta::numeric ELSE b.avail_delta::numeric END)
				+ SUM(CASE WHEN b.trans_negative THEN -b.trans_delta::numeric ELSE b.trans_delta::numeric END) > 0
		) t`
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, ticker).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("query: count holders %q: %w", ticker, err)
	}

	const query = `
		SELECT b.address,
			SUM(CASE WHEN b.avail_negative THEN -b.avail_delta::numeric ELSE b.avail_delta::numeric END) avail,
			SUM(CASE WHEN b.trans_negative THEN -b.trans_delta::numeric ELSE b.trans_delta::numeric END) trans
		FROM brc20_balances b
		JOIN brc20_deploys d ON d.id = b.brc20_deploy_id
		WHERE lower(d.ticker) = lower($1)
		GROUP BY b.address
		HAVING SUM(CASE WHEN b.avail_negative THEN -b.avail_delta::numeric ELSE b.avail_delta::numeric END)
			+ SUM(CASE WHEN b.trans_negative THEN -b.trans_delta::numeric ELSE b.trans_delta::numeric END) > 0
		ORDER BY SUM(CASE WHEN b.avail_negative THEN -b.avail_delta::numeric ELSE b.avail_delta::numeric END)
			+ SUM(CASE WHEN b.trans_negative THEN -b.trans_delta::numeric ELSE b.trans_delta::numeric END) DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, ticker, paging.Limit, paging.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query: holders %q: %w", ticker, err)
	}
	defer rows.Close()

	var out []HolderRow
	for rows.Next() {
		var hr HolderRow
		var availStr, transStr string
		if err := rows.Scan(&hr.Address, &availStr, &transStr); err != nil {
			return nil, 0, fmt.Errorf("query: scan holder row: %w", err)
		}
		if hr.Avail, err = decimal.Parse(availStr); err != nil {
			return nil, 0, fmt.Errorf("query: parse holder avail: %w", err)
		}
		if hr.Trans, err = decimal.Parse(transStr); err != nil {
			return nil, 0, fmt.Errorf("query: parse holder trans: %w", err)
		}
		out = append(out, hr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("query: iterate holder rows: %w", err)
	}
	return out, total, nil
}

// EventRow is one row of History.
type EventRow struct {
	Kind          string
	InscriptionID string
	BlockHeight   uint64
}

// History returns ticker's event stream ordered by the owning
// inscription's number descending: the contract this package gives
// the source's previously dangling history join (§4.6, §9).
func (s *Surface) History(ctx context.Context, ticker string, paging Paging) ([]EventRow, int, error) {
	paging = paging.normalized()

	const countQuery = `
		SELECT count(*)
		FROM brc20_events e
		JOIN brc20_deploys d ON d.id = e.brc20_deploy_id
		WHERE lower(d.ticker) = lower($1)`
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, ticker).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("query: count history %q: %w", ticker, err)
	}

	const query = `
		SELECT e.kind, e.inscription_id, e.block_height
		FROM brc20_events e
		JOIN brc20_deploys d ON d.id = e.brc20_deploy_id
		JOIN inscriptions i ON i.genesis_id = e.inscription_id
		WHERE lower(d.ticker) = lower($1)
		ORDER BY i.number DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, ticker, paging.Limit, paging.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query: history %q: %w", ticker, err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var er EventRow
		if err := rows.Scan(&er.Kind, &er.InscriptionID, &er.BlockHeight); err != nil {
			return nil, 0, fmt.Errorf("query: scan event row: %w", err)
		}
		out = append(out, er)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("query: iterate event rows: %w", err)
	}
	return out, total, nil
}
