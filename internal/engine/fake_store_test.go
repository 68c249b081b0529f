package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/brc20indexer/indexer/internal/decimal"
	"github.com/brc20indexer/indexer/internal/ledger"
)

// fakeStore is an in-memory ledger.Store used to exercise the Engine's
// consensus-rule logic without a real Postgres instance, mirroring the
// teacher's preference for testing against an injected interface (e.g.
// txpool's BlockChain interface) rather than a concrete backend.
type fakeStore struct {
	mu sync.Mutex

	deploys   []ledger.Token
	mints     []ledger.Mint
	transfers []ledger.TransferIntent
	balances  []ledger.BalanceDelta
	events    []ledger.Event
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (s *fakeStore) Begin(ctx context.Context) (ledger.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &fakeTx{
		store:     s,
		deploys:   append([]ledger.Token(nil), s.deploys...),
		mints:     append([]ledger.Mint(nil), s.mints...),
		transfers: append([]ledger.TransferIntent(nil), s.transfers...),
		balances:  append([]ledger.BalanceDelta(nil), s.balances...),
		events:    append([]ledger.Event(nil), s.events...),
		nextID:    s.nextID,
	}, nil
}

// fakeTx stages writes against a snapshot taken at Begin; Commit writes
// the snapshot back to the store, Rollback discards it.
type fakeTx struct {
	store *fakeStore

	deploys   []ledger.Token
	mints     []ledger.Mint
	transfers []ledger.TransferIntent
	balances  []ledger.BalanceDelta
	events    []ledger.Event
	nextID    int64

	done bool
}

func (t *fakeTx) allocID() int64 {
	t.nextID++
	return t.nextID
}

func (t *fakeTx) GetToken(ctx context.Context, ticker string) (*ledger.Token, error) {
	for i := range t.deploys {
		if strings.EqualFold(t.deploys[i].Ticker, ticker) {
			tok := t.deploys[i]
			return &tok, nil
		}
	}
	return nil, ledger.ErrTokenNotFound
}

func (t *fakeTx) InsertDeployIfAbsent(ctx context.Context, tok ledger.Token) (int64, bool, error) {
	if existing, err := t.GetToken(ctx, tok.Ticker); err == nil {
		_ = existing
		return 0, false, nil
	}
	tok.ID = t.allocID()
	t.deploys = append(t.deploys, tok)
	return tok.ID, true, nil
}

func (t *fakeTx) SumEffectiveMints(ctx context.Context, deployID int64) (decimal.Decimal, error) {
	sum := decimal.Zero()
	mintInscriptions := map[string]bool{}
	for _, m := range t.mints {
		if m.DeployID == deployID {
			mintInscriptions[m.InscriptionID] = true
		}
	}
	for _, b := range t.balances {
		if b.DeployID == deployID && mintInscriptions[b.InscriptionID] && !b.AvailDelta.Negative {
			sum = sum.Add(b.AvailDelta.Magnitude)
		}
	}
	return sum, nil
}

func (t *fakeTx) InsertMint(ctx context.Context, m ledger.Mint) (int64, error) {
	m.ID = t.allocID()
	t.mints = append(t.mints, m)
	return m.ID, nil
}

func (t *fakeTx) CurrentBalance(ctx context.Context, address string, deployID int64) (ledger.Balance, error) {
	avail, trans := decimal.Zero(), decimal.Zero()
	for _, b := range t.balances {
		if b.Address != address || b.DeployID != deployID {
			continue
		}
		if b.AvailDelta.Negative {
			avail = avail.Sub(b.AvailDelta.Magnitude)
		} else {
			avail = avail.Add(b.AvailDelta.Magnitude)
		}
		if b.TransDelta.Negative {
			trans = trans.Sub(b.TransDelta.Magnitude)
		} else {
			trans = trans.Add(b.TransDelta.Magnitude)
		}
	}
	return ledger.Balance{Avail: avail, Trans: trans}, nil
}

func (t *fakeTx) InsertBalanceDelta(ctx context.Context, d ledger.BalanceDelta) error {
	d.ID = t.allocID()
	t.balances = append(t.balances, d)
	return nil
}

func (t *fakeTx) InsertTransferIntent(ctx context.Context, tr ledger.TransferIntent) (int64, error) {
	tr.ID = t.allocID()
	t.transfers = append(t.transfers, tr)
	return tr.ID, nil
}

func (t *fakeTx) TransferIntentsByInscription(ctx context.Context, inscriptionID string, limit int) ([]ledger.TransferIntent, error) {
	var out []ledger.TransferIntent
	for _, tr := range t.transfers {
		if tr.InscriptionID == inscriptionID {
			out = append(out, tr)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (t *fakeTx) SettleTransferIntent(ctx context.Context, id int64, toAddress string) error {
	for i := range t.transfers {
		if t.transfers[i].ID == id {
			addr := toAddress
			t.transfers[i].ToAddress = &addr
			return nil
		}
	}
	return fmt.Errorf("fakeTx: settle transfer intent %d: no such row", id)
}

func (t *fakeTx) InsertEvent(ctx context.Context, e ledger.Event) (int64, error) {
	e.ID = t.allocID()
	t.events = append(t.events, e)
	return e.ID, nil
}

func (t *fakeTx) DeleteByHeight(ctx context.Context, height uint64) error {
	for _, e := range t.events {
		if e.BlockHeight != height || e.Kind != ledger.EventTransferSettle || e.TransferRowID == nil {
			continue
		}
		for i := range t.transfers {
			if t.transfers[i].ID == *e.TransferRowID {
				t.transfers[i].ToAddress = nil
			}
		}
	}
	t.deploys = filterHeight(t.deploys, height, func(d ledger.Token) uint64 { return d.BlockHeight })
	t.mints = filterHeight(t.mints, height, func(m ledger.Mint) uint64 { return m.BlockHeight })
	t.transfers = filterHeight(t.transfers, height, func(tr ledger.TransferIntent) uint64 { return tr.BlockHeight })
	t.balances = filterHeight(t.balances, height, func(b ledger.BalanceDelta) uint64 { return b.BlockHeight })
	t.events = filterHeight(t.events, height, func(e ledger.Event) uint64 { return e.BlockHeight })
	return nil
}

func filterHeight[T any](rows []T, height uint64, at func(T) uint64) []T {
	out := rows[:0:0]
	for _, r := range rows {
		if at(r) != height {
			out = append(out, r)
		}
	}
	return out
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.deploys = t.deploys
	t.store.mints = t.mints
	t.store.transfers = t.transfers
	t.store.balances = t.balances
	t.store.events = t.events
	t.store.nextID = t.nextID
	t.done = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.done = true
	return nil
}
