package engine

import (
	"sync"

	"github.com/ethereum/go-ethereum/metrics"
)

// Counters mirror the teacher's per-outcome metrics in miner/worker.go
// (e.g. txConditionalRejectedCounter), one registered counter per
// accepted op kind and per rejection reason, plus a gauge for the last
// applied block height.
var (
	deployAcceptedCounter   = metrics.NewRegisteredCounter("brc20/engine/deploy/accepted", nil)
	mintAcceptedCounter     = metrics.NewRegisteredCounter("brc20/engine/mint/accepted", nil)
	transferAcceptedCounter = metrics.NewRegisteredCounter("brc20/engine/transfer/accepted", nil)
	settleAcceptedCounter   = metrics.NewRegisteredCounter("brc20/engine/transfer/settled", nil)

	lastAppliedHeightGauge = metrics.NewRegisteredGauge("brc20/engine/last_applied_height", nil)
	rollbackCounter        = metrics.NewRegisteredCounter("brc20/engine/rollback", nil)

	rejectedMu       sync.Mutex
	rejectedCounters = map[string]metrics.Counter{}
)

// rejectedCounter lazily registers (and caches) a counter per distinct
// rejection reason, since the set of reasons is small and fixed but not
// enumerable as package-level vars without repeating every call site's
// literal string.
func rejectedCounter(reason string) metrics.Counter {
	rejectedMu.Lock()
	defer rejectedMu.Unlock()
	if c, ok := rejectedCounters[reason]; ok {
		return c
	}
	c := metrics.NewRegisteredCounter("brc20/engine/rejected/"+reason, nil)
	rejectedCounters[reason] = c
	return c
}
