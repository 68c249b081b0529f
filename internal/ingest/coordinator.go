// Package ingest owns the single-consumer FIFO that serializes apply
// and rollback deliveries from the external block source into the
// Operation Engine, enforcing backpressure the way the teacher's
// txpool enqueues and drains pending transactions: a bounded channel,
// one worker goroutine, and an event.Feed for observers.
package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/brc20indexer/indexer/internal/engine"
)

// Decision is returned synchronously from OnBlock/OnRollback so the
// collaborator knows immediately whether to retry.
type Decision int

const (
	Accept Decision = iota
	Reject
)

func (d Decision) String() string {
	if d == Accept {
		return "accept"
	}
	return "reject"
}

// Notification is emitted on the Subscribe feed as the worker commits
// or fatally fails a delivery.
type Notification struct {
	// Height is the block height that was applied or rolled back.
	Height uint64
	// Rollback is true when this notification reports a rollback
	// rather than an apply.
	Rollback bool
	// Err is non-nil only on a fatal, unrecoverable failure; the
	// worker goroutine stops consuming after emitting it.
	Err error
}

type delivery struct {
	isRollback bool
	block      engine.Block
	height     uint64
}

var (
	queueDepthGauge  = metrics.NewRegisteredGauge("brc20/ingest/queue_depth", nil)
	rejectedCounter  = metrics.NewRegisteredCounter("brc20/ingest/rejected", nil)
	acceptedCounter  = metrics.NewRegisteredCounter("brc20/ingest/accepted", nil)
	fatalStopCounter = metrics.NewRegisteredCounter("brc20/ingest/fatal_stop", nil)
)

// Coordinator is the bounded, single-worker queue sitting between the
// external block source and the Engine.
type Coordinator struct {
	eng *engine.Engine

	queue chan delivery
	feed  event.Feed

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New builds a Coordinator with the given maximum queue depth (the
// "queue_max_depth" config field, default 10 per the policy this
// package enforces) and starts its worker goroutine.
func New(ctx context.Context, eng *engine.Engine, maxDepth int) *Coordinator {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	c := &Coordinator{
		eng:    eng,
		queue:  make(chan delivery, maxDepth),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go c.run(ctx)
	return c
}

// OnBlock offers a newly observed block for application. Non-blocking:
// it enqueues immediately or rejects if the queue is at capacity.
func (c *Coordinator) OnBlock(block engine.Block) Decision {
	return c.offer(delivery{block: block, height: block.Height})
}

// OnRollback offers a chain-reorganization rollback of the given
// height. Non-blocking, same admission policy as OnBlock.
func (c *Coordinator) OnRollback(height uint64) Decision {
	return c.offer(delivery{isRollback: true, height: height})
}

func (c *Coordinator) offer(d delivery) Decision {
	select {
	case c.queue <- d:
		acceptedCounter.Inc(1)
		queueDepthGauge.Update(int64(len(c.queue)))
		return Accept
	default:
		rejectedCounter.Inc(1)
		log.Warn("ingest: queue full, rejecting delivery", "height", d.height, "rollback", d.isRollback)
		return Reject
	}
}

// Subscribe registers ch to receive Notifications as the worker
// commits or fatally fails deliveries, mirroring the teacher's
// SubscribeTransactions pattern over an event.Feed.
func (c *Coordinator) Subscribe(ch chan<- Notification) event.Subscription {
	return c.feed.Subscribe(ch)
}

// Close stops the worker goroutine, discarding any items still queued
// (the collaborator will redeliver them on restart, per contract).
func (c *Coordinator) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	<-c.doneCh
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.doneCh)
	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case d := <-c.queue:
			queueDepthGauge.Update(int64(len(c.queue)))
			c.process(ctx, d)
		}
	}
}

func (c *Coordinator) process(ctx context.Context, d delivery) {
	if d.isRollback {
		if err := c.eng.Rollback(ctx, d.height); err != nil {
			c.fail(d.height, true, err)
			return
		}
		c.feed.Send(Notification{Height: d.height, Rollback: true})
		return
	}

	if err := c.eng.ApplyBlock(ctx, d.block); err != nil {
		c.fail(d.height, false, err)
		return
	}
	c.feed.Send(Notification{Height: d.height})
}

// fail reports a fatal delivery error on the feed and stops the
// worker; per §7 no further blocks are consumed until the operator
// restarts the process after resolving the condition.
func (c *Coordinator) fail(height uint64, rollback bool, err error) {
	fatalStopCounter.Inc(1)
	log.Error("ingest: fatal delivery error, worker stopping", "height", height, "rollback", rollback, "err", err)
	c.feed.Send(Notification{Height: height, Rollback: rollback, Err: fmt.Errorf("ingest: %w", err)})
	c.stopOnce.Do(func() { close(c.stopCh) })
}
