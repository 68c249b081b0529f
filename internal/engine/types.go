// Package engine applies BRC-20 consensus rules to inscription events and
// emits the resulting ledger writes. Grounded on the teacher's block-level
// state mutation dispatch (core/state_processor_rollup.go processes one
// inscription-equivalent unit at a time against the current state) and its
// metrics counters (miner/worker.go registers per-outcome counters rather
// than logging volume blind).
package engine

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/brc20indexer/indexer/internal/ledger"
)

// Inscription is the opaque collaborator-owned key the Engine operates
// against. The core never mutates it; it only copies InscriptionID into
// its own rows.
type Inscription struct {
	InscriptionID string
	Number        int64
	GenesisID     string
	Payload       []byte
	MIME          string
}

// Location is the (block_height, tx_id, address?) an inscription
// currently sits at. Address is empty when the inscription was spent as a
// transaction fee.
type Location struct {
	BlockHeight uint64
	TxID        string
	Address     string // empty means fee-spent
}

// HasAddress reports whether the inscription has an owning address at
// this location (false when fee-spent).
func (l Location) HasAddress() bool {
	return l.Address != ""
}

// InscriptionEvent is one entry in a block's authoritative, ordered
// inscription list.
type InscriptionEvent struct {
	// Genesis is set for the inscription's first appearance; Transfer
	// events after genesis instead set Transfer != nil, never both.
	Genesis  *Inscription
	Transfer *TransferEvent
	Location Location
}

// TransferEvent is a subsequent movement of an already-genesis'd
// inscription.
type TransferEvent struct {
	InscriptionID string
}

// Block is one BlockApply delivery: a height, and its authoritative,
// consensus-ordered list of inscription events.
type Block struct {
	Height       uint64
	Hash         string
	PrevHash     string
	Inscriptions []InscriptionEvent
}

func logRejected(reason string, kv ...interface{}) {
	rejectedCounter(reason).Inc(1)
	log.Debug("brc20 inscription rejected: "+reason, kv...)
}
