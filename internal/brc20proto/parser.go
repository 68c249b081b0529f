// Package brc20proto validates and decodes a raw inscription payload into
// a typed BRC-20 operation, or rejects it as "not a BRC-20 operation".
// Modeled on the teacher's tagged-dispatch transaction types
// (core/types/tx_rollup.go discriminates by a concrete struct per kind
// rather than an untyped record); this package does the same for deploy,
// mint, and transfer operations.
package brc20proto

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/brc20indexer/indexer/internal/decimal"
)

// Op is the tagged variant of a decoded BRC-20 operation. Exactly one of
// DeployOp, MintOp, or TransferOp implements it.
type Op interface {
	// Ticker returns the lowercase ticker identity used for token lookup.
	Ticker() string
	// DisplayTicker returns the ticker in its original casing.
	DisplayTicker() string
	op()
}

// DeployOp is a validated "deploy" operation.
type DeployOp struct {
	Tick     string // original casing
	Max      decimal.Decimal
	Limit    *decimal.Decimal // nil when unset
	Decimals int32            // defaults to 18 when absent from the payload
}

func (d DeployOp) Ticker() string        { return strings.ToLower(d.Tick) }
func (d DeployOp) DisplayTicker() string { return d.Tick }
func (DeployOp) op()                     {}

// MintOp is a validated "mint" operation.
type MintOp struct {
	Tick   string
	Amount decimal.Decimal
}

func (m MintOp) Ticker() string        { return strings.ToLower(m.Tick) }
func (m MintOp) DisplayTicker() string { return m.Tick }
func (MintOp) op()                     {}

// TransferOp is a validated "transfer" (inscribe-transfer) operation.
type TransferOp struct {
	Tick   string
	Amount decimal.Decimal
}

func (t TransferOp) Ticker() string        { return strings.ToLower(t.Tick) }
func (t TransferOp) DisplayTicker() string { return t.Tick }
func (TransferOp) op()                     {}

// ErrNotBRC20 is returned (wrapped with context) whenever the payload is
// not a BRC-20 operation. It is not an error to be propagated upward: the
// Engine treats it as a silent, per-inscription rejection.
var ErrNotBRC20 = fmt.Errorf("brc20proto: not a BRC-20 operation")

const maxTickerBytes = 4

// Parse validates mime and decodes payload into a typed Op. Any validation
// failure returns an error wrapping ErrNotBRC20.
func Parse(mime string, payload []byte) (Op, error) {
	if !acceptedMIME(mime) {
		return nil, fmt.Errorf("%w: unsupported mime %q", ErrNotBRC20, mime)
	}

	var raw map[string]json.RawMessage
	dec := json.NewDecoder(strings.NewReader(string(payload)))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrNotBRC20, err)
	}

	p, err := rawString(raw, "p")
	if err != nil || !strings.EqualFold(p, "brc-20") {
		return nil, fmt.Errorf("%w: missing or wrong protocol field", ErrNotBRC20)
	}

	opField, err := rawString(raw, "op")
	if err != nil {
		return nil, fmt.Errorf("%w: missing op field", ErrNotBRC20)
	}

	tick, err := rawString(raw, "tick")
	if err != nil {
		return nil, fmt.Errorf("%w: missing tick field", ErrNotBRC20)
	}
	if utf8.RuneCountInString(tick) == 0 || len(tick) != maxTickerBytes {
		return nil, fmt.Errorf("%w: tick must be exactly %d UTF-8 bytes", ErrNotBRC20, maxTickerBytes)
	}

	switch {
	case strings.EqualFold(opField, "deploy"):
		return parseDeploy(raw, tick)
	case strings.EqualFold(opField, "mint"):
		return parseMint(raw, tick)
	case strings.EqualFold(opField, "transfer"):
		return parseTransfer(raw, tick)
	default:
		return nil, fmt.Errorf("%w: unknown op %q", ErrNotBRC20, opField)
	}
}

func parseDeploy(raw map[string]json.RawMessage, tick string) (Op, error) {
	maxAmt, err := requiredPositiveDecimal(raw, "max")
	if err != nil {
		return nil, err
	}

	var limit *decimal.Decimal
	if _, ok := raw["lim"]; ok {
		l, err := requiredPositiveDecimal(raw, "lim")
		if err != nil {
			return nil, err
		}
		limit = &l
	}

	decimals := int32(18)
	if raw, ok := raw["dec"]; ok {
		n, err := parseDecField(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid dec field", ErrNotBRC20)
		}
		if n < 0 || n > 18 {
			return nil, fmt.Errorf("%w: dec out of range [0,18]", ErrNotBRC20)
		}
		decimals = n
	}

	return DeployOp{Tick: tick, Max: maxAmt, Limit: limit, Decimals: decimals}, nil
}

func parseMint(raw map[string]json.RawMessage, tick string) (Op, error) {
	amt, err := requiredPositiveDecimal(raw, "amt")
	if err != nil {
		return nil, err
	}
	return MintOp{Tick: tick, Amount: amt}, nil
}

func parseTransfer(raw map[string]json.RawMessage, tick string) (Op, error) {
	amt, err := requiredPositiveDecimal(raw, "amt")
	if err != nil {
		return nil, err
	}
	return TransferOp{Tick: tick, Amount: amt}, nil
}

func requiredPositiveDecimal(raw map[string]json.RawMessage, field string) (decimal.Decimal, error) {
	s, err := rawString(raw, field)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: missing %s field", ErrNotBRC20, field)
	}
	amt, err := decimal.Parse(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s not parseable: %v", ErrNotBRC20, field, err)
	}
	if !amt.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: %s must be > 0", ErrNotBRC20, field)
	}
	return amt, nil
}

// parseDecField accepts "dec" encoded either as a JSON string ("18") or a
// bare JSON number (18), both observed in the wild across BRC-20 indexers.
func parseDecField(raw json.RawMessage) (int32, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		d, err := decimal.Parse(s)
		if err != nil || d.Scale() != 0 {
			return 0, fmt.Errorf("invalid dec string %q", s)
		}
		return decimalToInt32(d)
	}
	var n int32
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("dec neither string nor number")
	}
	return n, nil
}

func decimalToInt32(d decimal.Decimal) (int32, error) {
	var n int32
	if _, err := fmt.Sscanf(d.String(), "%d", &n); err != nil {
		return 0, err
	}
	return n, nil
}

func rawString(raw map[string]json.RawMessage, field string) (string, error) {
	v, ok := raw[field]
	if !ok {
		return "", fmt.Errorf("missing field %q", field)
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("field %q not a string", field)
	}
	return s, nil
}

func acceptedMIME(mime string) bool {
	base := mime
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		base = mime[:i]
	}
	base = strings.TrimSpace(strings.ToLower(base))
	switch base {
	case "text/plain", "application/json":
		return true
	default:
		return false
	}
}
