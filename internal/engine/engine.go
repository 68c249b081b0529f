package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/brc20indexer/indexer/internal/brc20proto"
	"github.com/brc20indexer/indexer/internal/decimal"
	"github.com/brc20indexer/indexer/internal/ledger"
)

// ApplyInscriptionGenesis handles an inscription's first appearance:
// parse, validate against consensus rules, and write the resulting
// ledger rows. Any consensus rejection is logged and swallowed; only a
// genuine store error is returned to the caller.
func ApplyInscriptionGenesis(ctx context.Context, tx ledger.Tx, height uint64, txID string, insc Inscription, loc Location) error {
	op, err := brc20proto.Parse(insc.MIME, insc.Payload)
	if err != nil {
		logRejected("not-brc20", "inscription", insc.InscriptionID, "err", err)
		return nil
	}

	if !loc.HasAddress() {
		logRejected("fee-spent-genesis", "inscription", insc.InscriptionID)
		return nil
	}

	switch v := op.(type) {
	case brc20proto.DeployOp:
		return applyDeploy(ctx, tx, height, txID, insc, loc, v)
	case brc20proto.MintOp:
		return applyMint(ctx, tx, height, txID, insc, loc, v)
	case brc20proto.TransferOp:
		return applyTransferReserve(ctx, tx, height, txID, insc, loc, v)
	default:
		return fmt.Errorf("engine: unhandled op type %T", op)
	}
}

func applyDeploy(ctx context.Context, tx ledger.Tx, height uint64, txID string, insc Inscription, loc Location, op brc20proto.DeployOp) error {
	deployID, created, err := tx.InsertDeployIfAbsent(ctx, ledger.Token{
		InscriptionID: insc.InscriptionID,
		BlockHeight:   height,
		TxID:          txID,
		Address:       loc.Address,
		Ticker:        op.DisplayTicker(),
		Max:           op.Max,
		Limit:         op.Limit,
		Decimals:      op.Decimals,
	})
	if err != nil {
		return err
	}
	if !created {
		logRejected("ticker-collision", "ticker", op.Ticker(), "inscription", insc.InscriptionID)
		return nil
	}

	if _, err := tx.InsertEvent(ctx, ledger.Event{
		InscriptionID: insc.InscriptionID,
		DeployID:      deployID,
		Kind:          ledger.EventDeploy,
		DeployRowID:   &deployID,
		BlockHeight:   height,
	}); err != nil {
		return err
	}

	deployAcceptedCounter.Inc(1)
	return nil
}

func applyMint(ctx context.Context, tx ledger.Tx, height uint64, txID string, insc Inscription, loc Location, op brc20proto.MintOp) error {
	tok, err := tx.GetToken(ctx, op.Ticker())
	if err != nil {
		if errors.Is(err, ledger.ErrTokenNotFound) {
			logRejected("unknown-token", "ticker", op.Ticker(), "inscription", insc.InscriptionID)
			return nil
		}
		return err
	}

	if tok.Limit != nil && op.Amount.GreaterThan(*tok.Limit) {
		logRejected("mint-exceeds-limit", "ticker", op.Ticker(), "amount", op.Amount.String())
		return nil
	}
	if !op.Amount.FitsScale(tok.Decimals) {
		logRejected("mint-precision-exceeded", "ticker", op.Ticker(), "amount", op.Amount.String())
		return nil
	}

	minted, err := tx.SumEffectiveMints(ctx, tok.ID)
	if err != nil {
		return err
	}
	remaining := tok.Max.Sub(minted)
	if !remaining.IsPositive() {
		logRejected("mint-cap-reached", "ticker", op.Ticker())
		return nil
	}

	effective := decimal.Min(op.Amount, remaining)

	mintID, err := tx.InsertMint(ctx, ledger.Mint{
		InscriptionID: insc.InscriptionID,
		DeployID:      tok.ID,
		BlockHeight:   height,
		TxID:          txID,
		Address:       loc.Address,
		Amount:        op.Amount,
	})
	if err != nil {
		return err
	}

	if err := tx.InsertBalanceDelta(ctx, ledger.BalanceDelta{
		InscriptionID: insc.InscriptionID,
		DeployID:      tok.ID,
		BlockHeight:   height,
		Address:       loc.Address,
		AvailDelta:    ledger.Pos(effective),
		TransDelta:    ledger.Zero(),
	}); err != nil {
		return err
	}

	if _, err := tx.InsertEvent(ctx, ledger.Event{
		InscriptionID: insc.InscriptionID,
		DeployID:      tok.ID,
		Kind:          ledger.EventMint,
		MintRowID:     &mintID,
		BlockHeight:   height,
	}); err != nil {
		return err
	}

	mintAcceptedCounter.Inc(1)
	return nil
}

func applyTransferReserve(ctx context.Context, tx ledger.Tx, height uint64, txID string, insc Inscription, loc Location, op brc20proto.TransferOp) error {
	tok, err := tx.GetToken(ctx, op.Ticker())
	if err != nil {
		if errors.Is(err, ledger.ErrTokenNotFound) {
			logRejected("unknown-token", "ticker", op.Ticker(), "inscription", insc.InscriptionID)
			return nil
		}
		return err
	}

	bal, err := tx.CurrentBalance(ctx, loc.Address, tok.ID)
	if err != nil {
		return err
	}
	if op.Amount.GreaterThan(bal.Avail) {
		logRejected("insufficient-balance", "ticker", op.Ticker(), "address", loc.Address, "amount", op.Amount.String())
		return nil
	}

	transferID, err := tx.InsertTransferIntent(ctx, ledger.TransferIntent{
		InscriptionID: insc.InscriptionID,
		DeployID:      tok.ID,
		BlockHeight:   height,
		TxID:          txID,
		FromAddress:   loc.Address,
		Amount:        op.Amount,
	})
	if err != nil {
		return err
	}

	if err := tx.InsertBalanceDelta(ctx, ledger.BalanceDelta{
		InscriptionID: insc.InscriptionID,
		DeployID:      tok.ID,
		BlockHeight:   height,
		Address:       loc.Address,
		AvailDelta:    ledger.Neg(op.Amount),
		TransDelta:    ledger.Pos(op.Amount),
	}); err != nil {
		return err
	}

	if _, err := tx.InsertEvent(ctx, ledger.Event{
		InscriptionID: insc.InscriptionID,
		DeployID:      tok.ID,
		Kind:          ledger.EventTransferReserve,
		TransferRowID: &transferID,
		BlockHeight:   height,
	}); err != nil {
		return err
	}

	transferAcceptedCounter.Inc(1)
	return nil
}

// transferIntentCap bounds the lookup in ApplyInscriptionTransfer: only
// the genesis reserve and, at most, one settlement can ever legitimately
// exist for an inscription.
const transferIntentCap = 2

// ApplyInscriptionTransfer handles any movement of an inscription after
// its genesis. It settles the inscription's pending reserve (if there is
// exactly one, unsettled) and ignores everything else.
func ApplyInscriptionTransfer(ctx context.Context, tx ledger.Tx, height uint64, txID string, inscriptionID string, loc Location) error {
	intents, err := tx.TransferIntentsByInscription(ctx, inscriptionID, transferIntentCap)
	if err != nil {
		return err
	}

	if len(intents) != 1 || intents[0].ToAddress != nil {
		logRejected("no-pending-reserve", "inscription", inscriptionID, "rows", len(intents))
		return nil
	}
	intent := intents[0]

	toAddress := ledger.BurnedSentinel
	if loc.HasAddress() {
		toAddress = loc.Address
	}

	if err := tx.SettleTransferIntent(ctx, intent.ID, toAddress); err != nil {
		return err
	}

	if err := tx.InsertBalanceDelta(ctx, ledger.BalanceDelta{
		InscriptionID: inscriptionID,
		DeployID:      intent.DeployID,
		BlockHeight:   height,
		Address:       intent.FromAddress,
		AvailDelta:    ledger.Zero(),
		TransDelta:    ledger.Neg(intent.Amount),
	}); err != nil {
		return err
	}

	if loc.HasAddress() {
		if err := tx.InsertBalanceDelta(ctx, ledger.BalanceDelta{
			InscriptionID: inscriptionID,
			DeployID:      intent.DeployID,
			BlockHeight:   height,
			Address:       loc.Address,
			AvailDelta:    ledger.Pos(intent.Amount),
			TransDelta:    ledger.Zero(),
		}); err != nil {
			return err
		}
	}

	if _, err := tx.InsertEvent(ctx, ledger.Event{
		InscriptionID: inscriptionID,
		DeployID:      intent.DeployID,
		Kind:          ledger.EventTransferSettle,
		TransferRowID: &intent.ID,
		BlockHeight:   height,
	}); err != nil {
		return err
	}

	settleAcceptedCounter.Inc(1)
	return nil
}
