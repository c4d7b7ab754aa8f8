package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brojonat/solsweep/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// FeeEstimator computes the current fee floor and the reserve that must be
// left behind for a sweep to be submittable.
type FeeEstimator struct {
	ledger           *solana.Client
	bufferMultiplier uint64
	logger           *slog.Logger
}

// NewFeeEstimator creates a fee estimator. bufferMultiplier scales the
// quoted per-signature fee into the reserved total; it must be >= 1.
func NewFeeEstimator(ledger *solana.Client, bufferMultiplier uint64, logger *slog.Logger) *FeeEstimator {
	return &FeeEstimator{
		ledger:           ledger,
		bufferMultiplier: bufferMultiplier,
		logger:           logger,
	}
}

// Estimate queries the per-signature fee floor for a minimal transfer
// message and returns the quote together with the blockhash it was quoted
// against, so the same block reference can anchor the built transaction.
// Quotes are never cached; fee floors drift.
func (e *FeeEstimator) Estimate(ctx context.Context, payer, destination solanago.PublicKey) (FeeQuote, solana.Blockhash, error) {
	blockhash, err := e.ledger.LatestBlockhash(ctx)
	if err != nil {
		return FeeQuote{}, solana.Blockhash{}, fmt.Errorf("%w: blockhash query: %v", ErrFeeQuery, err)
	}

	// A one-lamport probe transfer has the same signature count as the
	// sweep itself: one fee payer signature.
	probe, err := solanago.NewTransaction(
		[]solanago.Instruction{
			system.NewTransferInstruction(1, payer, destination).Build(),
		},
		blockhash.Hash,
		solanago.TransactionPayer(payer),
	)
	if err != nil {
		return FeeQuote{}, solana.Blockhash{}, fmt.Errorf("%w: probe assembly: %v", ErrFeeQuery, err)
	}

	perSignature, err := e.ledger.FeeForMessage(ctx, &probe.Message)
	if err != nil {
		if !errors.Is(err, solana.ErrFeeUnavailable) {
			return FeeQuote{}, solana.Blockhash{}, fmt.Errorf("%w: %v", ErrFeeQuery, err)
		}
		e.logger.DebugContext(ctx, "node returned no fee for probe message, using static floor",
			"floor", fallbackFeePerSignature,
		)
		perSignature = fallbackFeePerSignature
	}

	quote := FeeQuote{
		PerSignature:     perSignature,
		BufferMultiplier: e.bufferMultiplier,
		TotalReserved:    perSignature * e.bufferMultiplier,
	}

	e.logger.DebugContext(ctx, "fee quote computed",
		"per_signature", quote.PerSignature,
		"buffer_multiplier", quote.BufferMultiplier,
		"total_reserved", quote.TotalReserved,
	)
	return quote, blockhash, nil
}
