package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/brojonat/solsweep/service/metrics"
	"github.com/brojonat/solsweep/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// Builder assembles sweep transaction plans from wallet snapshots.
type Builder struct {
	ledger  *solana.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
	network string
}

// NewBuilder creates a transaction builder.
// If m is nil, no metrics will be recorded.
func NewBuilder(ledger *solana.Client, network string, m *metrics.Metrics, logger *slog.Logger) *Builder {
	return &Builder{
		ledger:  ledger,
		metrics: m,
		logger:  logger,
		network: network,
	}
}

// Build produces the instruction sequence sweeping the snapshot to the
// destination. Instruction order is significant for the transaction's byte
// layout: token transfers first, then the native transfer, then the memo.
//
// Each token transfer re-reads the source account before committing to an
// amount; the snapshot may be stale by build time. Per-token failures skip
// that token and never abort the rest of the plan.
func (b *Builder) Build(
	ctx context.Context,
	snapshot *WalletSnapshot,
	sweepLamports uint64,
	destination solanago.PublicKey,
	blockhash solanago.Hash,
) *TransactionPlan {
	start := time.Now()
	instructions := make([]solanago.Instruction, 0, len(snapshot.Holdings)+2)

	for _, holding := range snapshot.Holdings {
		ix, err := b.tokenTransfer(ctx, snapshot.Address, destination, holding)
		if err != nil {
			b.logger.WarnContext(ctx, "skipping token in sweep",
				"mint", holding.Mint,
				"error", err,
			)
			continue
		}
		if ix != nil {
			instructions = append(instructions, ix)
		}
	}

	instructions = append(instructions,
		system.NewTransferInstruction(sweepLamports, snapshot.Address, destination).Build(),
	)
	instructions = append(instructions,
		solanago.NewInstruction(solanago.MemoProgramID, solanago.AccountMetaSlice{}, []byte(sweepMemo)),
	)

	if b.metrics != nil {
		b.metrics.RecordSweepBuild(b.network, time.Since(start).Seconds(), len(instructions))
	}

	b.logger.InfoContext(ctx, "sweep plan built",
		"owner", snapshot.Address.String(),
		"destination", destination.String(),
		"instructions", len(instructions),
		"sweep_lamports", sweepLamports,
	)

	return &TransactionPlan{
		FeePayer:     snapshot.Address,
		Destination:  destination,
		Instructions: instructions,
		Blockhash:    blockhash,
	}
}

// tokenTransfer builds one full-balance SPL transfer for a holding, or
// returns nil when the authoritative re-read shows the balance is gone.
func (b *Builder) tokenTransfer(
	ctx context.Context,
	owner, destination solanago.PublicKey,
	holding TokenHolding,
) (solanago.Instruction, error) {
	mint, err := solanago.PublicKeyFromBase58(holding.Mint)
	if err != nil {
		return nil, err
	}

	sourceATA, _, err := solanago.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	destATA, _, err := solanago.FindAssociatedTokenAddress(destination, mint)
	if err != nil {
		return nil, err
	}

	// Second, authoritative read. The snapshot amount may be stale.
	amount, _, err := b.ledger.TokenAccountBalance(ctx, sourceATA)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		b.logger.DebugContext(ctx, "token balance drained since snapshot, omitting transfer",
			"mint", holding.Mint,
		)
		return nil, nil
	}

	return token.NewTransferInstruction(amount, sourceATA, destATA, owner, nil).Build(), nil
}
