package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/brojonat/solsweep/service/metrics"
	"github.com/brojonat/solsweep/service/registry"
	"github.com/brojonat/solsweep/service/solana"
	solanago "github.com/gagliardetto/solana-go"
)

// resolution is the explicit outcome of one token-account resolution.
// Either the account produced a holding, or it was skipped for a reason.
// Skips never abort the aggregation; that isolation is the aggregator's
// defining property.
type resolution struct {
	holding *TokenHolding
	skipped error
}

// Aggregator produces wallet snapshots: native balance plus every non-zero
// SPL holding, with metadata resolved per holding through a fallback chain.
type Aggregator struct {
	ledger   *solana.Client
	registry *registry.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
	network  string
}

// NewAggregator creates a new balance aggregator.
// If m is nil, no metrics will be recorded.
func NewAggregator(ledger *solana.Client, reg *registry.Registry, network string, m *metrics.Metrics, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		ledger:   ledger,
		registry: reg,
		metrics:  m,
		logger:   logger,
		network:  network,
	}
}

// Aggregate inspects one address and returns its snapshot.
//
// The native balance query is the only fatal step: its failure returns
// ErrLedgerUnavailable. Token accounts are resolved concurrently and
// per-account failures drop that account from the result. Holdings are
// sorted by mint so the output is deterministic regardless of which
// resolution finishes first.
func (a *Aggregator) Aggregate(ctx context.Context, owner solanago.PublicKey) (*WalletSnapshot, error) {
	// Gate on the one-time registry load rather than silently degrading
	// to the on-chain fallback for every mint during the startup window.
	if err := a.registry.WaitReady(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}

	nativeLamports, err := a.ledger.NativeBalance(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: native balance query: %v", ErrLedgerUnavailable, err)
	}

	accounts, err := a.ledger.TokenAccounts(ctx, owner)
	if err != nil {
		// The snapshot is still usable with just the native balance; the
		// ownership-index failure costs us token holdings, not the request.
		a.logger.WarnContext(ctx, "token account query failed, snapshot will have no holdings",
			"owner", owner.String(),
			"error", err,
		)
		accounts = nil
	}

	// Resolve each discovered account independently and concurrently.
	// All resolutions are awaited before the snapshot is finalized.
	results := make([]resolution, len(accounts))
	var wg sync.WaitGroup
	for i, account := range accounts {
		wg.Add(1)
		go func(i int, account solana.TokenAccount) {
			defer wg.Done()
			results[i] = a.resolve(ctx, account)
		}(i, account)
	}
	wg.Wait()

	holdings := make([]TokenHolding, 0, len(results))
	for i, res := range results {
		switch {
		case res.holding != nil:
			holdings = append(holdings, *res.holding)
			if a.metrics != nil {
				a.metrics.RecordHoldingResolved("resolved")
			}
		case res.skipped != nil:
			a.logger.WarnContext(ctx, "token account skipped",
				"account", accounts[i].Address.String(),
				"reason", res.skipped,
			)
			if a.metrics != nil {
				a.metrics.RecordHoldingResolved("skipped")
			}
		default:
			// Zero balance, filtered silently.
			if a.metrics != nil {
				a.metrics.RecordHoldingResolved("zero")
			}
		}
	}

	// Completion order is nondeterministic; sort by mint for stable output.
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Mint < holdings[j].Mint
	})

	if a.metrics != nil {
		a.metrics.RecordSnapshotHoldings(a.network, len(holdings))
	}

	a.logger.InfoContext(ctx, "wallet snapshot aggregated",
		"owner", owner.String(),
		"lamports", nativeLamports,
		"holdings", len(holdings),
	)

	return &WalletSnapshot{
		Address:        owner,
		NativeLamports: nativeLamports,
		Holdings:       holdings,
	}, nil
}

// resolve turns one token account into a holding, or records why it was
// dropped. Zero-balance accounts return an empty resolution.
func (a *Aggregator) resolve(ctx context.Context, account solana.TokenAccount) resolution {
	if account.Amount == 0 {
		return resolution{}
	}

	mint := account.Mint.String()
	holding := &TokenHolding{
		Mint:      mint,
		RawAmount: account.Amount,
	}

	if meta, ok := a.registry.Lookup(mint); ok {
		holding.Decimals = meta.Decimals
		holding.Symbol = meta.Symbol
		holding.Name = meta.Name
		holding.LogoURI = meta.LogoURI
		if a.metrics != nil {
			a.metrics.RecordRegistryLookup("hit")
		}
		return resolution{holding: holding}
	}

	// Registry miss: decimals from the mint account, display fields from
	// hard defaults. A failed chain lookup still yields a holding with
	// approximate metadata rather than dropping the balance.
	holding.Symbol = defaultSymbol
	holding.Name = fmt.Sprintf("Unknown token (%s)", shortAddress(mint))

	decimals, err := a.ledger.MintDecimals(ctx, account.Mint)
	if err != nil {
		if ctx.Err() != nil {
			return resolution{skipped: fmt.Errorf("mint query aborted: %w", ctx.Err())}
		}
		a.logger.DebugContext(ctx, "mint query failed, using default decimals",
			"mint", mint,
			"error", err,
		)
		holding.Decimals = defaultDecimals
		if a.metrics != nil {
			a.metrics.RecordRegistryLookup("default")
		}
		return resolution{holding: holding}
	}

	holding.Decimals = decimals
	if a.metrics != nil {
		a.metrics.RecordRegistryLookup("chain_fallback")
	}
	return resolution{holding: holding}
}

// shortAddress renders an address as its first and last four characters.
func shortAddress(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
