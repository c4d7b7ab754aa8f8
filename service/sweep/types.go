package sweep

import (
	"errors"
	"math"

	"github.com/gagliardetto/solana-go"
)

const (
	// LamportsPerSOL is the smallest-unit scale of the native currency.
	LamportsPerSOL = 1_000_000_000

	// fallbackFeePerSignature is the static fee floor used when the node
	// cannot quote a fee for the probe message. 5000 lamports has been the
	// base signature fee since fee markets replaced the fee calculator.
	fallbackFeePerSignature = 5000

	// defaultDecimals is assumed for a mint when both the registry and the
	// on-chain mint query fail to resolve it.
	defaultDecimals = 9

	// defaultSymbol labels holdings with unresolvable metadata.
	defaultSymbol = "TOKEN"

	// sweepMemo is the annotation attached to every built sweep transaction.
	sweepMemo = "solsweep: consolidated wallet balances"
)

// Pipeline failure taxonomy. Per-item failures during aggregation and
// instruction construction never surface through these; they are isolated
// and logged where they occur.
var (
	// ErrLedgerUnavailable means the initial native balance query failed.
	// There is no partial snapshot without a native balance.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrFeeQuery means the fee floor could not be established.
	ErrFeeQuery = errors.New("fee query failed")

	// ErrSubmissionFailed means signing, broadcast, or confirmation failed
	// in backend-signed mode.
	ErrSubmissionFailed = errors.New("transaction submission failed")
)

// TokenHolding is one non-zero SPL balance discovered for the wallet.
// Decimals, symbol, and name come from a fallback chain (registry, then
// on-chain mint query, then hard defaults) and may be approximate when
// both lookups fail.
type TokenHolding struct {
	Mint      string
	RawAmount uint64
	Decimals  uint8
	Symbol    string
	Name      string
	LogoURI   string
}

// UIAmount returns the holding scaled by its decimals for display.
func (h TokenHolding) UIAmount() float64 {
	return float64(h.RawAmount) / math.Pow10(int(h.Decimals))
}

// WalletSnapshot is the aggregated state of one address at inspection time.
// Immutable after construction; owned by the request handler for its lifetime.
type WalletSnapshot struct {
	Address        solana.PublicKey
	NativeLamports uint64
	Holdings       []TokenHolding
}

// NativeSOL returns the native balance in whole SOL.
func (s *WalletSnapshot) NativeSOL() float64 {
	return float64(s.NativeLamports) / LamportsPerSOL
}

// FeeQuote is the fee floor and safety reserve for one request.
// Recomputed per request and never cached, since fee floors drift.
type FeeQuote struct {
	PerSignature     uint64
	BufferMultiplier uint64
	TotalReserved    uint64
}

// SweepAmount returns the lamports that can be swept after reserving fees,
// and whether a sweep is economically possible at all.
func (q FeeQuote) SweepAmount(nativeLamports uint64) (uint64, bool) {
	if nativeLamports <= q.TotalReserved {
		return 0, false
	}
	return nativeLamports - q.TotalReserved, true
}

// TransactionPlan is the ordered instruction sequence for one sweep.
// Built once per request and consumed exactly once, by either the
// serialize-unsigned path or the sign-and-submit path.
type TransactionPlan struct {
	FeePayer     solana.PublicKey
	Destination  solana.PublicKey
	Instructions []solana.Instruction
	Blockhash    solana.Hash
}

// Transaction assembles the plan into a solana transaction.
func (p *TransactionPlan) Transaction() (*solana.Transaction, error) {
	return solana.NewTransaction(
		p.Instructions,
		p.Blockhash,
		solana.TransactionPayer(p.FeePayer),
	)
}

// SubmissionResult is the terminal state of a backend-signed sweep.
type SubmissionResult struct {
	TxID               string
	ConfirmationStatus string
}
