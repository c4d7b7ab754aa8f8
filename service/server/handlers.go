package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/brojonat/solsweep/service/config"
	"github.com/brojonat/solsweep/service/metrics"
	"github.com/brojonat/solsweep/service/notify"
	"github.com/brojonat/solsweep/service/sweep"
	solanago "github.com/gagliardetto/solana-go"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB - plenty for a wallet address
	maxAddressLength   = 100     // Solana addresses are 44 chars, give buffer

	insufficientBalanceMessage = "Insufficient SOL balance for transaction"
	confirmedMessage           = "Transaction submitted and confirmed"
)

var (
	// Valid Solana address characters: base58 (no 0, O, I, l)
	validAddressRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
)

// SweepPipeline bundles the components the sweep handler drives, wired once
// at startup. Signer is nil exactly when Mode is ModeUnsigned; Dispatcher
// may be nil when no alert channel is configured.
type SweepPipeline struct {
	Aggregator  *sweep.Aggregator
	Fees        *sweep.FeeEstimator
	Builder     *sweep.Builder
	Signer      *sweep.Signer
	Dispatcher  notify.Dispatcher
	Mode        config.SigningMode
	Destination solanago.PublicKey
}

// splBalance is the JSON shape of one token holding in the response.
type splBalance struct {
	Mint     string  `json:"mint"`
	Amount   float64 `json:"amount"`
	Decimals uint8   `json:"decimals"`
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	LogoURI  string  `json:"logoURI,omitempty"`
}

// unsignedSweepResponse is returned on the unsigned and insufficient-funds
// paths. Transaction is null when no sweep was built.
type unsignedSweepResponse struct {
	Success     bool         `json:"success"`
	Balance     float64      `json:"balance"`
	SplBalances []splBalance `json:"splBalances"`
	Transaction *string      `json:"transaction"`
	Message     string       `json:"message,omitempty"`
}

// signedSweepResponse is returned on the backend-signed success path.
type signedSweepResponse struct {
	Success     bool         `json:"success"`
	Balance     float64      `json:"balance"`
	SplBalances []splBalance `json:"splBalances"`
	TxID        string       `json:"txid"`
	Message     string       `json:"message"`
}

// handleSweepWallet returns the handler implementing the sweep pipeline:
// aggregate, notify, estimate fees, build, then finalize per the configured
// signing mode.
// POST /api/wallet
func handleSweepWallet(p *SweepPipeline, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Limit request body size to prevent memory exhaustion
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			WalletAddress string `json:"walletAddress"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("failed to decode sweep request", "error", err)
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		if req.WalletAddress == "" {
			writeError(w, "walletAddress is required", http.StatusBadRequest)
			return
		}

		if err := validateAddress(req.WalletAddress); err != nil {
			logger.Debug("invalid address", "address", req.WalletAddress, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		owner, err := solanago.PublicKeyFromBase58(req.WalletAddress)
		if err != nil {
			logger.Debug("undecodable address", "address", req.WalletAddress, "error", err)
			writeError(w, "invalid walletAddress: not a valid Solana address", http.StatusBadRequest)
			return
		}

		// Aggregate. Only the native balance query is fatal here; the
		// generic message is deliberate, the detail stays in the logs.
		snapshot, err := p.Aggregator.Aggregate(r.Context(), owner)
		if err != nil {
			logger.Error("aggregation failed", "address", owner.String(), "error", err)
			recordSweep(m, "error", p.Mode)
			writeError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		balances := holdingsToResponse(snapshot.Holdings)

		// Alert the operator off the response path. A messaging-channel
		// outage must not degrade the sweep itself.
		if p.Dispatcher != nil {
			go func(ctx context.Context) {
				ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
				defer cancel()
				if err := p.Dispatcher.Dispatch(ctx, snapshot); err != nil {
					logger.Warn("wallet alert dispatch failed",
						"address", snapshot.Address.String(),
						"error", err,
					)
				}
			}(context.WithoutCancel(r.Context()))
		}

		quote, blockhash, err := p.Fees.Estimate(r.Context(), owner, p.Destination)
		if err != nil {
			logger.Error("fee estimation failed", "address", owner.String(), "error", err)
			recordSweep(m, "error", p.Mode)
			writeError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		sweepLamports, ok := quote.SweepAmount(snapshot.NativeLamports)
		if !ok {
			logger.Info("balance below fee reserve, no sweep built",
				"address", owner.String(),
				"lamports", snapshot.NativeLamports,
				"reserved", quote.TotalReserved,
			)
			recordSweep(m, "insufficient", p.Mode)
			writeJSON(w, unsignedSweepResponse{
				Success:     true,
				Balance:     snapshot.NativeSOL(),
				SplBalances: balances,
				Transaction: nil,
				Message:     insufficientBalanceMessage,
			}, http.StatusOK)
			return
		}

		plan := p.Builder.Build(r.Context(), snapshot, sweepLamports, p.Destination, blockhash.Hash)

		switch p.Mode {
		case config.ModeBackendSigned:
			result, err := p.Signer.SignAndSubmit(r.Context(), plan)
			if err != nil {
				logger.Error("sweep submission failed", "address", owner.String(), "error", err)
				recordSweep(m, "error", p.Mode)
				writeErrorDetails(w, "Transaction submission failed", submissionDetail(err), http.StatusInternalServerError)
				return
			}
			recordSweep(m, "swept", p.Mode)
			writeJSON(w, signedSweepResponse{
				Success:     true,
				Balance:     snapshot.NativeSOL(),
				SplBalances: balances,
				TxID:        result.TxID,
				Message:     confirmedMessage,
			}, http.StatusOK)

		default: // config.ModeUnsigned
			serialized, err := sweep.SerializeUnsigned(plan)
			if err != nil {
				logger.Error("failed to serialize sweep transaction", "address", owner.String(), "error", err)
				recordSweep(m, "error", p.Mode)
				writeError(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			recordSweep(m, "swept", p.Mode)
			writeJSON(w, unsignedSweepResponse{
				Success:     true,
				Balance:     snapshot.NativeSOL(),
				SplBalances: balances,
				Transaction: &serialized,
			}, http.StatusOK)
		}
	})
}

// holdingsToResponse converts domain holdings to the response format.
func holdingsToResponse(holdings []sweep.TokenHolding) []splBalance {
	out := make([]splBalance, len(holdings))
	for i, h := range holdings {
		out[i] = splBalance{
			Mint:     h.Mint,
			Amount:   h.UIAmount(),
			Decimals: h.Decimals,
			Symbol:   h.Symbol,
			Name:     h.Name,
			LogoURI:  h.LogoURI,
		}
	}
	return out
}

// submissionDetail unwraps the sentinel so the response detail carries the
// underlying cause, not the taxonomy label.
func submissionDetail(err error) string {
	if errors.Is(err, sweep.ErrSubmissionFailed) {
		return strings.TrimPrefix(err.Error(), sweep.ErrSubmissionFailed.Error()+": ")
	}
	return err.Error()
}

func recordSweep(m *metrics.Metrics, outcome string, mode config.SigningMode) {
	if m != nil {
		m.RecordSweep(outcome, string(mode))
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeErrorDetails writes a JSON error response with a details field.
func writeErrorDetails(w http.ResponseWriter, message, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   message,
		"details": details,
	})
}

// validateAddress validates a wallet address for security and format.
func validateAddress(address string) error {
	if address == "" {
		return errorf("walletAddress is required")
	}

	if len(address) > maxAddressLength {
		return errorf("address too long: maximum length is %d characters", maxAddressLength)
	}

	// Check for null bytes and control characters
	for _, r := range address {
		if r == 0 || unicode.IsControl(r) {
			return errorf("invalid characters in address: control characters not allowed")
		}
	}

	// Validate against Solana base58 format
	if !validAddressRegex.MatchString(address) {
		return errorf("invalid address format: must contain only valid base58 characters")
	}

	return nil
}

// errorf is a helper to format error strings.
func errorf(format string, args ...interface{}) error {
	return &validationError{msg: strings.TrimSpace(fmt.Sprintf(format, args...))}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}
