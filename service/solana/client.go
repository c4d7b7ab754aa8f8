package solana

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/brojonat/solsweep/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrFeeUnavailable is returned when the node reports no fee for a message.
// Callers are expected to fall back to a static per-signature floor.
var ErrFeeUnavailable = errors.New("fee not available for message")

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetBalance(
		ctx context.Context,
		account solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetBalanceResult, error)

	GetTokenAccountsByOwner(
		ctx context.Context,
		owner solana.PublicKey,
		conf *rpc.GetTokenAccountsConfig,
		opts *rpc.GetTokenAccountsOpts,
	) (*rpc.GetTokenAccountsResult, error)

	GetTokenAccountBalance(
		ctx context.Context,
		account solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetTokenAccountBalanceResult, error)

	GetAccountInfo(
		ctx context.Context,
		account solana.PublicKey,
	) (*rpc.GetAccountInfoResult, error)

	GetLatestBlockhash(
		ctx context.Context,
		commitment rpc.CommitmentType,
	) (*rpc.GetLatestBlockhashResult, error)

	GetFeeForMessage(
		ctx context.Context,
		message string,
		commitment rpc.CommitmentType,
	) (*rpc.GetFeeForMessageResult, error)

	SendTransactionWithOpts(
		ctx context.Context,
		tx *solana.Transaction,
		opts rpc.TransactionOpts,
	) (solana.Signature, error)

	GetSignatureStatuses(
		ctx context.Context,
		searchTransactionHistory bool,
		signatures ...solana.Signature,
	) (*rpc.GetSignatureStatusesResult, error)
}

// Client provides the ledger read/write operations the sweep pipeline needs.
// It wraps the RPC client with domain-specific operations.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g., "mainnet", "devnet", rpc host)
}

// NewClient creates a new Solana ledger client.
// The endpoint parameter is used for metrics labeling (e.g., "mainnet", "devnet", or RPC hostname).
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:      rpcClient,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// recordCall records one RPC call outcome against the metrics collector.
func (c *Client) recordCall(method string, err error, start time.Time) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
}

// NativeBalance returns the lamport balance held directly by the address.
func (c *Client) NativeBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	start := time.Now()
	out, err := c.rpc.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	c.recordCall("GetBalance", err, start)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get balance",
			"owner", owner.String(),
			"error", err,
		)
		return 0, err
	}
	return out.Value, nil
}

// TokenAccounts returns all SPL token accounts owned by the address under the
// Token program. Accounts whose data cannot be decoded are dropped with a
// warning rather than failing the whole query.
func (c *Client) TokenAccounts(ctx context.Context, owner solana.PublicKey) ([]TokenAccount, error) {
	start := time.Now()
	out, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{
			ProgramId: solana.TokenProgramID.ToPointer(),
		},
		&rpc.GetTokenAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Encoding:   solana.EncodingBase64,
		},
	)
	c.recordCall("GetTokenAccountsByOwner", err, start)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get token accounts",
			"owner", owner.String(),
			"error", err,
		)
		return nil, err
	}

	accounts := make([]TokenAccount, 0, len(out.Value))
	for _, raw := range out.Value {
		var parsed token.Account
		if err := bin.NewBinDecoder(raw.Account.Data.GetBinary()).Decode(&parsed); err != nil {
			c.logger.WarnContext(ctx, "failed to decode token account, dropping",
				"account", raw.Pubkey.String(),
				"error", err,
			)
			continue
		}
		accounts = append(accounts, TokenAccount{
			Address: raw.Pubkey,
			Mint:    parsed.Mint,
			Amount:  parsed.Amount,
		})
	}

	c.logger.DebugContext(ctx, "fetched token accounts",
		"owner", owner.String(),
		"count", len(accounts),
	)
	return accounts, nil
}

// TokenAccountBalance returns the current raw amount and decimals of one
// token account. This is the authoritative re-read used at build time.
func (c *Client) TokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, uint8, error) {
	start := time.Now()
	out, err := c.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	c.recordCall("GetTokenAccountBalance", err, start)
	if err != nil {
		return 0, 0, err
	}
	if out.Value == nil {
		return 0, 0, fmt.Errorf("empty balance result for %s", account)
	}
	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid token amount %q: %w", out.Value.Amount, err)
	}
	return amount, out.Value.Decimals, nil
}

// MintDecimals reads the mint account and returns its decimals.
// Used as the fallback when the token registry has no entry for a mint.
func (c *Client) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	start := time.Now()
	out, err := c.rpc.GetAccountInfo(ctx, mint)
	c.recordCall("GetAccountInfo", err, start)
	if err != nil {
		return 0, err
	}
	if out.Value == nil {
		return 0, fmt.Errorf("mint account %s not found", mint)
	}
	var parsed token.Mint
	if err := bin.NewBinDecoder(out.Value.Data.GetBinary()).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode mint account %s: %w", mint, err)
	}
	return parsed.Decimals, nil
}

// LatestBlockhash returns a recent block reference for transaction assembly.
func (c *Client) LatestBlockhash(ctx context.Context) (Blockhash, error) {
	start := time.Now()
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	c.recordCall("GetLatestBlockhash", err, start)
	if err != nil {
		return Blockhash{}, err
	}
	return Blockhash{
		Hash:                 out.Value.Blockhash,
		LastValidBlockHeight: out.Value.LastValidBlockHeight,
	}, nil
}

// FeeForMessage queries the network fee for the given compiled message.
// Returns ErrFeeUnavailable when the node has no fee for it (e.g. the
// blockhash expired), so callers can apply a static floor instead.
func (c *Client) FeeForMessage(ctx context.Context, msg *solana.Message) (uint64, error) {
	data, err := msg.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("failed to serialize message: %w", err)
	}

	start := time.Now()
	out, err := c.rpc.GetFeeForMessage(ctx, base64.StdEncoding.EncodeToString(data), rpc.CommitmentConfirmed)
	c.recordCall("GetFeeForMessage", err, start)
	if err != nil {
		return 0, err
	}
	if out.Value == nil {
		return 0, ErrFeeUnavailable
	}
	return *out.Value, nil
}

// Submit broadcasts a fully signed transaction and returns its signature.
func (c *Client) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	start := time.Now()
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	c.recordCall("SendTransaction", err, start)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to submit transaction", "error", err)
		return solana.Signature{}, err
	}
	c.logger.InfoContext(ctx, "transaction submitted", "signature", sig.String())
	return sig, nil
}

// AwaitConfirmation polls signature status until the ledger reports the
// transaction confirmed or finalized, the transaction fails on chain, or
// the timeout elapses. Returns the final confirmation status string.
func (c *Client) AwaitConfirmation(ctx context.Context, sig solana.Signature, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		start := time.Now()
		out, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		c.recordCall("GetSignatureStatuses", err, start)
		if err != nil {
			return "", err
		}

		if len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return "", fmt.Errorf("transaction %s failed on chain: %v", sig, status.Err)
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				c.logger.InfoContext(ctx, "transaction confirmed",
					"signature", sig.String(),
					"status", string(status.ConfirmationStatus),
				)
				return string(status.ConfirmationStatus), nil
			}
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("confirmation of %s timed out: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}
