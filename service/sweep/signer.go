package sweep

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/solsweep/service/metrics"
	"github.com/brojonat/solsweep/service/solana"
	solanago "github.com/gagliardetto/solana-go"
)

// Signer holds the backend signing credential and turns built plans into
// submitted, confirmed transactions. It is read-only process-wide state,
// safe for concurrent use; each request consumes an independent plan.
type Signer struct {
	ledger         *solana.Client
	key            solanago.PrivateKey
	confirmTimeout time.Duration
	metrics        *metrics.Metrics
	logger         *slog.Logger
	network        string
}

// NewSigner creates a signing authority around a backend private key.
func NewSigner(ledger *solana.Client, key solanago.PrivateKey, confirmTimeout time.Duration, network string, m *metrics.Metrics, logger *slog.Logger) *Signer {
	return &Signer{
		ledger:         ledger,
		key:            key,
		confirmTimeout: confirmTimeout,
		metrics:        m,
		logger:         logger,
		network:        network,
	}
}

// PublicKey returns the signer's address.
func (s *Signer) PublicKey() solanago.PublicKey {
	return s.key.PublicKey()
}

// SignAndSubmit signs the plan with the backend key as sole signer,
// broadcasts it, and blocks until the ledger reports confirmation.
// Any failure along the way fails the whole request with
// ErrSubmissionFailed carrying the underlying detail.
func (s *Signer) SignAndSubmit(ctx context.Context, plan *TransactionPlan) (*SubmissionResult, error) {
	tx, err := plan.Transaction()
	if err != nil {
		return nil, fmt.Errorf("%w: assembly: %v", ErrSubmissionFailed, err)
	}

	_, err = tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		if key.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSubmission("sign_error")
		}
		return nil, fmt.Errorf("%w: signing: %v", ErrSubmissionFailed, err)
	}

	sig, err := s.ledger.Submit(ctx, tx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSubmission("submit_error")
		}
		return nil, fmt.Errorf("%w: broadcast: %v", ErrSubmissionFailed, err)
	}

	start := time.Now()
	status, err := s.ledger.AwaitConfirmation(ctx, sig, s.confirmTimeout)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSubmission("confirm_error")
		}
		return nil, fmt.Errorf("%w: confirmation: %v", ErrSubmissionFailed, err)
	}

	if s.metrics != nil {
		s.metrics.RecordSubmission("confirmed")
		s.metrics.RecordConfirmation(s.network, time.Since(start).Seconds())
	}

	s.logger.InfoContext(ctx, "sweep transaction confirmed",
		"txid", sig.String(),
		"status", status,
	)

	return &SubmissionResult{
		TxID:               sig.String(),
		ConfirmationStatus: status,
	}, nil
}

// SerializeUnsigned encodes the plan as a base64 transaction with no
// signatures attached, for external signing and broadcast by the caller.
func SerializeUnsigned(plan *TransactionPlan) (string, error) {
	tx, err := plan.Transaction()
	if err != nil {
		return "", fmt.Errorf("failed to assemble transaction: %w", err)
	}
	data, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
