package sweep

import (
	"context"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate_QuotedFee(t *testing.T) {
	ctx := context.Background()
	fee := uint64(5000)
	hash := solanago.Hash(solanago.NewWallet().PublicKey())
	mock := &mockRPCClient{fee: &fee, blockhash: hash}
	est := NewFeeEstimator(newTestLedger(mock), 2, testLogger())

	quote, blockhash, err := est.Estimate(ctx, solanago.NewWallet().PublicKey(), solanago.NewWallet().PublicKey())

	require.NoError(t, err)
	assert.Equal(t, uint64(5000), quote.PerSignature)
	assert.Equal(t, uint64(2), quote.BufferMultiplier)
	assert.Equal(t, uint64(10000), quote.TotalReserved)
	assert.Equal(t, hash, blockhash.Hash)
}

func TestEstimate_FallbackFloorWhenFeeUnavailable(t *testing.T) {
	ctx := context.Background()
	mock := &mockRPCClient{fee: nil}
	est := NewFeeEstimator(newTestLedger(mock), 3, testLogger())

	quote, _, err := est.Estimate(ctx, solanago.NewWallet().PublicKey(), solanago.NewWallet().PublicKey())

	require.NoError(t, err)
	assert.Equal(t, uint64(5000), quote.PerSignature)
	assert.Equal(t, uint64(15000), quote.TotalReserved)
}

func TestEstimate_BlockhashError(t *testing.T) {
	ctx := context.Background()
	mock := &mockRPCClient{blockhashErr: assert.AnError}
	est := NewFeeEstimator(newTestLedger(mock), 2, testLogger())

	_, _, err := est.Estimate(ctx, solanago.NewWallet().PublicKey(), solanago.NewWallet().PublicKey())

	require.ErrorIs(t, err, ErrFeeQuery)
}

func TestEstimate_FeeQueryError(t *testing.T) {
	ctx := context.Background()
	mock := &mockRPCClient{feeErr: assert.AnError}
	est := NewFeeEstimator(newTestLedger(mock), 2, testLogger())

	_, _, err := est.Estimate(ctx, solanago.NewWallet().PublicKey(), solanago.NewWallet().PublicKey())

	require.ErrorIs(t, err, ErrFeeQuery)
}

func TestFeeQuote_SweepAmount(t *testing.T) {
	quote := FeeQuote{PerSignature: 5000, BufferMultiplier: 2, TotalReserved: 10000}

	tests := []struct {
		name       string
		lamports   uint64
		wantAmount uint64
		wantOK     bool
	}{
		{name: "below reserve", lamports: 9999, wantAmount: 0, wantOK: false},
		{name: "exactly reserve", lamports: 10000, wantAmount: 0, wantOK: false},
		{name: "one above reserve", lamports: 10001, wantAmount: 1, wantOK: true},
		{name: "comfortable balance", lamports: 1_000_000_000, wantAmount: 999_990_000, wantOK: true},
		{name: "zero balance", lamports: 0, wantAmount: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, ok := quote.SweepAmount(tt.lamports)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantAmount, amount)
		})
	}
}
