package sweep

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan(owner, destination solanago.PublicKey) *TransactionPlan {
	blockhash := solanago.Hash(solanago.NewWallet().PublicKey())
	return &TransactionPlan{
		FeePayer:    owner,
		Destination: destination,
		Instructions: []solanago.Instruction{
			system.NewTransferInstruction(500_000, owner, destination).Build(),
			solanago.NewInstruction(solanago.MemoProgramID, solanago.AccountMetaSlice{}, []byte("solsweep: consolidated wallet balances")),
		},
		Blockhash: blockhash,
	}
}

func TestSignAndSubmit_Confirmed(t *testing.T) {
	ctx := context.Background()
	wallet := solanago.NewWallet()
	destination := solanago.NewWallet().PublicKey()
	sig := solanago.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")

	mock := &mockRPCClient{
		sendSig: sig,
		statuses: []*rpc.SignatureStatusesResult{
			{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
		},
	}
	signer := NewSigner(newTestLedger(mock), wallet.PrivateKey, 10*time.Second, "devnet", nil, testLogger())

	result, err := signer.SignAndSubmit(ctx, testPlan(wallet.PublicKey(), destination))

	require.NoError(t, err)
	assert.Equal(t, sig.String(), result.TxID)
	assert.Equal(t, "confirmed", result.ConfirmationStatus)
	assert.Equal(t, 1, mock.sendCalls)
	assert.Equal(t, 1, mock.statusCalls)
}

func TestSignAndSubmit_WrongKey(t *testing.T) {
	ctx := context.Background()
	owner := solanago.NewWallet().PublicKey()
	destination := solanago.NewWallet().PublicKey()

	// The backend key does not match the fee payer, so signing cannot
	// produce a complete signature set.
	mock := &mockRPCClient{}
	signer := NewSigner(newTestLedger(mock), solanago.NewWallet().PrivateKey, 10*time.Second, "devnet", nil, testLogger())

	_, err := signer.SignAndSubmit(ctx, testPlan(owner, destination))

	require.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Equal(t, 0, mock.sendCalls)
}

func TestSignAndSubmit_BroadcastError(t *testing.T) {
	ctx := context.Background()
	wallet := solanago.NewWallet()
	destination := solanago.NewWallet().PublicKey()

	mock := &mockRPCClient{sendErr: assert.AnError}
	signer := NewSigner(newTestLedger(mock), wallet.PrivateKey, 10*time.Second, "devnet", nil, testLogger())

	_, err := signer.SignAndSubmit(ctx, testPlan(wallet.PublicKey(), destination))

	require.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Contains(t, err.Error(), "broadcast")
	assert.Equal(t, 0, mock.statusCalls)
}

func TestSignAndSubmit_OnChainFailure(t *testing.T) {
	ctx := context.Background()
	wallet := solanago.NewWallet()
	destination := solanago.NewWallet().PublicKey()
	sig := solanago.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")

	mock := &mockRPCClient{
		sendSig: sig,
		statuses: []*rpc.SignatureStatusesResult{
			{Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom error"}}},
		},
	}
	signer := NewSigner(newTestLedger(mock), wallet.PrivateKey, 10*time.Second, "devnet", nil, testLogger())

	_, err := signer.SignAndSubmit(ctx, testPlan(wallet.PublicKey(), destination))

	require.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Contains(t, err.Error(), "confirmation")
}

func TestSerializeUnsigned_RoundTrip(t *testing.T) {
	owner := solanago.NewWallet().PublicKey()
	destination := solanago.NewWallet().PublicKey()
	plan := testPlan(owner, destination)

	serialized, err := SerializeUnsigned(plan)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(serialized)
	require.NoError(t, err)

	recovered, err := solanago.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(t, err)

	require.Len(t, recovered.Message.Instructions, 2)
	assert.Equal(t, owner, recovered.Message.AccountKeys[0])
	assert.Equal(t, plan.Blockhash, recovered.Message.RecentBlockhash)
}

func TestSerializeUnsigned_Idempotent(t *testing.T) {
	owner := solanago.NewWallet().PublicKey()
	destination := solanago.NewWallet().PublicKey()
	plan := testPlan(owner, destination)

	first, err := SerializeUnsigned(plan)
	require.NoError(t, err)
	second, err := SerializeUnsigned(plan)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
