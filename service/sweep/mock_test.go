package sweep

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/brojonat/solsweep/service/registry"
	"github.com/brojonat/solsweep/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
)

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
const wsolMint = "So11111111111111111111111111111111111111112"

// usdcTokenList is a minimal token-list document carrying the two mints the
// tests exercise, on the mainnet chain id.
const usdcTokenList = `{"tokens":[
	{"chainId":101,"address":"` + usdcMint + `","symbol":"USDC","name":"USD Coin","decimals":6,"logoURI":"https://example.com/usdc.png"},
	{"chainId":101,"address":"` + wsolMint + `","symbol":"SOL","name":"Wrapped SOL","decimals":9}
]}`

const emptyTokenList = `{"tokens":[]}`

// mockRPCClient implements the RPC surface the ledger client needs.
// Behavior-focused: canned return values, with counters where a test's
// contract is about how often something was called.
type mockRPCClient struct {
	mu sync.Mutex

	balance    uint64
	balanceErr error

	tokenAccounts    []*rpc.TokenAccount
	tokenAccountsErr error

	tokenBalance    *rpc.UiTokenAmount
	tokenBalanceErr error

	accountInfo    *rpc.Account
	accountInfoErr error

	blockhash    solanago.Hash
	blockhashErr error

	fee    *uint64
	feeErr error

	sendSig   solanago.Signature
	sendErr   error
	sendCalls int

	statuses    []*rpc.SignatureStatusesResult
	statusErr   error
	statusCalls int
}

func (m *mockRPCClient) GetBalance(
	ctx context.Context,
	account solanago.PublicKey,
	commitment rpc.CommitmentType,
) (*rpc.GetBalanceResult, error) {
	if m.balanceErr != nil {
		return nil, m.balanceErr
	}
	return &rpc.GetBalanceResult{Value: m.balance}, nil
}

func (m *mockRPCClient) GetTokenAccountsByOwner(
	ctx context.Context,
	owner solanago.PublicKey,
	conf *rpc.GetTokenAccountsConfig,
	opts *rpc.GetTokenAccountsOpts,
) (*rpc.GetTokenAccountsResult, error) {
	if m.tokenAccountsErr != nil {
		return nil, m.tokenAccountsErr
	}
	return &rpc.GetTokenAccountsResult{Value: m.tokenAccounts}, nil
}

func (m *mockRPCClient) GetTokenAccountBalance(
	ctx context.Context,
	account solanago.PublicKey,
	commitment rpc.CommitmentType,
) (*rpc.GetTokenAccountBalanceResult, error) {
	if m.tokenBalanceErr != nil {
		return nil, m.tokenBalanceErr
	}
	return &rpc.GetTokenAccountBalanceResult{Value: m.tokenBalance}, nil
}

func (m *mockRPCClient) GetAccountInfo(
	ctx context.Context,
	account solanago.PublicKey,
) (*rpc.GetAccountInfoResult, error) {
	if m.accountInfoErr != nil {
		return nil, m.accountInfoErr
	}
	return &rpc.GetAccountInfoResult{Value: m.accountInfo}, nil
}

func (m *mockRPCClient) GetLatestBlockhash(
	ctx context.Context,
	commitment rpc.CommitmentType,
) (*rpc.GetLatestBlockhashResult, error) {
	if m.blockhashErr != nil {
		return nil, m.blockhashErr
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{
			Blockhash:            m.blockhash,
			LastValidBlockHeight: 1000,
		},
	}, nil
}

func (m *mockRPCClient) GetFeeForMessage(
	ctx context.Context,
	message string,
	commitment rpc.CommitmentType,
) (*rpc.GetFeeForMessageResult, error) {
	if m.feeErr != nil {
		return nil, m.feeErr
	}
	return &rpc.GetFeeForMessageResult{Value: m.fee}, nil
}

func (m *mockRPCClient) SendTransactionWithOpts(
	ctx context.Context,
	tx *solanago.Transaction,
	opts rpc.TransactionOpts,
) (solanago.Signature, error) {
	m.mu.Lock()
	m.sendCalls++
	m.mu.Unlock()
	if m.sendErr != nil {
		return solanago.Signature{}, m.sendErr
	}
	return m.sendSig, nil
}

func (m *mockRPCClient) GetSignatureStatuses(
	ctx context.Context,
	searchTransactionHistory bool,
	signatures ...solanago.Signature,
) (*rpc.GetSignatureStatusesResult, error) {
	m.mu.Lock()
	m.statusCalls++
	m.mu.Unlock()
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return &rpc.GetSignatureStatusesResult{Value: m.statuses}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLedger(mock *mockRPCClient) *solana.Client {
	return solana.NewClient(mock, "devnet", nil, testLogger())
}

// loadedRegistry serves the given token-list body from a test HTTP server
// and returns a registry that has completed its one-time load.
func loadedRegistry(t *testing.T, body string) *registry.Registry {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	reg := registry.New(srv.URL, 101, nil, testLogger())
	require.NoError(t, reg.Load(context.Background()))
	return reg
}

// rawAccountData wraps raw bytes the way the RPC layer delivers them.
func rawAccountData(t *testing.T, data []byte) *rpc.DataBytesOrJSON {
	t.Helper()
	payload, err := json.Marshal([]string{base64.StdEncoding.EncodeToString(data), "base64"})
	require.NoError(t, err)
	out := new(rpc.DataBytesOrJSON)
	require.NoError(t, json.Unmarshal(payload, out))
	return out
}

func tokenAccountData(t *testing.T, mint, owner solanago.PublicKey, amount uint64) *rpc.DataBytesOrJSON {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bin.NewBinEncoder(&buf).Encode(token.Account{
		Mint:   mint,
		Owner:  owner,
		Amount: amount,
	}))
	return rawAccountData(t, buf.Bytes())
}

func mintAccountData(t *testing.T, decimals uint8) *rpc.DataBytesOrJSON {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bin.NewBinEncoder(&buf).Encode(token.Mint{
		Decimals:      decimals,
		IsInitialized: true,
	}))
	return rawAccountData(t, buf.Bytes())
}
