package config

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDestination = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SOLANA_RPC_URL", "https://api.devnet.solana.com")
	t.Setenv("SWEEP_DESTINATION_ADDRESS", testDestination)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SOLANA_NETWORK", "")
	t.Setenv("SWEEP_SIGNING_KEY", "")
	t.Setenv("FEE_BUFFER_MULTIPLIER", "")
	t.Setenv("CONFIRM_TIMEOUT", "")
	t.Setenv("SERVER_ADDR", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "mainnet", cfg.SolanaNetwork)
	assert.Equal(t, uint64(2), cfg.FeeBufferMultiplier)
	assert.Equal(t, 60*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, ModeUnsigned, cfg.Mode())
	assert.Equal(t, 101, cfg.ChainID())
	assert.Equal(t, testDestination, cfg.Destination().String())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "")
	t.Setenv("SWEEP_DESTINATION_ADDRESS", "")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOLANA_RPC_URL")
	assert.Contains(t, err.Error(), "SWEEP_DESTINATION_ADDRESS")
}

func TestLoad_BackendSignedMode(t *testing.T) {
	setRequiredEnv(t)
	wallet := solana.NewWallet()
	t.Setenv("SWEEP_SIGNING_KEY", wallet.PrivateKey.String())

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ModeBackendSigned, cfg.Mode())
	assert.Equal(t, wallet.PublicKey(), cfg.Signer().PublicKey())
}

func TestLoad_InvalidSigningKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SWEEP_SIGNING_KEY", "not-a-key")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SWEEP_SIGNING_KEY")
}

func TestLoad_InvalidNetwork(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SOLANA_NETWORK", "testnet")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOLANA_NETWORK")
}

func TestLoad_InvalidDestination(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "https://api.devnet.solana.com")
	t.Setenv("SWEEP_DESTINATION_ADDRESS", "garbage!!!")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SWEEP_DESTINATION_ADDRESS")
}

func TestLoad_ZeroFeeBuffer(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FEE_BUFFER_MULTIPLIER", "0")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "FEE_BUFFER_MULTIPLIER")
}

func TestChainID(t *testing.T) {
	assert.Equal(t, 101, (&Config{SolanaNetwork: "mainnet"}).ChainID())
	assert.Equal(t, 103, (&Config{SolanaNetwork: "devnet"}).ChainID())
}

func TestValidate(t *testing.T) {
	valid := Config{
		SolanaRPCURL:        "https://api.devnet.solana.com",
		SolanaNetwork:       "devnet",
		DestinationAddress:  testDestination,
		FeeBufferMultiplier: 2,
		ConfirmTimeout:      60 * time.Second,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing RPC URL",
			mutate:  func(c *Config) { c.SolanaRPCURL = "" },
			wantErr: "SolanaRPCURL",
		},
		{
			name:    "bad network",
			mutate:  func(c *Config) { c.SolanaNetwork = "localnet" },
			wantErr: "SolanaNetwork",
		},
		{
			name:    "missing destination",
			mutate:  func(c *Config) { c.DestinationAddress = "" },
			wantErr: "DestinationAddress",
		},
		{
			name:    "bad signing key",
			mutate:  func(c *Config) { c.SigningKey = "nope" },
			wantErr: "SigningKey",
		},
		{
			name:    "zero fee buffer",
			mutate:  func(c *Config) { c.FeeBufferMultiplier = 0 },
			wantErr: "FeeBufferMultiplier",
		},
		{
			name:    "confirm timeout too short",
			mutate:  func(c *Config) { c.ConfirmTimeout = 10 * time.Millisecond },
			wantErr: "ConfirmTimeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
