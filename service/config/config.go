package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
)

// SigningMode selects how a built sweep transaction is finalized.
// It is resolved exactly once at config load; the two modes are
// mutually exclusive for the lifetime of the process.
type SigningMode string

const (
	// ModeUnsigned returns the serialized unsigned transaction to the
	// caller, who is responsible for signing and broadcasting it.
	ModeUnsigned SigningMode = "unsigned"

	// ModeBackendSigned signs with the configured backend key, submits
	// the transaction, and waits for confirmation.
	ModeBackendSigned SigningMode = "backend-signed"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Solana configuration
	SolanaRPCURL  string
	SolanaNetwork string // "mainnet" or "devnet"

	// Sweep configuration
	DestinationAddress  string
	SigningKey          string // optional base58 private key; empty selects unsigned mode
	FeeBufferMultiplier uint64
	ConfirmTimeout      time.Duration

	// Token registry configuration
	TokenListURL string

	// NATS configuration (operator alerts)
	NATSURL      string
	AlertSubject string
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Solana configuration
	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	cfg.SolanaNetwork = getEnvOrDefault("SOLANA_NETWORK", "mainnet")
	if cfg.SolanaNetwork != "mainnet" && cfg.SolanaNetwork != "devnet" {
		errs = append(errs, fmt.Errorf("SOLANA_NETWORK must be 'mainnet' or 'devnet', got %q", cfg.SolanaNetwork))
	}

	// Sweep configuration
	cfg.DestinationAddress = os.Getenv("SWEEP_DESTINATION_ADDRESS")
	if cfg.DestinationAddress == "" {
		errs = append(errs, fmt.Errorf("SWEEP_DESTINATION_ADDRESS is required"))
	} else if _, err := solana.PublicKeyFromBase58(cfg.DestinationAddress); err != nil {
		errs = append(errs, fmt.Errorf("SWEEP_DESTINATION_ADDRESS: invalid address: %w", err))
	}

	// Optional: absence is a valid, expected state and selects unsigned mode.
	cfg.SigningKey = os.Getenv("SWEEP_SIGNING_KEY")
	if cfg.SigningKey != "" {
		if _, err := solana.PrivateKeyFromBase58(cfg.SigningKey); err != nil {
			errs = append(errs, fmt.Errorf("SWEEP_SIGNING_KEY: invalid private key: %w", err))
		}
	}

	feeBuffer, err := parseUint("FEE_BUFFER_MULTIPLIER", 2)
	if err != nil {
		errs = append(errs, err)
	} else if feeBuffer == 0 {
		errs = append(errs, fmt.Errorf("FEE_BUFFER_MULTIPLIER must be at least 1"))
	} else {
		cfg.FeeBufferMultiplier = feeBuffer
	}

	confirmTimeout, err := parseDuration("CONFIRM_TIMEOUT", "60s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmTimeout = confirmTimeout
	}

	// Token registry configuration
	cfg.TokenListURL = getEnvOrDefault("TOKEN_LIST_URL",
		"https://raw.githubusercontent.com/solana-labs/token-list/main/src/tokens/solana.tokenlist.json")

	// NATS configuration
	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")
	cfg.AlertSubject = getEnvOrDefault("ALERT_SUBJECT", "alerts.wallet")

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Mode returns the signing mode selected by this configuration.
// Presence of a signing key selects backend-signed mode; this is decided
// once here rather than checked inline in the request handler.
func (c *Config) Mode() SigningMode {
	if c.SigningKey != "" {
		return ModeBackendSigned
	}
	return ModeUnsigned
}

// Destination returns the parsed sweep destination public key.
// Load already validated the address, so this never fails after MustLoad.
func (c *Config) Destination() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.DestinationAddress)
}

// Signer returns the parsed backend signing key.
// Only meaningful when Mode() == ModeBackendSigned.
func (c *Config) Signer() solana.PrivateKey {
	return solana.MustPrivateKeyFromBase58(c.SigningKey)
}

// ChainID returns the token-list chain id for the active network.
func (c *Config) ChainID() int {
	if c.SolanaNetwork == "devnet" {
		return 103
	}
	return 101
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.SolanaNetwork != "mainnet" && c.SolanaNetwork != "devnet" {
		errs = append(errs, fmt.Errorf("SolanaNetwork must be 'mainnet' or 'devnet'"))
	}

	if c.DestinationAddress == "" {
		errs = append(errs, fmt.Errorf("DestinationAddress is required"))
	} else if _, err := solana.PublicKeyFromBase58(c.DestinationAddress); err != nil {
		errs = append(errs, fmt.Errorf("DestinationAddress is not a valid address"))
	}

	if c.SigningKey != "" {
		if _, err := solana.PrivateKeyFromBase58(c.SigningKey); err != nil {
			errs = append(errs, fmt.Errorf("SigningKey is not a valid private key"))
		}
	}

	if c.FeeBufferMultiplier == 0 {
		errs = append(errs, fmt.Errorf("FeeBufferMultiplier must be at least 1"))
	}

	if c.ConfirmTimeout < time.Second {
		errs = append(errs, fmt.Errorf("ConfirmTimeout must be at least 1 second"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseUint parses an unsigned integer from an environment variable or uses a default.
func parseUint(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
