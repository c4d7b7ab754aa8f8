package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// TokenBalance is one SPL holding reported by the service.
type TokenBalance struct {
	Mint     string  `json:"mint"`
	Amount   float64 `json:"amount"`
	Decimals uint8   `json:"decimals"`
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	LogoURI  string  `json:"logoURI,omitempty"`
}

// SweepResult is the service's response to a sweep request.
// Transaction is set on the unsigned path, TxID on the backend-signed path;
// both are empty when the balance was below the fee reserve.
type SweepResult struct {
	Success     bool           `json:"success"`
	Balance     float64        `json:"balance"`
	SplBalances []TokenBalance `json:"splBalances"`
	Transaction *string        `json:"transaction,omitempty"`
	TxID        string         `json:"txid,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// Client is the HTTP client for the solsweep service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new sweep service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		// Sweeps in backend-signed mode block on confirmation polling,
		// so the default timeout is generous.
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Sweep asks the service to inspect the wallet and build its sweep.
func (c *Client) Sweep(ctx context.Context, address string) (*SweepResult, error) {
	body, err := json.Marshal(map[string]string{
		"walletAddress": address,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/wallet", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result SweepResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("sweep completed",
		"address", address,
		"balance", result.Balance,
		"holdings", len(result.SplBalances),
	)
	return &result, nil
}

// Health checks the service health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// parseErrorResponse extracts the error and optional details from a
// non-200 response body.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var apiErr struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if apiErr.Details != "" {
		return fmt.Errorf("%s: %s", apiErr.Error, apiErr.Details)
	}
	return fmt.Errorf("%s", apiErr.Error)
}
