package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// TokenMeta is the display metadata for a mint.
type TokenMeta struct {
	Decimals uint8
	Symbol   string
	Name     string
	LogoURI  string
}

// tokenListEntry matches the Solana token-list JSON schema.
type tokenListEntry struct {
	ChainID  int    `json:"chainId"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
	LogoURI  string `json:"logoURI"`
}

type tokenList struct {
	Tokens []tokenListEntry `json:"tokens"`
}

// Registry is a process-wide mint -> metadata lookup table.
// It is populated exactly once at startup and read-only afterwards, so
// concurrent lookups need no locking. Requests gate on WaitReady instead
// of racing the initial load.
type Registry struct {
	url        string
	chainID    int
	httpClient *http.Client
	logger     *slog.Logger

	ready   chan struct{}
	loadMu  sync.Once
	entries map[string]TokenMeta
}

// New creates an unloaded registry scoped to the given token-list chain id
// (101 mainnet, 103 devnet). Call Load once, typically from a goroutine in
// main, then gate reads with WaitReady.
func New(url string, chainID int, httpClient *http.Client, logger *slog.Logger) *Registry {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Registry{
		url:        url,
		chainID:    chainID,
		httpClient: httpClient,
		logger:     logger,
		ready:      make(chan struct{}),
		entries:    map[string]TokenMeta{},
	}
}

// Load fetches and indexes the token list. It runs at most once; later
// calls are no-ops. The registry always becomes ready, even on failure:
// an empty registry is valid and every lookup then falls through to the
// on-chain fallback chain.
func (r *Registry) Load(ctx context.Context) error {
	var loadErr error
	r.loadMu.Do(func() {
		defer close(r.ready)
		loadErr = r.load(ctx)
		if loadErr != nil {
			r.logger.Error("token registry load failed, continuing with empty registry",
				"url", r.url,
				"error", loadErr,
			)
		}
	})
	return loadErr
}

func (r *Registry) load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create token list request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token list request returned status %d", resp.StatusCode)
	}

	var list tokenList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return fmt.Errorf("failed to decode token list: %w", err)
	}

	for _, entry := range list.Tokens {
		if entry.ChainID != r.chainID {
			continue
		}
		r.entries[entry.Address] = TokenMeta{
			Decimals: entry.Decimals,
			Symbol:   entry.Symbol,
			Name:     entry.Name,
			LogoURI:  entry.LogoURI,
		}
	}

	r.logger.Info("token registry loaded",
		"url", r.url,
		"chain_id", r.chainID,
		"tokens", len(r.entries),
	)
	return nil
}

// WaitReady blocks until the one-time load has finished or the context is
// canceled. Request handling must call this before any Lookup.
func (r *Registry) WaitReady(ctx context.Context) error {
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("token registry not ready: %w", ctx.Err())
	}
}

// Lookup returns the metadata for a mint, if known.
// Only valid after WaitReady has returned.
func (r *Registry) Lookup(mint string) (TokenMeta, bool) {
	meta, ok := r.entries[mint]
	return meta, ok
}

// Size returns the number of loaded entries.
func (r *Registry) Size() int {
	return len(r.entries)
}
