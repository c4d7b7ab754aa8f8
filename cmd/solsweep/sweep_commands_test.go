package main

import (
	"encoding/json"
	"testing"

	"github.com/brojonat/solsweep/client"
	"github.com/itchyny/gojq"
)

func TestJQFilterOverSweepResponse(t *testing.T) {
	tx := "dGVzdA=="
	result := &client.SweepResult{
		Success: true,
		Balance: 1.5,
		SplBalances: []client.TokenBalance{
			{Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Amount: 2.5, Decimals: 6, Symbol: "USDC", Name: "USD Coin"},
			{Mint: "So11111111111111111111111111111111111111112", Amount: 1, Decimals: 9, Symbol: "SOL", Name: "Wrapped SOL"},
		},
		Transaction: &tx,
	}

	tests := []struct {
		name     string
		jqFilter string
		expected interface{}
	}{
		{
			name:     "extract balance",
			jqFilter: `.balance`,
			expected: 1.5,
		},
		{
			name:     "count holdings",
			jqFilter: `.splBalances | length`,
			expected: 2,
		},
		{
			name:     "first symbol",
			jqFilter: `.splBalances[0].symbol`,
			expected: "USDC",
		},
		{
			name:     "transaction present",
			jqFilter: `.transaction != null`,
			expected: true,
		},
		{
			name:     "no txid on unsigned path",
			jqFilter: `has("txid")`,
			expected: false,
		},
	}

	// Round-trip through JSON so gojq sees plain maps and slices, the same
	// way printFiltered feeds it.
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := gojq.Parse(tt.jqFilter)
			if err != nil {
				t.Fatalf("failed to parse jq filter: %v", err)
			}
			code, err := gojq.Compile(query)
			if err != nil {
				t.Fatalf("failed to compile jq filter: %v", err)
			}

			iter := code.Run(doc)
			v, ok := iter.Next()
			if !ok {
				t.Fatal("jq filter returned no result")
			}
			if err, isErr := v.(error); isErr {
				t.Fatalf("jq filter error: %v", err)
			}

			// gojq yields numbers as int or float64 depending on the value
			var got interface{} = v
			if f, isFloat := v.(float64); isFloat && f == float64(int(f)) {
				if _, wantInt := tt.expected.(int); wantInt {
					got = int(f)
				}
			}
			if got != tt.expected {
				t.Errorf("expected %v (%T), got %v (%T)", tt.expected, tt.expected, got, got)
			}
		})
	}
}

func TestJQFilter_InvalidExpression(t *testing.T) {
	if _, err := gojq.Parse(`.balance |`); err == nil {
		t.Fatal("expected parse error for dangling pipe")
	}
}
