package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/brojonat/solsweep/client"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:      "sweep",
		Usage:     "Inspect a wallet and build its sweep transaction",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "HTTP server URL",
				EnvVars: []string{"SOLSWEEP_SERVER_URL"},
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq filter expression applied to the JSON response",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Value:   2 * time.Minute,
				Usage:   "How long to wait for the sweep (backend-signed mode blocks on confirmation)",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output raw response as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			address := c.Args().Get(0)
			serverURL := c.String("server")
			jqFilter := c.String("jq")
			timeout := c.Duration("timeout")
			jsonOutput := c.Bool("json")

			// Create logger
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError, // Only errors to stderr
			}))

			// Compile jq filter up front so bad expressions fail fast
			var compiled *gojq.Code
			if jqFilter != "" {
				query, err := gojq.Parse(jqFilter)
				if err != nil {
					return fmt.Errorf("failed to parse jq filter %q: %w", jqFilter, err)
				}
				compiled, err = gojq.Compile(query)
				if err != nil {
					return fmt.Errorf("failed to compile jq filter %q: %w", jqFilter, err)
				}
			}

			httpClient := &http.Client{
				Timeout: timeout + 30*time.Second, // Add buffer beyond server timeout
			}
			cl := client.NewClient(serverURL, httpClient, logger)

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			result, err := cl.Sweep(ctx, address)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}

			if compiled != nil {
				return printFiltered(result, compiled)
			}

			if jsonOutput {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal response: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			printSweepResult(result)
			return nil
		},
	}
}

// printFiltered runs the jq program over the response and prints each result.
func printFiltered(result *client.SweepResult, code *gojq.Code) error {
	// Round-trip through JSON so gojq sees plain maps and slices
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	iter := code.Run(doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("jq filter error: %w", err)
		}
		out, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal jq result: %w", err)
		}
		fmt.Println(string(out))
	}
	return nil
}

func printSweepResult(result *client.SweepResult) {
	fmt.Printf("Balance: %.9f SOL\n", result.Balance)

	if len(result.SplBalances) == 0 {
		fmt.Println("Tokens:  none")
	} else {
		fmt.Println("Tokens:")
		for _, t := range result.SplBalances {
			fmt.Printf("  %-12s %f (%s)\n", t.Symbol, t.Amount, t.Mint)
		}
	}

	switch {
	case result.TxID != "":
		fmt.Printf("TxID:    %s\n", result.TxID)
	case result.Transaction != nil:
		fmt.Printf("Unsigned transaction (base64):\n%s\n", *result.Transaction)
	}

	if result.Message != "" {
		fmt.Printf("Message: %s\n", result.Message)
	}
}
