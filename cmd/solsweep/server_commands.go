package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brojonat/solsweep/client"
	"github.com/urfave/cli/v2"
)

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check server health",
		Action: func(c *cli.Context) error {
			serverURL := c.String("server-url")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			cl := client.NewClient(serverURL, nil, nil)
			if err := cl.Health(ctx); err != nil {
				return fmt.Errorf("server unhealthy: %w", err)
			}

			fmt.Println("OK")
			return nil
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print CLI version information",
		Action: func(c *cli.Context) error {
			fmt.Printf("solsweep %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
