// Package main provides the flightline API server and its operator tools.
package main

import (
	"context"
	"os"

	"github.com/dukex/flightline/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("flightline")

	cmd := &cli.Command{
		Name:                  "flightline",
		Usage:                 "Track aircraft through BFS, pilot acceptance, post-flying and AFS",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			RunAPICommand(),
			HashPINCommand(),
			ValidatePersonnelCommand(),
			ImportPersonnelCommand(),
			ImportAircraftCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		logger.Error("flightline failed", "error", err)
		os.Exit(1)
	}
}
