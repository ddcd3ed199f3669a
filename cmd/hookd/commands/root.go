// Package commands implements hookd's command tree: a single "serve"
// subcommand (also the default when no subcommand is given) that brings a
// configured hook onto the network and blocks until it is told to stop.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string

	runCtx context.Context
)

var rootCmd = &cobra.Command{
	Use:   "hookd",
	Short: "hookd runs one hook on the network, broker or peer",
	Long: `hookd brings a single hook onto the network described by its
configuration: it attempts to bind first, becoming the broker for every
other hookd that points at the same address, and falls back to connecting
as a peer if another hookd already got there first.`,
}

// Execute runs the command tree with ctx threaded through to every
// subcommand via runCtx, canceled by main on receipt of a shutdown signal.
func Execute(ctx context.Context) error {
	runCtx = ctx
	return rootCmd.Execute()
}

// SetVersionInfo sets the version string reported by --version and
// negotiated against the broker's own version at connect time.
func SetVersionInfo(v, c string) {
	version = v
	commit = c
	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", v, c)
}
