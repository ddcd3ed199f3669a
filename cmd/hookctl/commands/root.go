// Package commands implements hookctl's command tree: "peers" to list a
// group's membership and "watch" to tail a topic pattern, both connecting
// to the group as an ordinary (non-broker) hook.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string

	host string
	port int
)

var rootCmd = &cobra.Command{
	Use:   "hookctl",
	Short: "hookctl inspects a running hook group from the outside",
	Long: `hookctl connects to a hook group as an ordinary peer, never as the
broker, and gives a human a window into it: who else is connected, what
they're subscribed to, and a live tail of any topic pattern.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&host, "host", "127.0.0.1", "broker host to connect to")
	rootCmd.PersistentFlags().IntVar(&port, "port", 5000, "broker port to connect to")
}

// Execute runs the command tree. Called once by main.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version string reported by --version.
func SetVersionInfo(v, c string) {
	version = v
	commit = c
	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", v, c)
}
