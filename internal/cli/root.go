// Package cli implements the syncfix command-line interface using Cobra.
// Daemon commands talk to a running `syncfix serve` over the local API;
// idle, config and run work without a daemon.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "syncfix",
	Short: "Unstick cloud sync for desktop chat apps",
	Long: `syncfix restarts the desktop chat client and its cloud-sync client in a
safe order so that the sync client picks the chat data up again.

Runs are triggered when the machine has been idle long enough, at a
scheduled time, or on demand. A shared cooldown keeps runs apart.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
