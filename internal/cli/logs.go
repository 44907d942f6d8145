package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	logsCmd.Flags().IntVarP(&logsLimit, "lines", "n", 50, "Number of recent events to show")
	rootCmd.AddCommand(logsCmd)
}

var logsLimit int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent daemon log events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		events, err := c.Logs(cmd.Context(), logsLimit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("No log events yet.")
			return nil
		}
		for _, ev := range events {
			printEvent(ev)
		}
		return nil
	},
}
