package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show daemon health checks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		h, err := c.Health(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CHECK\tSTATUS\tCHECKED\tDETAIL")
		for _, s := range h.Checks {
			status := "ok"
			switch {
			case !s.Healthy && s.Advisory:
				status = "warn"
			case !s.Healthy:
				status = "FAIL"
			case s.Recovered:
				status = "recovered"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, status, s.CheckedAt.Local().Format("15:04:05"), s.Error)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if !h.Healthy {
			return errors.New("daemon is unhealthy")
		}
		return nil
	},
}
