package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show trigger, cooldown and run status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	st, err := c.Status(cmd.Context())
	if err != nil {
		return err
	}

	run := "idle"
	if st.RunInProgress {
		run = fmt.Sprintf("running (%s, run %s)", st.CurrentStep, st.RunID)
	}
	cooldown := "none"
	if st.CooldownRemaining > 0 {
		cooldown = formatSeconds(st.CooldownRemaining) + " remaining"
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run:\t%s\n", run)
	fmt.Fprintf(w, "Cooldown:\t%s\n", cooldown)
	fmt.Fprintf(w, "Last trigger:\t%s\n", formatTime(st.LastTriggerAt))
	fmt.Fprintf(w, "Last run:\t%s (%s)\n", formatTime(st.LastRunAt), lastResult(st))
	fmt.Fprintf(w, "Runs:\t%d ok, %d failed\n", st.SuccessCount, st.ErrorCount)
	fmt.Fprintf(w, "Idle:\t%s\n", formatSeconds(st.IdleSeconds))
	fmt.Fprintf(w, "Idle trigger:\t%s\n", onOff(st.IdleEnabled))
	fmt.Fprintf(w, "Scheduled trigger:\t%s\n", onOff(st.ScheduledEnabled))
	return w.Flush()
}
