package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/syncfix/syncfix/internal/domain"
)

func init() {
	triggerCmd.Flags().BoolVarP(&triggerWait, "wait", "w", false, "Follow the run until it finishes")
	rootCmd.AddCommand(triggerCmd)
}

var triggerWait bool

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Start a sync fix now",
	Long: `Ask the daemon to run the sync fix immediately. A manual trigger ignores
the cooldown but is refused while another run is in progress. The cooldown
restarts when the run finishes.`,
	Args: cobra.NoArgs,
	RunE: runTrigger,
}

func runTrigger(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := interruptContext()
	defer cancel()

	runID, err := c.Trigger(ctx)
	if errors.Is(err, domain.ErrRunInProgress) {
		return fmt.Errorf("%w; check progress with 'syncfix status'", err)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Sync run %s started.\n", runID)
	if !triggerWait {
		return nil
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr)
			return nil // the run keeps going in the daemon
		case <-ticker.C:
		}

		st, err := c.Status(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr)
			return err
		}
		if st.RunInProgress && st.RunID == runID {
			statusLine("%s", st.CurrentStep)
			continue
		}

		clearLine()
		if !st.LastSuccess {
			return fmt.Errorf("sync run %s failed; see 'syncfix logs'", runID)
		}
		fmt.Printf("Sync run %s finished successfully.\n", runID)
		return nil
	}
}
