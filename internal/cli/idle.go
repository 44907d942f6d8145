package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/syncfix/syncfix/internal/daemon"
	"github.com/syncfix/syncfix/internal/infra/resource"
)

func init() {
	idleCmd.Flags().BoolVarP(&idleWatch, "watch", "w", false, "Keep sampling until interrupted")
	rootCmd.AddCommand(idleCmd)
}

var idleWatch bool

var idleCmd = &cobra.Command{
	Use:   "idle",
	Short: "Show how long this machine has been idle",
	Long:  `Sample the system idle time locally and compare it with the idle trigger threshold.`,
	Args:  cobra.NoArgs,
	RunE:  runIdle,
}

func runIdle(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	threshold := cfg.TriggerConfig().IdleThreshold
	det := resource.NewIdleDetector()

	if !idleWatch {
		idle := det.IdleDuration()
		fmt.Printf("Idle for %s (trigger threshold %s, %s)\n",
			resource.Format(idle), resource.Format(threshold), onOff(cfg.IdleTrigger.Enabled))
		if det.ScreenLocked() {
			fmt.Println("Screen is locked.")
		}
		return nil
	}

	ctx, cancel := interruptContext()
	defer cancel()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		idle := det.IdleDuration()
		progressLine(100*idle.Seconds()/threshold.Seconds(),
			fmt.Sprintf("idle %s / %s", resource.Format(idle), resource.Format(threshold)))
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr)
			return nil
		case <-ticker.C:
		}
	}
}
