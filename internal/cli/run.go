package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syncfix/syncfix/internal/daemon"
	"github.com/syncfix/syncfix/internal/domain"
	"github.com/syncfix/syncfix/internal/infra/eventlog"
	"github.com/syncfix/syncfix/internal/logging"
)

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Log the plan without touching any process")
	rootCmd.AddCommand(runCmd)
}

var runDryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one sync fix in the foreground",
	Long: `Run the four-step sync fix once, without a daemon. Refused while
'syncfix serve' is running; use 'syncfix trigger' instead.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	if runDryRun {
		cfg.Sync.DryRun = true
	}

	logger, closer, err := logging.New(logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File})
	if err != nil {
		return err
	}
	defer closer.Close()
	for _, w := range cfg.Warnings {
		logger.Warnf("config: %s", w)
	}

	ctx, cancel := interruptContext()
	defer cancel()

	ok, err := daemon.RunOnce(ctx, cfg, eventlog.NewLogrusSink(logger))
	if errors.Is(err, domain.ErrDaemonRunning) {
		return fmt.Errorf("%w; use 'syncfix trigger' instead", err)
	}
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("sync fix failed")
	}
	return nil
}
