package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syncfix/syncfix/internal/daemon"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the syncfix daemon",
	Long: `Start the trigger scheduler and the local control API at 127.0.0.1:18620.
Only one daemon may run per syncfix home.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := daemon.New(rootCmd.Version)
	if err != nil {
		return err
	}

	// Override config from flags
	cfg := d.Config.Config()
	host, port := cfg.API.Host, cfg.API.Port
	if serveHost != "" {
		host = serveHost
	}
	if servePort > 0 {
		port = servePort
	}
	d.Addr = fmt.Sprintf("%s:%d", host, port)

	return d.Serve(context.Background())
}
