package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/syncfix/syncfix/internal/domain"
)

func init() {
	appsCmd.AddCommand(appsStatusCmd, appsStartCmd, appsStopCmd)
	rootCmd.AddCommand(appsCmd)
}

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Show or control the chat and sync applications",
	Args:  cobra.NoArgs,
	RunE:  runAppsStatus,
}

var appsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether each application is running",
	Args:  cobra.NoArgs,
	RunE:  runAppsStatus,
}

var appsStartCmd = &cobra.Command{
	Use:       "start chat|sync",
	Short:     "Start one application",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(domain.AppChat), string(domain.AppSync)},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAppAction(cmd, args[0], true)
	},
}

var appsStopCmd = &cobra.Command{
	Use:       "stop chat|sync",
	Short:     "Stop one application",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(domain.AppChat), string(domain.AppSync)},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAppAction(cmd, args[0], false)
	},
}

func runAppsStatus(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	states, err := c.Apps(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "APP\tNAME\tSTATE")
	for _, s := range states {
		state := "stopped"
		switch {
		case s.Error != "":
			state = "unknown (" + s.Error + ")"
		case s.Running:
			state = "running"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.App, s.Name, state)
	}
	return w.Flush()
}

func runAppAction(cmd *cobra.Command, name string, start bool) error {
	app, err := domain.ParseAppID(name)
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}

	var st domain.AppState
	if start {
		st, err = c.StartApp(cmd.Context(), app)
	} else {
		st, err = c.StopApp(cmd.Context(), app)
	}
	if err != nil {
		return err
	}

	verb := "stopped"
	if start {
		verb = "started"
	}
	fmt.Printf("%s %s.\n", st.Name, verb)
	return nil
}
