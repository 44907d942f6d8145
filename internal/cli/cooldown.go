package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cooldownCmd.AddCommand(cooldownResetCmd, cooldownApplyCmd)
	rootCmd.AddCommand(cooldownCmd)
}

var cooldownCmd = &cobra.Command{
	Use:   "cooldown",
	Short: "Reset or apply the trigger cooldown",
}

var cooldownResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the cooldown so the next automatic trigger may fire",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if _, err := c.ResetCooldown(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Cooldown cleared.")
		return nil
	},
}

var cooldownApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Start the cooldown now without running a fix",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		st, err := c.ApplyCooldown(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Cooldown applied: %s remaining.\n", formatSeconds(st.CooldownRemaining))
		return nil
	},
}
