package cmd

import (
	"github.com/spf13/cobra"
)

var contextCmd = &cobra.Command{
	Use:   "context <branch-id>",
	Short: "Show the messages and facts of a branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newDriftClient(cfg, nil)
		if err != nil {
			return err
		}

		c, err := client.GetContext(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), c)
		}
		renderContext(cmd.OutOrStdout(), c)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(contextCmd)
}
