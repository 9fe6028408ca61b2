package cmd

import (
	"github.com/spf13/cobra"
)

var branchesCmd = &cobra.Command{
	Use:   "branches <conversation-id>",
	Short: "List the topic branches of a conversation",
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

		branches, err := client.GetBranches(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), branches)
		}
		renderBranches(cmd.OutOrStdout(), branches)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(branchesCmd)
}
