package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var factsCmd = &cobra.Command{
	Use:   "facts <branch-id>",
	Short: "List the facts extracted for a branch",
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

		facts, err := client.GetFacts(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), facts)
		}
		renderFacts(cmd.OutOrStdout(), facts)
		return nil
	},
}

var factsExtractCmd = &cobra.Command{
	Use:   "extract <branch-id>",
	Short: "Extract facts from the messages of a branch",
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

		result, err := client.ExtractFacts(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d new fact(s).\n", result.ExtractedCount)
		renderFacts(cmd.OutOrStdout(), result.Facts)
		return nil
	},
}

func init() {
	factsCmd.AddCommand(factsExtractCmd)
	rootCmd.AddCommand(factsCmd)
}
