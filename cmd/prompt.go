package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/drift/pkg/drift"
)

var promptCmd = &cobra.Command{
	Use:   "prompt <branch-id>",
	Short: "Assemble the language-model prompt for a branch",
	Long: `Fetches the context of a branch and prints the system prompt and message
history a language model should be given to continue it.`,
	Args: cobra.ExactArgs(1),
	RunE: runPrompt,
}

func init() {
	promptCmd.Flags().String("system", "", "preamble replacing the configured system prompt")
	rootCmd.AddCommand(promptCmd)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newDriftClient(cfg, nil)
	if err != nil {
		return err
	}

	var opts []drift.PromptOption
	switch {
	case cmd.Flags().Changed("system"):
		system, _ := cmd.Flags().GetString("system")
		opts = append(opts, drift.WithSystemPrompt(system))
	case cfg.SystemPrompt != "":
		opts = append(opts, drift.WithSystemPrompt(cfg.SystemPrompt))
	}

	prompt, err := client.BuildPrompt(cmd.Context(), args[0], opts...)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), prompt)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, headerStyle.Render("System"))
	fmt.Fprintln(w, prompt.System)
	fmt.Fprintf(w, "\n%s\n", headerStyle.Render(fmt.Sprintf("Messages (%d)", len(prompt.Messages))))
	for _, m := range prompt.Messages {
		style := userStyle
		if m.Role == drift.RoleAssistant {
			style = botStyle
		}
		fmt.Fprintf(w, "%s %s\n", style.Render(string(m.Role)+":"), m.Content)
	}
	return nil
}
