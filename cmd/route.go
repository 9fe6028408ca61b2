package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/drift/pkg/drift"
)

var routeCmd = &cobra.Command{
	Use:   "route <conversation-id> <content>",
	Short: "Route a message to a topic branch",
	Long:  `Sends one message to the backend and prints the routing decision: stay on the current branch, move to an existing branch, or open a new one.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runRoute,
}

func init() {
	routeCmd.Flags().String("role", string(drift.RoleUser), "message author: user or assistant")
	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, args []string) error {
	role, _ := cmd.Flags().GetString("role")
	switch drift.Role(role) {
	case drift.RoleUser, drift.RoleAssistant:
	default:
		return fmt.Errorf("invalid --role %q: must be user or assistant", role)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newDriftClient(cfg, nil)
	if err != nil {
		return err
	}

	result, err := client.Route(cmd.Context(), drift.RouteRequest{
		ConversationID: args[0],
		Content:        args[1],
		Role:           drift.Role(role),
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), result)
	}
	renderRoute(cmd.OutOrStdout(), result)
	return nil
}
