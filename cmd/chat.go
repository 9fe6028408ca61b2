package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/drift/internal/chat"
	"github.com/ziadkadry99/drift/internal/metricsserver"
	"github.com/ziadkadry99/drift/internal/progress"
	"github.com/ziadkadry99/drift/pkg/drift"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the configured model over a drift conversation",
	Long: `Starts an interactive chat. Every message is routed to a topic branch and
the model answers from that branch's context only. Type /branches to list
branches, /facts to show the facts of the current branch and /quit to exit.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("conversation", "", "continue an existing conversation id")
	chatCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while chatting")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	// Bind before the input loop: promptui blocks on stdin and never sees a
	// cancelled context, so a listen failure must surface here.
	ln, reg, err := listenMetrics(cmd, cfg)
	if err != nil {
		return err
	}
	client, err := newDriftClient(cfg, registerer(reg))
	if err != nil {
		if ln != nil {
			ln.Close()
		}
		return err
	}

	conversationID, _ := cmd.Flags().GetString("conversation")
	session := chat.NewSession(client, provider, chat.Options{
		ConversationID: conversationID,
		SystemPrompt:   cfg.SystemPrompt,
		AutoExtract:    cfg.AutoExtract,
		MaxTokens:      cfg.LLM.MaxTokens,
		Temperature:    cfg.LLM.Temperature,
		Logger:         logger,
	})

	g, ctx := errgroup.WithContext(cmd.Context())
	ctx, cancel := context.WithCancel(ctx)
	if ln != nil {
		g.Go(func() error {
			return metricsserver.Serve(ctx, ln, reg, logger.With(zap.String("component", "metrics")))
		})
	}
	g.Go(func() error {
		defer cancel()
		return chatLoop(ctx, cmd.OutOrStdout(), session)
	})
	return g.Wait()
}

func chatLoop(ctx context.Context, w io.Writer, session *chat.Session) error {
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("drift chat"), dimStyle.Render("conversation "+session.ConversationID()))
	fmt.Fprintln(w, dimStyle.Render("/branches, /facts, /quit"))

	reporter := progress.NewReporter(os.Stderr)
	var current string

	for {
		input := promptui.Prompt{Label: "you"}
		line, err := input.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		line = strings.TrimSpace(line)

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/branches":
			branches, err := session.Branches(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			renderBranches(w, branches)
			continue
		case "/facts":
			if current == "" {
				fmt.Fprintln(w, "No branch yet.")
				continue
			}
			if err := showFacts(ctx, w, session, current); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			continue
		}

		reporter.Start("thinking")
		turn, err := session.Send(ctx, line)
		reporter.Finish()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		if turn.UserRoute.Action != drift.ActionStay || turn.UserRoute.BranchID != current {
			fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("[%s → %s]", turn.UserRoute.Action, turn.UserRoute.BranchTopic)))
		}
		current = turn.AssistantRoute.BranchID

		fmt.Fprintf(w, "%s %s\n", botStyle.Render("assistant:"), turn.Reply)
		if turn.Facts != nil && turn.Facts.ExtractedCount > 0 {
			fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("(%d new fact(s))", turn.Facts.ExtractedCount)))
		}
		logger.Debug("turn complete",
			zap.String("model", turn.Usage.Model),
			zap.Int("input_tokens", turn.Usage.InputTokens),
			zap.Int("output_tokens", turn.Usage.OutputTokens),
			zap.Float64("cost_usd", turn.Usage.CostUSD),
		)
	}
}

func showFacts(ctx context.Context, w io.Writer, session *chat.Session, branchID string) error {
	facts, err := session.Facts(ctx, branchID)
	if err != nil {
		return err
	}
	renderFacts(w, facts)
	return nil
}
