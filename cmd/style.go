package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ziadkadry99/drift/pkg/drift"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	topicStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	botStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func renderRoute(w io.Writer, r *drift.RouteResult) {
	fmt.Fprintf(w, "%s → %s %s\n",
		strings.ToUpper(string(r.Action)),
		topicStyle.Render(r.BranchTopic),
		dimStyle.Render(fmt.Sprintf("(%s, confidence %.2f)", r.BranchID, r.Confidence)))
	if r.PreviousBranchID != "" {
		fmt.Fprintln(w, dimStyle.Render("moved from "+r.PreviousBranchID))
	}
	if r.Reason != "" {
		fmt.Fprintln(w, dimStyle.Render(r.Reason))
	}
}

func renderBranches(w io.Writer, branches []drift.Branch) {
	if len(branches) == 0 {
		fmt.Fprintln(w, "No branches yet.")
		return
	}
	t := newTable("ID", "TOPIC", "PARENT", "MESSAGES", "UPDATED")
	for _, b := range branches {
		parent := b.ParentID
		if parent == "" {
			parent = "-"
		}
		t.Row(b.ID, b.Topic, parent, fmt.Sprint(b.MessageCount), b.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(w, t.String())
}

func renderFacts(w io.Writer, facts []drift.Fact) {
	if len(facts) == 0 {
		fmt.Fprintln(w, "No facts yet.")
		return
	}
	t := newTable("KEY", "VALUE", "CONFIDENCE")
	for _, f := range facts {
		t.Row(f.Key, truncate(f.Value, 60), fmt.Sprintf("%.2f", f.Confidence))
	}
	fmt.Fprintln(w, t.String())
}

func renderContext(w io.Writer, c *drift.Context) {
	fmt.Fprintf(w, "%s %s\n\n", topicStyle.Render(c.BranchTopic), dimStyle.Render(c.BranchID))
	for _, m := range c.Messages {
		style := userStyle
		if m.Role == drift.RoleAssistant {
			style = botStyle
		}
		fmt.Fprintf(w, "%s %s\n", style.Render(string(m.Role)+":"), m.Content)
	}
	for _, bf := range c.AllFacts {
		label := "Facts from " + bf.BranchTopic
		if bf.IsCurrent {
			label += " (current)"
		}
		fmt.Fprintf(w, "\n%s\n", headerStyle.Render(label))
		renderFacts(w, bf.Facts)
	}
}
