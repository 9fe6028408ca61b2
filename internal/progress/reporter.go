package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Reporter shows that a turn is in flight.
type Reporter interface {
	Start(message string)
	Finish()
}

// NewReporter returns a TerminalReporter if w is an interactive terminal,
// or a PlainReporter when it is not or the CI environment variable is set.
func NewReporter(w io.Writer) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" || !isTerminal(w) {
		return &PlainReporter{w: w}
	}
	return &TerminalReporter{w: w}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// TerminalReporter displays a spinner in the terminal.
type TerminalReporter struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(message string) {
	r.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetDescription(message),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	_ = r.bar.RenderBlank()
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
}

// PlainReporter prints one line per turn, suitable for CI logs and pipes.
type PlainReporter struct {
	w io.Writer
}

func (r *PlainReporter) Start(message string) {
	fmt.Fprintf(r.w, "%s...\n", message)
}

func (r *PlainReporter) Finish() {}
