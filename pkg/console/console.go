// Package console prints operator-facing messages: step progress, warnings
// for isolated failures as they happen, the final summary and fatal errors.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/openfroyo/froyodesk/pkg/engine"
)

type styles struct {
	fatal   lipgloss.Style
	warning lipgloss.Style
	success lipgloss.Style
	info    lipgloss.Style
	step    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, noColor bool) styles {
	if noColor {
		plain := r.NewStyle()
		return styles{fatal: plain, warning: plain, success: plain, info: plain, step: plain}
	}
	return styles{
		fatal:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
		warning: r.NewStyle().Foreground(lipgloss.Color("#FACC15")),
		success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981")),
		info:    r.NewStyle().Foreground(lipgloss.Color("#94A3B8")),
		step:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")),
	}
}

// Console writes styled lines to an output. It implements engine.Observer
// so step progress and isolated failures are printed as they happen.
type Console struct {
	engine.NopObserver

	mu     sync.Mutex
	out    io.Writer
	styles styles
}

// New creates a console writing to out. Colors are only emitted when out is
// a terminal that supports them and noColor is false.
func New(out io.Writer, noColor bool) *Console {
	return &Console{
		out:    out,
		styles: newStyles(lipgloss.NewRenderer(out), noColor),
	}
}

func (c *Console) println(style lipgloss.Style, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// styled one line at a time so multi-line text is not padded to a block
	for line := range strings.Lines(text) {
		fmt.Fprintln(c.out, style.Render(strings.TrimRight(line, "\n")))
	}
}

// Fatal prints a fatal error.
func (c *Console) Fatal(err error) {
	c.println(c.styles.fatal, "✗ "+fatalText(err))
}

// Warn prints a warning.
func (c *Console) Warn(msg string) {
	c.println(c.styles.warning, "! "+msg)
}

// Info prints an informational line.
func (c *Console) Info(msg string) {
	c.println(c.styles.info, msg)
}

// Progress prints a progress line for the running step.
func (c *Console) Progress(msg string) {
	c.println(c.styles.info, "  → "+msg)
}

// Summary prints the run summary: green when every step succeeded, yellow
// with the failed steps otherwise.
func (c *Console) Summary(s engine.Summary) {
	if s.Succeeded {
		c.println(c.styles.success, "✓ "+s.Text)
		return
	}
	c.println(c.styles.warning, s.Text)
}

// StepStarted implements engine.Observer.
func (c *Console) StepStarted(ctx context.Context, _ *engine.RunContext, step engine.StepInfo) context.Context {
	c.println(c.styles.step, fmt.Sprintf("[%d/%d] %s", step.Index, step.Total, step.Name))
	return ctx
}

// StepFinished implements engine.Observer.
func (c *Console) StepFinished(_ context.Context, _ *engine.RunContext, step engine.StepInfo, out engine.Outcome, elapsed time.Duration) {
	switch out.Status {
	case engine.OutcomeSkipped:
		c.Info("  skipped: " + out.Reason)
	case engine.OutcomeFailure:
		if step.Isolated {
			c.Warn(fmt.Sprintf("%s failed: %s", step.Name, out.Reason))
		}
	default:
		c.Info(fmt.Sprintf("  done in %s", elapsed.Round(time.Second)))
	}
}

func fatalText(err error) string {
	fe, ok := engine.AsFatal(err)
	if !ok {
		return "fatal: " + err.Error()
	}

	var b strings.Builder
	b.WriteString("fatal")
	if fe.Step != "" {
		b.WriteString(" (" + fe.Step + ")")
	}
	b.WriteString(": " + fe.Message)
	if fe.Err != nil {
		b.WriteString(": " + fe.Err.Error())
	}
	return b.String()
}
