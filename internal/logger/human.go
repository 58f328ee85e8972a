package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// OutputFormat represents the log output format
type OutputFormat int

const (
	// FormatJSON is the default machine-readable JSON format
	FormatJSON OutputFormat = iota
	// FormatHuman is a human-readable console format with colors and prefixes
	FormatHuman
)

// ParseFormat maps "json" or "human" to an OutputFormat.
func ParseFormat(name string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "human", "text":
		return FormatHuman, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format %q (expected json or human)", name)
	}
}

// ParseLevel maps debug, info, warn and error to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// SetLevelAndFormat sets both the log level and format.
func SetLevelAndFormat(level slog.Level, format OutputFormat) {
	Logger = slog.New(consoleHandler(level, format))
}

func consoleHandler(level slog.Level, format OutputFormat) slog.Handler {
	if format == FormatHuman {
		return NewHumanHandler(console, &HumanHandlerOptions{
			Level:     level,
			UseColors: isTerminal(console),
		})
	}
	return slog.NewJSONHandler(console, &slog.HandlerOptions{Level: level})
}

// isTerminal returns true if the writer is a terminal (supports colors)
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// HumanHandlerOptions configures the human-readable log handler.
type HumanHandlerOptions struct {
	// Level is the minimum log level to output
	Level slog.Level
	// UseColors enables ANSI color codes
	UseColors bool
}

// HumanHandler is a slog handler that outputs human-readable log messages.
type HumanHandler struct {
	opts   HumanHandlerOptions
	writer io.Writer
	attrs  []slog.Attr
	groups []string
}

// maxInlineAttrs bounds how many attributes are printed on one line.
const maxInlineAttrs = 5

// NewHumanHandler creates a new human-readable log handler.
func NewHumanHandler(w io.Writer, opts *HumanHandlerOptions) *HumanHandler {
	if opts == nil {
		opts = &HumanHandlerOptions{Level: slog.LevelInfo}
	}
	return &HumanHandler{opts: *opts, writer: w}
}

// Enabled returns true if the handler is enabled for the given level.
func (h *HumanHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level
}

// Handle outputs a log record in human-readable format.
func (h *HumanHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder

	sb.WriteString(r.Time.Format("15:04:05"))
	sb.WriteByte(' ')
	sb.WriteString(h.prefix(r.Level, r.Message))
	sb.WriteByte(' ')
	sb.WriteString(r.Message)

	attrs := make([]string, 0, r.NumAttrs()+len(h.attrs))
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, formatAttr(a))
		return true
	})
	for _, a := range h.attrs {
		attrs = append(attrs, formatAttr(a))
	}

	if len(attrs) > 0 {
		shown := min(len(attrs), maxInlineAttrs)
		sb.WriteByte(' ')
		sb.WriteString(strings.Join(attrs[:shown], " "))
		if len(attrs) > maxInlineAttrs {
			fmt.Fprintf(&sb, " (+%d more)", len(attrs)-maxInlineAttrs)
		}
	}

	sb.WriteByte('\n')
	_, err := io.WriteString(h.writer, sb.String())
	return err
}

// WithAttrs returns a new handler with the given attributes added.
func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &HumanHandler{opts: h.opts, writer: h.writer, attrs: merged, groups: h.groups}
}

// WithGroup returns a new handler with the given group name.
func (h *HumanHandler) WithGroup(name string) slog.Handler {
	groups := append(append([]string(nil), h.groups...), name)
	return &HumanHandler{opts: h.opts, writer: h.writer, attrs: h.attrs, groups: groups}
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorCyan   = "\033[36m"
)

// prefix returns the level marker, using ✓ for info messages that report
// a completion.
func (h *HumanHandler) prefix(level slog.Level, message string) string {
	var mark, color string
	switch {
	case level >= slog.LevelError:
		mark, color = "✗", colorRed
	case level >= slog.LevelWarn:
		mark, color = "⚠", colorYellow
	case level >= slog.LevelInfo && isSuccess(message):
		mark, color = "✓", colorGreen
	case level >= slog.LevelInfo:
		mark, color = "ℹ", colorCyan
	default:
		mark, color = "·", colorReset
	}

	if h.opts.UseColors {
		return color + mark + colorReset
	}
	return mark
}

func isSuccess(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "completed") || strings.Contains(m, "succeeded") || strings.Contains(m, "success")
}

// formatAttr formats a single attribute for display.
func formatAttr(a slog.Attr) string {
	switch v := a.Value.Any().(type) {
	case time.Duration:
		return a.Key + "=" + formatDuration(v)
	case float64:
		return fmt.Sprintf("%s=%.2f", a.Key, v)
	default:
		return fmt.Sprintf("%s=%v", a.Key, v)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}

// FormatMetricsHuman formats run metrics in a human-readable way.
func FormatMetricsHuman(metrics ExecutionMetrics) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Processed %d rows in %s", metrics.RowsIn, formatDuration(metrics.TotalDuration))
	if metrics.RowsPerSecond > 0 {
		fmt.Fprintf(&sb, " (%.1f rows/sec)", metrics.RowsPerSecond)
	}
	fmt.Fprintf(&sb, ", %d out", metrics.RowsOut)
	if metrics.RowsFiltered > 0 {
		fmt.Fprintf(&sb, ", %d filtered", metrics.RowsFiltered)
	}
	if metrics.RowsErrored > 0 {
		fmt.Fprintf(&sb, ", %d errored", metrics.RowsErrored)
	}

	return sb.String()
}
