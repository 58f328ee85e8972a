package expression

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dop251/goja"

	"github.com/cannectors/wrangler/internal/logger"
)

// maxConsoleMessage bounds a single console message.
const maxConsoleMessage = 8 * 1024

// jsConsole routes console.log/info/warn/error/debug from JavaScript
// expressions to the structured logger.
type jsConsole struct {
	source string
}

func newJSConsole(vm *goja.Runtime, source string) error {
	c := &jsConsole{source: source}

	console := vm.NewObject()
	for name, level := range map[string]slog.Level{
		"log":   slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"debug": slog.LevelDebug,
	} {
		if err := console.Set(name, c.method(level)); err != nil {
			return fmt.Errorf("console.Set(%q): %w", name, err)
		}
	}
	if err := vm.Set("console", console); err != nil {
		return fmt.Errorf("runtime.Set(console): %w", err)
	}
	return nil
}

func (c *jsConsole) method(level slog.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, formatJSValue(arg))
		}
		message := strings.Join(parts, " ")
		if len(message) > maxConsoleMessage {
			message = message[:maxConsoleMessage-3] + "..."
		}

		attrs := []any{
			slog.String("source", "javascript"),
			slog.String("expression", c.source),
		}
		switch level {
		case slog.LevelDebug:
			logger.Debug(message, attrs...)
		case slog.LevelWarn:
			logger.Warn(message, attrs...)
		case slog.LevelError:
			logger.Error(message, attrs...)
		default:
			logger.Info(message, attrs...)
		}
		return goja.Undefined()
	}
}

func formatJSValue(val goja.Value) string {
	if val == nil || goja.IsUndefined(val) {
		return "undefined"
	}
	if goja.IsNull(val) {
		return "null"
	}
	switch v := val.Export().(type) {
	case string:
		return v
	case bool, int64, float64:
		return fmt.Sprintf("%v", v)
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return val.String()
		}
		return string(data)
	default:
		return val.String()
	}
}
