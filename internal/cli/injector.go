package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// logInjector stands in for OS key injection: it prints each action with
// the physical key bound to the symbol, or the symbol itself when unmapped.
type logInjector struct {
	mu      sync.Mutex
	w       io.Writer
	reverse map[string]string
	logger  *slog.Logger
}

func newLogInjector(w io.Writer, reverse map[string]string, logger *slog.Logger) *logInjector {
	if logger == nil {
		logger = slog.Default()
	}
	return &logInjector{w: w, reverse: reverse, logger: logger}
}

func (i *logInjector) Press(symbol string) error {
	return i.emit("press", symbol)
}

func (i *logInjector) Release(symbol string) error {
	return i.emit("release", symbol)
}

func (i *logInjector) emit(kind, symbol string) error {
	key, ok := i.reverse[symbol]
	if !ok {
		key = symbol
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.logger.Debug("inject", "kind", kind, "symbol", symbol, "key", key)
	if _, err := fmt.Fprintf(i.w, "%s %s\n", kind, key); err != nil {
		return fmt.Errorf("%s %s: %w", kind, key, err)
	}
	return nil
}
