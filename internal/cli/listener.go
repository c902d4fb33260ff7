package cli

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/combo/internal/engine"
)

// keySink is the part of the dispatcher the listener feeds.
type keySink interface {
	HandleKey(key string, ts int64)
}

// listenLines reads one key per line from r and hands it to sink, stamped
// with now() on arrival. Blank lines are skipped. Returns when r is
// exhausted or ctx is cancelled; a blocked read is not interrupted.
func listenLines(ctx context.Context, r io.Reader, sink keySink, now engine.TimeSource, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		key := strings.TrimSpace(scanner.Text())
		if key == "" {
			continue
		}
		sink.HandleKey(key, now())
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	logger.Debug("input closed")
	return nil
}
