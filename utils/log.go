package utils

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// ParseLevel maps a level name to the go-ethereum slog level. Besides the slog
// names it accepts "trace" and "crit".
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "", "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit", "critical":
		return log.LevelCrit, nil
	}
	return 0, fmt.Errorf("unknown level %q", level)
}

// SetupLogger installs a terminal logger on stdout at the given level as the
// default go-ethereum logger.
func SetupLogger(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stdout, lvl, false)))
	return nil
}
