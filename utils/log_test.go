package utils

import (
	"context"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"trace": log.LevelTrace,
		"DEBUG": log.LevelDebug,
		"info":  log.LevelInfo,
		"":      log.LevelInfo,
		"warn":  log.LevelWarn,
		"error": log.LevelError,
		"crit":  log.LevelCrit,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		require.Equal(t, want, got, name)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	prev := log.Root()
	t.Cleanup(func() { log.SetDefault(prev) })

	require.NoError(t, SetupLogger("debug"))
	require.True(t, log.Root().Enabled(context.Background(), log.LevelDebug))
	require.False(t, log.Root().Enabled(context.Background(), log.LevelTrace))

	require.ErrorContains(t, SetupLogger("loud"), "invalid log level")
}
