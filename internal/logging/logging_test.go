package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WritesToRotatingFile(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, Init(true, dir))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	log.Info().Str("run_id", "abc").Msg("hello from test")

	body, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(body), "hello from test")
	assert.Contains(t, string(body), "run_id")
}

func TestInit_ConsoleOnly(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	require.NoError(t, Init(false, ""))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
