package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFor(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, levelFor(-1))
	assert.Equal(t, zerolog.WarnLevel, levelFor(0))
	assert.Equal(t, zerolog.InfoLevel, levelFor(1))
	assert.Equal(t, zerolog.DebugLevel, levelFor(2))
	assert.Equal(t, zerolog.TraceLevel, levelFor(5))
}

func TestSetupWritesLogFile(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.WarnLevel)

	path := filepath.Join(t.TempDir(), "state", "pkgsnap.log")
	Setup(1, path)

	logger := Component("test")
	logger.Info().Msg("hello from test")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "hello from test"))
	assert.True(t, strings.Contains(string(data), `"component":"test"`))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
