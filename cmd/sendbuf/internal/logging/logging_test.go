package logging

import (
	"bytes"
	"os"
	"path"
	"testing"

	"github.com/teenjuna/sendbuf/cmd/sendbuf/internal/config"
	"github.com/teenjuna/sendbuf/internal/testing/require"
)

func TestLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := build(config.LogConfig{Level: "warn"}, &buf)
	require.Nil(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	require.Nil(t, closer())

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestFile(t *testing.T) {
	var (
		buf  bytes.Buffer
		file = path.Join(t.TempDir(), "sendbuf.log")
	)
	logger, closer, err := build(config.LogConfig{
		Level:     "debug",
		File:      file,
		MaxSizeMB: 1,
	}, &buf)
	require.Nil(t, err)

	logger.Debug("to both")
	require.Nil(t, closer())

	data, err := os.ReadFile(file)
	require.Nil(t, err)
	require.Contains(t, string(data), "to both")
	require.Contains(t, buf.String(), "to both")
}

func TestInvalidLevel(t *testing.T) {
	_, _, err := New(config.LogConfig{Level: "loud"})
	require.NotNil(t, err)
}
