package sqlite_test

import (
	"testing"

	"github.com/teenjuna/sendbuf/codec/json"
	"github.com/teenjuna/sendbuf/internal/testing/require"
	"github.com/teenjuna/sendbuf/sink/sqlite"
)

func TestConfigValidation(t *testing.T) {
	cfg := &sqlite.Config{}

	require.PanicWithError(t, "file can't be blank", func() {
		cfg.File(" ")
	})

	require.PanicWithError(t, "file can't contain ?", func() {
		cfg.File("file?mode=memory")
	})

	require.PanicWithError(t, "storage can't be nil", func() {
		sqlite.NewSink[Item](nil, json.New[Item]())
	})
}
