package commands

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/teenjuna/sendbuf/cmd/sendbuf/internal/client"
	"github.com/teenjuna/sendbuf/cmd/sendbuf/internal/config"
	"github.com/teenjuna/sendbuf/cmd/sendbuf/internal/server"
	"github.com/teenjuna/sendbuf/internal/testing/require"
)

func TestProduce(t *testing.T) {
	cfg := config.Default()
	cfg.Buffer.Capacity = 4
	cfg.Send.Steps = 0

	srv := server.New(context.Background(), cfg, zap.NewNop(), prometheus.NewRegistry(), nil)
	httpServer := httptest.NewServer(srv.Handler())
	defer httpServer.Close()

	c := client.New(httpServer.URL, 5*time.Second, 0, zap.NewNop())
	err := produce(t.Context(), c, produceOptions{
		count:   10,
		workers: 3,
		prefix:  "test",
		flush:   true,
	}, zap.NewNop())
	require.Nil(t, err)

	require.Nil(t, srv.Close(t.Context()))

	state, err := c.State(t.Context())
	require.Nil(t, err)
	require.Equal(t, len(state.Sent), 10)
	require.Equal(t, len(state.Buffer), 0)
}

func TestProduceValidation(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"produce", "--count=0"})
	cmd.SetOut(new(nopWriter))
	cmd.SetErr(new(nopWriter))
	require.NotNil(t, cmd.Execute())
}

func TestServeInvalidConfig(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"serve", "--capacity=0"})
	cmd.SetOut(new(nopWriter))
	cmd.SetErr(new(nopWriter))
	require.NotNil(t, cmd.Execute())
}

type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) {
	return len(p), nil
}
