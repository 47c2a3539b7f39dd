package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/teenjuna/sendbuf/cmd/sendbuf/internal/config"
	"github.com/teenjuna/sendbuf/cmd/sendbuf/internal/server"
	"github.com/teenjuna/sendbuf/internal/testing/require"
)

func TestClient(t *testing.T) {
	c, srv := newClient(t)

	require.Nil(t, c.SetAutoFlush(t.Context(), false))
	for _, desc := range []string{"a", "b", "c"} {
		item, err := c.Add(t.Context(), desc)
		require.Nil(t, err)
		require.Equal(t, item.Desc, desc)
	}

	state, err := c.State(t.Context())
	require.Nil(t, err)
	require.Equal(t, len(state.Buffer), 3)
	require.Equal(t, state.AutoFlush, false)

	require.Nil(t, c.SetFail(t.Context(), true))
	state, err = c.State(t.Context())
	require.Nil(t, err)
	require.Equal(t, state.FailOnSend, true)

	require.Nil(t, c.SetFail(t.Context(), false))
	require.Nil(t, c.Flush(t.Context()))
	require.Nil(t, srv.Close(t.Context()))

	state, err = c.State(t.Context())
	require.Nil(t, err)
	require.Equal(t, len(state.Sent), 3)
}

func TestClientError(t *testing.T) {
	c, srv := newClient(t)
	require.Nil(t, srv.Close(t.Context()))

	_, err := c.Add(t.Context(), "a")

	var apiErr *Error
	require.Equal(t, errors.As(err, &apiErr), true)
	require.Equal(t, apiErr.Status, http.StatusServiceUnavailable)
	require.Equal(t, apiErr.Message, "buffer is closed")

	_, err = c.Add(t.Context(), "")
	require.Equal(t, errors.As(err, &apiErr), true)
	require.Equal(t, apiErr.Status, http.StatusBadRequest)
}

func newClient(t *testing.T) (*Client, *server.Server) {
	cfg := config.Default()
	cfg.Send.Steps = 0

	srv := server.New(context.Background(), cfg, zap.NewNop(), prometheus.NewRegistry(), nil)
	httpServer := httptest.NewServer(srv.Handler())
	t.Cleanup(httpServer.Close)

	return New(httpServer.URL, 5*time.Second, 0, zap.NewNop()), srv
}
