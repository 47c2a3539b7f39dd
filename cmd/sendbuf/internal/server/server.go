// Package server exposes a [sendbuf.Buffer] of demo items over HTTP.
//
// Items are produced with POST /items and flushed in batches by a simulated send, which takes a
// few steps and fails on demand, before they reach an optional sink. GET /state shows the
// waiting, sending and sent items.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/teenjuna/sendbuf"
	"github.com/teenjuna/sendbuf/cmd/sendbuf/internal/config"
	"github.com/teenjuna/sendbuf/retry"
	"github.com/teenjuna/sendbuf/sink"
	"github.com/teenjuna/sendbuf/sink/sqlite"
)

// ErrSendFailed is returned by a send while failing is switched on.
var ErrSendFailed = errors.New("send failed on purpose")

const (
	StatusIdle   = "idle"
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Item is the demo item.
type Item struct {
	ID        string    `json:"id"`
	Desc      string    `json:"desc"`
	CreatedAt time.Time `json:"createdAt"`
}

type AddRequest struct {
	Desc string `json:"desc" binding:"required,max=256"`
}

type SwitchRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// State is a view of the buffer.
type State struct {
	Buffer     []Item `json:"buffer"`
	Sending    []Item `json:"sending"`
	Sent       []Item `json:"sent"`
	Status     string `json:"status"`
	Size       int    `json:"size"`
	Full       bool   `json:"full"`
	Flushing   bool   `json:"flushing"`
	AutoFlush  bool   `json:"autoFlush"`
	FailOnSend bool   `json:"failOnSend"`
}

// Store is a sink that keeps the batches it's sent, such as [sqlite.Sink]. When the sink of the
// server is a Store, it's served on /stored.
type Store interface {
	Sent(ctx context.Context, limit int) ([]Item, error)
	Stats(ctx context.Context) (*sqlite.Stats, error)
	Clear(ctx context.Context) (int, error)
}

// Stored is a view of the items kept by the [Store].
type Stored struct {
	Batches      int       `json:"batches"`
	Items        int       `json:"items"`
	LastPushedAt time.Time `json:"lastPushedAt"`
	Sent         []Item    `json:"sent"`
}

type ClearResponse struct {
	Deleted int `json:"deleted"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Server owns the buffer and its HTTP handler.
type Server struct {
	cfg    config.Config
	logger *zap.Logger
	buffer *sendbuf.Buffer[Item]
	sink   sink.Sink[Item]
	store  Store
	engine *gin.Engine

	seq  atomic.Int64
	fail atomic.Bool

	mu     sync.Mutex
	status string
	sent   []Item
}

// New returns a server. Sends stop being attempted once ctx is done. The buffer metrics are
// registered in registry, which is also served on GET /metrics. sink may be nil.
func New(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
	registry *prometheus.Registry,
	sink sink.Sink[Item],
) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		sink:   sink,
		status: StatusIdle,
		sent:   make([]Item, 0),
	}
	if store, ok := sink.(Store); ok {
		s.store = store
	}

	policy := retry.Fixed(cfg.Send.Attempts, cfg.Send.Interval).
		WithCooldown(cfg.Send.Cooldown)

	s.buffer = sendbuf.New(cfg.Buffer.Capacity, func(c *sendbuf.Config[Item]) {
		c.AutoFlush(cfg.Buffer.AutoFlush)
		c.Logger(logger)
		c.Prometheus(sendbuf.Prometheus(registry))
		c.OnRemoved(s.onRemoved)
		c.OnFlush(sendbuf.Process(ctx, s.send, policy))
	})

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.logRequests())
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	s.engine.GET("/state", s.handleState)
	s.engine.POST("/items", s.handleAdd)
	s.engine.POST("/flush", s.handleFlush)
	s.engine.PUT("/fail", s.handleFail)
	s.engine.PUT("/autoflush", s.handleAutoFlush)
	s.engine.GET("/stored", s.handleStored)
	s.engine.DELETE("/stored", s.handleClearStored)

	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Close drains the buffer into the sink. The sink itself is not closed.
func (s *Server) Close(ctx context.Context) error {
	return s.buffer.Close(ctx)
}

func (s *Server) send(ctx context.Context, batch []Item) error {
	steps := s.cfg.Send.Steps
	for i := range steps {
		s.setStatus("sending (" + strconv.Itoa(steps-i) + ")")

		timer := time.NewTimer(s.cfg.Send.StepDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.setStatus(StatusFailed)
			return ctx.Err()
		case <-timer.C:
		}
	}

	if s.fail.Load() {
		s.setStatus(StatusFailed)
		return ErrSendFailed
	}

	if s.sink != nil {
		if err := s.sink.Send(ctx, batch); err != nil {
			s.setStatus(StatusFailed)
			return fmt.Errorf("sink: %w", err)
		}
	}

	s.setStatus(StatusSent)
	s.logger.Info("batch sent", zap.Int("items", len(batch)))
	return nil
}

func (s *Server) onRemoved(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, item)
}

func (s *Server) setStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *Server) state() State {
	s.mu.Lock()
	status, sent := s.status, append([]Item(nil), s.sent...)
	s.mu.Unlock()

	if sent == nil {
		sent = make([]Item, 0)
	}

	return State{
		Buffer:     s.buffer.Current(),
		Sending:    s.buffer.Locked(),
		Sent:       sent,
		Status:     status,
		Size:       s.buffer.Size(),
		Full:       s.buffer.IsFull(),
		Flushing:   s.buffer.IsFlushing(),
		AutoFlush:  s.buffer.AutoFlush(),
		FailOnSend: s.fail.Load(),
	}
}
