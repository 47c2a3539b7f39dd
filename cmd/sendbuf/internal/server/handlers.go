package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/teenjuna/sendbuf"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.state())
}

func (s *Server) handleAdd(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	item := Item{
		ID:        strconv.FormatInt(s.seq.Add(1), 10),
		Desc:      req.Desc,
		CreatedAt: time.Now(),
	}
	if err := s.buffer.Add(item); err != nil {
		s.bufferError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, item)
}

func (s *Server) handleFlush(c *gin.Context) {
	if err := s.buffer.Flush(); err != nil {
		s.bufferError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) handleFail(c *gin.Context) {
	var req SwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	s.fail.Store(*req.Enabled)
	s.logger.Info("fail on send switched", zap.Bool("enabled", *req.Enabled))
	c.JSON(http.StatusOK, s.state())
}

func (s *Server) handleAutoFlush(c *gin.Context) {
	var req SwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := s.buffer.SetAutoFlush(*req.Enabled); err != nil {
		s.bufferError(c, err)
		return
	}
	// A buffer that filled up while auto flush was off is flushed right away.
	if *req.Enabled && s.buffer.IsFull() {
		if err := s.buffer.Flush(); err != nil {
			s.bufferError(c, err)
			return
		}
	}

	s.logger.Info("auto flush switched", zap.Bool("enabled", *req.Enabled))
	c.JSON(http.StatusOK, s.state())
}

func (s *Server) handleStored(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "sink doesn't store batches"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		return
	}

	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		s.storeError(c, err)
		return
	}
	sent, err := s.store.Sent(c.Request.Context(), limit)
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Stored{
		Batches:      stats.Batches,
		Items:        stats.Items,
		LastPushedAt: stats.LastPushedAt,
		Sent:         sent,
	})
}

func (s *Server) handleClearStored(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "sink doesn't store batches"})
		return
	}

	deleted, err := s.store.Clear(c.Request.Context())
	if err != nil {
		s.storeError(c, err)
		return
	}

	s.logger.Info("stored batches cleared", zap.Int("items", deleted))
	c.JSON(http.StatusOK, ClearResponse{Deleted: deleted})
}

func (s *Server) storeError(c *gin.Context, err error) {
	s.logger.Error("store", zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

func (s *Server) bufferError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, sendbuf.ErrClosed) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
