package sendbuf

import (
	"go.uber.org/zap"
)

// Config of the [Buffer].
//
// A Config is modified by the configuration functions passed to [New]. Every method panics on an
// invalid value.
type Config[Item any] struct {
	autoFlush  bool
	logger     *zap.Logger
	prometheus *PrometheusConfig
	onAdded    func(Item)
	onLocked   func(Item)
	onRemoved  func(Item)
	onFlush    FlushFunc[Item]
}

// AutoFlush sets whether reaching the capacity starts a flush. Default is true.
func (c *Config[Item]) AutoFlush(autoFlush bool) {
	c.autoFlush = autoFlush
}

// Logger sets the logger of the buffer. Default is a no-op logger.
func (c *Config[Item]) Logger(logger *zap.Logger) {
	if logger == nil {
		panic("logger can't be nil")
	}
	c.logger = logger
}

// Prometheus sets the metrics config. Default is [Prometheus] with nil registerer.
func (c *Config[Item]) Prometheus(prometheus *PrometheusConfig) {
	if prometheus == nil {
		panic("prometheus can't be nil")
	}
	c.prometheus = prometheus
}

// OnAdded sets the hook called for every item added to the buffer, including items returned by
// a rollback.
func (c *Config[Item]) OnAdded(hook func(Item)) {
	c.onAdded = hook
}

// OnLocked sets the hook called for every item moved into a flushed batch.
func (c *Config[Item]) OnLocked(hook func(Item)) {
	c.onLocked = hook
}

// OnRemoved sets the hook called for every item of a committed batch.
func (c *Config[Item]) OnRemoved(hook func(Item)) {
	c.onRemoved = hook
}

// OnFlush sets the flush handler.
func (c *Config[Item]) OnFlush(flush FlushFunc[Item]) {
	c.onFlush = flush
}

func newConfig[Item any](configFuncs ...func(*Config[Item])) *Config[Item] {
	cfg := Config[Item]{}
	cfg.AutoFlush(true)
	cfg.Logger(zap.NewNop())
	cfg.Prometheus(Prometheus(nil))
	for _, cf := range configFuncs {
		if cf != nil {
			cf(&cfg)
		}
	}
	return &cfg
}
