package sendbuf

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Flush triggers, used as the value of the "trigger" label of the flushes counter.
const (
	triggerManual   = "manual"
	triggerAuto     = "auto"
	triggerDeferred = "deferred"
	triggerDrain    = "drain"
)

// PrometheusConfig is a config of the Prometheus metrics provided by the buffer.
//
// An instance can be created only by the [Prometheus] function. The zero value is invalid.
type PrometheusConfig struct {
	// Namespace of the metrics.
	Namespace string
	// Subsystem of the metrics.
	Subsystem string
	// Options for the pending items gauge.
	Pending prometheus.GaugeOpts
	// Options for the locked items gauge.
	Locked prometheus.GaugeOpts
	// Options for the added items counter.
	ItemsAdded prometheus.CounterOpts
	// Options for the committed items counter.
	ItemsCommitted prometheus.CounterOpts
	// Options for the rolled back items counter.
	ItemsRolledBack prometheus.CounterOpts
	// Options for the flushes counter, labeled by trigger.
	Flushes prometheus.CounterOpts
	// Options for the coalesced flush requests counter.
	FlushesCoalesced prometheus.CounterOpts
	// Options for the flush duration histogram.
	FlushDuration prometheus.HistogramOpts

	registerer prometheus.Registerer
}

// Prometheus returns a [PrometheusConfig] with the provided registerer. If registerer is nil,
// metrics will not be registered. Many default parameters can be configured by passing
// configuration functions.
func Prometheus(
	registerer prometheus.Registerer,
	configFuncs ...func(c *PrometheusConfig),
) *PrometheusConfig {
	const (
		namespace = "sendbuf"
		subsystem = ""
	)

	c := PrometheusConfig{
		registerer: registerer,
		Namespace:  namespace,
		Subsystem:  subsystem,
		Pending: prometheus.GaugeOpts{
			Name: "pending_items",
			Help: "Number of items waiting in the buffer",
		},
		Locked: prometheus.GaugeOpts{
			Name: "locked_items",
			Help: "Number of items in the batch being flushed",
		},
		ItemsAdded: prometheus.CounterOpts{
			Name: "items_added",
			Help: "Number of items added to the buffer",
		},
		ItemsCommitted: prometheus.CounterOpts{
			Name: "items_committed",
			Help: "Number of items removed by committed flushes",
		},
		ItemsRolledBack: prometheus.CounterOpts{
			Name: "items_rolled_back",
			Help: "Number of items returned to the buffer by rolled back flushes",
		},
		Flushes: prometheus.CounterOpts{
			Name: "flushes",
			Help: "Number of started flushes",
		},
		FlushesCoalesced: prometheus.CounterOpts{
			Name: "flushes_coalesced",
			Help: "Number of flush requests deferred because a flush was in progress",
		},
		FlushDuration: prometheus.HistogramOpts{
			Name:    "flush_duration_seconds",
			Help:    "Time between locking a batch and resolving its flush",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		},
	}

	for _, cf := range configFuncs {
		if cf != nil {
			cf(&c)
		}
	}

	return &c
}

func (c *PrometheusConfig) metrics() *metrics {
	var (
		pending          = c.Pending
		locked           = c.Locked
		itemsAdded       = c.ItemsAdded
		itemsCommitted   = c.ItemsCommitted
		itemsRolledBack  = c.ItemsRolledBack
		flushes          = c.Flushes
		flushesCoalesced = c.FlushesCoalesced
		flushDuration    = c.FlushDuration
	)
	pending.Namespace, pending.Subsystem = c.Namespace, c.Subsystem
	locked.Namespace, locked.Subsystem = c.Namespace, c.Subsystem
	itemsAdded.Namespace, itemsAdded.Subsystem = c.Namespace, c.Subsystem
	itemsCommitted.Namespace, itemsCommitted.Subsystem = c.Namespace, c.Subsystem
	itemsRolledBack.Namespace, itemsRolledBack.Subsystem = c.Namespace, c.Subsystem
	flushes.Namespace, flushes.Subsystem = c.Namespace, c.Subsystem
	flushesCoalesced.Namespace, flushesCoalesced.Subsystem = c.Namespace, c.Subsystem
	flushDuration.Namespace, flushDuration.Subsystem = c.Namespace, c.Subsystem

	m := metrics{
		pending:          prometheus.NewGauge(pending),
		locked:           prometheus.NewGauge(locked),
		itemsAdded:       prometheus.NewCounter(itemsAdded),
		itemsCommitted:   prometheus.NewCounter(itemsCommitted),
		itemsRolledBack:  prometheus.NewCounter(itemsRolledBack),
		flushes:          prometheus.NewCounterVec(flushes, []string{"trigger"}),
		flushesCoalesced: prometheus.NewCounter(flushesCoalesced),
		flushDuration:    prometheus.NewHistogram(flushDuration),
	}

	if c.registerer != nil {
		c.registerer.MustRegister(
			m.pending,
			m.locked,
			m.itemsAdded,
			m.itemsCommitted,
			m.itemsRolledBack,
			m.flushes,
			m.flushesCoalesced,
			m.flushDuration,
		)
	}

	return &m
}

type metrics struct {
	pending          prometheus.Gauge
	locked           prometheus.Gauge
	itemsAdded       prometheus.Counter
	itemsCommitted   prometheus.Counter
	itemsRolledBack  prometheus.Counter
	flushes          *prometheus.CounterVec
	flushesCoalesced prometheus.Counter
	flushDuration    prometheus.Histogram
}
