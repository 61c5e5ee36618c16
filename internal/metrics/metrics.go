package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hohoca/brachyplan/internal/channel"
	"github.com/hohoca/brachyplan/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "brachyplan"

// Collector counts channel model activity. It owns its registry so several
// collectors can live in one process (tests).
type Collector struct {
	registry *prometheus.Registry

	operations        *prometheus.CounterVec
	rejected          *prometheus.CounterVec
	dwellInvalidation prometheus.Counter
	channels          prometheus.Gauge
	gridStep          prometheus.Gauge
}

// New creates a collector with all metrics registered
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_operations_total",
			Help:      "Channel model operations by kind.",
		}, []string{"kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_mutations_total",
			Help:      "Mutations rejected because the channel is locked.",
		}, []string{"op"}),
		dwellInvalidation: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dwell_invalidations_total",
			Help:      "Active dwell positions cleared by geometry changes.",
		}),
		channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels",
			Help:      "Number of channels in the plan.",
		}),
		gridStep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dwell_grid_step_mm",
			Help:      "Current dwell grid step.",
		}),
	}
	c.gridStep.Set(types.DefaultDwellStep)
	c.registry.MustRegister(c.operations, c.rejected, c.dwellInvalidation, c.channels, c.gridStep)
	return c
}

// Registry exposes the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Rejected counts a mutation refused on a locked channel.
// Suitable as channel.Options.OnRejected.
func (c *Collector) Rejected(id, op string) {
	c.rejected.WithLabelValues(op).Inc()
}

// Listener returns callbacks that feed the collector from a channel.Model
func (c *Collector) Listener() channel.Listener {
	return channel.Listener{
		OnChannelAdd: func(types.Channel) {
			c.operations.WithLabelValues("add").Inc()
			c.channels.Inc()
		},
		OnChannelDelete: func(types.Channel) {
			c.operations.WithLabelValues("delete").Inc()
			c.channels.Dec()
		},
		OnChannelChange: func(_ types.Channel, field string, _ any) {
			c.operations.WithLabelValues("change_" + field).Inc()
		},
		OnChannelSelect: func(*types.Channel) {
			c.operations.WithLabelValues("select").Inc()
		},
		OnDwellPointsChanged: func(types.Channel) {
			c.dwellInvalidation.Inc()
		},
		OnGridChange: func(grid types.DwellGrid) {
			c.operations.WithLabelValues("grid").Inc()
			c.gridStep.Set(grid.Step)
		},
		OnManualRebuild: func(types.Channel) {
			c.operations.WithLabelValues("manual_rebuild").Inc()
		},
		OnAutoRebuild: func(types.Channel) {
			c.operations.WithLabelValues("auto_rebuild").Inc()
		},
		OnModelRebuild: func(_ types.Channel, action string) {
			c.operations.WithLabelValues("model_" + action).Inc()
		},
	}
}

// Handler serves the collector's metrics in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve metrics: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop metrics server: %w", err)
		}
		return nil
	}
}
