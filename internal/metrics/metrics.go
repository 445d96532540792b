// Package metrics holds the Prometheus instruments of the story server.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EditorOperationsTotal counts builder operations by name and outcome.
	EditorOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "story_editor_operations_total",
		Help: "Total number of editor operations by operation and result.",
	}, []string{"operation", "result"})

	StoriesSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "story_saved_total",
		Help: "Total number of stories saved to the library.",
	})

	StoriesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "story_deleted_total",
		Help: "Total number of stories deleted from the library.",
	})

	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "story_imports_total",
		Help: "Total number of import attempts by detected format and result.",
	}, []string{"format", "result"})

	ImportWarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "story_import_warnings_total",
		Help: "Total number of import warnings by kind.",
	}, []string{"kind"})

	PlaySessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "story_play_sessions_started_total",
		Help: "Total number of play sessions started, split by preview.",
	}, []string{"preview"})

	PlayStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "story_play_steps_total",
		Help: "Total number of playback transitions by action and result.",
	}, []string{"action", "result"})

	SyncEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "story_sync_events_total",
		Help: "Total number of remote-sync events by action and result.",
	}, []string{"action", "result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "story_http_request_duration_seconds",
		Help:    "Histogram of HTTP request durations by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Result turns an error into the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// EchoMiddleware records request durations by matched route.
func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			HTTPRequestDuration.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the default registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
