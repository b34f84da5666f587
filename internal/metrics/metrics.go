package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cloudcover",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cloudcover",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Sampling metrics
	SamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cloudcover",
		Subsystem: "sampler",
		Name:      "samples_total",
		Help:      "Cloud cover samples attempted, by result",
	}, []string{"result"})

	SampleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cloudcover",
		Subsystem: "sampler",
		Name:      "sample_duration_seconds",
		Help:      "Time to fetch, decode and sample one full-disk image",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	LatestCloudCover = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cloudcover",
		Subsystem: "sampler",
		Name:      "latest_percentage",
		Help:      "Most recent cloud cover percentage at the target point",
	})

	// Imagery metrics
	DownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cloudcover",
		Subsystem: "imagery",
		Name:      "downloads_total",
		Help:      "Image downloads, by result (ok, cached, error)",
	}, []string{"result"})

	DownloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cloudcover",
		Subsystem: "imagery",
		Name:      "download_duration_seconds",
		Help:      "Duration of full-disk image downloads",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
	})
)

// Middleware returns a Fiber middleware that records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		// The app ErrorHandler writes the status only after the chain returns.
		code := c.Response().StatusCode()
		if err != nil {
			code = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
		}
		status := strconv.Itoa(code)
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
