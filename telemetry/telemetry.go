package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/awantoch/scriptflow/config"
	"github.com/awantoch/scriptflow/constants"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scriptflow_http_requests_total",
			Help: "Total number of HTTP requests received.",
		},
		[]string{"handler", "method", "code"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scriptflow_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method"},
	)
	parsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scriptflow_parses_total",
			Help: "Scripts parsed, by outcome.",
		},
		[]string{"outcome"},
	)
	layoutNodes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scriptflow_layout_nodes",
			Help:    "Number of nodes per laid out graph.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
		[]string{"strategy"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, parsesTotal, layoutNodes)
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init sets up the tracing exporter named in cfg.Tracing: "none" (default),
// "stdout" or "otlp". The returned func must be called on exit.
func Init(cfg *config.Config) (ShutdownFunc, error) {
	tc := config.TracingConfig{}
	if cfg != nil {
		tc = cfg.Tracing
	}
	serviceName := tc.ServiceName
	if serviceName == "" {
		serviceName = constants.DefaultServiceName
	}

	var exp sdktrace.SpanExporter
	var err error
	switch tc.Exporter {
	case "", constants.TracingExporterNone:
		return noopShutdown, nil
	case constants.TracingExporterStdout:
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case constants.TracingExporterOTLP:
		var opts []otlptracehttp.Option
		if tc.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(tc.Endpoint))
		}
		exp, err = otlptracehttp.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", tc.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", tc.Exporter, err)
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("build tracing resource: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// WrapHandler applies tracing, Prometheus metrics, and otelhttp middleware.
func WrapHandler(name string, next http.Handler) http.Handler {
	h := otelhttp.NewHandler(next, name)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rw, r)
		httpRequestsTotal.WithLabelValues(name, r.Method, fmt.Sprintf("%d", rw.status)).Inc()
		httpRequestDuration.WithLabelValues(name, r.Method).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecordParse counts a parse attempt. err == nil counts as success.
func RecordParse(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	parsesTotal.WithLabelValues(outcome).Inc()
}

// RecordLayout observes the size of a graph laid out with strategy.
func RecordLayout(strategy string, nodes int) {
	layoutNodes.WithLabelValues(strategy).Observe(float64(nodes))
}

// MetricsHandler returns the Prometheus metrics endpoint handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
