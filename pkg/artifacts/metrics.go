package artifacts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsStartKey = "start_time"

// Metrics holds the Prometheus collectors updated by MetricsInterceptors.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the client collectors and registers them with reg.
// Registering twice against the same registerer reuses the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "artifacts_client_requests_total",
		Help: "Requests sent to the artifacts service.",
	}, []string{"operation", "method", "code"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "artifacts_client_request_duration_seconds",
		Help:    "Round trip latency of artifacts service requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	var err error

	requests, err = registerOrReuse(reg, requests)
	if err != nil {
		return nil, err
	}

	duration, err = registerOrReuse(reg, duration)
	if err != nil {
		return nil, err
	}

	return &Metrics{Requests: requests, Duration: duration}, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		existing, ok := already.ExistingCollector.(C)
		if ok {
			return existing, nil
		}
	}

	return collector, fmt.Errorf("registering metrics: %w", err)
}

// MetricsInterceptors returns an interceptor pair recording request counts
// and latency.
func MetricsInterceptors(metrics *Metrics) (RequestInterceptor, ResponseInterceptor) {
	reqInterceptor := func(ctx context.Context, req *Request) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata[metricsStartKey] = time.Now()

		return nil
	}

	respInterceptor := func(ctx context.Context, req *Request, resp *Response) error {
		code := "error"
		if resp.Error == nil {
			code = strconv.Itoa(resp.StatusCode)
		}

		metrics.Requests.WithLabelValues(req.Operation, req.Method, code).Inc()

		if startTime, ok := req.Metadata[metricsStartKey].(time.Time); ok {
			metrics.Duration.WithLabelValues(req.Operation).Observe(time.Since(startTime).Seconds())
		}

		return nil
	}

	return reqInterceptor, respInterceptor
}
