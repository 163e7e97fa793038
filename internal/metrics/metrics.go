// ABOUTME: OpenTelemetry counters for authentication outcomes
// ABOUTME: Implements auth.Observer and exposes the meter through a Prometheus exporter

package metrics

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/classifieds/backoffice/auth"

// Metric names.
const (
	AuthFailures     = "backoffice.auth.failures"
	AuthTokensIssued = "backoffice.auth.tokens_issued"
	attrFailureKind  = "kind"
	attrIssuedReason = "reason"
)

// AuthMetrics records auth pipeline outcomes. Safe for concurrent use.
type AuthMetrics struct {
	failures metric.Int64Counter
	issued   metric.Int64Counter
}

// NewAuthMetrics creates the auth counters on a meter from mp.
func NewAuthMetrics(mp metric.MeterProvider) (*AuthMetrics, error) {
	meter := mp.Meter(meterName)

	failures, err := meter.Int64Counter(
		AuthFailures,
		metric.WithDescription("Rejected authentication attempts by failure kind"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", AuthFailures, err)
	}

	issued, err := meter.Int64Counter(
		AuthTokensIssued,
		metric.WithDescription("Bearer tokens issued by reason"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", AuthTokensIssued, err)
	}

	return &AuthMetrics{failures: failures, issued: issued}, nil
}

// RecordFailure counts one rejected request of the given kind.
func (m *AuthMetrics) RecordFailure(ctx context.Context, kind string) {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String(attrFailureKind, kind)))
}

// RecordTokenIssued counts one issued token.
func (m *AuthMetrics) RecordTokenIssued(ctx context.Context, reason string) {
	m.issued.Add(ctx, 1, metric.WithAttributes(attribute.String(attrIssuedReason, reason)))
}

// Exporter couples an SDK meter provider to a private Prometheus registry.
type Exporter struct {
	provider *sdkmetric.MeterProvider
	registry *promclient.Registry
}

// NewPrometheusExporter creates a meter provider whose readings are served
// by Handler in the Prometheus text format.
func NewPrometheusExporter() (*Exporter, error) {
	registry := promclient.NewRegistry()
	reader, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}
	return &Exporter{
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		registry: registry,
	}, nil
}

// MeterProvider returns the provider instruments should be created on.
func (e *Exporter) MeterProvider() metric.MeterProvider {
	return e.provider
}

// Handler serves the scrape endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
