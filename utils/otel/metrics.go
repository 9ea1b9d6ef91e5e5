package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OTel instruments not already covered by the metrics
// collector. Nil until InitMetrics runs; the record helpers no-op then,
// so packages can call them unconditionally.
var Metrics *HarvesterMetrics

// HarvesterMetrics contains the harvester's metric instruments.
type HarvesterMetrics struct {
	BrowserRendersTotal metric.Int64Counter
	ProxiesRetiredTotal metric.Int64Counter
	CascadeDuration     metric.Float64Histogram
}

// InitMetrics initializes all metric instruments.
func InitMetrics() error {
	meter := otel.Meter("news-harvester")

	browserRenders, err := meter.Int64Counter("harvester_browser_renders_total",
		metric.WithDescription("Browser fallback navigations, by result"),
	)
	if err != nil {
		return err
	}

	proxiesRetired, err := meter.Int64Counter("harvester_proxies_retired_total",
		metric.WithDescription("Proxies retired for consecutive failures"),
	)
	if err != nil {
		return err
	}

	cascadeDuration, err := meter.Float64Histogram("harvester_cascade_duration_seconds",
		metric.WithDescription("Full extraction cascade duration per URL, by final status"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	Metrics = &HarvesterMetrics{
		BrowserRendersTotal: browserRenders,
		ProxiesRetiredTotal: proxiesRetired,
		CascadeDuration:     cascadeDuration,
	}

	return nil
}

// RecordBrowserRender counts one browser navigation.
func RecordBrowserRender(ctx context.Context, success bool) {
	m := Metrics
	if m == nil {
		return
	}

	result := "failure"
	if success {
		result = "success"
	}
	m.BrowserRendersTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordProxyRetired counts one proxy removed from rotation.
func RecordProxyRetired(ctx context.Context) {
	m := Metrics
	if m == nil {
		return
	}
	m.ProxiesRetiredTotal.Add(ctx, 1)
}

// RecordCascade records how long one URL spent in the cascade.
func RecordCascade(ctx context.Context, status string, elapsed time.Duration) {
	m := Metrics
	if m == nil {
		return
	}
	m.CascadeDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}
