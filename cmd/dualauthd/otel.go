package main

import (
	"context"
	"log/slog"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const otelExportInterval = time.Minute

// newMeterProvider exports every interval to logger at debug level.
func newMeterProvider(logger *slog.Logger, interval time.Duration) *sdkmetric.MeterProvider {
	reader := sdkmetric.NewPeriodicReader(&slogExporter{logger: logger}, sdkmetric.WithInterval(interval))
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

// slogExporter writes integer sum and gauge data points as log records.
type slogExporter struct {
	logger *slog.Logger
}

func (e *slogExporter) Temporality(kind sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(kind)
}

func (e *slogExporter) Aggregation(kind sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(kind)
}

func (e *slogExporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			var value int64
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					value += dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					value += dp.Value
				}
			default:
				continue
			}
			e.logger.LogAttrs(ctx, slog.LevelDebug, "otel metric",
				slog.String("scope", sm.Scope.Name),
				slog.String("name", m.Name),
				slog.Int64("value", value),
			)
		}
	}
	return nil
}

func (e *slogExporter) ForceFlush(context.Context) error { return nil }

func (e *slogExporter) Shutdown(context.Context) error { return nil }
