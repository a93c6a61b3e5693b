package ledger

import "go.opentelemetry.io/otel/metric/noop"

var noopMeter = noop.NewMeterProvider().Meter(meterName)
