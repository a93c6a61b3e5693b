package app

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	tracerName = "github.com/fd1az/flashloan-arb/business/arbitrage/app"
	meterName  = "github.com/fd1az/flashloan-arb/business/arbitrage/app"
)

// engineMetrics holds metric instruments shared by the engine components.
type engineMetrics struct {
	simulations      metric.Int64Counter
	executions       metric.Int64Counter
	aborts           metric.Int64Counter
	guardRejections  metric.Int64Counter
	paramUpdates     metric.Int64Counter
	withdrawals      metric.Int64Counter
	executionLatency metric.Float64Histogram
}

func newEngineMetrics() (*engineMetrics, error) {
	meter := otel.Meter(meterName)
	var err error

	m := &engineMetrics{}

	m.simulations, err = meter.Int64Counter(
		"arbitrage_simulations_total",
		metric.WithDescription("Simulations by result"),
		metric.WithUnit("{simulation}"),
	)
	if err != nil {
		return nil, err
	}

	m.executions, err = meter.Int64Counter(
		"arbitrage_executions_total",
		metric.WithDescription("Execution attempts by result"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, err
	}

	m.aborts, err = meter.Int64Counter(
		"arbitrage_aborts_total",
		metric.WithDescription("Aborted executions by error category"),
		metric.WithUnit("{abort}"),
	)
	if err != nil {
		return nil, err
	}

	m.guardRejections, err = meter.Int64Counter(
		"arbitrage_guard_rejections_total",
		metric.WithDescription("Trades rejected by the liquidity guard"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, err
	}

	m.paramUpdates, err = meter.Int64Counter(
		"arbitrage_parameter_updates_total",
		metric.WithDescription("Risk parameter updates by result"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, err
	}

	m.withdrawals, err = meter.Int64Counter(
		"arbitrage_withdrawals_total",
		metric.WithDescription("Owner withdrawals"),
		metric.WithUnit("{withdrawal}"),
	)
	if err != nil {
		return nil, err
	}

	m.executionLatency, err = meter.Float64Histogram(
		"arbitrage_execution_duration_ms",
		metric.WithDescription("Execution attempt duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}
