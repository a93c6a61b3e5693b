package app

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	tracerName = "github.com/fd1az/flashloan-arb/business/agent/app"
	meterName  = "github.com/fd1az/flashloan-arb/business/agent/app"
)

type agentMetrics struct {
	blocks      metric.Int64Counter
	blockErrors metric.Int64Counter
	scans       metric.Int64Counter
	executions  metric.Int64Counter
	feeSkips    metric.Int64Counter
	roundTime   metric.Float64Histogram
}

func newAgentMetrics() (*agentMetrics, error) {
	meter := otel.Meter(meterName)
	var err error

	m := &agentMetrics{}

	m.blocks, err = meter.Int64Counter(
		"agent_blocks_total",
		metric.WithDescription("Blocks handled by the agent"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return nil, err
	}

	m.blockErrors, err = meter.Int64Counter(
		"agent_block_errors_total",
		metric.WithDescription("Blocks whose handling failed"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return nil, err
	}

	m.scans, err = meter.Int64Counter(
		"agent_scans_total",
		metric.WithDescription("Simulated candidates by result"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return nil, err
	}

	m.executions, err = meter.Int64Counter(
		"agent_executions_total",
		metric.WithDescription("Executions sent by result"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, err
	}

	m.feeSkips, err = meter.Int64Counter(
		"agent_fee_ceiling_skips_total",
		metric.WithDescription("Rounds skipped because the fee market was above the ceiling"),
		metric.WithUnit("{round}"),
	)
	if err != nil {
		return nil, err
	}

	m.roundTime, err = meter.Float64Histogram(
		"agent_round_duration_ms",
		metric.WithDescription("Time to evaluate every candidate of a block"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}
