package main

import (
	"context"

	"github.com/nerrad567/mqtt-launcher/internal/dispatch"
	"github.com/nerrad567/mqtt-launcher/internal/infrastructure/influxdb"
	"github.com/nerrad567/mqtt-launcher/internal/infrastructure/mqtt"
)

// sessionAdapter presents the mqtt client as a lifecycle.Session.
type sessionAdapter struct {
	client *mqtt.Client
}

func (s sessionAdapter) Connect(ctx context.Context) error { return s.client.Connect(ctx) }

func (s sessionAdapter) SubscribeMultiple(filters map[string]byte, handler func(topic string, payload []byte) error) error {
	return s.client.SubscribeMultiple(filters, mqtt.MessageHandler(handler))
}

func (s sessionAdapter) SetHandler(handler func(topic string, payload []byte) error) {
	s.client.SetHandler(mqtt.MessageHandler(handler))
}

func (s sessionAdapter) HealthCheck(ctx context.Context) error { return s.client.HealthCheck(ctx) }

func (s sessionAdapter) Disconnect() { s.client.Disconnect() }

func (s sessionAdapter) SetOnConnectionLost(callback func(err error)) {
	s.client.SetOnConnectionLost(callback)
}

// metricsWriter is the part of influxdb.Client used for execution metrics.
type metricsWriter interface {
	WriteExecution(ctx context.Context, p influxdb.ExecutionPoint) error
}

// metricsRecorder turns executions into InfluxDB points.
type metricsRecorder struct {
	client metricsWriter
}

func (r metricsRecorder) RecordExecution(ctx context.Context, exec dispatch.Execution) error {
	return r.client.WriteExecution(ctx, executionPoint(exec))
}

func executionPoint(exec dispatch.Execution) influxdb.ExecutionPoint {
	return influxdb.ExecutionPoint{
		Topic:       exec.Topic,
		Success:     exec.Success,
		ExitCode:    exec.ExitCode,
		Duration:    exec.Duration,
		OutputBytes: len(exec.Output),
		Time:        exec.ExecutedAt,
	}
}
