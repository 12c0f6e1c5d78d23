package influxdb

import (
	"context"
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementExecution is the measurement holding one point per command run.
const MeasurementExecution = "launcher_execution"

// ExecutionPoint is the data recorded for one command run.
type ExecutionPoint struct {
	Topic       string
	Success     bool
	ExitCode    int
	Duration    time.Duration
	OutputBytes int
	Time        time.Time
}

// newExecutionPoint builds the line protocol point for p.
// Tags stay low cardinality: topic and success only.
func newExecutionPoint(p ExecutionPoint) *write.Point {
	ts := p.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(
		MeasurementExecution,
		map[string]string{
			"topic":   p.Topic,
			"success": strconv.FormatBool(p.Success),
		},
		map[string]interface{}{
			"duration_ms":  p.Duration.Milliseconds(),
			"exit_code":    int64(p.ExitCode),
			"output_bytes": int64(p.OutputBytes),
		},
		ts,
	)
}

// WriteExecution queues one execution point. The write is non-blocking;
// failures are logged asynchronously. Points written after Close are
// dropped and a nil error is returned.
func (c *Client) WriteExecution(_ context.Context, p ExecutionPoint) error {
	if !c.IsConnected() {
		return nil
	}
	c.writeAPI.WritePoint(newExecutionPoint(p))
	return nil
}
