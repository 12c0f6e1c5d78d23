package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/mqtt-launcher/internal/executor"
	"github.com/nerrad567/mqtt-launcher/internal/routes"
)

// ReportSuffix is appended to a topic to form its report topic.
const ReportSuffix = "/report"

// recordTimeout bounds each recorder call.
const recordTimeout = 5 * time.Second

// ReportTopic returns the topic results for topic are published on.
func ReportTopic(topic string) string {
	return topic + ReportSuffix
}

// Publisher sends reports to the broker.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Runner executes a resolved command.
type Runner interface {
	Execute(ctx context.Context, argv []string) executor.Result
}

// Recorder receives a record of every execution.
type Recorder interface {
	RecordExecution(ctx context.Context, exec Execution) error
}

// Logger defines the logging interface used by the dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Outcome is what Dispatch did with a message.
type Outcome int

const (
	// OutcomeRejected means the parameter failed the printable filter.
	OutcomeRejected Outcome = iota
	// OutcomeUnrouted means the topic is not in the routing table.
	OutcomeUnrouted
	// OutcomeUnmatched means the topic is routed but no variant applies.
	OutcomeUnmatched
	// OutcomeExecuted means a command ran and a report was attempted.
	OutcomeExecuted
)

// String returns the outcome name used in logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeUnrouted:
		return "unrouted"
	case OutcomeUnmatched:
		return "unmatched"
	case OutcomeExecuted:
		return "executed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Err maps the outcome to the error HandleMessage returns.
func (o Outcome) Err() error {
	switch o {
	case OutcomeRejected:
		return ErrRejected
	case OutcomeUnrouted:
		return ErrUnrouted
	case OutcomeUnmatched:
		return ErrUnmatched
	default:
		return nil
	}
}

// Execution records one command run.
type Execution struct {
	ID         string
	Topic      string
	Parameter  *string
	Command    []string
	Output     string
	Success    bool
	ExitCode   int
	Duration   time.Duration
	ExecutedAt time.Time
}

// Options configures a Dispatcher.
type Options struct {
	Routes    *routes.Table
	Runner    Runner
	Publisher Publisher

	// QoS is used for report publishes.
	QoS byte

	// Recorders are optional.
	Recorders []Recorder

	Logger Logger
}

// Dispatcher routes messages to commands and publishes their results.
type Dispatcher struct {
	routes    *routes.Table
	runner    Runner
	publisher Publisher
	qos       byte
	recorders []Recorder
	logger    Logger

	// mu serialises executions.
	mu sync.Mutex
}

// New creates a dispatcher.
//
// Returns:
//   - *Dispatcher: Ready to dispatch
//   - error: ErrNoRoutes, ErrNoRunner or ErrNoPublisher if a dependency is missing
func New(opts Options) (*Dispatcher, error) {
	if opts.Routes == nil {
		return nil, ErrNoRoutes
	}
	if opts.Runner == nil {
		return nil, ErrNoRunner
	}
	if opts.Publisher == nil {
		return nil, ErrNoPublisher
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	recorders := make([]Recorder, 0, len(opts.Recorders))
	for _, r := range opts.Recorders {
		if r != nil {
			recorders = append(recorders, r)
		}
	}

	return &Dispatcher{
		routes:    opts.Routes,
		runner:    opts.Runner,
		publisher: opts.Publisher,
		qos:       opts.QoS,
		recorders: recorders,
		logger:    opts.Logger,
	}, nil
}

// HandleMessage dispatches an inbound message. The payload is always a
// present parameter, possibly empty.
//
// Returns nil when the command ran (whatever its exit status), or
// ErrRejected, ErrUnrouted or ErrUnmatched.
func (d *Dispatcher) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	param := string(payload)
	return d.Dispatch(ctx, topic, &param).Err()
}

// Dispatch resolves and runs the command for topic. A nil param means no
// parameter was supplied.
func (d *Dispatcher) Dispatch(ctx context.Context, topic string, param *string) Outcome {
	if param != nil && !isPrintable(*param) {
		d.logger.Debug("parameter contains non-printable characters, ignoring",
			"topic", topic,
			"parameter", fmt.Sprintf("%q", *param),
		)
		return OutcomeRejected
	}

	route, ok := d.routes.Lookup(topic)
	if !ok {
		d.logger.Info("topic not configured", "topic", topic)
		return OutcomeUnrouted
	}

	cmd, ok := route.Resolve(param)
	if !ok {
		d.logger.Info("no matching command for parameter",
			"topic", topic,
			"parameter", paramValue(param),
		)
		return OutcomeUnmatched
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Debug("running command",
		"topic", topic,
		"parameter", paramValue(param),
		"command", cmd.String(),
	)

	executedAt := time.Now().UTC()
	res := d.runner.Execute(ctx, cmd)

	if res.Success {
		d.logger.Info("command executed",
			"topic", topic,
			"command", cmd.String(),
			"duration", res.Duration,
		)
	} else {
		d.logger.Warn("command failed",
			"topic", topic,
			"command", cmd.String(),
			"exit_code", res.ExitCode,
			"error", res.Err,
		)
	}

	report := ReportTopic(topic)
	if err := d.publisher.Publish(report, []byte(res.Output), d.qos, false); err != nil {
		d.logger.Error("failed to publish report", "topic", report, "error", err)
	}

	d.record(ctx, Execution{
		ID:         uuid.NewString(),
		Topic:      topic,
		Parameter:  param,
		Command:    cmd,
		Output:     res.Output,
		Success:    res.Success,
		ExitCode:   res.ExitCode,
		Duration:   res.Duration,
		ExecutedAt: executedAt,
	})

	return OutcomeExecuted
}

// record hands exec to every recorder. Runs even after ctx is cancelled so a
// command that ran during shutdown is still recorded.
func (d *Dispatcher) record(ctx context.Context, exec Execution) {
	if len(d.recorders) == 0 {
		return
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	for _, r := range d.recorders {
		if err := r.RecordExecution(rctx, exec); err != nil {
			d.logger.Warn("failed to record execution",
				"execution_id", exec.ID,
				"topic", exec.Topic,
				"error", err,
			)
		}
	}
}

func paramValue(param *string) any {
	if param == nil {
		return nil
	}
	return *param
}
