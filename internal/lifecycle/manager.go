package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Default timings.
const (
	DefaultReconnectDelay = 10 * time.Second
	DefaultRetryDelay     = 5 * time.Second
	DefaultHealthInterval = 30 * time.Second
)

// backlogWarnStep is how often, in queued messages, a growing backlog is logged.
const backlogWarnStep = 64

// ErrNoSession is returned by New without a session.
var ErrNoSession = errors.New("lifecycle: session is required")

// ErrNoHandler is returned by New without a handler.
var ErrNoHandler = errors.New("lifecycle: handler is required")

// ErrNoTopics is returned by New with an empty topic list.
var ErrNoTopics = errors.New("lifecycle: no topics to subscribe")

// ErrStopped is returned for messages arriving after the worker has exited.
var ErrStopped = errors.New("lifecycle: stopped")

// State is the connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Session is the broker connection the manager drives.
type Session interface {
	// Connect opens a new session. It blocks until the broker accepts or
	// rejects the connection.
	Connect(ctx context.Context) error

	// SubscribeMultiple subscribes all filters in one request.
	SubscribeMultiple(filters map[string]byte, handler func(topic string, payload []byte) error) error

	// SetHandler registers the handler for messages delivered before the
	// first subscription, such as a persistent session's replay.
	SetHandler(handler func(topic string, payload []byte) error)

	// HealthCheck reports whether the current session is still usable.
	HealthCheck(ctx context.Context) error

	// Disconnect closes the current session, if any.
	Disconnect()

	// SetOnConnectionLost registers the callback for unexpected disconnects.
	SetOnConnectionLost(callback func(err error))
}

// Handler processes one inbound message.
type Handler interface {
	HandleMessage(ctx context.Context, topic string, payload []byte) error
}

// Logger defines the logging interface used by the manager.
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

// Options configures a Manager.
type Options struct {
	Session Session
	Handler Handler

	// Topics are subscribed on every connect.
	Topics []string
	QoS    byte

	// ReconnectDelay is the wait after a lost connection.
	ReconnectDelay time.Duration

	// RetryDelay is the wait after a failed connect or subscribe.
	RetryDelay time.Duration

	// HealthInterval is how often a connected session is checked.
	HealthInterval time.Duration

	Logger Logger
}

type message struct {
	topic   string
	payload []byte
}

// Manager owns the session and the dispatch worker.
type Manager struct {
	session        Session
	handler        Handler
	filters        map[string]byte
	reconnectDelay time.Duration
	retryDelay     time.Duration
	healthInterval time.Duration
	logger         Logger

	lost chan error

	// pending is unbounded so the transport callback never blocks.
	qmu     sync.Mutex
	pending []message
	closed  bool
	notify  chan struct{}

	mu    sync.RWMutex
	state State

	// sleep waits for d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) bool
}

// New creates a manager and registers its message handler and loss
// callback with the session. Zero durations take their defaults.
func New(opts Options) (*Manager, error) {
	if opts.Session == nil {
		return nil, ErrNoSession
	}
	if opts.Handler == nil {
		return nil, ErrNoHandler
	}
	if len(opts.Topics) == 0 {
		return nil, ErrNoTopics
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = DefaultHealthInterval
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	filters := make(map[string]byte, len(opts.Topics))
	for _, topic := range opts.Topics {
		filters[topic] = opts.QoS
	}

	m := &Manager{
		session:        opts.Session,
		handler:        opts.Handler,
		filters:        filters,
		reconnectDelay: opts.ReconnectDelay,
		retryDelay:     opts.RetryDelay,
		healthInterval: opts.HealthInterval,
		logger:         opts.Logger,
		lost:           make(chan error, 1),
		notify:         make(chan struct{}, 1),
		state:          StateDisconnected,
		sleep:          sleepContext,
	}
	m.session.SetOnConnectionLost(m.connectionLost)
	m.session.SetHandler(m.enqueue)
	return m, nil
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()

	if prev != s {
		m.logger.Debug("connection state changed", "from", prev.String(), "to", s.String())
	}
}

// Run drives the connection until ctx is cancelled. It always returns nil
// on cancellation; transport errors are retried, never returned.
// Run must be called at most once.
func (m *Manager) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.worker(ctx)
	}()
	defer wg.Wait()

	for {
		if ctx.Err() != nil {
			m.setState(StateDisconnected)
			return nil
		}

		m.drainLost()
		m.setState(StateConnecting)

		if err := m.session.Connect(ctx); err != nil {
			m.setState(StateDisconnected)
			if ctx.Err() != nil {
				return nil
			}
			m.logger.Warn("connection failed, retrying", "error", err, "retry_in", m.retryDelay)
			m.sleep(ctx, m.retryDelay)
			continue
		}

		if err := m.session.SubscribeMultiple(m.filters, m.enqueue); err != nil {
			m.session.Disconnect()
			m.setState(StateDisconnected)
			m.logger.Warn("subscribe failed, retrying", "error", err, "retry_in", m.retryDelay)
			m.sleep(ctx, m.retryDelay)
			continue
		}

		m.setState(StateConnected)
		m.logger.Info("connected and subscribed", "topics", len(m.filters))

		if err := m.watch(ctx); err != nil {
			m.setState(StateDisconnected)
			m.logger.Warn("connection lost, reconnecting", "error", err, "reconnect_in", m.reconnectDelay)
			m.sleep(ctx, m.reconnectDelay)
			continue
		}

		m.session.Disconnect()
		m.setState(StateDisconnected)
		m.logger.Info("disconnected")
		return nil
	}
}

// watch blocks while the session is connected. It returns nil when ctx is
// cancelled, or the reason the session is no longer usable. A session that
// fails its health check is disconnected before watch returns.
func (m *Manager) watch(ctx context.Context) error {
	ticker := time.NewTicker(m.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-m.lost:
			return err
		case <-ticker.C:
			if err := m.session.HealthCheck(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				m.session.Disconnect()
				return fmt.Errorf("health check: %w", err)
			}
		}
	}
}

// connectionLost is registered with the session.
func (m *Manager) connectionLost(err error) {
	select {
	case m.lost <- err:
	default:
	}
}

// drainLost discards loss events left over from a previous session.
func (m *Manager) drainLost() {
	for {
		select {
		case <-m.lost:
		default:
			return
		}
	}
}

// enqueue is the session's message callback. It never blocks: the
// transport's incoming loop also carries acknowledgements and pings.
func (m *Manager) enqueue(topic string, payload []byte) error {
	msg := message{topic: topic, payload: append([]byte(nil), payload...)}

	m.qmu.Lock()
	if m.closed {
		m.qmu.Unlock()
		return ErrStopped
	}
	m.pending = append(m.pending, msg)
	queued := len(m.pending)
	m.qmu.Unlock()

	if queued%backlogWarnStep == 0 {
		m.logger.Warn("message backlog growing", "queued", queued)
	}

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

// dequeue pops the oldest queued message.
func (m *Manager) dequeue() (message, bool) {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	if len(m.pending) == 0 {
		return message{}, false
	}
	msg := m.pending[0]
	m.pending[0] = message{}
	m.pending = m.pending[1:]
	return msg, true
}

// closeQueue rejects further messages and discards what is still queued.
func (m *Manager) closeQueue() {
	m.qmu.Lock()
	m.closed = true
	discarded := len(m.pending)
	m.pending = nil
	m.qmu.Unlock()

	if discarded > 0 {
		m.logger.Info("discarding queued messages on shutdown", "count", discarded)
	}
}

func (m *Manager) worker(ctx context.Context) {
	defer m.closeQueue()
	for {
		if ctx.Err() != nil {
			return
		}
		msg, ok := m.dequeue()
		if !ok {
			select {
			case <-ctx.Done():
			case <-m.notify:
			}
			continue
		}
		if err := m.handler.HandleMessage(ctx, msg.topic, msg.payload); err != nil {
			m.logger.Debug("message not executed", "topic", msg.topic, "reason", err)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
