package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/mqtt-launcher/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang for the launcher.
//
// Unlike a self-healing client, it makes exactly one connection attempt per
// Connect call and never reconnects on its own. Each Connect builds a fresh
// paho client; the previous one, if any, is disconnected first. Reconnection
// policy belongs to the caller, which learns about dropped connections
// through SetOnConnectionLost.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	cfg config.MQTTConfig

	// newClient creates the underlying paho client. Replaced in tests.
	newClient func(o *pahomqtt.ClientOptions) pahomqtt.Client

	// client is the current paho client, nil before the first Connect.
	client    pahomqtt.Client
	connected bool
	handler   MessageHandler
	mu        sync.RWMutex

	// onConnectionLost is invoked when the current session drops unexpectedly.
	onConnectionLost func(err error)
	callbackMu       sync.RWMutex

	// logger for error/panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MessageHandler is the callback signature for received messages.
//
// With in-order delivery the handler runs on paho's routing goroutine, so
// it should hand the message off rather than do slow work itself.
//
// Parameters:
//   - topic: The topic the message was received on
//   - payload: The raw message payload
//
// Returns:
//   - error: Logged but does not affect message acknowledgment
type MessageHandler func(topic string, payload []byte) error

// New creates a client for the given broker settings. It does not connect.
func New(cfg config.MQTTConfig) *Client {
	return &Client{
		cfg:       cfg,
		newClient: pahomqtt.NewClient,
	}
}

// Connect opens a new session with the broker.
//
// It performs the following setup:
//  1. Disconnects any previous session
//  2. Builds connection options from config (broker URL, auth, TLS, will)
//  3. Makes a single connection attempt, bounded by the connect timeout and ctx
//
// Messages the broker replays from the persistent session before the next
// SubscribeMultiple are routed to the handler set with SetHandler or the
// most recent SubscribeMultiple.
//
// Returns:
//   - error: ErrConnectionFailed (wrapped) if the broker is unreachable or refuses
func (c *Client) Connect(ctx context.Context) error {
	c.Disconnect()

	opts := buildClientOptions(c.cfg)
	opts.SetConnectionLostHandler(c.handleConnectionLost)
	opts.SetDefaultPublishHandler(c.handleUnrouted)

	client := c.newClient(opts)

	// Registered before the attempt so a drop racing the CONNACK is not lost.
	c.mu.Lock()
	c.client = client
	c.connected = false
	c.mu.Unlock()

	if err := waitToken(ctx, client.Connect(), defaultConnectTimeout); err != nil {
		c.mu.Lock()
		if c.client == client {
			c.client = nil
		}
		c.mu.Unlock()
		client.Disconnect(0)
		return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, brokerURL(c.cfg.Broker), err)
	}

	c.mu.Lock()
	c.connected = c.client == client
	c.mu.Unlock()

	if logger := c.getLogger(); logger != nil {
		logger.Info("connected to MQTT broker",
			"broker", brokerURL(c.cfg.Broker),
			"client_id", c.cfg.Broker.ClientID,
		)
	}
	return nil
}

// handleConnectionLost is paho's connection-lost callback. Events from a
// client that has since been replaced are ignored.
func (c *Client) handleConnectionLost(client pahomqtt.Client, err error) {
	c.mu.Lock()
	current := c.client == client
	if current {
		c.connected = false
	}
	c.mu.Unlock()

	if !current {
		return
	}

	c.callbackMu.RLock()
	callback := c.onConnectionLost
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// handleUnrouted receives messages that arrive before any subscription
// route exists on the current paho client.
func (c *Client) handleUnrouted(client pahomqtt.Client, msg pahomqtt.Message) {
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()

	if handler == nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT message without handler dropped", "topic", msg.Topic())
		}
		return
	}
	c.wrapHandler(handler)(client, msg)
}

// Disconnect closes the current session, if any. Safe to call repeatedly.
func (c *Client) Disconnect() {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.connected = false
	c.mu.Unlock()

	if client != nil && client.IsConnectionOpen() {
		client.Disconnect(defaultDisconnectQuiesce)
	}
}

// HealthCheck verifies the MQTT connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnectionOpen()
}

// SetOnConnectionLost sets a callback invoked when the current session
// drops unexpectedly. It is not called for Disconnect.
func (c *Client) SetOnConnectionLost(callback func(err error)) {
	c.callbackMu.Lock()
	c.onConnectionLost = callback
	c.callbackMu.Unlock()
}

// SetHandler sets the handler for messages that arrive before any
// subscription route exists, such as those the broker replays from the
// persistent session right after the first Connect. Call it before Connect.
func (c *Client) SetHandler(handler MessageHandler) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

// SetLogger sets a logger for error and panic logging.
// If not set, errors in handlers are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// current returns the paho client if a session is established.
func (c *Client) current() (pahomqtt.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected || c.client == nil || !c.client.IsConnectionOpen() {
		return nil, ErrNotConnected
	}
	return c.client, nil
}

// wrapHandler wraps a MessageHandler with panic recovery and optional logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}

// waitToken waits for a paho token, the timeout or ctx, whichever is first.
func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
