//go:build integration

package mqtt

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nerrad567/mqtt-launcher/internal/infrastructure/config"
)

// Integration tests against a real broker.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig(t *testing.T) config.MQTTConfig {
	cfg := testConfig()
	cfg.Broker.ClientID = fmt.Sprintf("mqtt-launcher-it-%d", time.Now().UnixNano())
	return cfg
}

func TestIntegration_ConnectAndDisconnect(t *testing.T) {
	c := New(integrationConfig(t))

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !c.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}

	c.Disconnect()
	if c.IsConnected() {
		t.Error("IsConnected() = true after Disconnect")
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := integrationConfig(t)
	cfg.Broker.Port = 19998

	if err := New(cfg).Connect(context.Background()); err == nil {
		t.Fatal("Connect() should fail for refused connection")
	}
}

func TestIntegration_ReportRoundtrip(t *testing.T) {
	c := New(integrationConfig(t))
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Disconnect()

	topic := fmt.Sprintf("mqtt-launcher/test/%d", time.Now().UnixNano())
	received := make(chan string, 1)

	err := c.SubscribeMultiple(map[string]byte{topic: 2}, func(_ string, payload []byte) error {
		received <- string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("SubscribeMultiple() error = %v", err)
	}

	if err := c.Publish(topic, []byte("hello"), 2, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got != "hello" {
			t.Errorf("payload = %q, want hello", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}

func TestIntegration_Reconnect(t *testing.T) {
	c := New(integrationConfig(t))
	for i := 0; i < 3; i++ {
		if err := c.Connect(context.Background()); err != nil {
			t.Fatalf("Connect() attempt %d error = %v", i, err)
		}
		if !c.IsConnected() {
			t.Fatalf("IsConnected() = false after attempt %d", i)
		}
	}
	c.Disconnect()
}
