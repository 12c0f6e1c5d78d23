// Package mqtt provides MQTT client connectivity for mqtt-launcher.
//
// This package manages:
//   - Single-attempt connections to the broker (tcp:// or ssl://)
//   - Batched topic subscriptions with SUBACK checking
//   - Report publishing with QoS guarantees
//   - Last Will and Testament on clients/mqtt-launcher
//   - Connection-lost notification for the lifecycle manager
//
// # Reconnection
//
// paho's own auto-reconnect is switched off. The client reports a dropped
// connection through SetOnConnectionLost and the lifecycle manager decides
// when to call Connect again. Each Connect starts a new paho client with a
// persistent session (clean session off), so the broker keeps QoS 2 state
// across reconnects.
//
// # Security Considerations
//
//   - TLS uses the system roots with TLS 1.2 as the minimum version
//   - Credentials are sent only when mqtt_username is set
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client := mqtt.New(cfg.MQTT())
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Disconnect()
//
//	err := client.SubscribeMultiple(map[string]byte{"dev/light": 2},
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	client.Publish("dev/light/report", []byte("ok"), 2, false)
package mqtt
