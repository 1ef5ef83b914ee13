// Package mqtt provides MQTT client connectivity for PickLight Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for crash detection
//   - Connection health monitoring
//
// # Architecture
//
// PickLight uses MQTT as the bus between the gateway and the ESP32 shelf
// controllers. The broker decouples the gateway from the controllers: a
// controller only needs broker credentials and its own MAC-scoped topics.
//
//	PickLight Core ↔ MQTT Broker ↔ Shelf Controllers (ESP32)
//
// Every command frame carries a one-byte ack id in payload byte 0; the
// controller echoes it back on its ack topic. Topic builders and parsers
// live in topics.go; the ack correlation itself is the ack package's job.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Watch controller announcements
//	err = client.Subscribe(mqtt.Topics{}.Register(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("controller announced: %s", payload)
//	        return nil
//	    })
//
//	// Publish a command frame (byte 0 is the ack id)
//	topic := mqtt.Topics{}.LightAllOff("24:6F:28:AE:52:7C")
//	client.Publish(topic, []byte{ackID}, 1, false)
package mqtt
