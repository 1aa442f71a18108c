// Package mqtt provides MQTT client connectivity for Lumen.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Lumen uses MQTT as its optional announcement bus: the controller's
// decisions (light commands, override changes, device status) are published
// for home-automation platforms and dashboards to consume. The controller
// itself never depends on the broker; when MQTT is disabled or the broker
// is down, lighting decisions continue unaffected.
//
//	Lumen ──► MQTT Broker ──► Home Assistant / dashboards
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
//	// Announce a light command
//	client.PublishRetained(mqtt.Topics{}.LightState(), []byte(`{"on":true}`))
//
//	// Watch another instance's announcements
//	err = client.Subscribe(mqtt.Topics{}.AllEvents(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
