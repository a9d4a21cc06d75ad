// Package mqtt provides the broker connection used to hand portal events to
// the notification fan-out.
//
// Roofwatch Core only publishes. Consumers (mailers, webhooks, dashboards)
// subscribe to roofwatch/events/# on the same broker and are owned by other
// services.
//
// The client reconnects automatically with exponential backoff and
// registers a Last Will so subscribers can tell a crash from a graceful
// shutdown on roofwatch/system/status.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Event("building", "update")
//	err = client.Publish(topic, payload, 1, false)
package mqtt
