// Package mqtt provides MQTT client connectivity for the gateway and the
// station.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS and payload-size checks
//   - Subscriptions that survive reconnects
//   - Retained online/offline status with a Last Will
//
// # Topics
//
//	requests                    station → gateway, "<city> [<mood>]"
//	<city>                      gateway → station, reply JSON
//	moodcast/status/<client_id> retained online/offline status
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.Requests(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("request: %s", payload)
//	        return nil
//	    })
//
//	client.Publish(mqtt.Topics{}.Reply("Brno"), reply, 1, false)
package mqtt
