package app

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const mqttDisconnectQuiesce = 250 // milliseconds

// publisher is the slice of mqtt.Client the producer needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// connectMQTT connects to broker and blocks until the connection is up.
func connectMQTT(component, broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warnf("%s: MQTT connection lost: %v", component, err)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("%s: MQTT connect %s: %w", component, broker, token.Error())
	}
	log.Infof("%s: connected to MQTT broker at %s", component, broker)
	return client, nil
}

// publishJSON marshals v and publishes it retained at QoS 0.
func publishJSON(pub publisher, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal (%s): %w", topic, err)
	}
	if token := pub.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT publish (%s): %w", topic, token.Error())
	}
	return nil
}

// subscribeJSON subscribes to topic and decodes every message into a fresh
// T before handing it to fn. Undecodable payloads are logged and dropped.
func subscribeJSON[T any](client mqtt.Client, component, topic string, fn func(T)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			log.Warnf("%s: %s unmarshal error: %v", component, topic, err)
			return
		}
		fn(v)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("%s: subscribe %s: %w", component, topic, token.Error())
	}
	log.Infof("%s: subscribed to %s", component, topic)
	return nil
}
