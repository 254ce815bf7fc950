package plan

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// connectTimeout bounds the initial broker handshake
const connectTimeout = 10 * time.Second

// NewMQTTClient builds a paho client from config, with the MQTT_BROKER,
// MQTT_CLIENT_ID, MQTT_USERNAME and MQTT_PASSWORD environment variables
// taking precedence. It returns nil when no broker is configured, which
// disables publishing.
func NewMQTTClient(config MQTTConfig) mqtt.Client {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = config.Broker
	}
	if broker == "" {
		log.Println("MQTT disabled: MQTT_BROKER not set")
		return nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" {
		clientID = config.ClientID
	}
	if clientID == "" {
		clientID = "planfuse"
	}
	opts.SetClientID(clientID)

	username := os.Getenv("MQTT_USERNAME")
	if username == "" {
		username = config.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" {
			password = config.Password
		}
		opts.SetPassword(password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Printf("MQTT connected to %s", broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("MQTT connection interrupted (%v), auto-reconnect will retry", err)
	})

	return mqtt.NewClient(opts)
}

// ConnectMQTT connects client and waits for the handshake, giving up when
// ctx ends or after connectTimeout.
func ConnectMQTT(ctx context.Context, client mqtt.Client) error {
	if client == nil {
		return fmt.Errorf("MQTT client not configured")
	}
	if client.IsConnected() {
		return nil
	}

	log.Println("Connecting to MQTT broker...")
	token := client.Connect()

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("connecting to MQTT broker: %w", ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connecting to MQTT broker: %w", err)
	}
	log.Println("Successfully connected to MQTT broker")
	return nil
}
