package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMQTTClient_Disabled(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")
	client := NewMQTTClient(MQTTConfig{})
	assert.Nil(t, client)
}

func TestNewMQTTClient_EnvOverridesConfig(t *testing.T) {
	t.Setenv("MQTT_BROKER", "tcp://env-broker:1883")
	t.Setenv("MQTT_CLIENT_ID", "env-client")
	t.Setenv("MQTT_USERNAME", "")

	client := NewMQTTClient(MQTTConfig{Broker: "tcp://config-broker:1883", ClientID: "config-client"})
	require.NotNil(t, client)

	opts := client.OptionsReader()
	require.Len(t, opts.Servers(), 1)
	assert.Equal(t, "env-broker:1883", opts.Servers()[0].Host)
	assert.Equal(t, "env-client", opts.ClientID())
	assert.True(t, opts.AutoReconnect())
	assert.False(t, client.IsConnected())
}

func TestNewMQTTClient_Credentials(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")
	t.Setenv("MQTT_USERNAME", "")
	t.Setenv("MQTT_PASSWORD", "")
	t.Setenv("MQTT_CLIENT_ID", "")

	client := NewMQTTClient(MQTTConfig{Broker: "tcp://localhost:1883", Username: "planner", Password: "pw"})
	require.NotNil(t, client)

	opts := client.OptionsReader()
	assert.Equal(t, "planner", opts.Username())
	assert.Equal(t, "pw", opts.Password())
	assert.Equal(t, "planfuse", opts.ClientID())
}

func TestConnectMQTT(t *testing.T) {
	assert.Error(t, ConnectMQTT(context.Background(), nil))

	client := NewMockClient()
	require.NoError(t, ConnectMQTT(context.Background(), client))
	assert.True(t, client.IsConnected())

	// Already connected is a no-op.
	client.SetConnectError(errors.New("should not be called"))
	assert.NoError(t, ConnectMQTT(context.Background(), client))

	failing := NewMockClient()
	failing.SetConnectError(errors.New("refused"))
	err := ConnectMQTT(context.Background(), failing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
	assert.False(t, failing.IsConnected())
}
