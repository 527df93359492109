package notify

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/terraincognita07/nestling/internal/logging"
	"github.com/terraincognita07/nestling/internal/security"
	"github.com/terraincognita07/nestling/internal/services"
)

const (
	DefaultMQTTTopic   = "nestling/alarms"
	mqttQoS            = 1
	mqttPublishTimeout = 2 * time.Second
)

// Publisher is the slice of mqtt.Client the sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes alarm outputs as JSON to a local broker. Publishing never
// blocks the caller; delivery failures are logged.
type MQTTSink struct {
	publisher Publisher
	topic     string
	logger    logging.Logger
}

type mqttPayload struct {
	Type        EntryKind         `json:"type"`
	Key         string            `json:"key"`
	Severity    string            `json:"severity,omitempty"`
	Message     string            `json:"message,omitempty"`
	MessageKey  string            `json:"messageKey,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	TriggeredAt int64             `json:"triggeredAt,omitempty"`
	Target      int64             `json:"target,omitempty"`
	ClearedAt   int64             `json:"clearedAt,omitempty"`
	Sound       bool              `json:"sound,omitempty"`
}

func NewMQTTSink(publisher Publisher, topic string, logger logging.Logger) *MQTTSink {
	if topic == "" {
		topic = DefaultMQTTTopic
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &MQTTSink{publisher: publisher, topic: topic, logger: logger}
}

// ConnectMQTT dials broker with auto-reconnect and returns the connected client.
func ConnectMQTT(broker string, logger logging.Logger) (mqtt.Client, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	clientID, err := security.ClientID("nestling")
	if err != nil {
		return nil, fmt.Errorf("generate mqtt client id: %w", err)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.OnConnect = func(mqtt.Client) {
		logger.Infof("mqtt: connected to %s as %s", broker, clientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warnf("mqtt: connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", broker, token.Error())
	}
	return client, nil
}

func (sink *MQTTSink) AlarmFired(fired services.AlarmFired) {
	sink.publish(mqttPayload{
		Type:        EntryFired,
		Key:         fired.Key,
		Severity:    string(fired.Severity),
		Message:     fired.Message,
		MessageKey:  fired.MessageKey,
		Params:      fired.Params,
		TriggeredAt: fired.TriggeredAt.UnixMilli(),
		Target:      fired.Target.UnixMilli(),
		Sound:       fired.Sound,
	})
}

func (sink *MQTTSink) AlarmCleared(cleared services.AlarmCleared) {
	sink.publish(mqttPayload{
		Type:      EntryCleared,
		Key:       cleared.Key,
		ClearedAt: cleared.ClearedAt.UnixMilli(),
	})
}

func (sink *MQTTSink) publish(payload mqttPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		sink.logger.Errorf("mqtt: encode %s payload for %s: %v", payload.Type, payload.Key, err)
		return
	}

	token := sink.publisher.Publish(sink.topic, mqttQoS, false, body)
	go func() {
		if !token.WaitTimeout(mqttPublishTimeout) {
			sink.logger.Warnf("mqtt: publish %s for %s timed out", payload.Type, payload.Key)
			return
		}
		if err := token.Error(); err != nil {
			sink.logger.Errorf("mqtt: publish %s for %s: %v", payload.Type, payload.Key, err)
		}
	}()
}
