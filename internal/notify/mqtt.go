package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/azaan/internal/model"
)

const (
	publishTimeout = 5 * time.Second
	qosAtLeastOnce = 1
)

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Info().Msg("connected to MQTT broker")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Warn().Err(err).Msg("MQTT connection lost")
}

// NewMQTTClient connects a client to brokerURL.
func NewMQTTClient(brokerURL, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.OnConnect = connectHandler
	opts.OnConnectionLost = connectLostHandler

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return client, nil
}

// Report is an event as devices and operators describe it on the wire.
type Report struct {
	Kind   string `json:"kind"`
	Prayer string `json:"prayer,omitempty"`
	Type   string `json:"_type,omitempty"`
}

// Event converts r into a platform event for the notification it refers to.
func (r Report) Event() (Event, error) {
	kind, ok := ParseEventKind(r.Kind)
	if !ok {
		return Event{}, fmt.Errorf("unknown event kind %q", r.Kind)
	}
	if r.Prayer == "" && r.Type == "" {
		return Event{}, fmt.Errorf("event names neither a prayer nor a type")
	}
	id := r.Prayer
	if id == "" {
		id = r.Type
	}
	return Event{
		Kind: kind,
		Notification: model.Notification{
			ID:      id,
			Payload: model.Payload{Type: r.Type, Prayer: r.Prayer},
		},
	}, nil
}

// Bridge mirrors delivered prayer alarms to MQTT devices and feeds device
// reports back into the platform.
type Bridge struct {
	client   mqtt.Client
	prefix   string
	platform Platform

	unsubscribe func()
}

func NewBridge(client mqtt.Client, prefix string, platform Platform) *Bridge {
	return &Bridge{
		client:   client,
		prefix:   strings.TrimSuffix(prefix, "/"),
		platform: platform,
	}
}

// AlarmTopic is where delivered alarms are published.
func (b *Bridge) AlarmTopic(prayer string) string {
	return fmt.Sprintf("%s/alarms/%s", b.prefix, prayer)
}

// EventTopic is the wildcard subscription for device reports.
func (b *Bridge) EventTopic() string {
	return b.prefix + "/devices/+/events"
}

func (b *Bridge) Start() error {
	topic := b.EventTopic()
	if token := b.client.Subscribe(topic, qosAtLeastOnce, b.handleReport); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}
	b.unsubscribe = b.platform.Subscribe(b.publish)
	log.Info().Str("topic", topic).Msg("MQTT bridge started")
	return nil
}

func (b *Bridge) handleReport(_ mqtt.Client, msg mqtt.Message) {
	var report Report
	if err := json.Unmarshal(msg.Payload(), &report); err != nil {
		log.Warn().Err(err).Str("topic", msg.Topic()).Msg("ignoring malformed device report")
		return
	}
	// device reports are prayer taps or wake-ups; delivery and the
	// reschedule marker belong to the local platform
	if report.Kind == string(EventDelivered) || report.Type != "" {
		log.Debug().Str("topic", msg.Topic()).Str("kind", report.Kind).Msg("ignoring device report")
		return
	}
	ev, err := report.Event()
	if err != nil {
		log.Warn().Err(err).Str("topic", msg.Topic()).Msg("ignoring device report")
		return
	}
	log.Debug().Str("topic", msg.Topic()).Str("kind", report.Kind).Msg("device report received")
	b.platform.Dispatch(context.Background(), ev)
}

func (b *Bridge) publish(_ context.Context, ev Event) {
	if ev.Kind != EventDelivered || !ev.Notification.Payload.IsPrayer() {
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode alarm event")
		return
	}
	topic := b.AlarmTopic(ev.Notification.Payload.Prayer)
	token := b.client.Publish(topic, qosAtLeastOnce, false, body)
	if !token.WaitTimeout(publishTimeout) {
		log.Warn().Str("topic", topic).Msg("timed out publishing alarm")
		return
	}
	if err := token.Error(); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("failed to publish alarm")
	}
}

func (b *Bridge) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	if b.client != nil && b.client.IsConnected() {
		b.client.Unsubscribe(b.EventTopic()).WaitTimeout(publishTimeout)
		b.client.Disconnect(250)
		log.Info().Msg("MQTT client disconnected")
	}
}
