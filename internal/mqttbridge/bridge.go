package mqttbridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"kioskpad/internal/navigator"
	"kioskpad/internal/service"
)

// Publisher is the part of Client the bridge publishes through.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Submitter queues events on the input service.
type Submitter interface {
	Submit(ev service.Event) error
}

// Notifier is the subscription surface of the input service.
type Notifier interface {
	OnButton(fn func(service.ButtonEvent)) func()
	OnDevice(fn func(service.DeviceEvent)) func()
	OnFocus(fn func(navigator.FocusChange)) func()
}

const outboxSize = 128

type outgoing struct {
	topic    string
	payload  []byte
	retained bool
}

type hostAction struct {
	Action string          `json:"action"`
	Item   *navigator.Item `json:"item,omitempty"`
}

// Bridge mirrors service notifications onto MQTT and turns command messages
// into service events. It also acts as a service.Host so home automation can
// react to launcher actions.
//
// Notifications arrive on the service loop; they are queued and published
// by Run so a slow broker never stalls input handling.
type Bridge struct {
	pub    Publisher
	topics Topics
	qos    byte
	logger *slog.Logger

	out chan outgoing

	// devices is only touched from the service loop.
	devices map[int]service.DeviceInfo
}

// NewBridge creates a bridge publishing under prefix.
func NewBridge(pub Publisher, prefix string, qos byte, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		pub:     pub,
		topics:  Topics{Prefix: prefix},
		qos:     qos,
		logger:  logger,
		out:     make(chan outgoing, outboxSize),
		devices: make(map[int]service.DeviceInfo),
	}
}

// Topics returns the bridge's topic layout.
func (b *Bridge) Topics() Topics { return b.topics }

// Run publishes queued messages until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-b.out:
			if err := b.pub.Publish(m.topic, m.payload, b.qos, m.retained); err != nil {
				b.logger.Warn("mqtt publish failed", "topic", m.topic, "error", err)
			}
		}
	}
}

func (b *Bridge) enqueue(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("mqtt marshal failed", "topic", topic, "error", err)
		return
	}
	select {
	case b.out <- outgoing{topic: topic, payload: payload, retained: retained}:
	default:
		b.logger.Warn("mqtt outbox full, dropping message", "topic", topic)
	}
}

// Attach publishes service notifications. The returned function
// unsubscribes.
func (b *Bridge) Attach(n Notifier) (detach func()) {
	unsubs := []func(){
		n.OnButton(func(e service.ButtonEvent) {
			b.enqueue(b.topics.Button(), e, false)
		}),
		n.OnDevice(func(e service.DeviceEvent) {
			if e.Attached {
				b.devices[e.Device.Slot] = e.Device
			} else {
				delete(b.devices, e.Device.Slot)
			}
			b.enqueue(b.topics.Devices(), b.deviceList(), true)
		}),
		n.OnFocus(func(fc navigator.FocusChange) {
			b.enqueue(b.topics.Focus(), fc, true)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (b *Bridge) deviceList() []service.DeviceInfo {
	list := make([]service.DeviceInfo, 0, len(b.devices))
	for _, d := range b.devices {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Slot < list[j].Slot })
	return list
}

// HandleCommand parses a command message and submits it. It has the
// MessageHandler signature so it can be passed to Client.Subscribe.
func (b *Bridge) HandleCommand(sub Submitter) MessageHandler {
	return func(topic string, payload []byte) error {
		ev, err := ParseCommand(b.topics.Prefix, topic, payload)
		if err != nil {
			return err
		}
		b.logger.Debug("mqtt command", "topic", topic)
		return sub.Submit(ev)
	}
}

// Activate implements service.Host.
func (b *Bridge) Activate(item navigator.Item) error {
	b.enqueue(b.topics.Host("activate"), hostAction{Action: "activate", Item: &item}, false)
	return nil
}

// Back implements service.Host.
func (b *Bridge) Back() error {
	b.enqueue(b.topics.Host("back"), hostAction{Action: "back"}, false)
	return nil
}

// SuspendAll implements service.Host.
func (b *Bridge) SuspendAll() error {
	b.enqueue(b.topics.Host("suspend_all"), hostAction{Action: "suspend_all"}, false)
	return nil
}

// StopAll implements service.Host.
func (b *Bridge) StopAll() error {
	b.enqueue(b.topics.Host("stop_all"), hostAction{Action: "stop_all"}, false)
	return nil
}
