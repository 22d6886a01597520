package wsapi

import (
	"kioskpad/internal/input"
	"kioskpad/internal/navigator"
	"kioskpad/internal/service"
)

// Notifier is the subscription surface of the input service.
type Notifier interface {
	OnButton(fn func(service.ButtonEvent)) func()
	OnRaw(fn func(input.RawEvent)) func()
	OnDevice(fn func(service.DeviceEvent)) func()
	OnConfigurator(fn func(service.ConfiguratorEvent)) func()
	OnFocus(fn func(navigator.FocusChange)) func()
}

type rawData struct {
	Device input.DeviceID `json:"device"`
	Kind   string         `json:"kind"`
	Index  int            `json:"index"`
	Sign   int            `json:"sign,omitempty"`
	State  float64        `json:"state"`
	Value  float64        `json:"value"`
}

type focusData struct {
	navigator.FocusChange
	Direction string `json:"direction,omitempty"`
}

type scrollData struct {
	Scope string         `json:"scope"`
	Item  navigator.Item `json:"item"`
}

// Attach broadcasts every service notification to the UI. The returned
// function unsubscribes.
func (h *Hub) Attach(n Notifier) (detach func()) {
	unsubs := []func(){
		n.OnButton(func(e service.ButtonEvent) { h.Broadcast("button", e) }),
		n.OnRaw(func(e input.RawEvent) {
			h.Broadcast("raw", rawData{
				Device: e.Device,
				Kind:   e.Kind.String(),
				Index:  e.Index,
				Sign:   e.Sign,
				State:  e.State,
				Value:  e.Value,
			})
		}),
		n.OnDevice(func(e service.DeviceEvent) {
			if e.Attached {
				h.Broadcast("device_attached", e.Device)
			} else {
				h.Broadcast("device_detached", e.Device)
			}
		}),
		n.OnConfigurator(func(e service.ConfiguratorEvent) {
			h.Broadcast("configurator_"+e.Type, e)
		}),
		n.OnFocus(func(fc navigator.FocusChange) {
			d := focusData{FocusChange: fc}
			if fc.Direction != 0 {
				d.Direction = fc.Direction.String()
			}
			h.Broadcast("focus_changed", d)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// RequestVisible asks the UI to scroll an item into view.
func (h *Hub) RequestVisible(scope string, item navigator.Item) {
	h.Broadcast("scroll_into_view", scrollData{Scope: scope, Item: item})
}

// The UI is the launcher, so host actions are messages to it.

func (h *Hub) Activate(item navigator.Item) error {
	h.Broadcast("activate", item)
	return nil
}

func (h *Hub) Back() error {
	h.Broadcast("back", nil)
	return nil
}

func (h *Hub) SuspendAll() error {
	h.Broadcast("suspend_all", nil)
	return nil
}

func (h *Hub) StopAll() error {
	h.Broadcast("stop_all", nil)
	return nil
}
