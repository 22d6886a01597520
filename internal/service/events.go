package service

import (
	"encoding/json"
	"fmt"
)

// Event is a marker interface for everything the service loop consumes:
// commands from the UI, the CLI, MQTT and the keyboard reader.
type Event interface {
	eventMarker()
}

// Move moves focus one step. Direction is left, right, up or down.
type Move struct {
	Direction string `json:"direction"`
}

func (Move) eventMarker() {}

// Activate activates the focused item.
type Activate struct{}

func (Activate) eventMarker() {}

// Back asks the host to go back.
type Back struct{}

func (Back) eventMarker() {}

// SetVisible reports whether the UI is shown. Sampling and autorepeat stop
// while it is hidden.
type SetVisible struct {
	Visible bool `json:"visible"`
}

func (SetVisible) eventMarker() {}

// Focus focuses an item directly, as when the UI selects it.
type Focus struct {
	Item string `json:"item"`
}

func (Focus) eventMarker() {}

// SetScope switches the layout scope focus moves within.
type SetScope struct {
	Scope string `json:"scope"`
}

func (SetScope) eventMarker() {}

// StartConfigurator starts a mapping capture for the controller in Slot.
type StartConfigurator struct {
	Slot int `json:"slot"`
}

func (StartConfigurator) eventMarker() {}

// AbortConfigurator closes the running capture without saving it.
type AbortConfigurator struct{}

func (AbortConfigurator) eventMarker() {}

// ResetConfigurator restarts the running capture from the first button.
type ResetConfigurator struct{}

func (ResetConfigurator) eventMarker() {}

// Key is a keyboard key transition (Linux key code, evdev value).
type Key struct {
	Code  uint16 `json:"code"`
	Value int32  `json:"value"`
}

func (Key) eventMarker() {}

// Rescan asks the controller backend to look for added or removed devices.
type Rescan struct{}

func (Rescan) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event.
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return DecodeEvent(env.Type, env.Data)
}

// DecodeEvent builds an Event from a type name and its JSON payload.
func DecodeEvent(typ string, data json.RawMessage) (Event, error) {
	switch typ {
	case "move":
		var e Move
		if err := decodeData(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal Move: %w", err)
		}
		return e, nil

	case "activate":
		return Activate{}, nil
	case "back":
		return Back{}, nil

	case "set_visible":
		var e SetVisible
		if err := decodeData(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal SetVisible: %w", err)
		}
		return e, nil

	case "focus":
		var e Focus
		if err := decodeData(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal Focus: %w", err)
		}
		return e, nil

	case "set_scope":
		var e SetScope
		if err := decodeData(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal SetScope: %w", err)
		}
		return e, nil

	case "start_configurator":
		var e StartConfigurator
		if err := decodeData(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal StartConfigurator: %w", err)
		}
		return e, nil

	case "abort_configurator":
		return AbortConfigurator{}, nil
	case "reset_configurator":
		return ResetConfigurator{}, nil

	case "key":
		var e Key
		if err := decodeData(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal Key: %w", err)
		}
		return e, nil

	case "rescan":
		return Rescan{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", typ)
	}
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("missing data")
	}
	return json.Unmarshal(data, v)
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator.
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope
	var payload any

	switch e := e.(type) {
	case Move:
		env.Type, payload = "move", e
	case Activate:
		env.Type = "activate"
	case Back:
		env.Type = "back"
	case SetVisible:
		env.Type, payload = "set_visible", e
	case Focus:
		env.Type, payload = "focus", e
	case SetScope:
		env.Type, payload = "set_scope", e
	case StartConfigurator:
		env.Type, payload = "start_configurator", e
	case AbortConfigurator:
		env.Type = "abort_configurator"
	case ResetConfigurator:
		env.Type = "reset_configurator"
	case Key:
		env.Type, payload = "key", e
	case Rescan:
		env.Type = "rescan"
	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", env.Type, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}
