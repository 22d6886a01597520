package service

import (
	"kioskpad/internal/input"
	"kioskpad/internal/mapping"
)

// ButtonEvent is a logical button transition.
type ButtonEvent struct {
	Device   input.DeviceID `json:"device"`
	Button   mapping.Button `json:"button"`
	State    float64        `json:"state"`
	Key      mapping.Key    `json:"key"`
	RawKind  string         `json:"raw_kind"`
	RawIndex int            `json:"raw_index"`
	RawSign  int            `json:"raw_sign,omitempty"`
	RawValue float64        `json:"raw_value"`
}

// Pressed reports whether the button went down.
func (e ButtonEvent) Pressed() bool { return e.State > 0 }

// DeviceEvent reports a controller attach or detach.
type DeviceEvent struct {
	Attached bool       `json:"attached"`
	Device   DeviceInfo `json:"device"`
}

// DeviceInfo describes an attached controller and which mapping it uses.
type DeviceInfo struct {
	Slot    int            `json:"slot"`
	Name    string         `json:"name"`
	Key     string         `json:"key"`
	Origin  mapping.Origin `json:"origin"`
	Axes    int            `json:"axes"`
	Buttons int            `json:"buttons"`
}

// ConfiguratorInfo describes a capture session.
type ConfiguratorInfo struct {
	Session  string                         `json:"session"`
	Device   input.DeviceID                 `json:"device"`
	State    string                         `json:"state"`
	Index    int                            `json:"index"`
	Total    int                            `json:"total"`
	Current  mapping.Button                 `json:"current,omitempty"`
	Settling bool                           `json:"settling,omitempty"`
	Bindings map[mapping.Button]mapping.Key `json:"bindings"`
}

// ConfiguratorEvent types.
const (
	ConfiguratorStarted  = "started"
	ConfiguratorProgress = "progress"
	ConfiguratorClosed   = "closed"
)

// ConfiguratorEvent reports configurator progress.
type ConfiguratorEvent struct {
	Type     string           `json:"type"`
	Info     ConfiguratorInfo `json:"info"`
	Captured mapping.Button   `json:"captured,omitempty"`
	Key      mapping.Key      `json:"key,omitempty"`
}

// ButtonBinding is the raw input currently bound to a logical button and its
// live value.
type ButtonBinding struct {
	Key   mapping.Key `json:"key"`
	Value float64     `json:"value"`
}

// MappingInfo is the active mapping of a device key.
type MappingInfo struct {
	DeviceKey string                           `json:"device_key"`
	Origin    mapping.Origin                   `json:"origin"`
	Table     map[mapping.Key]mapping.Button   `json:"table"`
	Buttons   map[mapping.Button]ButtonBinding `json:"buttons"`
}

// State is a snapshot of the service.
type State struct {
	Visible      bool              `json:"visible"`
	Scope        string            `json:"scope"`
	Focused      string            `json:"focused,omitempty"`
	Devices      []DeviceInfo      `json:"devices"`
	Configurator *ConfiguratorInfo `json:"configurator,omitempty"`
	Repeating    int               `json:"repeating"`
}

func configuratorInfo(c *mapping.Configurator) ConfiguratorInfo {
	info := ConfiguratorInfo{
		Session:  c.ID(),
		Device:   c.Device(),
		State:    c.State().String(),
		Index:    c.Index(),
		Total:    len(mapping.CaptureOrder),
		Settling: c.Settling(),
		Bindings: make(map[mapping.Button]mapping.Key),
	}
	if b, ok := c.Current(); ok {
		info.Current = b
	}
	for _, b := range mapping.CaptureOrder {
		if k, ok := c.Binding(b); ok {
			info.Bindings[b] = k
		}
	}
	return info
}
