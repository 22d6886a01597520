// Package input samples game controllers and keyboards and turns their state
// into raw change events.
//
// The pipeline is Source -> Sampler -> Diff. A Source reports controllers in
// whatever shape the host gives them (Reading); the Sampler normalizes each
// Reading into a Device with 0..1 buttons and -1..1 axes, tracks attach and
// detach by slot, and diffs consecutive samples into RawEvents.
package input

import (
	"fmt"
	"strings"
)

// Kind is the kind of physical input a raw event came from.
type Kind uint8

const (
	KindButton Kind = iota + 1
	KindAxis
)

func (k Kind) String() string {
	switch k {
	case KindButton:
		return "button"
	case KindAxis:
		return "axis"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// DeviceID identifies a controller: the slot it occupies plus the id string
// the host reports for it. The same slot reporting a different name is a
// different device.
type DeviceID struct {
	Slot int    `json:"slot"`
	Name string `json:"name"`
}

func (d DeviceID) String() string {
	return fmt.Sprintf("%d:%s", d.Slot, d.Name)
}

// Key returns the stable identifier used to persist a mapping for this kind
// of controller. Two identical pads in different slots share a key.
func (d DeviceID) Key() string {
	name := strings.Join(strings.Fields(d.Name), " ")
	if name == "" {
		return fmt.Sprintf("slot-%d", d.Slot)
	}
	return name
}

// Device is one normalized controller sample.
type Device struct {
	ID      DeviceID
	Axes    []float64 // -1..1
	Buttons []float64 // 0..1
	Seq     uint64    // backend sequence stamp; 0 if the backend has none
}

// Key is shorthand for d.ID.Key().
func (d Device) Key() string { return d.ID.Key() }

// Value returns the live value of one input, or false if the device does not
// have it.
func (d Device) Value(kind Kind, index int) (float64, bool) {
	var values []float64
	switch kind {
	case KindButton:
		values = d.Buttons
	case KindAxis:
		values = d.Axes
	default:
		return 0, false
	}
	if index < 0 || index >= len(values) {
		return 0, false
	}
	return values[index], true
}

func (d Device) clone() Device {
	c := d
	c.Axes = append([]float64(nil), d.Axes...)
	c.Buttons = append([]float64(nil), d.Buttons...)
	return c
}

// RawButton is a button as a backend reports it. Digital backends set only
// Pressed; analog ones set Value.
type RawButton struct {
	Pressed bool
	Value   float64
}

// Reading is one controller as reported by a Source, before normalization.
type Reading struct {
	Slot    int
	Name    string
	Axes    []float64
	Buttons []RawButton
	Seq     uint64
}

// Normalize converts a backend reading into a Device. Buttons always come out
// as a 0..1 float and axes are clamped to -1..1.
func Normalize(r Reading) Device {
	d := Device{
		ID:      DeviceID{Slot: r.Slot, Name: r.Name},
		Axes:    make([]float64, len(r.Axes)),
		Buttons: make([]float64, len(r.Buttons)),
		Seq:     r.Seq,
	}
	for i, v := range r.Axes {
		d.Axes[i] = clamp(v, -1, 1)
	}
	for i, b := range r.Buttons {
		d.Buttons[i] = buttonValue(b)
	}
	return d
}

func buttonValue(b RawButton) float64 {
	if b.Value > 0 {
		return clamp(b.Value, 0, 1)
	}
	if b.Pressed {
		return 1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
