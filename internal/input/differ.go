package input

import "math"

// RawEvent is a single state transition of one physical input.
//
// For axes each direction is its own input: Sign is +1 or -1 and State tells
// whether that direction became active (1) or inactive (0). Buttons have
// Sign 0. Value is the unrounded value at the time of the sample.
type RawEvent struct {
	Device DeviceID
	Kind   Kind
	Index  int
	Sign   int
	State  float64
	Value  float64
}

// Pressed reports whether the event is a transition into the active state.
func (e RawEvent) Pressed() bool { return e.State > 0 }

// Diff compares two samples of the same device and returns the transitions
// between them. A nil prev is a first observation: every input that is not
// at rest produces a press.
//
// Axes are rounded to -1, 0 or 1. A jump from one direction straight to the
// other yields a release of the old direction followed by a press of the new
// one, so listeners never see both directions of an axis active together.
func Diff(prev *Device, cur Device) []RawEvent {
	var out []RawEvent

	var prevAxes, prevButtons []float64
	if prev != nil {
		prevAxes = prev.Axes
		prevButtons = prev.Buttons
	}

	for i := 0; i < max(len(prevAxes), len(cur.Axes)); i++ {
		pv := at(prevAxes, i)
		cv := at(cur.Axes, i)
		ps := int(math.Round(pv))
		cs := int(math.Round(cv))
		if ps == cs {
			continue
		}
		if ps != 0 {
			out = append(out, RawEvent{Device: cur.ID, Kind: KindAxis, Index: i, Sign: ps, State: 0, Value: cv})
		}
		if cs != 0 {
			out = append(out, RawEvent{Device: cur.ID, Kind: KindAxis, Index: i, Sign: cs, State: 1, Value: cv})
		}
	}

	for i := 0; i < max(len(prevButtons), len(cur.Buttons)); i++ {
		pv := at(prevButtons, i)
		cv := at(cur.Buttons, i)
		if math.Round(pv) == math.Round(cv) {
			continue
		}
		out = append(out, RawEvent{Device: cur.ID, Kind: KindButton, Index: i, State: math.Round(cv), Value: cv})
	}

	return out
}

func at(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}
