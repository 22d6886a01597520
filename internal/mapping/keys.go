// Package mapping translates raw controller inputs into logical buttons.
//
// A canonical Key names one physical input source: "button_<i>" for a button,
// "axis_<i>_+" / "axis_<i>_-" for one direction of an axis. A Table maps keys
// to logical Buttons for one kind of controller. The Mapper resolves keys for
// a device using its own table, falling back to StandardLayout when the
// device has none, and the Configurator captures a new table interactively.
package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"kioskpad/internal/input"
)

// Button is a logical button name.
type Button string

const (
	Up     Button = "UP"
	Right  Button = "RIGHT"
	Down   Button = "DOWN"
	Left   Button = "LEFT"
	Select Button = "SELECT"
	Start  Button = "START"
	X      Button = "X"
	Y      Button = "Y"
	B      Button = "B"
	A      Button = "A"
)

// CaptureOrder is the order in which the Configurator asks for buttons.
var CaptureOrder = []Button{Up, Right, Down, Left, Select, Start, X, Y, B, A}

// ParseButton accepts a logical button name in any case.
func ParseButton(s string) (Button, bool) {
	b := Button(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range CaptureOrder {
		if b == known {
			return b, true
		}
	}
	return "", false
}

// Key is a canonical raw input key.
type Key string

// NormalizeKey builds the canonical key for one input. sign is only used for
// axes and must be +1 or -1 there.
func NormalizeKey(kind input.Kind, index, sign int) Key {
	switch kind {
	case input.KindAxis:
		s := "+"
		if sign < 0 {
			s = "-"
		}
		return Key(fmt.Sprintf("axis_%d_%s", index, s))
	default:
		return Key(fmt.Sprintf("button_%d", index))
	}
}

// KeyOf returns the canonical key of a raw event.
func KeyOf(ev input.RawEvent) Key {
	return NormalizeKey(ev.Kind, ev.Index, ev.Sign)
}

// ParseKey splits a canonical key into its parts.
func ParseKey(k Key) (kind input.Kind, index, sign int, err error) {
	parts := strings.Split(string(k), "_")
	switch {
	case len(parts) == 2 && parts[0] == "button":
		index, err = strconv.Atoi(parts[1])
		if err != nil || index < 0 {
			return 0, 0, 0, fmt.Errorf("invalid key %q", k)
		}
		return input.KindButton, index, 0, nil

	case len(parts) == 3 && parts[0] == "axis":
		index, err = strconv.Atoi(parts[1])
		if err != nil || index < 0 {
			return 0, 0, 0, fmt.Errorf("invalid key %q", k)
		}
		switch parts[2] {
		case "+":
			return input.KindAxis, index, 1, nil
		case "-":
			return input.KindAxis, index, -1, nil
		}
	}
	return 0, 0, 0, fmt.Errorf("invalid key %q", k)
}

// parseLegacyKey accepts the key spellings of older saved mappings
// ("buttons_3", "axes_-1", "axes_+0") as well as canonical keys.
func parseLegacyKey(s string) (Key, bool) {
	if _, _, _, err := ParseKey(Key(s)); err == nil {
		return Key(s), true
	}
	switch {
	case strings.HasPrefix(s, "buttons_"):
		i, err := strconv.Atoi(strings.TrimPrefix(s, "buttons_"))
		if err != nil || i < 0 {
			return "", false
		}
		return NormalizeKey(input.KindButton, i, 0), true

	case strings.HasPrefix(s, "axes_") && len(s) > len("axes_")+1:
		rest := strings.TrimPrefix(s, "axes_")
		sign := 1
		switch rest[0] {
		case '-':
			sign = -1
		case '+':
		default:
			return "", false
		}
		i, err := strconv.Atoi(rest[1:])
		if err != nil || i < 0 {
			return "", false
		}
		return NormalizeKey(input.KindAxis, i, sign), true
	}
	return "", false
}
