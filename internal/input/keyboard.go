package input

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Linux input event constants (linux/input-event-codes.h)
const (
	evKey = 0x01

	KeyEsc       = 1
	KeyBackspace = 14
	KeyEnter     = 28
	KeySpace     = 57
	KeyKPEnter   = 96
	KeyUp        = 103
	KeyLeft      = 105
	KeyRight     = 106
	KeyDown      = 108

	KeyValueRelease = 0
	KeyValuePress   = 1
	KeyValueRepeat  = 2
)

// ErrKeyboardUnsupported is returned by ReadKeyboards on hosts without evdev.
var ErrKeyboardUnsupported = errors.New("evdev keyboard input not supported on this platform")

// KeyEvent is a key transition read from an evdev device.
// Value is KeyValueRelease, KeyValuePress or KeyValueRepeat.
type KeyEvent struct {
	Device string
	Code   uint16
	Value  int32
}

// Down reports whether the key went down or is auto-repeating.
func (e KeyEvent) Down() bool {
	return e.Value == KeyValuePress || e.Value == KeyValueRepeat
}

// inputEvent mirrors struct input_event on 64-bit Linux:
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

func decodeInputEvent(b []byte) (inputEvent, error) {
	var ev inputEvent
	if len(b) < inputEventSize {
		return ev, fmt.Errorf("short input event: %d bytes", len(b))
	}
	if err := binary.Read(bytes.NewReader(b[:inputEventSize]), binary.LittleEndian, &ev); err != nil {
		return ev, err
	}
	return ev, nil
}
