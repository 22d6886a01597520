//go:build linux

package input

import (
	"encoding/binary"
	"testing"
)

func jsBytes(value int16, typ, number uint8) []byte {
	b := make([]byte, jsEventSize)
	binary.NativeEndian.PutUint32(b[0:4], 1234)
	binary.NativeEndian.PutUint16(b[4:6], uint16(value))
	b[6] = typ
	b[7] = number
	return b
}

func TestJoystick_ApplyEvents(t *testing.T) {
	j := &joystick{slot: 0, name: "pad"}

	j.apply(decodeJSEvent(jsBytes(1, jsEventButton|jsEventInit, 3)))
	j.apply(decodeJSEvent(jsBytes(-32767, jsEventAxis, 1)))
	j.apply(decodeJSEvent(jsBytes(0, 0x7f, 9)))

	r := j.reading()
	if len(r.Buttons) != 4 || !r.Buttons[3].Pressed {
		t.Fatalf("expected button 3 pressed, got %+v", r.Buttons)
	}
	if len(r.Axes) != 2 || r.Axes[1] != -1 {
		t.Fatalf("expected axis 1 at -1, got %+v", r.Axes)
	}
	if r.Seq != 2 {
		t.Fatalf("expected seq 2 (unknown type ignored), got %d", r.Seq)
	}
}

func TestJoystickSlot(t *testing.T) {
	slot, err := joystickSlot("/dev/input/js12")
	if err != nil || slot != 12 {
		t.Fatalf("expected slot 12, got %d err=%v", slot, err)
	}
	if _, err := joystickSlot("/dev/input/event3x"); err == nil {
		t.Fatalf("expected error for non-joystick node")
	}
}
