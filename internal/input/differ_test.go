package input

import "testing"

var pad = DeviceID{Slot: 0, Name: "Test Pad"}

func dev(axes []float64, buttons []float64) Device {
	return Device{ID: pad, Axes: axes, Buttons: buttons}
}

func TestDiff_FirstObservationPressesNonZeroInputs(t *testing.T) {
	cur := dev([]float64{0, -0.9, 0.2}, []float64{0, 1, 0.7})

	evs := Diff(nil, cur)

	if len(evs) != 3 {
		t.Fatalf("expected 3 baseline events, got %d: %+v", len(evs), evs)
	}
	if evs[0].Kind != KindAxis || evs[0].Index != 1 || evs[0].Sign != -1 || !evs[0].Pressed() {
		t.Fatalf("expected axis 1 negative press, got %+v", evs[0])
	}
	if evs[1].Kind != KindButton || evs[1].Index != 1 || !evs[1].Pressed() {
		t.Fatalf("expected button 1 press, got %+v", evs[1])
	}
	if evs[2].Kind != KindButton || evs[2].Index != 2 || !evs[2].Pressed() {
		t.Fatalf("expected button 2 press, got %+v", evs[2])
	}
}

func TestDiff_SteadyStateYieldsNothing(t *testing.T) {
	prev := dev([]float64{0.9, 0.1}, []float64{1, 0})
	cur := dev([]float64{0.7, -0.2}, []float64{0.8, 0.3})

	if evs := Diff(&prev, cur); len(evs) != 0 {
		t.Fatalf("expected no events, got %+v", evs)
	}
}

func TestDiff_AxisCrossingZeroReleasesThenPresses(t *testing.T) {
	prev := dev([]float64{0.8}, nil)
	cur := dev([]float64{-0.6}, nil)

	evs := Diff(&prev, cur)

	if len(evs) != 2 {
		t.Fatalf("expected exactly 2 events, got %d: %+v", len(evs), evs)
	}
	if evs[0].Sign != 1 || evs[0].Pressed() {
		t.Fatalf("expected release of positive direction first, got %+v", evs[0])
	}
	if evs[1].Sign != -1 || !evs[1].Pressed() {
		t.Fatalf("expected press of negative direction second, got %+v", evs[1])
	}
}

func TestDiff_AxisReturnToRest(t *testing.T) {
	prev := dev([]float64{-1}, nil)
	cur := dev([]float64{0.1}, nil)

	evs := Diff(&prev, cur)

	if len(evs) != 1 || evs[0].Sign != -1 || evs[0].Pressed() {
		t.Fatalf("expected single release of negative direction, got %+v", evs)
	}
}

func TestDiff_ButtonTransitions(t *testing.T) {
	cases := []struct {
		name    string
		prev    float64
		cur     float64
		events  int
		pressed bool
	}{
		{"press", 0, 1, 1, true},
		{"release", 1, 0, 1, false},
		{"analog below threshold", 0, 0.4, 0, false},
		{"analog crossing", 0.4, 0.6, 1, true},
		{"held", 1, 0.9, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prev := dev(nil, []float64{tc.prev})
			evs := Diff(&prev, dev(nil, []float64{tc.cur}))
			if len(evs) != tc.events {
				t.Fatalf("expected %d events, got %d", tc.events, len(evs))
			}
			if tc.events == 1 && evs[0].Pressed() != tc.pressed {
				t.Fatalf("expected pressed=%v, got %+v", tc.pressed, evs[0])
			}
		})
	}
}

func TestDiff_ShrinkingButtonListReleasesMissing(t *testing.T) {
	prev := dev(nil, []float64{0, 1})
	cur := dev(nil, []float64{0})

	evs := Diff(&prev, cur)

	if len(evs) != 1 || evs[0].Index != 1 || evs[0].Pressed() {
		t.Fatalf("expected release of button 1, got %+v", evs)
	}
}

func TestNormalize_ButtonShapes(t *testing.T) {
	d := Normalize(Reading{
		Slot:    2,
		Name:    "pad",
		Axes:    []float64{1.5, -3},
		Buttons: []RawButton{{Pressed: true}, {Value: 0.25}, {}, {Value: 7}},
	})

	want := []float64{1, 0.25, 0, 1}
	for i, v := range want {
		if d.Buttons[i] != v {
			t.Fatalf("button %d: expected %v, got %v", i, v, d.Buttons[i])
		}
	}
	if d.Axes[0] != 1 || d.Axes[1] != -1 {
		t.Fatalf("expected clamped axes [1 -1], got %v", d.Axes)
	}
}

func TestDevice_Key(t *testing.T) {
	d := Device{ID: DeviceID{Slot: 1, Name: "  Xbox 360   Wireless Receiver "}}
	if got := d.Key(); got != "Xbox 360 Wireless Receiver" {
		t.Fatalf("expected normalized name, got %q", got)
	}
	d = Device{ID: DeviceID{Slot: 3}}
	if got := d.Key(); got != "slot-3" {
		t.Fatalf("expected slot fallback, got %q", got)
	}
}
