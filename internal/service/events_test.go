package service

import (
	"reflect"
	"testing"
)

func TestEventEnvelopeRoundTrip(t *testing.T) {
	events := []Event{
		Move{Direction: "left"},
		Activate{},
		Back{},
		SetVisible{Visible: true},
		Focus{Item: "tile-3"},
		SetScope{Scope: "settings"},
		StartConfigurator{Slot: 1},
		AbortConfigurator{},
		ResetConfigurator{},
		Key{Code: 103, Value: 1},
		Rescan{},
	}
	for _, ev := range events {
		b, err := MarshalEvent(ev)
		if err != nil {
			t.Fatalf("marshal %T: %v", ev, err)
		}
		got, err := UnmarshalEvent(b)
		if err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if !reflect.DeepEqual(got, ev) {
			t.Fatalf("expected %#v, got %#v", ev, got)
		}
	}
}

func TestUnmarshalEventErrors(t *testing.T) {
	cases := map[string]string{
		"not json":     `{`,
		"unknown type": `{"type":"jump"}`,
		"missing data": `{"type":"move"}`,
		"bad data":     `{"type":"start_configurator","data":{"slot":"one"}}`,
	}
	for name, in := range cases {
		if _, err := UnmarshalEvent([]byte(in)); err == nil {
			t.Fatalf("%s: expected error for %s", name, in)
		}
	}
}

func TestMarshalEventRejectsInternalQueries(t *testing.T) {
	if _, err := MarshalEvent(snapshotQuery{}); err == nil {
		t.Fatalf("expected error for an unsupported event")
	}
}
