package mqttbridge

import (
	"errors"
	"testing"

	"kioskpad/internal/service"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    service.Event
		wantErr bool
	}{
		{"move", "kp/cmd/move", "Left", service.Move{Direction: "left"}, false},
		{"move padded", "kp/cmd/move", " down\n", service.Move{Direction: "down"}, false},
		{"move invalid", "kp/cmd/move", "sideways", nil, true},
		{"activate", "kp/cmd/activate", "", service.Activate{}, false},
		{"back", "kp/cmd/back", "anything", service.Back{}, false},
		{"show", "kp/cmd/visibility", "on", service.SetVisible{Visible: true}, false},
		{"hide", "kp/cmd/visibility", "hidden", service.SetVisible{Visible: false}, false},
		{"visibility invalid", "kp/cmd/visibility", "maybe", nil, true},
		{"configure", "kp/cmd/configure", "2", service.StartConfigurator{Slot: 2}, false},
		{"configure invalid", "kp/cmd/configure", "two", nil, true},
		{"abort", "kp/cmd/abort", "", service.AbortConfigurator{}, false},
		{"unknown", "kp/cmd/reboot", "", nil, true},
		{"wrong prefix", "other/cmd/back", "", nil, true},
		{"nested", "kp/cmd/back/now", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand("kp", tt.topic, []byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %#v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestParseCommandTopicErrors(t *testing.T) {
	_, err := ParseCommand("kp", "kp/cmd/", nil)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Fatalf("expected ErrInvalidTopic, got %v", err)
	}
}

func TestTopics(t *testing.T) {
	tp := Topics{Prefix: "home/kiosk"}
	if got := tp.Commands(); got != "home/kiosk/cmd/+" {
		t.Fatalf("expected home/kiosk/cmd/+, got %s", got)
	}
	if got := tp.Host("stop_all"); got != "home/kiosk/host/stop_all" {
		t.Fatalf("expected home/kiosk/host/stop_all, got %s", got)
	}
	if got := tp.Status(); got != "home/kiosk/status" {
		t.Fatalf("expected home/kiosk/status, got %s", got)
	}
}
