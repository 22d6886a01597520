package mqttbridge

import (
	"fmt"
	"strconv"
	"strings"

	"kioskpad/internal/navigator"
	"kioskpad/internal/service"
)

// Topics builds topic names under a prefix:
//
//	<prefix>/cmd/<command>    commands in (move, activate, back, visibility, configure, abort)
//	<prefix>/focus            retained focus state
//	<prefix>/devices          retained controller list
//	<prefix>/button           logical button events
//	<prefix>/host/<action>    host actions (activate, back, suspend_all, stop_all)
//	<prefix>/status           retained online/offline
type Topics struct {
	Prefix string
}

func (t Topics) Command(name string) string { return t.Prefix + "/cmd/" + name }
func (t Topics) Commands() string           { return t.Prefix + "/cmd/+" }
func (t Topics) Focus() string              { return t.Prefix + "/focus" }
func (t Topics) Devices() string            { return t.Prefix + "/devices" }
func (t Topics) Button() string             { return t.Prefix + "/button" }
func (t Topics) Host(action string) string  { return t.Prefix + "/host/" + action }
func (t Topics) Status() string             { return t.Prefix + "/status" }

// ParseCommand turns a command message into a service event.
func ParseCommand(prefix, topic string, payload []byte) (service.Event, error) {
	name, ok := strings.CutPrefix(topic, prefix+"/cmd/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	arg := strings.TrimSpace(string(payload))

	switch name {
	case "move":
		if _, err := navigator.ParseDirection(arg); err != nil {
			return nil, err
		}
		return service.Move{Direction: strings.ToLower(arg)}, nil
	case "activate":
		return service.Activate{}, nil
	case "back":
		return service.Back{}, nil
	case "visibility":
		switch strings.ToLower(arg) {
		case "visible", "true", "1", "on":
			return service.SetVisible{Visible: true}, nil
		case "hidden", "false", "0", "off":
			return service.SetVisible{Visible: false}, nil
		default:
			return nil, fmt.Errorf("invalid visibility %q", arg)
		}
	case "configure":
		slot, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid slot %q: %w", arg, err)
		}
		return service.StartConfigurator{Slot: slot}, nil
	case "abort":
		return service.AbortConfigurator{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrInvalidTopic, name)
	}
}
