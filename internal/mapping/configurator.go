package mapping

import (
	"time"

	"github.com/google/uuid"

	"kioskpad/internal/input"
)

// DefaultSettle is the pause after a capture before the next button is asked
// for. It lets an analog stick return to rest so one gesture cannot bind two
// buttons.
const DefaultSettle = 300 * time.Millisecond

// State is the configurator's state.
type State int

const (
	StateAwaiting State = iota
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAwaiting:
		return "awaiting"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Configurator captures a mapping for one device by asking for each button
// of CaptureOrder in turn and binding the next unused raw input.
//
// It is driven by Feed and Tick from the owning goroutine and never starts
// timers of its own.
type Configurator struct {
	id     string
	device input.DeviceID
	settle time.Duration

	state       State
	index       int
	settling    bool
	settleUntil time.Time
	bindings    map[Button]Key
	claimed     map[Key]Button

	closed    bool
	onClose   []func(*Configurator)
	onCapture []func(*Configurator, Button, Key)
}

// NewConfigurator starts a capture session for device.
func NewConfigurator(device input.DeviceID, settle time.Duration) *Configurator {
	return &Configurator{
		id:       uuid.NewString(),
		device:   device,
		settle:   settle,
		bindings: make(map[Button]Key),
		claimed:  make(map[Key]Button),
	}
}

func (c *Configurator) ID() string             { return c.id }
func (c *Configurator) Device() input.DeviceID { return c.device }
func (c *Configurator) State() State           { return c.state }
func (c *Configurator) Index() int             { return c.index }
func (c *Configurator) Closed() bool           { return c.closed }
func (c *Configurator) Settling() bool         { return c.settling }

// Current returns the button being asked for.
func (c *Configurator) Current() (Button, bool) {
	if c.state != StateAwaiting || c.index >= len(CaptureOrder) {
		return "", false
	}
	return CaptureOrder[c.index], true
}

// Binding returns the raw input captured for a button so far.
func (c *Configurator) Binding(b Button) (Key, bool) {
	k, ok := c.bindings[b]
	return k, ok
}

// OnClose registers fn to run once when the session closes, whether it
// finished or was aborted.
func (c *Configurator) OnClose(fn func(*Configurator)) {
	c.onClose = append(c.onClose, fn)
}

// OnCapture registers fn to run after every accepted binding.
func (c *Configurator) OnCapture(fn func(c *Configurator, b Button, k Key)) {
	c.onCapture = append(c.onCapture, fn)
}

// Feed offers a raw event to the session and reports whether it was bound.
// Only presses from the session's device are considered, inputs already
// bound are ignored, and nothing is accepted while settling.
func (c *Configurator) Feed(ev input.RawEvent, now time.Time) bool {
	if c.closed || c.state != StateAwaiting || c.settling {
		return false
	}
	if ev.Device != c.device || !ev.Pressed() {
		return false
	}
	button, ok := c.Current()
	if !ok {
		return false
	}
	key := KeyOf(ev)
	if _, used := c.claimed[key]; used {
		return false
	}

	c.bindings[button] = key
	c.claimed[key] = button
	for _, fn := range c.onCapture {
		fn(c, button, key)
	}

	if c.settle <= 0 {
		c.advance()
		return true
	}
	c.settling = true
	c.settleUntil = now.Add(c.settle)
	return true
}

// Tick advances past a finished settle delay.
func (c *Configurator) Tick(now time.Time) {
	if c.closed || !c.settling || now.Before(c.settleUntil) {
		return
	}
	c.advance()
}

func (c *Configurator) advance() {
	c.settling = false
	c.index++
	if c.index >= len(CaptureOrder) {
		c.state = StateDone
		c.Close()
	}
}

// Reset drops every captured binding and starts over at the first button.
func (c *Configurator) Reset() {
	if c.closed {
		return
	}
	c.index = 0
	c.settling = false
	c.bindings = make(map[Button]Key)
	c.claimed = make(map[Key]Button)
}

// Close ends the session. A session that has not finished is aborted and its
// captures are discarded. Close may be called from a close callback; only
// the first call has any effect.
func (c *Configurator) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.state != StateDone {
		c.state = StateAborted
		c.bindings = make(map[Button]Key)
		c.claimed = make(map[Key]Button)
	}
	for _, fn := range c.onClose {
		fn(c)
	}
}

// Mapping returns the captured table. It is only available once the session
// is done.
func (c *Configurator) Mapping() (Table, bool) {
	if c.state != StateDone {
		return nil, false
	}
	t := make(Table, len(c.claimed))
	for k, b := range c.claimed {
		t[k] = b
	}
	return t, true
}
