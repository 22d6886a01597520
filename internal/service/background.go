package service

import (
	"log/slog"
	"math"
	"time"

	"kioskpad/internal/input"
)

// BackgroundOptions configures the combo listener that runs while the UI is
// hidden. Holding two of buttons 6..9 for SuspendTicks monitor intervals
// suspends every running application; holding them for StopTicks stops them.
type BackgroundOptions struct {
	Enabled         bool
	PollInterval    time.Duration
	MonitorInterval time.Duration
	SuspendTicks    int
	StopTicks       int
}

// DefaultBackgroundOptions returns the stock timings: poll every second,
// monitor every 100ms, suspend after 3s and stop after 10s.
func DefaultBackgroundOptions() BackgroundOptions {
	return BackgroundOptions{
		Enabled:         true,
		PollInterval:    time.Second,
		MonitorInterval: 100 * time.Millisecond,
		SuspendTicks:    30,
		StopTicks:       100,
	}
}

const (
	comboFirst = 6
	comboLast  = 9
)

// comboListener watches controllers for the suspend/stop combo. It has no
// timers; the service loop calls step on its own ticker.
type comboListener struct {
	opts   BackgroundOptions
	logger *slog.Logger

	running    bool
	nextPoll   time.Time
	monitoring bool
	device     input.DeviceID
	a, b       int
	held       int
	nextCheck  time.Time
}

func newComboListener(opts BackgroundOptions, logger *slog.Logger) *comboListener {
	def := DefaultBackgroundOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = def.MonitorInterval
	}
	if opts.SuspendTicks <= 0 {
		opts.SuspendTicks = def.SuspendTicks
	}
	if opts.StopTicks <= 0 {
		opts.StopTicks = def.StopTicks
	}
	return &comboListener{opts: opts, logger: logger}
}

// start arms the listener. The first poll happens one poll interval from now.
func (c *comboListener) start(now time.Time) {
	if c.running {
		return
	}
	c.running = true
	c.monitoring = false
	c.nextPoll = now.Add(c.opts.PollInterval)
	c.logger.Debug("background listener started")
}

func (c *comboListener) stop() {
	if !c.running {
		return
	}
	c.running = false
	c.monitoring = false
	c.logger.Debug("background listener stopped")
}

// step advances the listener to now. peek is only called when a poll or a
// monitor check is due.
func (c *comboListener) step(now time.Time, peek func() []input.Device) []Command {
	if !c.running {
		return nil
	}

	if !c.monitoring {
		if now.Before(c.nextPoll) {
			return nil
		}
		c.nextPoll = now.Add(c.opts.PollInterval)
		devices := peek()
		if !c.detect(devices) {
			return nil
		}
		// The first check happens at detection.
		return c.check(now, devices)
	}

	if now.Before(c.nextCheck) {
		return nil
	}
	return c.check(now, peek())
}

// detect looks for a device with exactly two combo buttons held and starts
// monitoring the first one found.
func (c *comboListener) detect(devices []input.Device) bool {
	for _, d := range devices {
		var pressed []int
		for i := comboFirst; i <= comboLast; i++ {
			if buttonHeld(d, i) {
				pressed = append(pressed, i)
			}
		}
		if len(pressed) != 2 {
			continue
		}
		c.monitoring = true
		c.device = d.ID
		c.a, c.b = pressed[0], pressed[1]
		c.held = 0
		c.logger.Info("background combo detected", "device", d.ID.String(), "buttons", pressed)
		return true
	}
	return false
}

func (c *comboListener) check(now time.Time, devices []input.Device) []Command {
	var dev *input.Device
	for i := range devices {
		if devices[i].ID == c.device {
			dev = &devices[i]
			break
		}
	}
	if dev == nil || !buttonHeld(*dev, c.a) || !buttonHeld(*dev, c.b) {
		c.monitoring = false
		return nil
	}

	c.held++
	c.logger.Debug("background combo held", "ticks", c.held)
	switch {
	case c.held >= c.opts.StopTicks:
		c.monitoring = false
		c.logger.Info("background combo: stopping all applications")
		return []Command{CmdStopAll{}}
	case c.held == c.opts.SuspendTicks:
		c.nextCheck = now.Add(c.opts.MonitorInterval)
		c.logger.Info("background combo: suspending all applications")
		return []Command{CmdSuspendAll{}}
	default:
		c.nextCheck = now.Add(c.opts.MonitorInterval)
		return nil
	}
}

func buttonHeld(d input.Device, index int) bool {
	v, ok := d.Value(input.KindButton, index)
	return ok && math.Round(v) >= 1
}
