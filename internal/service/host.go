package service

import (
	"errors"
	"fmt"
	"log/slog"

	"kioskpad/internal/navigator"
)

// Host is the launcher side the service drives: it activates items, goes
// back, and suspends or stops running applications. Calls are made from the
// service loop and must not block.
type Host interface {
	Activate(item navigator.Item) error
	Back() error
	SuspendAll() error
	StopAll() error
}

// MultiHost fans every call out to several hosts. Errors are joined.
type MultiHost []Host

func (m MultiHost) Activate(item navigator.Item) error {
	return m.each(func(h Host) error { return h.Activate(item) })
}
func (m MultiHost) Back() error       { return m.each(Host.Back) }
func (m MultiHost) SuspendAll() error { return m.each(Host.SuspendAll) }
func (m MultiHost) StopAll() error    { return m.each(Host.StopAll) }

func (m MultiHost) each(fn func(Host) error) error {
	var errs []error
	for _, h := range m {
		if h == nil {
			continue
		}
		if err := fn(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ==============================
// Commands (side effects)
// ==============================

// Command is a host side effect requested while handling an event. The loop
// runs queued commands after each step so no host call happens mid-step.
type Command interface {
	commandMarker()
	String() string
}

// CmdActivate activates an item.
type CmdActivate struct {
	Item navigator.Item
}

func (CmdActivate) commandMarker()   {}
func (c CmdActivate) String() string { return fmt.Sprintf("CmdActivate(item=%s)", c.Item.ID) }

// CmdBack goes back.
type CmdBack struct{}

func (CmdBack) commandMarker() {}
func (CmdBack) String() string { return "CmdBack()" }

// CmdSuspendAll suspends every running application.
type CmdSuspendAll struct{}

func (CmdSuspendAll) commandMarker() {}
func (CmdSuspendAll) String() string { return "CmdSuspendAll()" }

// CmdStopAll stops every running application.
type CmdStopAll struct{}

func (CmdStopAll) commandMarker() {}
func (CmdStopAll) String() string { return "CmdStopAll()" }

// runEffect executes one command against the host.
func runEffect(host Host, cmd Command, logger *slog.Logger) {
	if host == nil {
		logger.Debug("no host; dropping command", "command", cmd.String())
		return
	}

	var err error
	switch c := cmd.(type) {
	case CmdActivate:
		err = host.Activate(c.Item)
	case CmdBack:
		err = host.Back()
	case CmdSuspendAll:
		err = host.SuspendAll()
	case CmdStopAll:
		err = host.StopAll()
	default:
		logger.Warn("unknown command", "command", fmt.Sprintf("%T", cmd))
		return
	}
	if err != nil {
		logger.Error("host command failed", "command", cmd.String(), "error", err)
	}
}
