//go:build !linux

package input

import (
	"log/slog"
	"time"
)

// JoystickSource reports no controllers on hosts without the Linux joystick
// API. Keyboard navigation keeps working.
type JoystickSource struct{}

func NewJoystickSource(glob string, rescanInterval time.Duration, logger *slog.Logger) *JoystickSource {
	logger.Warn("joystick API not supported on this platform; controller input disabled")
	return &JoystickSource{}
}

func (s *JoystickSource) Rescan()           {}
func (s *JoystickSource) Sample() []Reading { return nil }
func (s *JoystickSource) Close() error      { return nil }
