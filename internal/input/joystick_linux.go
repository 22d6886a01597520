//go:build linux

package input

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// Linux joystick API (linux/joystick.h)
//
//	struct js_event { __u32 time; __s16 value; __u8 type; __u8 number; };
const (
	jsEventSize   = 8
	jsEventButton = 0x01
	jsEventAxis   = 0x02
	jsEventInit   = 0x80

	jsAxisMax = 32767
)

type jsEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

func decodeJSEvent(b []byte) jsEvent {
	return jsEvent{
		Time:   binary.NativeEndian.Uint32(b[0:4]),
		Value:  int16(binary.NativeEndian.Uint16(b[4:6])),
		Type:   b[6],
		Number: b[7],
	}
}

type joystick struct {
	path    string
	slot    int
	name    string
	fd      int
	axes    []float64
	buttons []RawButton
	seq     uint64
}

func (j *joystick) apply(ev jsEvent) {
	n := int(ev.Number)
	switch ev.Type &^ jsEventInit {
	case jsEventButton:
		for len(j.buttons) <= n {
			j.buttons = append(j.buttons, RawButton{})
		}
		j.buttons[n] = RawButton{Pressed: ev.Value != 0}
	case jsEventAxis:
		for len(j.axes) <= n {
			j.axes = append(j.axes, 0)
		}
		j.axes[n] = clamp(float64(ev.Value)/jsAxisMax, -1, 1)
	default:
		return
	}
	j.seq++
}

// drain reads every pending event. It returns false once the device is gone.
func (j *joystick) drain() bool {
	var buf [jsEventSize * 32]byte
	for {
		n, err := unix.Read(j.fd, buf[:])
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				return true
			}
			return false
		}
		if n <= 0 {
			return true
		}
		for off := 0; off+jsEventSize <= n; off += jsEventSize {
			j.apply(decodeJSEvent(buf[off : off+jsEventSize]))
		}
		if n < len(buf) {
			return true
		}
	}
}

func (j *joystick) reading() Reading {
	return Reading{
		Slot:    j.slot,
		Name:    j.name,
		Axes:    append([]float64(nil), j.axes...),
		Buttons: append([]RawButton(nil), j.buttons...),
		Seq:     j.seq,
	}
}

// JoystickSource reads controllers through the kernel joystick API
// (/dev/input/js*). Device nodes are opened non-blocking and drained on every
// Sample, so Sample never blocks.
type JoystickSource struct {
	glob           string
	rescanInterval time.Duration
	logger         *slog.Logger

	mu       sync.Mutex
	devices  map[string]*joystick
	lastScan time.Time
	rescan   atomic.Bool
}

// NewJoystickSource returns a source for device nodes matching glob. The
// node list is refreshed on Rescan and every rescanInterval (0 disables the
// periodic refresh).
func NewJoystickSource(glob string, rescanInterval time.Duration, logger *slog.Logger) *JoystickSource {
	s := &JoystickSource{
		glob:           glob,
		rescanInterval: rescanInterval,
		logger:         logger,
		devices:        make(map[string]*joystick),
	}
	s.rescan.Store(true)
	return s
}

// Rescan asks the next Sample to refresh the device node list. It is safe to
// call from any goroutine.
func (s *JoystickSource) Rescan() { s.rescan.Store(true) }

// Sample implements Source.
func (s *JoystickSource) Sample() []Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.rescan.Swap(false) || (s.rescanInterval > 0 && now.Sub(s.lastScan) >= s.rescanInterval) {
		s.lastScan = now
		s.scan()
	}

	out := make([]Reading, 0, len(s.devices))
	for path, j := range s.devices {
		if !j.drain() {
			s.logger.Info("joystick removed", "path", path, "name", j.name)
			_ = unix.Close(j.fd)
			delete(s.devices, path)
			continue
		}
		out = append(out, j.reading())
	}
	return out
}

func (s *JoystickSource) scan() {
	paths, err := filepath.Glob(s.glob)
	if err != nil {
		s.logger.Warn("joystick glob failed", "glob", s.glob, "error", err)
		return
	}

	present := make(map[string]bool, len(paths))
	for _, path := range paths {
		present[path] = true
		if _, ok := s.devices[path]; ok {
			continue
		}
		j, err := openJoystick(path)
		if err != nil {
			s.logger.Debug("joystick open failed", "path", path, "error", err)
			continue
		}
		s.logger.Info("joystick opened", "path", path, "slot", j.slot, "name", j.name)
		s.devices[path] = j
	}

	for path, j := range s.devices {
		if !present[path] {
			_ = unix.Close(j.fd)
			delete(s.devices, path)
		}
	}
}

// Close releases every open device node.
func (s *JoystickSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, j := range s.devices {
		_ = unix.Close(j.fd)
		delete(s.devices, path)
	}
	return nil
}

func openJoystick(path string) (*joystick, error) {
	slot, err := joystickSlot(path)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return &joystick{
		path: path,
		slot: slot,
		name: joystickName(path),
		fd:   fd,
	}, nil
}

// joystickSlot parses N out of /dev/input/jsN.
func joystickSlot(path string) (int, error) {
	base := filepath.Base(path)
	digits := strings.TrimLeft(base, "abcdefghijklmnopqrstuvwxyz")
	return strconv.Atoi(digits)
}

func joystickName(path string) string {
	base := filepath.Base(path)
	b, err := os.ReadFile(filepath.Join("/sys/class/input", base, "device", "name"))
	if err != nil {
		return base
	}
	name := strings.TrimSpace(string(b))
	if name == "" {
		return base
	}
	return name
}
