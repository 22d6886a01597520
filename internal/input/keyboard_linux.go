//go:build linux

package input

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// epollTimeoutMS bounds how long the reader waits before checking ctx.
const epollTimeoutMS = 250

// ReadKeyboards reads key events from the given evdev devices with a single
// epoll loop and sends them to out. A device that hangs up is dropped; the
// loop ends when ctx is canceled or no device is left.
func ReadKeyboards(ctx context.Context, paths []string, out chan<- KeyEvent, logger *slog.Logger) error {
	if len(paths) == 0 {
		return errors.New("no keyboard devices provided")
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	fdToFile := make(map[int]*os.File)
	defer func() {
		for _, f := range fdToFile {
			f.Close()
		}
	}()

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			logger.Warn("failed to open keyboard device", "device", path, "error", err, "tip", "run as root or add user to 'input' group")
			continue
		}
		fd := int(f.Fd())
		event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			f.Close()
			return fmt.Errorf("epoll_ctl_add %s: %w", path, err)
		}
		fdToFile[fd] = f
		logger.Info("keyboard device opened", "device", path)
	}
	if len(fdToFile) == 0 {
		return errors.New("no keyboard device could be opened")
	}

	const maxEvents = 16
	epollEvents := make([]unix.EpollEvent, maxEvents)
	buf := make([]byte, inputEventSize)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := unix.EpollWait(epfd, epollEvents, epollTimeoutMS)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			f, ok := fdToFile[fd]
			if !ok {
				continue
			}

			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				logger.Warn("keyboard device hangup", "device", f.Name())
				_ = unix.EpollCtl(epfd, unix.EPOLL_CTL_DEL, fd, nil)
				f.Close()
				delete(fdToFile, fd)
				if len(fdToFile) == 0 {
					return errors.New("all keyboard devices are gone")
				}
				continue
			}

			if _, err := f.Read(buf); err != nil {
				logger.Warn("keyboard read failed", "device", f.Name(), "error", err)
				continue
			}

			ev, err := decodeInputEvent(buf)
			if err != nil || ev.Type != evKey {
				continue
			}

			select {
			case out <- KeyEvent{Device: f.Name(), Code: ev.Code, Value: ev.Value}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
