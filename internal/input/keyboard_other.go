//go:build !linux

package input

import (
	"context"
	"log/slog"
)

func ReadKeyboards(ctx context.Context, paths []string, out chan<- KeyEvent, logger *slog.Logger) error {
	return ErrKeyboardUnsupported
}
