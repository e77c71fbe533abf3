package console

import (
	"context"
	"log/slog"
	"sync"
)

// TerminalNavigator tracks the current screen. Commands wait on it to
// follow a redirect issued by the session or a callback handler.
type TerminalNavigator struct {
	log *slog.Logger

	mu       sync.Mutex
	location string
	history  []string
	moved    chan struct{}
}

func NewTerminalNavigator(log *slog.Logger) *TerminalNavigator {
	return &TerminalNavigator{log: log, moved: make(chan struct{})}
}

func (n *TerminalNavigator) Navigate(path string) {
	n.mu.Lock()
	n.location = path
	n.history = append(n.history, path)
	close(n.moved)
	n.moved = make(chan struct{})
	n.mu.Unlock()

	n.log.Debug("navigate", "path", path)
}

func (n *TerminalNavigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

func (n *TerminalNavigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}

// Wait blocks until the navigator is at path.
func (n *TerminalNavigator) Wait(ctx context.Context, path string) error {
	for {
		n.mu.Lock()
		at := n.location == path
		ch := n.moved
		n.mu.Unlock()

		if at {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
