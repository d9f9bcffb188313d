// File: internal/notify/bus.go
// Description: Fan-out of progress events to registered listeners. The bus is
// a collaborator boundary: listeners are external and optional, and having
// none simply echoes events through the logger.

package notify

import (
	"sync"

	"go.uber.org/zap"
)

// Kind categorizes a progress event.
type Kind string

const (
	KindInfo    Kind = "info"
	KindStep    Kind = "step"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
	KindDone    Kind = "done"
)

// Listener receives every event published on the bus.
type Listener func(message string, kind Kind)

// Bus fans progress events out to zero or more listeners.
type Bus struct {
	logger *zap.Logger

	mu        sync.RWMutex
	listeners []Listener
}

// NewBus creates a bus that echoes to the logger until listeners register.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{logger: logger.Named("notify")}
}

// Register adds a listener. Nil listeners are ignored.
func (b *Bus) Register(l Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Notify publishes one event to all listeners. With no listeners registered
// the event is echoed through the logger at a level matching its kind.
func (b *Bus) Notify(message string, kind Kind) {
	b.mu.RLock()
	listeners := b.listeners
	b.mu.RUnlock()

	if len(listeners) == 0 {
		b.echo(message, kind)
		return
	}
	for _, l := range listeners {
		l(message, kind)
	}
}

func (b *Bus) echo(message string, kind Kind) {
	switch kind {
	case KindWarning:
		b.logger.Warn(message, zap.String("kind", string(kind)))
	case KindError:
		b.logger.Error(message, zap.String("kind", string(kind)))
	default:
		b.logger.Info(message, zap.String("kind", string(kind)))
	}
}
