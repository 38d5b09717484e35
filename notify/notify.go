// Package notify provides Notifier implementations: a structured-log sink, a
// bounded in-memory buffer that the HTTP API exposes, and a fan-out.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ruteri/storage-config-detail/interfaces"
)

// Notification is one delivered notification.
type Notification struct {
	Kind    interfaces.NotificationKind `json:"type"`
	Title   string                      `json:"title"`
	Message string                      `json:"message"`
	At      time.Time                   `json:"at"`
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a notifier logging through log.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify implements interfaces.Notifier.
func (n *LogNotifier) Notify(kind interfaces.NotificationKind, title, message string) {
	level := slog.LevelInfo
	if kind == interfaces.NotifyError {
		level = slog.LevelWarn
	}
	n.log.Log(context.Background(), level, "Notification",
		slog.String("kind", string(kind)),
		slog.String("title", title),
		slog.String("message", message))
}

// Buffer keeps the most recent notifications in memory.
type Buffer struct {
	mu       sync.Mutex
	items    []Notification
	capacity int
	now      func() time.Time
}

// NewBuffer creates a buffer holding at most capacity notifications.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{
		capacity: capacity,
		now:      time.Now,
	}
}

// Notify implements interfaces.Notifier. The oldest entry is dropped when the
// buffer is full.
func (b *Buffer) Notify(kind interfaces.NotificationKind, title, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == b.capacity {
		copy(b.items, b.items[1:])
		b.items = b.items[:len(b.items)-1]
	}
	b.items = append(b.items, Notification{
		Kind:    kind,
		Title:   title,
		Message: message,
		At:      b.now(),
	})
}

// Recent returns a copy of the buffered notifications, oldest first.
func (b *Buffer) Recent() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Notification, len(b.items))
	copy(out, b.items)
	return out
}

// Drain returns the buffered notifications and empties the buffer.
func (b *Buffer) Drain() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.items
	b.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Multi fans a notification out to several notifiers.
type Multi []interfaces.Notifier

// Notify implements interfaces.Notifier.
func (m Multi) Notify(kind interfaces.NotificationKind, title, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(kind, title, message)
		}
	}
}

// Discard drops every notification.
type Discard struct{}

// Notify implements interfaces.Notifier.
func (Discard) Notify(interfaces.NotificationKind, string, string) {}
