package notify

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/ruteri/storage-config-detail/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_KeepsMostRecent(t *testing.T) {
	b := NewBuffer(2)
	fixed := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fixed }

	b.Notify(interfaces.NotifySuccess, "one", "first")
	b.Notify(interfaces.NotifyError, "two", "second")
	b.Notify(interfaces.NotifySuccess, "three", "third")

	recent := b.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Title)
	assert.Equal(t, interfaces.NotifyError, recent[0].Kind)
	assert.Equal(t, "three", recent[1].Title)
	assert.Equal(t, fixed, recent[1].At)
}

func TestBuffer_Drain(t *testing.T) {
	b := NewBuffer(4)
	assert.Empty(t, b.Drain())

	b.Notify(interfaces.NotifySuccess, "done", "ok")
	drained := b.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, "done", drained[0].Title)
	assert.Empty(t, b.Recent())
}

func TestMulti(t *testing.T) {
	a := NewBuffer(4)
	b := NewBuffer(4)

	Multi{a, nil, b, Discard{}}.Notify(interfaces.NotifyError, "sync failed", "backend down")

	assert.Len(t, a.Recent(), 1)
	assert.Len(t, b.Recent(), 1)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	NewLogNotifier(logger).Notify(interfaces.NotifyError, "Sync failed", "counter source unavailable")

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "kind=error")
	assert.Contains(t, out, `title="Sync failed"`)
}
