// Package sse writes chat events to an HTTP response as Server-Sent Events.
package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/mcpchat/notion-chat/pkg/events"
)

// DefaultPingInterval is used by KeepAlive when no positive interval is given.
const DefaultPingInterval = 15 * time.Second

var (
	// ErrClosed is returned by Send after a previous write failed.
	ErrClosed = errors.New("sse: writer closed")
	// ErrStreamingUnsupported is returned when the response cannot be flushed.
	ErrStreamingUnsupported = errors.New("sse: streaming unsupported by response writer")
)

// Writer serializes events onto a streaming HTTP response. It is safe for
// concurrent use by the request goroutine and the keep-alive loop.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	closed  bool
	// wrote is signalled after every successful write to restart the
	// keep-alive timer.
	wrote chan struct{}
}

// NewWriter sets the event-stream headers, commits the 200 status and flushes.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{
		w:       w,
		flusher: flusher,
		wrote:   make(chan struct{}, 1),
	}, nil
}

// Send writes one event record and flushes it to the client.
func (w *Writer) Send(ctx context.Context, e events.Event) error {
	record, err := events.ToWire(e)
	if err != nil {
		return err
	}
	return w.write(record)
}

// KeepAlive writes a ping comment whenever nothing was written for interval,
// so the connection is never silent for longer than that. It blocks until ctx
// is done or a write fails.
func (w *Writer) KeepAlive(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPingInterval
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wrote:
			timer.Reset(interval)
		case <-timer.C:
			if err := w.write(pingComment(time.Now())); err != nil {
				return
			}
		}
	}
}

func pingComment(t time.Time) string {
	return fmt.Sprintf(": ping - %s\n\n", t.UTC().Format(time.RFC3339))
}

func (w *Writer) write(s string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if _, err := io.WriteString(w.w, s); err != nil {
		w.closed = true
		return fmt.Errorf("sse write: %w", err)
	}
	w.flusher.Flush()
	select {
	case w.wrote <- struct{}{}:
	default:
	}
	return nil
}
