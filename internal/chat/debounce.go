package chat

import (
	"context"
	"strings"
	"time"
)

// Debouncer coalesces streamed text deltas. The first delta after a flush
// arms a timer for the window; when it fires, everything received so far is
// flushed as one call. Stop flushes whatever is left.
//
// flush is always called from the debouncer's own goroutine and receives the
// full text accumulated since the start of the stream.
type Debouncer struct {
	window time.Duration
	flush  func(text string) error

	deltas chan string
	failed chan struct{}
	done   chan struct{}

	// Owned by the loop goroutine until done is closed
	text    strings.Builder
	flushed int
	err     error
}

// NewDebouncer creates a debouncer and starts its loop. A zero window
// flushes every delta as soon as it arrives.
func NewDebouncer(window time.Duration, flush func(text string) error) *Debouncer {
	d := &Debouncer{
		window: window,
		flush:  flush,
		deltas: make(chan string),
		failed: make(chan struct{}),
		done:   make(chan struct{}),
	}

	go d.loop()

	return d
}

// Push hands one delta to the debouncer. It returns the first flush error,
// after which the caller should stop streaming.
func (d *Debouncer) Push(ctx context.Context, delta string) error {
	select {
	case <-d.failed:
		return d.err
	default:
	}

	select {
	case d.deltas <- delta:
		return nil
	case <-d.failed:
		return d.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop flushes pending text, ends the loop and returns the full text along
// with the first flush error. Push must not be called after Stop.
func (d *Debouncer) Stop() (string, error) {
	close(d.deltas)
	<-d.done
	return d.text.String(), d.err
}

func (d *Debouncer) loop() {
	defer close(d.done)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case delta, ok := <-d.deltas:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				d.emit()
				return
			}

			d.text.WriteString(delta)
			if d.window <= 0 {
				if !d.emit() {
					d.drain()
					return
				}
				continue
			}
			if timer == nil {
				timer = time.NewTimer(d.window)
				fire = timer.C
			}

		case <-fire:
			timer, fire = nil, nil
			if !d.emit() {
				d.drain()
				return
			}
		}
	}
}

// emit flushes unsent text. It returns false once a flush has failed.
func (d *Debouncer) emit() bool {
	if d.err != nil {
		return false
	}
	if d.text.Len() == d.flushed {
		return true
	}

	d.flushed = d.text.Len()
	if err := d.flush(d.text.String()); err != nil {
		d.err = err
		close(d.failed)
		return false
	}
	return true
}

// drain keeps accepting deltas after a failed flush so Stop still returns
// the full text
func (d *Debouncer) drain() {
	for delta := range d.deltas {
		d.text.WriteString(delta)
	}
}
