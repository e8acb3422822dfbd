package utils

import (
	"context"
	"time"
)

// Pacer enforces a minimum interval between successive remote requests.
// It is used from a single goroutine; searches are never run concurrently.
type Pacer struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewPacer creates a Pacer. The first Wait returns immediately.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval, now: time.Now}
}

// Wait blocks until at least interval has passed since the previous Wait
// returned, or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.last.IsZero() && p.interval > 0 {
		if remaining := p.interval - p.now().Sub(p.last); remaining > 0 {
			t := time.NewTimer(remaining)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	p.last = p.now()
	return nil
}
