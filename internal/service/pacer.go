package service

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum interval between calls to one platform. Callers
// reserve the next free slot and sleep until it arrives, so concurrent
// callers are spread out instead of bunching up.
type Pacer struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until the caller may issue its call. The reserved slot is
// kept even when ctx ends first.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.interval <= 0 {
		return ctx.Err()
	}

	p.mu.Lock()
	now := time.Now()
	slot := p.next
	if slot.Before(now) {
		slot = now
	}
	p.next = slot.Add(p.interval)
	p.mu.Unlock()

	return sleepCtx(ctx, time.Until(slot))
}
