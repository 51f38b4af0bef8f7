package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrBulkheadFull is returned when no slot frees up within MaxWait.
var ErrBulkheadFull = errors.New("bulkhead is full")

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	Name string
	// MaxConcurrent defaults to 10.
	MaxConcurrent int
	// MaxWait bounds how long Acquire blocks on a full bulkhead. Zero waits
	// until the context ends, a negative value never waits.
	MaxWait time.Duration
}

// Bulkhead is a counting semaphore bounding in-flight work. Acquire calls
// made from one goroutine are admitted in call order.
type Bulkhead struct {
	name    string
	maxWait time.Duration
	slots   chan struct{}
}

// NewBulkhead returns an empty bulkhead.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	return &Bulkhead{
		name:    cfg.Name,
		maxWait: cfg.MaxWait,
		slots:   make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Acquire takes a slot and returns the func that gives it back. Calling
// release more than once is a no-op. A context that is already done never
// gets a slot.
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { <-b.slots }) }, nil
}

func (b *Bulkhead) wait(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	default:
	}
	if b.maxWait < 0 {
		return fmt.Errorf("%s: %w", b.name, ErrBulkheadFull)
	}

	var timeout <-chan time.Time
	if b.maxWait > 0 {
		t := time.NewTimer(b.maxWait)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-timeout:
		return fmt.Errorf("%s: %w after %s", b.name, ErrBulkheadFull, b.maxWait)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InUse returns the number of held slots.
func (b *Bulkhead) InUse() int { return len(b.slots) }

// Capacity returns MaxConcurrent.
func (b *Bulkhead) Capacity() int { return cap(b.slots) }
