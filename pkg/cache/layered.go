package cache

import (
	"context"
	stderrors "errors"
	"time"
)

// Layered reads through a fast front cache to a slower back cache. Hits in
// the back are copied to the front with frontTTL.
type Layered struct {
	front, back Cache
	frontTTL    time.Duration
}

// NewLayered chains front and back.
func NewLayered(front, back Cache, frontTTL time.Duration) *Layered {
	return &Layered{front: front, back: back, frontTTL: frontTTL}
}

// Get consults the front, then the back.
func (l *Layered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if data, ok, err := l.front.Get(ctx, key); err == nil && ok {
		return data, true, nil
	}
	data, ok, err := l.back.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = l.front.Set(ctx, key, data, l.frontTTL)
	return data, true, nil
}

// Set writes both layers.
func (l *Layered) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	front := ttl
	if l.frontTTL > 0 && (front == 0 || l.frontTTL < front) {
		front = l.frontTTL
	}
	return stderrors.Join(l.front.Set(ctx, key, data, front), l.back.Set(ctx, key, data, ttl))
}

// Delete removes key from both layers.
func (l *Layered) Delete(ctx context.Context, key string) error {
	return stderrors.Join(l.front.Delete(ctx, key), l.back.Delete(ctx, key))
}

// Clear clears every layer that supports it.
func (l *Layered) Clear(ctx context.Context) error {
	var errs []error
	for _, c := range []Cache{l.front, l.back} {
		if cl, ok := c.(Clearer); ok {
			errs = append(errs, cl.Clear(ctx))
		}
	}
	return stderrors.Join(errs...)
}

// Close closes both layers.
func (l *Layered) Close() error {
	return stderrors.Join(l.front.Close(), l.back.Close())
}

var (
	_ Cache   = (*Layered)(nil)
	_ Clearer = (*Layered)(nil)
)
