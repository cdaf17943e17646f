package cache

import "context"

// Store is a keyed, TTL-bounded cache of V. Misses and expired entries look
// the same to callers.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, v V)
}

// Tiered reads through a local store first and falls back to a shared one,
// filling the local tier on a remote hit. Writes go to both.
type Tiered[V any] struct {
	local  Store[V]
	remote Store[V]
}

func NewTiered[V any](local, remote Store[V]) *Tiered[V] {
	return &Tiered[V]{local: local, remote: remote}
}

func (t *Tiered[V]) Get(ctx context.Context, key string) (V, bool) {
	if v, ok := t.local.Get(ctx, key); ok {
		return v, true
	}
	if t.remote == nil {
		var zero V
		return zero, false
	}
	v, ok := t.remote.Get(ctx, key)
	if ok {
		t.local.Set(ctx, key, v)
	}
	return v, ok
}

func (t *Tiered[V]) Set(ctx context.Context, key string, v V) {
	t.local.Set(ctx, key, v)
	if t.remote != nil {
		t.remote.Set(ctx, key, v)
	}
}
