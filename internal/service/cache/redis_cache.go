package cache

import (
	"context"
	"errors"
	"time"

	pkgcache "OracleEngine/pkg/cache"
	"OracleEngine/pkg/logger"
)

// RemoteStore adapts a shared pkg/cache backend (Redis in production) to
// Store. Backend errors are logged and read as misses.
type RemoteStore[V any] struct {
	svc    pkgcache.Service
	prefix string
	ttl    time.Duration
	logger *logger.Logger
}

func NewRemoteStore[V any](svc pkgcache.Service, prefix string, ttl time.Duration, lgr *logger.Logger) *RemoteStore[V] {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	return &RemoteStore[V]{svc: svc, prefix: prefix, ttl: ttl, logger: lgr}
}

func (r *RemoteStore[V]) Get(ctx context.Context, key string) (V, bool) {
	var v V
	if err := r.svc.Get(ctx, pkgcache.Key(r.prefix, key), &v); err != nil {
		if !errors.Is(err, pkgcache.ErrCacheMiss) {
			r.logger.Warn("remote cache get failed", logger.String("key", key), logger.Error(err))
		}
		var zero V
		return zero, false
	}
	return v, true
}

func (r *RemoteStore[V]) Set(ctx context.Context, key string, v V) {
	if err := r.svc.Set(ctx, pkgcache.Key(r.prefix, key), v, r.ttl); err != nil {
		r.logger.Warn("remote cache set failed", logger.String("key", key), logger.Error(err))
	}
}
