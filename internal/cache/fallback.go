package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Fallback serves from primary and switches to secondary for any call the
// primary fails. A value written while the primary is down lives only in
// the secondary.
type Fallback struct {
	primary   Cache
	secondary Cache
	logger    zerolog.Logger
}

func NewFallback(primary, secondary Cache, logger zerolog.Logger) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

func (f *Fallback) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := f.primary.Get(ctx, key)
	if err == nil {
		if ok {
			return v, true, nil
		}
		return f.secondary.Get(ctx, key)
	}
	f.logger.Warn().Err(err).Str("key", key).Msg("primary cache read failed")
	return f.secondary.Get(ctx, key)
}

func (f *Fallback) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := f.primary.Set(ctx, key, value, ttl); err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("primary cache write failed")
		if err := f.secondary.Set(ctx, key, value, ttl); err != nil {
			return fmt.Errorf("secondary cache write: %w", err)
		}
	}
	return nil
}

// Delete removes key from both caches.
func (f *Fallback) Delete(ctx context.Context, key string) error {
	perr := f.primary.Delete(ctx, key)
	if err := f.secondary.Delete(ctx, key); err != nil {
		return fmt.Errorf("secondary cache delete: %w", err)
	}
	if perr != nil {
		return fmt.Errorf("primary cache delete: %w", perr)
	}
	return nil
}
