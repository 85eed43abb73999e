package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallback_UsesPrimaryWhileHealthy(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	r, err := NewRedis(ctx, RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	mem := NewMemory()
	f := NewFallback(r, mem, zerolog.Nop())

	require.NoError(t, f.Set(ctx, "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists(keyPrefix+"k"))
	assert.Zero(t, mem.Stats().Sets, "secondary untouched while primary works")

	got, ok, err := f.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestFallback_SwitchesWhenPrimaryFails(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	r, err := NewRedis(ctx, RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()
	mr.Close()

	mem := NewMemory()
	f := NewFallback(r, mem, zerolog.Nop())

	require.NoError(t, f.Set(ctx, "k", []byte("v"), time.Minute))
	assert.Equal(t, int64(1), mem.Stats().Sets)

	got, ok, err := f.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	err = f.Delete(ctx, "k")
	assert.Error(t, err, "primary delete failure is reported")
	_, ok, _ = mem.Get(ctx, "k")
	assert.False(t, ok, "secondary is still cleared")
}

func TestFallback_MissFallsThrough(t *testing.T) {
	ctx := context.Background()
	primary, secondary := NewMemory(), NewMemory()
	require.NoError(t, secondary.Set(ctx, "k", []byte("old"), 0))

	f := NewFallback(primary, secondary, zerolog.Nop())
	got, ok, err := f.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("old"), got)
}
