package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLockStore struct {
	values map[string]string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}}
}

func (f *fakeLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeLockStore) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeLockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func TestRedisLockAcquireRelease(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisLock(store, "cron:lock:test", time.Hour)
	require.NoError(t, err)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	other, err := NewRedisLock(store, "cron:lock:test", time.Hour)
	require.NoError(t, err)
	ok, err = other.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(context.Background()))

	ok, err = other.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseOnlyOwn(t *testing.T) {
	store := newFakeLockStore()

	first, err := NewRedisLock(store, "cron:lock:test", time.Hour)
	require.NoError(t, err)
	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// simulate expiry followed by another replica taking the lock
	require.NoError(t, store.Del(context.Background(), "cron:lock:test"))
	second, err := NewRedisLock(store, "cron:lock:test", time.Hour)
	require.NoError(t, err)
	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// the stale holder must not free the new owner's lock
	require.NoError(t, first.Release(context.Background()))
	_, held := store.values["cron:lock:test"]
	assert.True(t, held)
}

func TestNewRedisLockValidation(t *testing.T) {
	_, err := NewRedisLock(nil, "key", time.Hour)
	assert.Error(t, err)

	_, err = NewRedisLock(newFakeLockStore(), "", time.Hour)
	assert.Error(t, err)
}
