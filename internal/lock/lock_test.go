package redlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewManager(client, 10*time.Millisecond), mr
}

func TestManager_Acquire_Success(t *testing.T) {
	m, mr := newTestManager(t)

	lease, err := m.Acquire(context.Background(), ChannelKey("ch1"), 5*time.Second, 3)
	assert.NoError(t, err)
	assert.NotNil(t, lease)
	assert.Equal(t, "lock:channel:ch1", lease.ResourceKey)
	assert.NotEmpty(t, lease.OwnerToken)

	stored, err := mr.Get("lock:channel:ch1")
	assert.NoError(t, err)
	assert.Equal(t, lease.OwnerToken, stored)
}

func TestManager_Acquire_Contention(t *testing.T) {
	m, mr := newTestManager(t)

	mr.Set("lock:channel:ch1", "someone-else")
	mr.SetTTL("lock:channel:ch1", 10*time.Second)

	lease, err := m.Acquire(context.Background(), ChannelKey("ch1"), 5*time.Second, 2)
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.Nil(t, lease)
}

func TestManager_Acquire_AfterTTLExpiry(t *testing.T) {
	m, mr := newTestManager(t)

	// Worker A holds the lease with a 5s TTL and then crashes without release.
	leaseA, err := m.Acquire(context.Background(), ChannelKey("ch1"), 5*time.Second, 0)
	assert.NoError(t, err)

	// Before expiry worker B cannot get in.
	_, err = m.Acquire(context.Background(), ChannelKey("ch1"), 5*time.Second, 0)
	assert.ErrorIs(t, err, ErrNotAcquired)

	// After the TTL elapses the key self-heals and B succeeds.
	mr.FastForward(6 * time.Second)
	leaseB, err := m.Acquire(context.Background(), ChannelKey("ch1"), 5*time.Second, 0)
	assert.NoError(t, err)
	assert.NotEqual(t, leaseA.OwnerToken, leaseB.OwnerToken)
}

func TestManager_Release_Success(t *testing.T) {
	m, mr := newTestManager(t)

	lease, err := m.Acquire(context.Background(), ChannelKey("ch1"), 5*time.Second, 0)
	assert.NoError(t, err)

	released, err := m.Release(context.Background(), lease)
	assert.NoError(t, err)
	assert.True(t, released)
	assert.False(t, mr.Exists("lock:channel:ch1"))
}

func TestManager_Release_NotOwner(t *testing.T) {
	m, mr := newTestManager(t)

	lease, err := m.Acquire(context.Background(), ChannelKey("ch1"), 5*time.Second, 0)
	assert.NoError(t, err)

	// Simulate expiry followed by re-acquisition under a different owner.
	mr.Set("lock:channel:ch1", "new-owner-token")

	released, err := m.Release(context.Background(), lease)
	assert.NoError(t, err)
	assert.False(t, released)
	assert.True(t, mr.Exists("lock:channel:ch1"))
}

func TestManager_Extend_Success(t *testing.T) {
	m, _ := newTestManager(t)

	lease, err := m.Acquire(context.Background(), ChannelKey("ch1"), 2*time.Second, 0)
	assert.NoError(t, err)

	extended, err := m.Extend(context.Background(), lease, 10*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, lease.OwnerToken, extended.OwnerToken)
	assert.True(t, extended.ExpiresAt.After(lease.ExpiresAt))
}

func TestManager_Extend_OwnershipLost(t *testing.T) {
	m, mr := newTestManager(t)

	lease, err := m.Acquire(context.Background(), ChannelKey("ch1"), 2*time.Second, 0)
	assert.NoError(t, err)

	mr.Set("lock:channel:ch1", "new-owner-token")

	extended, err := m.Extend(context.Background(), lease, 10*time.Second)
	assert.ErrorIs(t, err, ErrOwnershipLost)
	assert.Nil(t, extended)
}

func TestManager_IsValid(t *testing.T) {
	m, mr := newTestManager(t)

	lease, err := m.Acquire(context.Background(), ChannelKey("ch1"), 5*time.Second, 0)
	assert.NoError(t, err)
	assert.True(t, m.IsValid(context.Background(), lease))

	// Another owner took the key over: token mismatch invalidates the lease.
	mr.Set("lock:channel:ch1", "new-owner-token")
	assert.False(t, m.IsValid(context.Background(), lease))

	// Local expiry short-circuits without consulting the store.
	expired := &Lease{
		ResourceKey: "lock:channel:ch1",
		OwnerToken:  lease.OwnerToken,
		ExpiresAt:   time.Now().Add(-time.Second),
	}
	assert.False(t, m.IsValid(context.Background(), expired))
}

func TestManager_TwoLeases_NeverBothValid(t *testing.T) {
	m, mr := newTestManager(t)

	leaseA, err := m.Acquire(context.Background(), ChannelKey("ch1"), 5*time.Second, 0)
	assert.NoError(t, err)

	mr.FastForward(6 * time.Second)

	leaseB, err := m.Acquire(context.Background(), ChannelKey("ch1"), 5*time.Second, 0)
	assert.NoError(t, err)

	assert.False(t, m.IsValid(context.Background(), leaseA))
	assert.True(t, m.IsValid(context.Background(), leaseB))
}

func TestManager_ForceRelease(t *testing.T) {
	m, mr := newTestManager(t)

	_, err := m.Acquire(context.Background(), ChannelKey("ch1"), 5*time.Second, 0)
	assert.NoError(t, err)

	removed, err := m.ForceRelease(context.Background(), ChannelKey("ch1"))
	assert.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, mr.Exists("lock:channel:ch1"))

	removed, err = m.ForceRelease(context.Background(), ChannelKey("ch1"))
	assert.NoError(t, err)
	assert.False(t, removed)
}

func TestManager_CleanupOrphans(t *testing.T) {
	m, mr := newTestManager(t)

	// A healthy lease with a TTL and two orphans written without expiry.
	_, err := m.Acquire(context.Background(), ChannelKey("ch1"), 5*time.Second, 0)
	assert.NoError(t, err)
	mr.Set("lock:channel:ch2", "orphan-token")
	mr.Set("lock:channel:ch3", "orphan-token")
	// A non-lock key without TTL must not be touched.
	mr.Set("dedup:ch1:abc", "1")

	reaped, err := m.CleanupOrphans(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, reaped)

	assert.True(t, mr.Exists("lock:channel:ch1"))
	assert.False(t, mr.Exists("lock:channel:ch2"))
	assert.False(t, mr.Exists("lock:channel:ch3"))
	assert.True(t, mr.Exists("dedup:ch1:abc"))
}

func TestManager_IsValid_FailsClosedOnStoreError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	m := NewManager(client, 10*time.Millisecond)

	lease := &Lease{
		ResourceKey: ChannelKey("ch1"),
		OwnerToken:  "owner-token",
		ExpiresAt:   time.Now().Add(time.Minute),
	}
	mock.ExpectGet(lease.ResourceKey).SetErr(errors.New("connection reset"))

	// A lease whose ownership cannot be confirmed is treated as lost.
	assert.False(t, m.IsValid(context.Background(), lease))
	assert.NoError(t, mock.ExpectationsWereMet())
}
