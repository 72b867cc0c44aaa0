package redlock

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// lockKeyPrefix namespaces every lease key so CleanupOrphans can scan the
	// lock keyspace without touching dedup or queue keys.
	lockKeyPrefix = "lock:"

	unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
	extendScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('pexpire', KEYS[1], ARGV[2]) else return 0 end"
)

// ErrNotAcquired is returned by Acquire when the lock stayed held by another
// owner for the whole retry budget. It is a coordination outcome, not a store
// failure; callers requeue and move on.
var ErrNotAcquired = fmt.Errorf("lock not acquired within retry budget")

// ErrOwnershipLost is returned by Extend when the stored token no longer
// matches, meaning the lease expired and someone else may now hold the key.
var ErrOwnershipLost = fmt.Errorf("lock ownership lost")

// Lease is a time-bounded, ownership-checked mutual-exclusion grant on a
// resource key. Validity requires both a local expiry check and a store-side
// owner-token match; the token is never shared between holders.
type Lease struct {
	ResourceKey string
	OwnerToken  string
	TTL         time.Duration
	AcquiredAt  time.Time
	ExpiresAt   time.Time
}

// Manager acquires, releases and extends leases against the shared Redis
// store. One Manager is constructed per process and passed to workers.
type Manager struct {
	client       redis.UniversalClient
	retryBackoff time.Duration
}

// NewManager creates a lease manager. retryBackoff is the fixed wait between
// acquisition attempts.
func NewManager(client redis.UniversalClient, retryBackoff time.Duration) *Manager {
	return &Manager{
		client:       client,
		retryBackoff: retryBackoff,
	}
}

// ChannelKey builds the lease key guarding a channel's FIFO processing.
func ChannelKey(channelID string) string {
	return fmt.Sprintf("%schannel:%s", lockKeyPrefix, channelID)
}

// Acquire attempts an atomic create-if-absent of a fresh owner token under
// resourceKey with the given TTL. On contention it waits the fixed backoff and
// retries up to maxRetries times. Returns ErrNotAcquired if the key stayed
// held; store connectivity errors are propagated as-is.
func (m *Manager) Acquire(ctx context.Context, resourceKey string, ttl time.Duration, maxRetries int) (*Lease, error) {
	token := uuid.New().String()

	var lease *Lease
	attempt := func() error {
		acquiredAt := time.Now()
		success, err := m.client.SetNX(ctx, resourceKey, token, ttl).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !success {
			return ErrNotAcquired
		}
		lease = &Lease{
			ResourceKey: resourceKey,
			OwnerToken:  token,
			TTL:         ttl,
			AcquiredAt:  acquiredAt,
			ExpiresAt:   acquiredAt.Add(ttl),
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.retryBackoff), uint64(maxRetries)),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, err
	}
	return lease, nil
}

// Release atomically deletes the key only if the stored token still equals
// the lease's owner token. Returns whether deletion occurred. A lease that
// expired and was re-acquired by another owner is never deleted.
func (m *Manager) Release(ctx context.Context, lease *Lease) (bool, error) {
	result, err := m.client.Eval(ctx, unlockScript, []string{lease.ResourceKey}, lease.OwnerToken).Result()
	if err != nil {
		return false, err
	}
	return result == int64(1), nil
}

// Extend re-validates ownership via the store and refreshes the TTL to
// additionalTTL from now. Returns ErrOwnershipLost if the token no longer
// matches, meaning the original lease already expired.
func (m *Manager) Extend(ctx context.Context, lease *Lease, additionalTTL time.Duration) (*Lease, error) {
	result, err := m.client.Eval(ctx, extendScript, []string{lease.ResourceKey}, lease.OwnerToken, fmt.Sprintf("%d", additionalTTL.Milliseconds())).Result()
	if err != nil {
		return nil, err
	}
	if result == int64(0) {
		return nil, ErrOwnershipLost
	}
	extendedAt := time.Now()
	return &Lease{
		ResourceKey: lease.ResourceKey,
		OwnerToken:  lease.OwnerToken,
		TTL:         additionalTTL,
		AcquiredAt:  lease.AcquiredAt,
		ExpiresAt:   extendedAt.Add(additionalTTL),
	}, nil
}

// IsValid reports whether the lease is still held by its owner. It
// short-circuits on local expiry without a store round-trip, and treats any
// store error as invalid (fail-closed).
func (m *Manager) IsValid(ctx context.Context, lease *Lease) bool {
	if lease == nil || time.Now().After(lease.ExpiresAt) {
		return false
	}
	value, err := m.client.Get(ctx, lease.ResourceKey).Result()
	if err != nil {
		return false
	}
	return value == lease.OwnerToken
}

// ForceRelease unconditionally deletes a lock key, bypassing the ownership
// check. Administrative escape hatch only.
func (m *Manager) ForceRelease(ctx context.Context, resourceKey string) (bool, error) {
	deleted, err := m.client.Del(ctx, resourceKey).Result()
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

// CleanupOrphans scans the lock keyspace and deletes any key that has no
// expiry. A lock without a TTL means a writer crashed mid-acquisition; left
// alone it would block its channel forever. Returns the number reaped.
func (m *Manager) CleanupOrphans(ctx context.Context) (int, error) {
	var reaped int
	iter := m.client.Scan(ctx, 0, lockKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		ttl, err := m.client.TTL(ctx, key).Result()
		if err != nil {
			return reaped, err
		}
		// -1 means the key exists but carries no expiry
		if ttl == -1 {
			if err := m.client.Del(ctx, key).Err(); err != nil {
				return reaped, err
			}
			logrus.Warnf("reaped orphan lock %s", key)
			reaped++
		}
	}
	if err := iter.Err(); err != nil {
		return reaped, err
	}
	return reaped, nil
}
