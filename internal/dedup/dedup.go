package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sniperthink/chatcore/model"
)

// Deduper suppresses re-processing of identical message bodies on the same
// channel inside a short TTL window. Keys are content hashes, not transport
// message IDs: provider delivery retries arrive with fresh IDs but the same
// body.
type Deduper struct {
	client redis.UniversalClient
	window time.Duration
}

// NewDeduper creates a dedup service with the given suppression window.
func NewDeduper(client redis.UniversalClient, window time.Duration) *Deduper {
	return &Deduper{
		client: client,
		window: window,
	}
}

func dedupKey(channelID, content string) string {
	return fmt.Sprintf("dedup:%s:%s", channelID, model.HashContent(content))
}

// IsDuplicate reports whether this exact body was already accepted for the
// channel within the window. Store errors are propagated; the caller decides
// whether to fail the request.
func (d *Deduper) IsDuplicate(ctx context.Context, channelID, content string) (bool, error) {
	exists, err := d.client.Exists(ctx, dedupKey(channelID, content)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// MarkProcessed records the body as accepted for the channel. The key expires
// on its own after the window.
func (d *Deduper) MarkProcessed(ctx context.Context, channelID, content string) error {
	return d.MarkProcessedTTL(ctx, channelID, content, d.window)
}

// MarkProcessedTTL is MarkProcessed with an explicit window override.
func (d *Deduper) MarkProcessedTTL(ctx context.Context, channelID, content string, ttl time.Duration) error {
	return d.client.Set(ctx, dedupKey(channelID, content), "1", ttl).Err()
}

// Remove deletes the dedup mark. Compensation path: when downstream
// processing fails after marking, the mark must go so a legitimate provider
// retry is not permanently suppressed. Returns whether a mark was removed.
func (d *Deduper) Remove(ctx context.Context, channelID, content string) (bool, error) {
	deleted, err := d.client.Del(ctx, dedupKey(channelID, content)).Result()
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}
