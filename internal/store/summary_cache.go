package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const summaryKeyPrefix = "review_summary:"

// SummaryCache keeps per-product rating summaries in Redis so the hot
// product pages don't recompute the aggregate on every request. Entries are
// invalidated on any status transition, which keeps the cache honest with
// the approved-only invariant.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached summary for a product, or (nil, nil) on a miss.
func (c *SummaryCache) Get(ctx context.Context, productId string) (*ReviewSummary, error) {
	data, err := c.client.Get(ctx, summaryKeyPrefix+productId).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get summary: %w", err)
	}

	var summary ReviewSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}

	return &summary, nil
}

func (c *SummaryCache) Set(ctx context.Context, summary ReviewSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	if err := c.client.Set(ctx, summaryKeyPrefix+summary.ProductID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set summary: %w", err)
	}

	return nil
}

func (c *SummaryCache) Invalidate(ctx context.Context, productId string) error {
	if err := c.client.Del(ctx, summaryKeyPrefix+productId).Err(); err != nil {
		return fmt.Errorf("redis del summary: %w", err)
	}
	return nil
}
