package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sekolahpay/ledger-service/internal/domain"
)

// ReportCache caches report summaries. Aggregation reads are lock-free and
// eventually consistent; a short-TTL cache only widens that window.
type ReportCache interface {
	GetSummary(ctx context.Context, key string) (*domain.Summary, bool)
	SetSummary(ctx context.Context, key string, summary domain.Summary)
}

// RedisReportCache implements ReportCache on Redis. Every failure path is a
// cache miss; the report query still runs.
type RedisReportCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisReportCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisReportCache {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "ledger:report_cache"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &RedisReportCache{
		client: client,
		prefix: trimmedPrefix,
		ttl:    ttl,
	}
}

func (r *RedisReportCache) GetSummary(ctx context.Context, key string) (*domain.Summary, bool) {
	if r == nil || r.client == nil {
		return nil, false
	}

	raw, err := r.client.Get(ctx, r.cacheKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("level=warn component=report_cache msg=\"cache read failed; treating as miss\" err=%v", err)
		}
		return nil, false
	}

	var summary domain.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		log.Printf("level=warn component=report_cache msg=\"cached summary corrupt; treating as miss\" err=%v", err)
		return nil, false
	}
	return &summary, true
}

func (r *RedisReportCache) SetSummary(ctx context.Context, key string, summary domain.Summary) {
	if r == nil || r.client == nil {
		return
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.cacheKey(key), raw, r.ttl).Err(); err != nil {
		log.Printf("level=warn component=report_cache msg=\"cache write failed\" err=%v", err)
	}
}

func (r *RedisReportCache) cacheKey(key string) string {
	digest := sha256.Sum256([]byte(key))
	return r.prefix + ":summary:" + hex.EncodeToString(digest[:])
}
