package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"tempora/internal/record/models"
	id "tempora/pkg/domain"
)

const dispatchCacheKeyPrefix = "tempora:dr:"

// CachedDispatchStore fronts a durable DispatchStore with a Redis
// read-through cache. Retries of recently completed commands are served from
// Redis without touching Postgres; the durable store stays the source of
// truth, so cache misses and Redis outages only cost a database read.
type CachedDispatchStore struct {
	inner  DispatchStore
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedDispatchStore(inner DispatchStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedDispatchStore {
	return &CachedDispatchStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (s *CachedDispatchStore) Find(ctx context.Context, tenantID id.TenantID, requestID string) (models.DispatchRecord, error) {
	key := dispatchCacheKeyPrefix + tenantID.String() + ":" + requestID

	raw, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		var record models.DispatchRecord
		if err := json.Unmarshal(raw, &record); err == nil {
			return record, nil
		}
		// Corrupt entry: fall through to the durable store and rewrite below.
	} else if !errors.Is(err, redis.Nil) {
		s.logger.WarnContext(ctx, "dispatch cache read failed", "error", err.Error())
	}

	record, err := s.inner.Find(ctx, tenantID, requestID)
	if err != nil {
		return models.DispatchRecord{}, err
	}
	s.cache(ctx, key, record)
	return record, nil
}

func (s *CachedDispatchStore) Save(ctx context.Context, record models.DispatchRecord) error {
	if err := s.inner.Save(ctx, record); err != nil {
		return err
	}
	s.cache(ctx, dispatchCacheKeyPrefix+record.TenantID.String()+":"+record.RequestID, record)
	return nil
}

func (s *CachedDispatchStore) cache(ctx context.Context, key string, record models.DispatchRecord) {
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "dispatch cache write failed", "error", err.Error())
	}
}
