package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edu-content-workers/internal/common/database"

	"github.com/google/uuid"
)

// Drafts keeps generated programs in Redis until the user saves them.
type Drafts struct {
	redis  *database.RedisClient
	prefix string
	ttl    time.Duration
}

func NewDrafts(redis *database.RedisClient, prefix string, ttl time.Duration) *Drafts {
	return &Drafts{redis: redis, prefix: prefix, ttl: ttl}
}

// Save stores p under a new id and returns it.
func (d *Drafts) Save(ctx context.Context, p Program) (string, error) {
	id := uuid.New().String()
	if err := d.redis.SetJSON(ctx, d.key(id), p, d.ttl); err != nil {
		return "", fmt.Errorf("store draft: %w", err)
	}
	return id, nil
}

// Load returns the draft, or ErrNotFound once it expired or was saved.
func (d *Drafts) Load(ctx context.Context, id string) (*Program, error) {
	var p Program
	err := d.redis.GetJSON(ctx, d.key(id), &p)
	if errors.Is(err, database.ErrCacheMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return &p, nil
}

func (d *Drafts) Delete(ctx context.Context, id string) error {
	return d.redis.Del(ctx, d.key(id))
}

func (d *Drafts) key(id string) string {
	return d.prefix + id
}
