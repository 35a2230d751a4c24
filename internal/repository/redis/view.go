package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/bookshop/internal/domain"
	apperrors "github.com/utafrali/bookshop/pkg/errors"
)

const keyPrefix = "storefront:view:"

// ViewRepository stores views in Redis as JSON with a sliding TTL.
type ViewRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewViewRepository creates a Redis-backed view repository.
func NewViewRepository(client *redis.Client, ttl time.Duration) *ViewRepository {
	return &ViewRepository{
		client: client,
		ttl:    ttl,
	}
}

func key(id string) string {
	return keyPrefix + id
}

func (r *ViewRepository) Get(ctx context.Context, id string) (*domain.View, error) {
	data, err := r.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("view", id)
		}
		return nil, fmt.Errorf("redis get view: %w", err)
	}

	return decode(data)
}

func (r *ViewRepository) Create(ctx context.Context, view *domain.View) error {
	view.Version = 1
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}

	created, err := r.client.SetNX(ctx, key(view.ID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis create view: %w", err)
	}
	if !created {
		return apperrors.Conflict("view " + view.ID + " already exists")
	}
	return nil
}

// SaveIfVersion uses WATCH/MULTI so the compare and the write are atomic
// with respect to other clients.
func (r *ViewRepository) SaveIfVersion(ctx context.Context, view *domain.View, expectedVersion int) (bool, error) {
	k := key(view.ID)
	saved := false

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, k).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return apperrors.NotFound("view", view.ID)
			}
			return fmt.Errorf("redis get view: %w", err)
		}

		current, err := decode(data)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return nil
		}

		next := view.Clone()
		next.Version = expectedVersion + 1
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal view: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, payload, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		saved = true
		return nil
	}, k)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, err
	}
	if err != nil {
		return false, fmt.Errorf("redis save view: %w", err)
	}
	if saved {
		view.Version = expectedVersion + 1
	}
	return saved, nil
}

func (r *ViewRepository) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, key(id)).Result()
	if err != nil {
		return fmt.Errorf("redis del view: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("view", id)
	}
	return nil
}

func (r *ViewRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func decode(data []byte) (*domain.View, error) {
	var view domain.View
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("unmarshal view: %w", err)
	}
	return &view, nil
}
