package repository

import (
	"context"
	"fmt"
	"time"

	"orchardfleet/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

const serviceName = "admin-service"

type redisSessionRepository struct {
	client *redis.Client
}

// NewRedisSessionRepository создает Redis репозиторий черного списка токенов
// и кеша одноразовых nonce. Оба хранилища живут на TTL: записи черного
// списка истекают не позже самого токена, nonce - вместе с окном свежести,
// поэтому рост ограничен без фоновой чистки.
func NewRedisSessionRepository(client *redis.Client) SessionRepository {
	return &redisSessionRepository{client: client}
}

// BlacklistToken отзывает токен по его jti
func (r *redisSessionRepository) BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		// Токен уже истек, отзывать нечего
		return nil
	}

	key := fmt.Sprintf("blacklist:%s", tokenID)

	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpSet)
	defer timer.ObserveDuration()

	if err := r.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpSet)
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	return nil
}

// IsTokenBlacklisted проверяет, отозван ли токен
func (r *redisSessionRepository) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	key := fmt.Sprintf("blacklist:%s", tokenID)

	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpExists)
	defer timer.ObserveDuration()

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpExists)
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}

	return exists > 0, nil
}

// StoreNonce регистрирует nonce одной атомарной операцией SET NX.
// Проверка и вставка не разделяются: два конкурентных запроса с одним
// nonce не могут пройти оба.
func (r *redisSessionRepository) StoreNonce(ctx context.Context, nonce string, window time.Duration) (bool, error) {
	key := fmt.Sprintf("nonce:%s", nonce)

	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpSetNX)
	defer timer.ObserveDuration()

	ok, err := r.client.SetNX(ctx, key, "1", window).Result()
	if err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpSetNX)
		return false, fmt.Errorf("failed to store nonce: %w", err)
	}

	return ok, nil
}
