package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/lms-portal/internal/config"
)

// RedisStorage хранит сессию в redis, чтобы несколько терминалов
// одного рабочего места разделяли вход.
type RedisStorage struct {
	Db     *redis.Client
	prefix string
}

// NewRedisStorage создаёт клиент redis. Соединение устанавливается при
// первом запросе; недоступный redis читается как пустая сессия.
func NewRedisStorage(cfg config.RedisConnection, prefix string) *RedisStorage {
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	return &RedisStorage{Db: db, prefix: prefix}
}

// Ping проверяет соединение с redis.
func (r *RedisStorage) Ping(ctx context.Context) error {
	const op = "session.RedisStorage.Ping"
	if err := r.Db.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *RedisStorage) key(k string) string {
	return r.prefix + k
}

func (r *RedisStorage) Get(key string) (string, bool, error) {
	const op = "session.RedisStorage.Get"
	val, err := r.Db.Get(context.Background(), r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return val, true, nil
}

func (r *RedisStorage) Set(key, value string) error {
	const op = "session.RedisStorage.Set"
	if err := r.Db.Set(context.Background(), r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *RedisStorage) Delete(keys ...string) error {
	const op = "session.RedisStorage.Delete"
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.key(k)
	}
	if err := r.Db.Del(context.Background(), prefixed...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает соединение с redis.
func (r *RedisStorage) Close() error {
	return r.Db.Close()
}
