package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	logx "prayerd/pkg/logx"
)

const redisKeyPrefix = "prayerd:"

type redisKV struct {
	rdb *redis.Client
	log logx.Logger
}

func openRedis(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("storage.addr is required for redis driver")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &slotStore{kv: &redisKV{rdb: rdb, log: log}}, nil
}

func (r *redisKV) put(ctx context.Context, key string, val []byte) error {
	if r == nil || r.rdb == nil {
		return ErrDisabled
	}
	// Slots describe "today"; no TTL, the daily rewrite replaces them.
	return r.rdb.Set(ctx, redisKeyPrefix+key, val, 0).Err()
}

func (r *redisKV) get(ctx context.Context, key string) ([]byte, bool, error) {
	if r == nil || r.rdb == nil {
		return nil, false, ErrDisabled
	}
	b, err := r.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *redisKV) del(ctx context.Context, key string) error {
	if r == nil || r.rdb == nil {
		return ErrDisabled
	}
	return r.rdb.Del(ctx, redisKeyPrefix+key).Err()
}

func (r *redisKV) close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}
