// Package loginsession 记录登录令牌的活跃状态，实现空闲超时与注销。
package loginsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "hia:login:"

// ErrExpired 会话不存在、已注销或空闲超时
var ErrExpired = errors.New("会话已过期，请重新登录。")

type record struct {
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	rdb         *redis.Client
	idleTimeout time.Duration
}

func NewStore(rdb *redis.Client, idleTimeout time.Duration) *Store {
	return &Store{rdb: rdb, idleTimeout: idleTimeout}
}

// Start 登录成功后登记令牌
func (s *Store) Start(ctx context.Context, tokenID string, userID int64) error {
	data, err := json.Marshal(record{UserID: userID, CreatedAt: time.Now()})
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, keyPrefix+tokenID, data, s.idleTimeout).Err(); err != nil {
		return fmt.Errorf("store login session: %w", err)
	}
	return nil
}

// Touch 校验令牌仍然活跃并顺延空闲期限
func (s *Store) Touch(ctx context.Context, tokenID string, userID int64) error {
	key := keyPrefix + tokenID

	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrExpired
	}
	if err != nil {
		return fmt.Errorf("load login session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil || rec.UserID != userID {
		return ErrExpired
	}

	ok, err := s.rdb.Expire(ctx, key, s.idleTimeout).Result()
	if err != nil {
		return fmt.Errorf("refresh login session: %w", err)
	}
	if !ok {
		return ErrExpired
	}
	return nil
}

// Revoke 注销令牌，重复注销不报错
func (s *Store) Revoke(ctx context.Context, tokenID string) error {
	return s.rdb.Del(ctx, keyPrefix+tokenID).Err()
}
