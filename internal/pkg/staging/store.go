// Package staging 暂存已上传并解析的体检报告，供后续分析引用。
package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const keyPrefix = "hia:upload:"

var ErrNotFound = errors.New("上传文件不存在或已过期")

// Upload 一次已解析的上传
type Upload struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	FileName  string    `json:"file_name"`
	Pages     int       `json:"pages"`
	Text      string    `json:"text"`
	ObjectKey string    `json:"object_key,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Put 保存上传，未指定 ID 时分配新 ID
func (s *Store) Put(ctx context.Context, up *Upload) error {
	if up.ID == "" {
		up.ID = uuid.NewString()
	}
	up.ExpiresAt = time.Now().Add(s.ttl)

	data, err := json.Marshal(up)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, keyPrefix+up.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("stage upload: %w", err)
	}
	return nil
}

// Get 读取上传，仅上传者本人可见
func (s *Store) Get(ctx context.Context, id string, userID int64) (*Upload, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	raw, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load upload: %w", err)
	}

	var up Upload
	if err := json.Unmarshal(raw, &up); err != nil {
		return nil, fmt.Errorf("decode upload: %w", err)
	}
	if up.UserID != userID {
		return nil, ErrNotFound
	}
	return &up, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, keyPrefix+id).Err()
}
