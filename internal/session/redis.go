package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "selfchat:session:"

// RedisStore keeps each session as a Redis list of JSON-encoded turns
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) History(ctx context.Context, key string) ([]Turn, error) {
	raw, err := s.client.LRange(ctx, redisKeyPrefix+key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("failed to decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *RedisStore) Append(ctx context.Context, key string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([]any, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode turn: %w", err)
		}
		values = append(values, b)
	}
	if err := s.client.RPush(ctx, redisKeyPrefix+key, values...).Err(); err != nil {
		return fmt.Errorf("failed to append turns: %w", err)
	}
	return nil
}

func (s *RedisStore) Sessions(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), redisKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
