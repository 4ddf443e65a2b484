// Package redis keeps the latest summary in a hash and announces it on a channel.
// The danger_animal field only exists while a dangerous animal is in view.
package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"farmwatch/internal/config"
	"farmwatch/internal/model"
)

type Sink struct {
	client  *redis.Client
	key     string
	channel string
}

// New connects to REDIS_ADDR and checks the connection with PING.
func New(ctx context.Context, cfg *config.Config) (*Sink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewWithClient(client, cfg.RedisKey, cfg.RedisChannel), nil
}

func NewWithClient(client *redis.Client, key, channel string) *Sink {
	return &Sink{
		client:  client,
		key:     key,
		channel: channel,
	}
}

func (s *Sink) Name() string {
	return "redis"
}

// Publish writes the hash and publishes the JSON summary in one transaction.
func (s *Sink) Publish(ctx context.Context, summary model.FrameSummary) error {
	payload, err := summary.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	values := map[string]interface{}{
		"warning":      strconv.FormatBool(summary.HumanPresent()),
		"is_danger":    strconv.FormatBool(summary.DangerPresent()),
		"last_updated": summary.TimestampMs(),
		"summary":      string(payload),
	}
	label, danger := summary.DangerLabel()
	if danger {
		values["danger_animal"] = label
	}
	for _, kind := range summary.Kinds() {
		values[kind+"_count"] = summary.Count(kind)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key, values)
	if !danger {
		pipe.HDel(ctx, s.key, "danger_animal")
	}
	if s.channel != "" {
		pipe.Publish(ctx, s.channel, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis transaction failed: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	return s.client.Close()
}
