package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/calvinwijaya/blackjack-be/internal/game"
)

// Key prefix for all archive data
const keyPrefix = "blackjack"

// sessionKey returns the Redis key for a session record
func sessionKey(id string) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, id)
}

// roundsKey returns the Redis key for the LIST of settled rounds of a session
func roundsKey(sessionID string) string {
	return fmt.Sprintf("%s:rounds:%s", keyPrefix, sessionID)
}

// RedisConfig holds Redis connection and retention settings
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	PoolSize     int
	MinIdleConns int

	// TTL applied to session and round keys, refreshed on every write. Zero keeps them forever.
	TTL time.Duration
}

// DefaultRedisConfig returns sensible defaults for the Redis archive
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		TTL:          7 * 24 * time.Hour,
	}
}

// RedisArchive keeps round history in Redis lists
type RedisArchive struct {
	client *redis.Client
	cfg    RedisConfig
	logger *log.Logger
}

var _ Archive = (*RedisArchive)(nil)

// NewRedisArchive connects to Redis
func NewRedisArchive(ctx context.Context, cfg RedisConfig, logger *log.Logger) (*RedisArchive, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisArchiveWithClient(client, cfg, logger), nil
}

// NewRedisArchiveWithClient wraps an existing client (for testing)
func NewRedisArchiveWithClient(client *redis.Client, cfg RedisConfig, logger *log.Logger) *RedisArchive {
	return &RedisArchive{
		client: client,
		cfg:    cfg,
		logger: logger.WithPrefix("redis"),
	}
}

// Close closes the Redis connection
func (a *RedisArchive) Close() error {
	return a.client.Close()
}

func (a *RedisArchive) SaveSession(ctx context.Context, info SessionInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return a.client.Set(ctx, sessionKey(info.ID), data, a.cfg.TTL).Err()
}

func (a *RedisArchive) SaveRound(ctx context.Context, sessionID string, summary game.RoundSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	// Use pipeline so the round and the TTL refresh land together
	_, err = a.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, roundsKey(sessionID), data)
		if a.cfg.TTL > 0 {
			pipe.Expire(ctx, roundsKey(sessionID), a.cfg.TTL)
			pipe.Expire(ctx, sessionKey(sessionID), a.cfg.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error saving round %s: %w", summary.RoundID, err)
	}

	a.logger.Debug("round archived", "session", sessionID, "round", summary.Number, "outcome", summary.Outcome)
	return nil
}

func (a *RedisArchive) GetRounds(ctx context.Context, sessionID string) ([]game.RoundSummary, error) {
	if _, err := a.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	items, err := a.client.LRange(ctx, roundsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	rounds := make([]game.RoundSummary, 0, len(items))
	for _, item := range items {
		var summary game.RoundSummary
		if err := json.Unmarshal([]byte(item), &summary); err != nil {
			return nil, err
		}
		rounds = append(rounds, summary)
	}
	return rounds, nil
}

func (a *RedisArchive) GetStats(ctx context.Context, sessionID string) (*Stats, error) {
	info, err := a.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rounds, err := a.GetRounds(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{SessionID: sessionID, Name: info.Name}
	for _, summary := range rounds {
		stats.add(summary)
	}
	return stats, nil
}

func (a *RedisArchive) getSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	data, err := a.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return nil, err
	}

	var info SessionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
