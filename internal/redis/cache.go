package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hundredandten/server/internal/config"
	"github.com/hundredandten/server/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Cache keeps replay-derived game summaries and user profiles in Redis
type Cache struct {
	client     *redis.Client
	summaryTTL time.Duration
	profileTTL time.Duration
	logger     *slog.Logger
}

// NewCache creates a new Redis cache
func NewCache(cfg *config.RedisConfig, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return newCache(client, cfg, logger), nil
}

func newCache(client *redis.Client, cfg *config.RedisConfig, logger *slog.Logger) *Cache {
	return &Cache{
		client:     client,
		summaryTTL: cfg.SummaryTTL,
		profileTTL: cfg.ProfileTTL,
		logger:     logger,
	}
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// summaryKey returns the Redis key for a game's cached summary
func summaryKey(gameID string) string {
	return fmt.Sprintf("game:%s:summary", gameID)
}

// profileKey returns the Redis key for a user's cached profile
func profileKey(userID string) string {
	return fmt.Sprintf("user:%s:profile", userID)
}

// GetSummaries returns the cached summaries among ids. Missing or
// unreadable entries are left out.
func (c *Cache) GetSummaries(ctx context.Context, ids []string) (map[string]domain.GameSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := c.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, summaryKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("getting summaries: %w", err)
	}

	summaries := make(map[string]domain.GameSummary, len(ids))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		summary, ok := parseSummary(ids[i], fields)
		if !ok {
			c.logger.Warn("discarding malformed cached summary", "game_id", ids[i])
			continue
		}
		summaries[ids[i]] = summary
	}
	return summaries, nil
}

func parseSummary(id string, fields map[string]string) (domain.GameSummary, bool) {
	revision, err := strconv.ParseInt(fields["revision"], 10, 64)
	if err != nil {
		return domain.GameSummary{}, false
	}
	status, err := domain.ParseStatus(fields["status"])
	if err != nil {
		return domain.GameSummary{}, false
	}
	return domain.GameSummary{
		ID:           id,
		Revision:     revision,
		Status:       status,
		ActivePlayer: fields["active_player"],
		Winner:       fields["winner"],
	}, true
}

// SetSummaries caches summaries using pipelining
func (c *Cache) SetSummaries(ctx context.Context, summaries []domain.GameSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, s := range summaries {
		key := summaryKey(s.ID)
		pipe.HSet(ctx, key,
			"revision", s.Revision,
			"status", string(s.Status),
			"active_player", s.ActivePlayer,
			"winner", s.Winner,
		)
		pipe.Expire(ctx, key, c.summaryTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("setting summaries: %w", err)
	}
	return nil
}

// GetProfiles returns the cached profiles among ids
func (c *Cache) GetProfiles(ctx context.Context, ids []string) (map[string]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := c.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, profileKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("getting profiles: %w", err)
	}

	users := make(map[string]domain.User, len(ids))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		users[ids[i]] = domain.User{
			Identifier: ids[i],
			Name:       fields["name"],
			PictureURL: fields["picture_url"],
		}
	}
	return users, nil
}

// SetProfiles caches user profiles
func (c *Cache) SetProfiles(ctx context.Context, users []domain.User) error {
	if len(users) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, u := range users {
		key := profileKey(u.Identifier)
		pipe.HSet(ctx, key, "name", u.Name, "picture_url", u.PictureURL)
		pipe.Expire(ctx, key, c.profileTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("setting profiles: %w", err)
	}
	return nil
}

// DeleteProfile evicts a cached profile
func (c *Cache) DeleteProfile(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, profileKey(id)).Err(); err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	return nil
}
