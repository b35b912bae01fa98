package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/nearmi/localhunt-backend/config"
	"github.com/nearmi/localhunt-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Store wraps the Redis client used for token revocation and view dedupe.
type Store struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection
func New(cfg *config.RedisConfig) (*Store, error) {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully")
	return &Store{client: client}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	logger.Info("Closing Redis connection")
	return s.client.Close()
}

func blacklistKey(tokenID string) string {
	return fmt.Sprintf("blacklist:%s", tokenID)
}

func viewKey(vendorID, viewer string) string {
	return fmt.Sprintf("vendor_view:%s:%s", vendorID, viewer)
}

// BlacklistToken revokes a token id until it would have expired anyway
func (s *Store) BlacklistToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	if expiry <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, blacklistKey(tokenID), "revoked", expiry).Err(); err != nil {
		logger.Error("Failed to blacklist token", err)
		return err
	}
	return nil
}

// IsTokenBlacklisted checks if a token id is in the blacklist
func (s *Store) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	val, err := s.client.Get(ctx, blacklistKey(tokenID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to check token blacklist", err)
		return false, err
	}
	return val == "revoked", nil
}

// FirstView reports whether viewer has not viewed the vendor within window,
// recording the view when so.
func (s *Store) FirstView(ctx context.Context, vendorID, viewer string, window time.Duration) (bool, error) {
	return s.client.SetNX(ctx, viewKey(vendorID, viewer), 1, window).Result()
}
