package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// redisConnectTimeout bounds startup so a missing redis only delays boot briefly.
const redisConnectTimeout = 3 * time.Second

// OpenRedis connects to the optional redis that backs the question cache and
// relays the results feed between server instances. An empty URL disables
// redis and yields a nil client without error.
func OpenRedis(ctx context.Context, redisURL string, log zerolog.Logger) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		log.Info().Msg("REDIS_URL not set, question cache and feed relay disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opt.ClientName = "quizdesk"
	if opt.DialTimeout <= 0 || opt.DialTimeout > redisConnectTimeout {
		opt.DialTimeout = redisConnectTimeout
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opt.Addr, err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Msg("Redis connected")
	return rdb, nil
}
