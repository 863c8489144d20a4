package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/config"
	"github.com/stemsi/quizdesk/internal/model"
)

// QuestionCache holds the most recent question list. Implementations are
// best effort: failures are logged and reported as misses.
type QuestionCache interface {
	Get(ctx context.Context) ([]model.Question, bool)
	Set(ctx context.Context, questions []model.Question)
	Invalidate(ctx context.Context)
}

// Noop is used when no cache backend is configured.
type Noop struct{}

func (Noop) Get(context.Context) ([]model.Question, bool) { return nil, false }
func (Noop) Set(context.Context, []model.Question)        {}
func (Noop) Invalidate(context.Context)                   {}

// RedisQuestionCache stores the question list as one JSON value.
type RedisQuestionCache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
	log zerolog.Logger
}

func NewRedisQuestionCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisQuestionCache {
	return &RedisQuestionCache{
		rdb: rdb,
		key: config.CacheKey.QuestionBankKey(),
		ttl: ttl,
		log: log.With().Str("component", "question_cache").Logger(),
	}
}

func (c *RedisQuestionCache) Get(ctx context.Context) ([]model.Question, bool) {
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Msg("cache get failed")
		}
		return nil, false
	}
	var questions []model.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		c.log.Warn().Err(err).Msg("cache payload corrupt, dropping")
		c.Invalidate(ctx)
		return nil, false
	}
	return questions, true
}

func (c *RedisQuestionCache) Set(ctx context.Context, questions []model.Question) {
	raw, err := json.Marshal(questions)
	if err != nil {
		c.log.Warn().Err(err).Msg("cache encode failed")
		return
	}
	if err := c.rdb.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("cache set failed")
	}
}

func (c *RedisQuestionCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, c.key).Err(); err != nil {
		c.log.Warn().Err(err).Msg("cache invalidate failed")
	}
}
