package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/upb/inventory-identity/config"
	"go.uber.org/zap"
)

// tokenBucket refills refill_tokens every interval_ms up to capacity and
// takes one token per call. State lives in a hash so the script is atomic
// per key.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + (intervals * refill_tokens))
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// Request identifies the bucket a call draws from
type Request struct {
	ClientIP string
	RouteID  string
}

// Result is the outcome of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int64
	RetryAfter time.Duration
}

// RateLimitService enforces per-client token buckets stored in Redis
type RateLimitService struct {
	client redis.Scripter
	cfg    config.RateLimitConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimitService creates a new RateLimitService instance
func NewRateLimitService(client redis.Scripter, cfg config.RateLimitConfig, logger *zap.Logger) *RateLimitService {
	return &RateLimitService{
		client: client,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source
func (s *RateLimitService) WithClock(now func() time.Time) *RateLimitService {
	s.now = now
	return s
}

// Limit returns the bucket capacity
func (s *RateLimitService) Limit() int {
	return s.cfg.Capacity
}

// Key builds the Redis key for req
func (s *RateLimitService) Key(req Request) string {
	ip := req.ClientIP
	if ip == "" {
		ip = "unknown"
	}
	return strings.Join([]string{s.cfg.Prefix, "ip", ip, "route", req.RouteID}, ":")
}

// CheckLimit takes one token from the bucket for req
func (s *RateLimitService) CheckLimit(ctx context.Context, req Request) (*Result, error) {
	key := s.Key(req)
	ttl := int64(s.cfg.TTL / time.Second)
	if ttl < 1 {
		ttl = 1
	}

	vals, err := tokenBucket.Run(ctx, s.client, []string{key},
		s.now().UnixMilli(),
		s.cfg.Capacity,
		s.cfg.RefillTokens,
		s.cfg.RefillInterval.Milliseconds(),
		ttl,
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(vals) != 3 {
		return nil, fmt.Errorf("unexpected rate limit script result: %v", vals)
	}

	result := &Result{
		Allowed:    asInt64(vals[0]) == 1,
		Limit:      s.cfg.Capacity,
		Remaining:  asInt64(vals[1]),
		RetryAfter: time.Duration(asInt64(vals[2])) * time.Millisecond,
	}

	if !result.Allowed {
		s.logger.Debug("rate limit exceeded",
			zap.String("route", req.RouteID),
			zap.Duration("retry_after", result.RetryAfter))
	}

	return result, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
