// Package analytics keeps per-day run counters in Redis so an operator can
// see how a group's runs trend without a database.
package analytics

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/djlord-it/easy-announce/internal/domain"
)

// Retention is how long a day's counters are kept.
const Retention = 35 * 24 * time.Hour

// Counter fields, one Redis key each.
const (
	FieldRuns             = "runs"
	FieldFatal            = "fatal"
	FieldProcessed        = "processed"
	FieldAnnounced        = "announced"
	FieldAlreadyAnnounced = "already_announced"
	FieldFailed           = "failed"
)

// Fields lists the counters in display order.
var Fields = []string{FieldRuns, FieldFatal, FieldProcessed, FieldAnnounced, FieldAlreadyAnnounced, FieldFailed}

type RedisSink struct {
	client    redis.Cmdable
	retention time.Duration
}

func NewRedisSink(client redis.Cmdable) *RedisSink {
	return &RedisSink{client: client, retention: Retention}
}

// RecordRun adds one run to the day bucket containing at.
func (s *RedisSink) RecordRun(ctx context.Context, groupURL string, at time.Time, sum domain.RunSummary, fatal bool) error {
	group := GroupKey(groupURL)

	incr := map[string]int64{
		FieldRuns:             1,
		FieldProcessed:        int64(sum.Processed),
		FieldAnnounced:        int64(sum.Announced),
		FieldAlreadyAnnounced: int64(sum.AlreadyAnnounced),
		FieldFailed:           int64(sum.Failed),
	}
	if fatal {
		incr[FieldFatal] = 1
	}

	pipe := s.client.Pipeline()
	for _, f := range Fields {
		n, ok := incr[f]
		if !ok {
			continue
		}
		key := buildKey(group, at, f)
		pipe.IncrBy(ctx, key, n)
		pipe.Expire(ctx, key, s.retention)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}

// Daily returns the counters for the day containing at. Missing fields are zero.
func (s *RedisSink) Daily(ctx context.Context, groupURL string, at time.Time) (map[string]int64, error) {
	group := GroupKey(groupURL)
	keys := make([]string, len(Fields))
	for i, f := range Fields {
		keys[i] = buildKey(group, at, f)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	out := make(map[string]int64, len(Fields))
	for i, f := range Fields {
		if str, ok := vals[i].(string); ok {
			n, err := strconv.ParseInt(str, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("counter %s: %w", f, err)
			}
			out[f] = n
			continue
		}
		out[f] = 0
	}
	return out, nil
}

// GroupKey reduces a group URL to host and path, e.g. "meetup.com/test-group".
func GroupKey(groupURL string) string {
	u, err := url.Parse(groupURL)
	if err != nil || u.Host == "" {
		return strings.Trim(groupURL, "/")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	return host + "/" + strings.Trim(u.Path, "/")
}

func buildKey(group string, t time.Time, field string) string {
	return fmt.Sprintf("a:%s:%s:%s", group, t.UTC().Format("20060102"), field)
}
