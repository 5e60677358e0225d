package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/clubkit/pkg/lifecycle"
)

var _ lifecycle.MetricsStore = (*MetricsStore)(nil)

const (
	fieldPlayers      = "players_invited"
	fieldMatches      = "matches_logged"
	fieldLastActivity = "last_activity_us"
)

// recordScript applies one event atomically: dedupe, counter, last activity.
// KEYS[1] metrics hash, KEYS[2] seen event ids.
// ARGV[1] counter field, ARGV[2] occurred_at in unix micros,
// ARGV[3] event id or "", ARGV[4] dedupe ttl in ms.
var recordScript = redis.NewScript(`
if ARGV[3] ~= "" then
	if redis.call("SADD", KEYS[2], ARGV[3]) == 0 then
		return 0
	end
	redis.call("PEXPIRE", KEYS[2], ARGV[4])
end
redis.call("HINCRBY", KEYS[1], ARGV[1], 1)
local last = tonumber(redis.call("HGET", KEYS[1], "last_activity_us") or "0")
if tonumber(ARGV[2]) > last then
	redis.call("HSET", KEYS[1], "last_activity_us", ARGV[2])
end
return 1
`)

// MetricsStore keeps engagement counters in one Redis hash per club.
type MetricsStore struct {
	client    redis.UniversalClient
	prefix    string
	dedupeTTL time.Duration
}

// Option configures a MetricsStore.
type Option func(*MetricsStore)

// WithPrefix namespaces every key. Default "clubkit:".
func WithPrefix(prefix string) Option {
	return func(s *MetricsStore) { s.prefix = prefix }
}

// WithDedupeTTL sets how long seen event ids are remembered. Default 30 days.
func WithDedupeTTL(ttl time.Duration) Option {
	return func(s *MetricsStore) {
		if ttl > 0 {
			s.dedupeTTL = ttl
		}
	}
}

// New panics on a nil client.
func New(client redis.UniversalClient, opts ...Option) *MetricsStore {
	if client == nil {
		panic("redisstore: client is required")
	}
	s := &MetricsStore{
		client:    client,
		prefix:    "clubkit:",
		dedupeTTL: 30 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MetricsStore) Record(ctx context.Context, clubID uuid.UUID, ev lifecycle.EngagementEvent) (bool, error) {
	var field string
	switch ev.Kind {
	case lifecycle.EngagementPlayerCreated:
		field = fieldPlayers
	case lifecycle.EngagementMatchLogged:
		field = fieldMatches
	default:
		return false, fmt.Errorf("%w: unknown engagement kind %q", lifecycle.ErrInvalidEvent, ev.Kind)
	}

	n, err := recordScript.Run(ctx, s.client,
		[]string{s.metricsKey(clubID), s.seenKey(clubID)},
		field, ev.OccurredAt.UnixMicro(), ev.EventID, s.dedupeTTL.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("record engagement: %w", err)
	}
	return n == 1, nil
}

func (s *MetricsStore) Get(ctx context.Context, clubID uuid.UUID) (lifecycle.EngagementMetrics, error) {
	m := lifecycle.EngagementMetrics{ClubID: clubID}

	fields, err := s.client.HGetAll(ctx, s.metricsKey(clubID)).Result()
	if err != nil {
		return m, fmt.Errorf("load engagement: %w", err)
	}
	if m.PlayersInvited, err = parseInt(fields[fieldPlayers]); err != nil {
		return m, err
	}
	if m.MatchesLogged, err = parseInt(fields[fieldMatches]); err != nil {
		return m, err
	}
	us, err := parseInt(fields[fieldLastActivity])
	if err != nil {
		return m, err
	}
	if us > 0 {
		m.LastActivityAt = time.UnixMicro(us).UTC()
	}
	return m, nil
}

func (s *MetricsStore) Delete(ctx context.Context, clubID uuid.UUID) error {
	if err := s.client.Del(ctx, s.metricsKey(clubID), s.seenKey(clubID)).Err(); err != nil {
		return fmt.Errorf("delete engagement: %w", err)
	}
	return nil
}

// Keys share the {club} hash tag so the script stays in one cluster slot.
func (s *MetricsStore) metricsKey(clubID uuid.UUID) string {
	return s.prefix + "engagement:{" + clubID.String() + "}"
}

func (s *MetricsStore) seenKey(clubID uuid.UUID) string {
	return s.prefix + "engagement:{" + clubID.String() + "}:seen"
}

func parseInt(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse engagement counter %q: %w", v, err)
	}
	return n, nil
}
