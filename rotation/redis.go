package rotation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldState    = "state"
	fieldCurrent  = "cur"
	fieldPrevious = "prev"
	fieldUpdated  = "at"
)

const setActiveScript = `
local key = KEYS[1]
local next_fp = ARGV[1]
local expected = ARGV[2]
local now_ms = ARGV[3]
local ttl_ms = tonumber(ARGV[4])

local state = redis.call("HGET", key, "state")
local current = redis.call("HGET", key, "cur")

if expected ~= "" then
  if state ~= "active" or current ~= expected then
    return 0
  end
end

local previous = ""
if current then
  previous = current
end

redis.call("HSET", key, "state", "active", "cur", next_fp, "prev", previous, "at", now_ms)
redis.call("PEXPIRE", key, ttl_ms)
return 1
`

var setActiveLua = redis.NewScript(setActiveScript)

// RedisStore keeps one hash per subject under "<prefix>:rt:<subject>". Every write
// resets the key TTL to the refresh-token lifetime, so abandoned lineages age out.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a [RedisStore]. ttl should match the refresh-token lifetime.
func NewRedisStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "ag"
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisStore{
		redis:  rdb,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *RedisStore) key(subjectID string) string {
	return s.prefix + ":rt:" + subjectID
}

// GetActive reads the subject's lineage hash.
//
//	Performance: 1 Redis HGETALL.
func (s *RedisStore) GetActive(ctx context.Context, subjectID string) (Record, error) {
	if subjectID == "" {
		return Record{}, ErrInvalidSubject
	}

	fields, err := s.redis.HGetAll(ctx, s.key(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{SubjectID: subjectID}, nil
		}
		return Record{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec := Record{
		SubjectID: subjectID,
		State:     parseState(fields[fieldState]),
		Current:   fields[fieldCurrent],
		Previous:  fields[fieldPrevious],
	}
	if at, convErr := strconv.ParseInt(fields[fieldUpdated], 10, 64); convErr == nil {
		rec.UpdatedAt = time.UnixMilli(at)
	}
	return rec, nil
}

// SetActive runs the compare-and-swap script.
//
//	Performance: 1 Lua EVALSHA.
//	Security: the script is the only writer of "cur", so concurrent refreshes of one
//	token cannot both succeed.
func (s *RedisStore) SetActive(ctx context.Context, subjectID, next, expectedPrevious string) (bool, error) {
	if subjectID == "" {
		return false, ErrInvalidSubject
	}
	if next == "" {
		return false, errors.New("rotation: empty fingerprint")
	}

	code, err := setActiveLua.Run(
		ctx,
		s.redis,
		[]string{s.key(subjectID)},
		next,
		expectedPrevious,
		s.now().UnixMilli(),
		s.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return code == 1, nil
}

// InvalidateAll marks the lineage invalidated. The record is kept until its TTL so a
// later presentation of any old token still classifies as reuse.
func (s *RedisStore) InvalidateAll(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return ErrInvalidSubject
	}

	key := s.key(subjectID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldState, StateInvalidated.String(), fieldUpdated, s.now().UnixMilli())
		pipe.PExpire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
