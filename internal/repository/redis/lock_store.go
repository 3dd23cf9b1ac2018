package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	apperrors "github.com/yourusername/dealership-api/internal/pkg/errors"
)

// All lock keys share the {locks} hash tag so the scripts stay on one slot in
// cluster mode.
const (
	lockKeyFormat = "{locks}:vehicle:%d"
	lockIndexKey  = "{locks}:index"
)

// acquireScript: KEYS[1]=lock key, KEYS[2]=index, ARGV[1]=lock json,
// ARGV[2]=holder id, ARGV[3]=ttl ms, ARGV[4]=vehicle id.
// Returns {1, stored} on success or {0, current} when another holder owns it.
var acquireScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
local stored = ARGV[1]
if cur then
  local l = cjson.decode(cur)
  if tostring(l.holder_id) ~= ARGV[2] then
    return {0, cur}
  end
  local n = cjson.decode(ARGV[1])
  n.token = l.token
  n.acquired_at = l.acquired_at
  stored = cjson.encode(n)
end
redis.call('SET', KEYS[1], stored, 'PX', ARGV[3])
redis.call('SADD', KEYS[2], ARGV[4])
return {1, stored}
`)

// renewScript: ARGV[1]=token, ARGV[2]=expires_at (RFC3339), ARGV[3]=ttl ms.
var renewScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then return false end
local l = cjson.decode(cur)
if l.token ~= ARGV[1] then return false end
l.expires_at = ARGV[2]
local enc = cjson.encode(l)
redis.call('SET', KEYS[1], enc, 'PX', ARGV[3])
return enc
`)

// releaseScript: ARGV[1]=token, ARGV[2]=vehicle id. Returns the removed lock
// or nil.
var releaseScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
  redis.call('SREM', KEYS[2], ARGV[2])
  return false
end
local l = cjson.decode(cur)
if l.token ~= ARGV[1] then return false end
redis.call('DEL', KEYS[1])
redis.call('SREM', KEYS[2], ARGV[2])
return cur
`)

// LockStore implements repository.LockStore on Redis. Lease expiry is the key
// TTL, so an abandoned lock disappears without a sweeper.
type LockStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewLockStore creates a Redis-backed lock store.
func NewLockStore(client redis.UniversalClient) (*LockStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil for LockStore")
	}
	return &LockStore{client: client, now: time.Now}, nil
}

func lockKey(vehicleID uint) string {
	return fmt.Sprintf(lockKeyFormat, vehicleID)
}

func (s *LockStore) ttlMillis(expiresAt time.Time) int64 {
	ms := expiresAt.Sub(s.now()).Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return ms
}

func (s *LockStore) Acquire(ctx context.Context, lock *entity.VehicleLock) (*entity.VehicleLock, bool, error) {
	payload, err := json.Marshal(lock)
	if err != nil {
		return nil, false, fmt.Errorf("encode lock: %w", err)
	}

	res, err := acquireScript.Run(ctx, s.client,
		[]string{lockKey(lock.VehicleID), lockIndexKey},
		string(payload), strconv.FormatUint(uint64(lock.HolderID), 10), s.ttlMillis(lock.ExpiresAt), lock.VehicleID,
	).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock for vehicle %d: %w", lock.VehicleID, err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return nil, false, fmt.Errorf("acquire lock for vehicle %d: unexpected reply %v", lock.VehicleID, res)
	}
	acquired, _ := vals[0].(int64)
	raw, _ := vals[1].(string)

	decoded, err := decodeLock(raw)
	if err != nil {
		return nil, false, err
	}
	return decoded, acquired == 1, nil
}

func (s *LockStore) Renew(ctx context.Context, vehicleID uint, token string, expiresAt time.Time) (*entity.VehicleLock, error) {
	raw, err := renewScript.Run(ctx, s.client,
		[]string{lockKey(vehicleID)},
		token, expiresAt.UTC().Format(time.RFC3339Nano), s.ttlMillis(expiresAt),
	).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("renew lock for vehicle %d: %w", vehicleID, err)
	}
	return decodeLock(raw)
}

func (s *LockStore) Release(ctx context.Context, vehicleID uint, token string) (*entity.VehicleLock, error) {
	raw, err := releaseScript.Run(ctx, s.client,
		[]string{lockKey(vehicleID), lockIndexKey},
		token, vehicleID,
	).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("release lock for vehicle %d: %w", vehicleID, err)
	}
	return decodeLock(raw)
}

func (s *LockStore) Get(ctx context.Context, vehicleID uint) (*entity.VehicleLock, error) {
	raw, err := s.client.Get(ctx, lockKey(vehicleID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lock for vehicle %d: %w", vehicleID, err)
	}
	return decodeLock(raw)
}

func (s *LockStore) List(ctx context.Context) ([]*entity.VehicleLock, error) {
	members, err := s.client.SMembers(ctx, lockIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list lock index: %w", err)
	}
	if len(members) == 0 {
		return []*entity.VehicleLock{}, nil
	}

	keys := make([]string, 0, len(members))
	ids := make([]string, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		keys = append(keys, lockKey(uint(id)))
		ids = append(ids, m)
	}
	if len(keys) == 0 {
		return []*entity.VehicleLock{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load locks: %w", err)
	}

	out := make([]*entity.VehicleLock, 0, len(values))
	var stale []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		l, err := decodeLock(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if len(stale) > 0 {
		_ = s.client.SRem(ctx, lockIndexKey, stale...).Err()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out, nil
}

func decodeLock(raw string) (*entity.VehicleLock, error) {
	var l entity.VehicleLock
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return nil, fmt.Errorf("decode lock: %w", err)
	}
	return &l, nil
}
