package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goStudyAuth/internal"
	"github.com/redis/go-redis/v9"
)

var (
	ErrTokenNotFound         = errors.New("token not found")
	ErrTokenStoreUnavailable = errors.New("token store unavailable")
	ErrTokenPayloadCorrupt   = errors.New("token payload corrupt")
)

var takeLua = redis.NewScript(`
local value = redis.call('GET', KEYS[1])
if not value then
  return false
end
redis.call('DEL', KEYS[1])
return value
`)

var getOrPutLua = redis.NewScript(`
local value = redis.call('GET', KEYS[1])
if value then
  return {value, 0}
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return {ARGV[1], 1}
`)

var takeIfEqualLua = redis.NewScript(`
local value = redis.call('GET', KEYS[1])
if not value then
  return 0
end
if value ~= ARGV[1] then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

// Issued is the result of token issuance: the token plus the TTL it was
// stored with. The caller decides how to deliver it.
type Issued struct {
	Token string
	TTL   time.Duration
}

// TokenStore persists short-lived single-use tokens and exposes the
// single-key atomic primitives the workflows are built on.
type TokenStore struct {
	redis    redis.UniversalClient
	prefix   string
	newToken func() (string, error)
}

// NewTokenStore creates a store. An empty prefix keeps keys exactly as the
// workflows build them.
func NewTokenStore(redisClient redis.UniversalClient, prefix string) *TokenStore {
	return &TokenStore{
		redis:    redisClient,
		prefix:   prefix,
		newToken: internal.NewToken,
	}
}

func (s *TokenStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// Issue generates a token and stores the encoded payload under it.
// Existing keys are not checked; the token space is treated as a nonce space.
func (s *TokenStore) Issue(ctx context.Context, payload VerificationPayload, ttl time.Duration) (Issued, error) {
	token, err := s.newToken()
	if err != nil {
		return Issued{}, err
	}

	encoded, err := encodeVerificationPayload(payload)
	if err != nil {
		return Issued{}, err
	}
	if err := s.Put(ctx, token, encoded, ttl); err != nil {
		return Issued{}, err
	}

	return Issued{Token: token, TTL: ttl}, nil
}

// Consume atomically reads and removes the payload stored under token.
// Concurrent callers race on the delete; only one of them gets the payload.
func (s *TokenStore) Consume(ctx context.Context, token string) (VerificationPayload, error) {
	if token == "" {
		return VerificationPayload{}, ErrTokenNotFound
	}

	raw, err := s.Take(ctx, token)
	if err != nil {
		return VerificationPayload{}, err
	}
	return decodeVerificationPayload(raw)
}

// Put writes value under key with the given TTL.
func (s *TokenStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTokenStoreUnavailable, err)
	}
	return nil
}

// Take atomically reads and deletes key.
func (s *TokenStore) Take(ctx context.Context, key string) (string, error) {
	value, err := takeLua.Run(ctx, s.redis, []string{s.key(key)}).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrTokenStoreUnavailable, err)
	}
	return value, nil
}

// GetOrPut returns the value already stored under key, or stores value with
// ttl when the key is absent. created reports which branch ran.
func (s *TokenStore) GetOrPut(ctx context.Context, key, value string, ttl time.Duration) (stored string, created bool, err error) {
	res, err := getOrPutLua.Run(ctx, s.redis, []string{s.key(key)}, value, ttl.Milliseconds()).Slice()
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrTokenStoreUnavailable, err)
	}
	if len(res) != 2 {
		return "", false, fmt.Errorf("%w: unexpected script reply", ErrTokenStoreUnavailable)
	}

	stored, _ = res[0].(string)
	flag, _ := res[1].(int64)
	return stored, flag == 1, nil
}

// TakeIfEqual deletes key only when its value equals expected.
func (s *TokenStore) TakeIfEqual(ctx context.Context, key, expected string) (bool, error) {
	if expected == "" {
		return false, nil
	}
	n, err := takeIfEqualLua.Run(ctx, s.redis, []string{s.key(key)}, expected).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTokenStoreUnavailable, err)
	}
	return n == 1, nil
}
