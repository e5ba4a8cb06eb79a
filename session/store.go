package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every cache failure returned by the store.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned when no session exists for a lookup.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionCorrupt is returned when a cached session cannot be decoded.
var ErrSessionCorrupt = errors.New("session corrupt")

// ErrSessionInvalid is returned by Save for a session without tokens or user.
var ErrSessionInvalid = errors.New("session invalid")

// dropIndexScript removes the user index only while it still points at the
// session being deleted, so a newer session's index survives.
var dropIndexScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store persists sessions under two keys: the session token and the
// owning user id.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store]. prefix is prepended to every key and
// may be empty.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	return &Store{redis: redis, prefix: prefix}
}

func (s *Store) key(sessionToken string) string {
	return s.prefix + sessionToken + ":session"
}

func (s *Store) userKey(userID string) string {
	return s.prefix + userID + ":session:user"
}

// Save writes both index entries with the same TTL.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil || sess.SessionToken == "" || sess.Participant.ID == "" {
		return ErrSessionInvalid
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.SessionToken), data, ttl)
		pipe.Set(ctx, s.userKey(sess.Participant.ID), sess.SessionToken, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads a session by its token.
func (s *Store) Get(ctx context.Context, sessionToken string) (*Session, error) {
	if sessionToken == "" {
		return nil, ErrSessionNotFound
	}
	data, err := s.redis.Get(ctx, s.key(sessionToken)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	return &sess, nil
}

// GetByUserID follows the user index to the current session. An index
// entry whose session has expired reads as not found.
func (s *Store) GetByUserID(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, ErrSessionNotFound
	}
	token, err := s.redis.Get(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return s.Get(ctx, token)
}

// Delete removes sess. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, sess *Session) error {
	if sess == nil || sess.SessionToken == "" {
		return nil
	}
	if err := s.redis.Del(ctx, s.key(sess.SessionToken)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if sess.Participant.ID == "" {
		return nil
	}
	if err := dropIndexScript.Run(ctx, s.redis, []string{s.userKey(sess.Participant.ID)}, sess.SessionToken).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteByUserID removes whatever session userID currently holds.
func (s *Store) DeleteByUserID(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	token, err := s.redis.GetDel(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if err := s.redis.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
