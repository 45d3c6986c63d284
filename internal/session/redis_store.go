package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore keeps sessions in Redis as JSON under "<prefix>:<userID>".
// Every save refreshes the TTL, so idle sessions expire on their own and
// survive process restarts otherwise.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewRedisStore returns a store backed by rdb.  An empty prefix defaults
// to "session".
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration, log logrus.FieldLogger) *RedisStore {
	if prefix == "" {
		prefix = "session"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl, log: log}
}

func (r *RedisStore) key(userID string) string {
	return r.prefix + ":" + userID
}

func (r *RedisStore) Load(ctx context.Context, userID string) (Session, bool, error) {
	raw, err := r.rdb.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		// A corrupt entry is dropped and the user starts over.
		r.log.WithFields(logrus.Fields{"user_id": userID, "error": err}).Warn("dropping corrupt session")
		if err := r.rdb.Del(ctx, r.key(userID)).Err(); err != nil {
			r.log.WithFields(logrus.Fields{"user_id": userID, "error": err}).Error("delete corrupt session failed")
		}
		return Session{}, false, nil
	}
	return s, true, nil
}

func (r *RedisStore) Save(ctx context.Context, userID string, s Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := r.rdb.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
