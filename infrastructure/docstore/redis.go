package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var _ Store = (*RedisStore)(nil)

// RedisStore implements Store on a Redis instance. Document values live at
// prefixed string keys; change notification uses one pub/sub channel per
// collection.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	log       zerolog.Logger
}

// NewRedisStore connects to Redis at addr and returns a ready store.
func NewRedisStore(addr, password string, db int, log zerolog.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})

	return &RedisStore{
		client:    client,
		keyPrefix: "trendguard:doc:",
		log:       log.With().Str("component", "docstore.redis").Logger(),
	}
}

// Get retrieves the document at key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	val, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, classifyRedisErr(err))
	}
	return val, true, nil
}

// Set writes the document and publishes a change event on the collection
// channel so subscribers see the new value.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, merge bool) error {
	if err := validateKey(key); err != nil {
		return err
	}
	fullKey := s.keyPrefix + key

	if merge {
		existing, err := s.client.Get(ctx, fullKey).Bytes()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("set %s: read existing: %w", key, classifyRedisErr(err))
		}
		if err == nil {
			value = mergeJSON(existing, value)
		}
	}

	if err := s.client.Set(ctx, fullKey, value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, classifyRedisErr(err))
	}

	event, err := json.Marshal(Event{ID: docID(key), Value: value})
	if err != nil {
		return fmt.Errorf("set %s: encode event: %w", key, err)
	}
	if err := s.client.Publish(ctx, s.channel(collectionOf(key)), event).Err(); err != nil {
		// Subscribers miss one event but the write itself landed.
		s.log.Warn().Err(err).Str("key", key).Msg("publish change event failed")
	}
	return nil
}

// Subscribe streams document changes under collection until ctx is cancelled.
func (s *RedisStore) Subscribe(ctx context.Context, collection string) (<-chan Event, error) {
	if err := validateKey(collection); err != nil {
		return nil, err
	}
	pubsub := s.client.Subscribe(ctx, s.channel(collection))
	// Force the subscription to be established before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", collection, classifyRedisErr(err))
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					s.log.Warn().Err(err).Str("collection", collection).Msg("dropping malformed change event")
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) channel(collection string) string {
	return s.keyPrefix + "events:" + collection
}

// classifyRedisErr maps Redis ACL rejections onto ErrPermissionDenied so
// callers can tell a misconfiguration from a transient failure.
func classifyRedisErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "NOPERM") || strings.Contains(msg, "NOAUTH") {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
	}
	return err
}
