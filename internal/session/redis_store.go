package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"dashboard-realtime/internal/bus"
)

const (
	redisKeyPrefix = "session:"

	// redisChangedChannel carries grant/revoke notifications between
	// processes sharing the same store. This is the cross-tab signal:
	// best-effort liveness, not a correctness channel.
	redisChangedChannel = "session:changed"
)

// RedisStore persists the session key set in Redis. Multi-key writes go
// through MULTI/EXEC and clears through a single DEL, so readers never see a
// partial session.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
}

func NewRedisStore(client *redis.Client, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}
	return &RedisStore{client: client, log: log}
}

// DialRedis connects to Redis using a redis:// URL and verifies the
// connection with a ping.
func DialRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func (r *RedisStore) Save(ctx context.Context, s Session) error {
	if s.Token == "" {
		return ErrEmptyToken
	}
	values, err := encodeSession(s)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	for key, value := range values {
		pipe.Set(ctx, redisKeyPrefix+key, value, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	r.notify(ctx, "granted")
	return nil
}

func (r *RedisStore) Load(ctx context.Context) (Session, error) {
	keys := Keys()
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = redisKeyPrefix + key
	}
	raw, err := r.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	values := make(map[string]string, len(keys))
	for i, key := range keys {
		if s, ok := raw[i].(string); ok {
			values[key] = s
		}
	}
	if values[KeyToken] == "" {
		return Session{}, ErrNoSession
	}
	return decodeSession(values), nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	prefixed := make([]string, 0, len(Keys()))
	for _, key := range Keys() {
		prefixed = append(prefixed, redisKeyPrefix+key)
	}
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	r.notify(ctx, "revoked")
	return nil
}

func (r *RedisStore) Token(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, redisKeyPrefix+KeyToken).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return token, nil
}

func (r *RedisStore) notify(ctx context.Context, reason string) {
	if err := r.client.Publish(ctx, redisChangedChannel, reason).Err(); err != nil {
		r.log.Warn("session change publish failed", "reason", reason, "error", err)
	}
}

// Relay forwards session-changed notifications from other processes into the
// local bus. It blocks until ctx is cancelled, so run it in a goroutine.
func (r *RedisStore) Relay(ctx context.Context, b *bus.Bus) {
	pubsub := r.client.Subscribe(ctx, redisChangedChannel)
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
			b.Publish(bus.Event{Topic: bus.TopicSessionChanged, Reason: msg.Payload})
		}
	}
}
