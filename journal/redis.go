package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisStore keeps each session's log as a Redis list of JSON records.
//
//	<prefix>:trades:<session>   list of TradeRecord JSON, oldest first
//	<prefix>:sessions           hash session -> created_at (RFC3339)
//	<prefix>:active_session     string
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return NewRedisFromClient(rdb, opts.Prefix), nil
}

func NewRedisFromClient(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "stepper"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (r *RedisStore) tradesKey(sessionID string) string {
	return r.prefix + ":trades:" + sessionID
}

// Append rejects a record whose id is not above the last stored id.
func (r *RedisStore) Append(ctx context.Context, t TradeRecord) error {
	key := r.tradesKey(t.SessionID)
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode trade %d: %w", t.TradeID, err)
	}

	return r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		last, err := tx.LIndex(ctx, key, -1).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			var prev TradeRecord
			if err := json.Unmarshal([]byte(last), &prev); err != nil {
				return fmt.Errorf("decode last trade: %w", err)
			}
			if t.TradeID <= prev.TradeID {
				return fmt.Errorf("append trade %d for %s: %w", t.TradeID, t.SessionID, ErrDuplicateTrade)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, key, data)
			return nil
		})
		return err
	}, key)
}

func (r *RedisStore) QueryAll(ctx context.Context, sessionID string) ([]TradeRecord, error) {
	items, err := r.rdb.LRange(ctx, r.tradesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]TradeRecord, 0, len(items))
	for i, item := range items {
		var rec TradeRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode trade %d of %s: %w", i, sessionID, err)
		}
		out = append(out, rec)
	}
	sortByTradeID(out)
	return out, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return r.rdb.Del(ctx, r.tradesKey(sessionID)).Err()
}

func (r *RedisStore) ActiveSession(ctx context.Context) (string, error) {
	id, err := r.rdb.Get(ctx, r.prefix+":active_session").Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	return id, err
}

func (r *RedisStore) StartSession(ctx context.Context, sessionID string, at time.Time) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, r.prefix+":sessions", sessionID, at.UTC().Format(time.RFC3339))
		pipe.Set(ctx, r.prefix+":active_session", sessionID, 0)
		return nil
	})
	return err
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
