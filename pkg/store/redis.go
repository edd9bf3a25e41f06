package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/satmesh-network/satmesh/pkg/util"
)

// Redis key layout. Records live in hashes keyed by their natural key;
// events and stats are append-only lists.
const (
	keyNodes   = "satmesh:nodes"
	keyLinks   = "satmesh:links"
	keyUplinks = "satmesh:uplinks"
	keyEvents  = "satmesh:events"
	keyStats   = "satmesh:stats"
)

// RedisStore persists control-plane state in a Redis instance.
type RedisStore struct {
	client *redis.Client
}

// NewRedis creates a store backed by the Redis server at addr.
func NewRedis(addr string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	return &RedisStore{client: client}
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) hsetJSON(ctx context.Context, key, field string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", key, field, err)
	}
	return s.client.HSet(ctx, key, field, data).Err()
}

func (s *RedisStore) hgetJSON(ctx context.Context, key, field string, v interface{}) error {
	data, err := s.client.HGet(ctx, key, field).Bytes()
	if err == redis.Nil {
		return fmt.Errorf("%s/%s: %w", key, field, util.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *RedisStore) UpsertNode(ctx context.Context, rec *NodeRecord) error {
	return s.hsetJSON(ctx, keyNodes, rec.Name, rec)
}

func (s *RedisStore) FindNode(ctx context.Context, name string) (*NodeRecord, error) {
	var rec NodeRecord
	if err := s.hgetJSON(ctx, keyNodes, name, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisStore) ListNodes(ctx context.Context) ([]*NodeRecord, error) {
	all, err := s.client.HGetAll(ctx, keyNodes).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*NodeRecord, 0, len(all))
	for field, data := range all {
		var rec NodeRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decoding node %s: %w", field, err)
		}
		out = append(out, &rec)
	}
	return out, nil
}

func (s *RedisStore) UpsertLink(ctx context.Context, rec *LinkRecord) error {
	return s.hsetJSON(ctx, keyLinks, rec.Key(), rec)
}

func (s *RedisStore) FindLink(ctx context.Context, n1, n2 string) (*LinkRecord, error) {
	var rec LinkRecord
	if err := s.hgetJSON(ctx, keyLinks, LinkKey(n1, n2), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisStore) DeleteLink(ctx context.Context, n1, n2 string) error {
	return s.client.HDel(ctx, keyLinks, LinkKey(n1, n2)).Err()
}

func (s *RedisStore) ListLinks(ctx context.Context) ([]*LinkRecord, error) {
	all, err := s.client.HGetAll(ctx, keyLinks).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*LinkRecord, 0, len(all))
	for field, data := range all {
		var rec LinkRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decoding link %s: %w", field, err)
		}
		out = append(out, &rec)
	}
	return out, nil
}

func (s *RedisStore) UpsertUplink(ctx context.Context, rec *UplinkRecord) error {
	return s.hsetJSON(ctx, keyUplinks, rec.Key(), rec)
}

func (s *RedisStore) FindUplink(ctx context.Context, ground, satellite string) (*UplinkRecord, error) {
	var rec UplinkRecord
	if err := s.hgetJSON(ctx, keyUplinks, UplinkKey(ground, satellite), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisStore) DeleteUplink(ctx context.Context, ground, satellite string) error {
	return s.client.HDel(ctx, keyUplinks, UplinkKey(ground, satellite)).Err()
}

func (s *RedisStore) UplinksForStation(ctx context.Context, ground string) ([]*UplinkRecord, error) {
	all, err := s.ListUplinks(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, rec := range all {
		if rec.Ground == ground {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *RedisStore) ListUplinks(ctx context.Context) ([]*UplinkRecord, error) {
	all, err := s.client.HGetAll(ctx, keyUplinks).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*UplinkRecord, 0, len(all))
	for field, data := range all {
		var rec UplinkRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decoding uplink %s: %w", field, err)
		}
		out = append(out, &rec)
	}
	return out, nil
}

func (s *RedisStore) AppendEvent(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, keyEvents, data).Err()
}

func (s *RedisStore) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	start := int64(-limit)
	if limit <= 0 {
		start = 0
	}
	items, err := s.client.LRange(ctx, keyEvents, start, -1).Result()
	if err != nil {
		return nil, err
	}
	// Newest first.
	out := make([]Event, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		var ev Event
		if err := json.Unmarshal([]byte(items[i]), &ev); err != nil {
			return nil, fmt.Errorf("decoding event: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *RedisStore) AppendStats(ctx context.Context, rec *StatsRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, keyStats, data).Err()
}
