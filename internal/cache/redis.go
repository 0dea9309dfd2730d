package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisMirror is a ColdMirror backed by a shared Redis instance, so multiple
// engine processes (or successive deploys) can share the fundamentals/
// borrow/FINRA cold-store state instead of each cold-starting its own disk
// cache. One hash per provider, keyed "<prefix>:<provider>", field = ticker.
type RedisMirror struct {
	Client *redis.Client
	Prefix string
}

// NewRedisMirror builds a client for addr with default options. No
// connection is made here; the first Load or Save is the first network use.
func NewRedisMirror(addr, prefix string) *RedisMirror {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if prefix == "" {
		prefix = "squeezescout:coldstore"
	}
	return &RedisMirror{Client: client, Prefix: prefix}
}

func (m *RedisMirror) key(provider string) string {
	return fmt.Sprintf("%s:%s", m.Prefix, provider)
}

// Load returns every cached ticker->value pair for provider.
func (m *RedisMirror) Load(ctx context.Context, provider string) (map[string]json.RawMessage, error) {
	raw, err := m.Client.HGetAll(ctx, m.key(provider)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL %s: %w", provider, err)
	}
	out := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		out[k] = json.RawMessage(v)
	}
	return out, nil
}

// Save writes the snapshot's fields into provider's hash; fields already in
// the hash that the snapshot lacks are left as they are.
func (m *RedisMirror) Save(ctx context.Context, provider string, data map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(data))
	for k, v := range data {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s/%s: %w", provider, k, err)
		}
		fields[k] = encoded
	}
	if err := m.Client.HSet(ctx, m.key(provider), fields).Err(); err != nil {
		return fmt.Errorf("redis HSET %s: %w", provider, err)
	}
	return nil
}
