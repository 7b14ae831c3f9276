package keycache

import (
	"context"
	"errors"
	"time"

	redisclient "github.com/StricklySoft/stricklysoft-asap/pkg/clients/redis"
)

// Redis is a [Store] shared across processes. Entries are written with the
// TTL as their Redis expiry, so Redis itself evicts them. Every written key
// is also recorded in an index set so FlushAll removes only this cache's
// keys.
type Redis struct {
	client *redisclient.Client
	ttl    time.Duration
	prefix string
}

var _ Store = (*Redis)(nil)

// NewRedis creates a Redis store on top of an existing client. The caller
// keeps ownership of the client.
func NewRedis(client *redisclient.Client, opts ...Option) *Redis {
	o := buildOptions(opts)
	return &Redis{
		client: client,
		ttl:    o.ttl,
		prefix: o.prefix,
	}
}

func (r *Redis) indexKey() string {
	return r.prefix + "_index"
}

// Get implements [Store].
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	blob, err := r.client.Get(ctx, r.prefix+key)
	if errors.Is(err, redisclient.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return blob, true, nil
}

// Set implements [Store].
func (r *Redis) Set(ctx context.Context, key, blob string) error {
	full := r.prefix + key
	if err := r.client.Set(ctx, full, blob, r.ttl); err != nil {
		return err
	}
	_, err := r.client.SAdd(ctx, r.indexKey(), full)
	return err
}

// FlushAll implements [Store].
func (r *Redis) FlushAll(ctx context.Context) error {
	keys, err := r.client.SMembers(ctx, r.indexKey())
	if err != nil {
		return err
	}
	_, err = r.client.Del(ctx, append(keys, r.indexKey())...)
	return err
}
