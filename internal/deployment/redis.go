package deployment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dyluth/origin/pkg/keyfile"
	"github.com/dyluth/origin/pkg/origin"
	"github.com/opencontainers/go-digest"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps deployment origins in Redis. Each origin is a hash holding
// the keyfile text and its digest; a per-stateroot set indexes deployments.
// The store is safe for concurrent use.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

// OriginEvent is published on OriginEventsChannel after an origin is stored.
type OriginEvent struct {
	Stateroot  string `json:"stateroot"`
	Deployment string `json:"deployment"`
	Digest     string `json:"digest"`
}

// NewRedisStore creates a store that namespaces all keys with namespace.
// Returns an error if namespace is empty.
func NewRedisStore(redisOpts *redis.Options, namespace string) (*RedisStore, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	return &RedisStore{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
	}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// LookupOrigin returns the stored origin of ref. The stored digest is
// verified against the text before it is parsed.
func (s *RedisStore) LookupOrigin(ctx context.Context, ref origin.DeploymentRef) (*keyfile.Document, error) {
	hash, err := s.rdb.HGetAll(ctx, OriginKey(s.namespace, ref)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read origin from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hash) == 0 {
		return nil, &origin.NoOriginError{Deployment: ref}
	}

	text, ok := hash[fieldOrigin]
	if !ok {
		return nil, fmt.Errorf("origin hash of deployment %s has no %s field", ref, fieldOrigin)
	}
	if want := hash[fieldDigest]; want != "" {
		d, err := digest.Parse(want)
		if err != nil {
			return nil, fmt.Errorf("invalid stored digest for deployment %s: %w", ref, err)
		}
		if got := d.Algorithm().FromString(text); got != d {
			return nil, fmt.Errorf("origin of deployment %s is corrupt: digest %s, expected %s", ref, got, d)
		}
	}

	return parseOrigin(ref, []byte(text))
}

// StoreOrigin writes the origin and indexes the deployment in one
// transaction, then publishes an OriginEvent.
func (s *RedisStore) StoreOrigin(ctx context.Context, ref origin.DeploymentRef, kf *keyfile.Document) error {
	if err := validStateroot(ref.Stateroot); err != nil {
		return err
	}

	data := kf.Marshal()
	d := digest.FromBytes(data)

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, OriginKey(s.namespace, ref), map[string]interface{}{
			fieldOrigin:    string(data),
			fieldDigest:    d.String(),
			fieldStateroot: ref.Stateroot,
		})
		pipe.SAdd(ctx, DeploymentIndexKey(s.namespace, ref.Stateroot), ref.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write origin to Redis: %w", err)
	}

	event, err := json.Marshal(OriginEvent{
		Stateroot:  ref.Stateroot,
		Deployment: ref.String(),
		Digest:     d.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal origin event: %w", err)
	}
	if err := s.rdb.Publish(ctx, OriginEventsChannel(s.namespace), event).Err(); err != nil {
		return fmt.Errorf("failed to publish origin event: %w", err)
	}

	return nil
}

// List returns the indexed deployments of stateroot.
func (s *RedisStore) List(ctx context.Context, stateroot string) ([]origin.DeploymentRef, error) {
	members, err := s.rdb.SMembers(ctx, DeploymentIndexKey(s.namespace, stateroot)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	refs := make([]origin.DeploymentRef, 0, len(members))
	for _, m := range members {
		ref, err := origin.ParseDeploymentRef(stateroot, m)
		if err != nil {
			return nil, fmt.Errorf("corrupt deployment index entry: %w", err)
		}
		refs = append(refs, ref)
	}
	sortRefs(refs)
	return refs, nil
}

// SubscribeOriginEvents subscribes to OriginEvents. The caller must close the
// returned PubSub.
func (s *RedisStore) SubscribeOriginEvents(ctx context.Context) *redis.PubSub {
	return s.rdb.Subscribe(ctx, OriginEventsChannel(s.namespace))
}
