// Package deployment provides storage backends that hold the origin files of
// deployments. Both backends satisfy origin.Lookup and report a missing
// origin as an error wrapping origin.ErrNoOriginForDeployment.
package deployment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/origin/internal/config"
	"github.com/dyluth/origin/pkg/keyfile"
	"github.com/dyluth/origin/pkg/origin"
	"github.com/redis/go-redis/v9"
)

// Store reads and writes deployment origins.
type Store interface {
	origin.Lookup

	// StoreOrigin persists kf as the origin of ref, replacing any previous one.
	StoreOrigin(ctx context.Context, ref origin.DeploymentRef, kf *keyfile.Document) error

	// List returns the deployments of stateroot that have an origin, sorted.
	List(ctx context.Context, stateroot string) ([]origin.DeploymentRef, error)

	Close() error
}

// Open returns the store selected by cfg.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		s, err := NewRedisStore(opts, cfg.Store.Namespace)
		if err != nil {
			return nil, err
		}
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Store.RedisURL, err)
		}
		return s, nil
	case config.BackendBlob:
		return OpenBlobStore(ctx, cfg.Store.BucketURL)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

func sortRefs(refs []origin.DeploymentRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Checksum != refs[j].Checksum {
			return refs[i].Checksum < refs[j].Checksum
		}
		return refs[i].Serial < refs[j].Serial
	})
}

// parseOrigin decodes stored origin text.
func parseOrigin(ref origin.DeploymentRef, data []byte) (*keyfile.Document, error) {
	kf, err := keyfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse origin of deployment %s: %w", ref, err)
	}
	return kf, nil
}

func validStateroot(stateroot string) error {
	if stateroot == "" {
		return fmt.Errorf("stateroot cannot be empty")
	}
	if strings.ContainsAny(stateroot, "/:") {
		return fmt.Errorf("invalid stateroot '%s'", stateroot)
	}
	return nil
}
