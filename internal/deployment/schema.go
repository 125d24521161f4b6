package deployment

import (
	"fmt"

	"github.com/dyluth/origin/pkg/origin"
)

// Redis key pattern helpers
//
// All keys and channels are namespaced so that several hosts (or test runs)
// can share one Redis server.
//
// Key pattern: originctl:{namespace}:{stateroot}:deployment:{checksum}.{serial}
// Channel pattern: originctl:{namespace}:origin_events

// OriginKey returns the Redis key of a deployment's origin hash.
func OriginKey(namespace string, ref origin.DeploymentRef) string {
	return fmt.Sprintf("originctl:%s:%s:deployment:%s", namespace, ref.Stateroot, ref)
}

// DeploymentIndexKey returns the Redis key of the set of deployments known
// for a stateroot. Members are "{checksum}.{serial}".
func DeploymentIndexKey(namespace, stateroot string) string {
	return fmt.Sprintf("originctl:%s:%s:deployments", namespace, stateroot)
}

// OriginEventsChannel returns the Pub/Sub channel that announces stored origins.
func OriginEventsChannel(namespace string) string {
	return fmt.Sprintf("originctl:%s:origin_events", namespace)
}

// BlobKey returns the object key of a deployment's origin file, mirroring the
// on-disk layout of an ostree sysroot ("{stateroot}/deploy/{checksum}.{serial}.origin").
func BlobKey(ref origin.DeploymentRef) string {
	return fmt.Sprintf("%s/deploy/%s.origin", ref.Stateroot, ref)
}

// Hash field names of a stored origin.
const (
	fieldOrigin    = "origin"
	fieldDigest    = "digest"
	fieldStateroot = "stateroot"
)
