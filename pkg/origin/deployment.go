package origin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dyluth/origin/pkg/keyfile"
)

// DeploymentRef identifies a deployment by stateroot, commit checksum and
// deploy serial.
type DeploymentRef struct {
	Stateroot string
	Checksum  string
	Serial    int
}

// String formats the reference as "<checksum>.<serial>", the form used in
// deployment directory names.
func (r DeploymentRef) String() string {
	return fmt.Sprintf("%s.%d", r.Checksum, r.Serial)
}

// ParseDeploymentRef parses "<checksum>.<serial>" within a stateroot.
func ParseDeploymentRef(stateroot, s string) (DeploymentRef, error) {
	dot := strings.LastIndexByte(s, '.')
	if dot <= 0 || dot == len(s)-1 {
		return DeploymentRef{}, fmt.Errorf("invalid deployment '%s': expected CHECKSUM.SERIAL", s)
	}
	serial, err := strconv.Atoi(s[dot+1:])
	if err != nil || serial < 0 {
		return DeploymentRef{}, fmt.Errorf("invalid deployment serial in '%s'", s)
	}
	return DeploymentRef{Stateroot: stateroot, Checksum: s[:dot], Serial: serial}, nil
}

// Deployment is a deployment together with its origin document, which may be nil.
type Deployment struct {
	DeploymentRef
	Origin *keyfile.Document
}

// Lookup retrieves the origin document of a deployment. Implementations
// return an error wrapping ErrNoOriginForDeployment when none exists.
type Lookup interface {
	LookupOrigin(ctx context.Context, ref DeploymentRef) (*keyfile.Document, error)
}

// ParseDeployment builds an Origin from a deployment's origin document.
func ParseDeployment(d Deployment) (*Origin, error) {
	if d.Origin == nil {
		return nil, &NoOriginError{Deployment: d.DeploymentRef}
	}
	return Parse(d.Origin)
}

// Load fetches a deployment's origin through l and parses it.
func Load(ctx context.Context, l Lookup, ref DeploymentRef) (*Origin, error) {
	kf, err := l.LookupOrigin(ctx, ref)
	if err != nil {
		return nil, err
	}
	return ParseDeployment(Deployment{DeploymentRef: ref, Origin: kf})
}
