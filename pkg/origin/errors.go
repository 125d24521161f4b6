package origin

import (
	"errors"
	"fmt"

	"github.com/dyluth/origin/pkg/nevra"
)

var (
	// ErrInvalidOrigin indicates a source document that cannot produce a treefile.
	ErrInvalidOrigin = errors.New("invalid origin")

	// ErrMalformedIdentifier indicates a package identifier that does not match
	// name-version-release.arch, or a digest-qualified entry without a valid digest.
	ErrMalformedIdentifier = nevra.ErrMalformedIdentifier

	// ErrPackageNotRequested indicates a removal token that matched nothing.
	ErrPackageNotRequested = errors.New("package not requested")

	// ErrNoOriginForDeployment indicates a deployment that carries no origin.
	ErrNoOriginForDeployment = errors.New("no origin for deployment")

	// ErrReconciliation indicates that the treefile and mirror could not be
	// brought back in sync after a mutation. The Origin is left unchanged.
	ErrReconciliation = errors.New("origin reconciliation failed")
)

// PackageNotRequestedError names the removal token that matched nothing.
type PackageNotRequestedError struct {
	Package string
}

func (e *PackageNotRequestedError) Error() string {
	return fmt.Sprintf("package/capability '%s' is not currently requested", e.Package)
}

// Unwrap allows errors.Is(err, ErrPackageNotRequested).
func (e *PackageNotRequestedError) Unwrap() error {
	return ErrPackageNotRequested
}

// NoOriginError names the deployment that has no origin.
type NoOriginError struct {
	Deployment DeploymentRef
}

func (e *NoOriginError) Error() string {
	return fmt.Sprintf("no origin known for deployment %s", e.Deployment)
}

// Unwrap allows errors.Is(err, ErrNoOriginForDeployment).
func (e *NoOriginError) Unwrap() error {
	return ErrNoOriginForDeployment
}

// IsPackageNotRequested checks if an error is a PackageNotRequestedError.
func IsPackageNotRequested(err error) bool {
	return errors.Is(err, ErrPackageNotRequested)
}

// IsNoOrigin checks if an error reports a deployment without an origin.
func IsNoOrigin(err error) bool {
	return errors.Is(err, ErrNoOriginForDeployment)
}
