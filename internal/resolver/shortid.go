package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/origin/pkg/origin"
)

// MinShortChecksumLength is the minimum required length for checksum prefixes.
const MinShortChecksumLength = 6

// fullChecksumLength is the length of a hex SHA-256 commit checksum.
const fullChecksumLength = 64

// Lister lists the deployments of a stateroot.
type Lister interface {
	List(ctx context.Context, stateroot string) ([]origin.DeploymentRef, error)
}

// ResolveDeployment resolves "CHECKSUM.SERIAL" to a deployment, where
// CHECKSUM may be a unique prefix of the commit checksum.
//
// A full checksum is returned as-is without consulting l, so that the caller's
// lookup reports a missing origin. A prefix shorter than MinShortChecksumLength
// is rejected.
func ResolveDeployment(ctx context.Context, l Lister, stateroot, s string) (origin.DeploymentRef, error) {
	ref, err := origin.ParseDeploymentRef(stateroot, s)
	if err != nil {
		return origin.DeploymentRef{}, err
	}

	if len(ref.Checksum) == fullChecksumLength {
		return ref, nil
	}

	if len(ref.Checksum) < MinShortChecksumLength {
		return origin.DeploymentRef{}, fmt.Errorf("checksum prefix must be at least %d characters (got %d)", MinShortChecksumLength, len(ref.Checksum))
	}

	refs, err := l.List(ctx, stateroot)
	if err != nil {
		return origin.DeploymentRef{}, fmt.Errorf("failed to search for deployment: %w", err)
	}

	var matches []origin.DeploymentRef
	for _, r := range refs {
		if r.Serial == ref.Serial && strings.HasPrefix(r.Checksum, ref.Checksum) {
			matches = append(matches, r)
		}
	}

	switch len(matches) {
	case 0:
		return origin.DeploymentRef{}, &NotFoundError{ShortID: s}
	case 1:
		return matches[0], nil
	default:
		return origin.DeploymentRef{}, &AmbiguousError{ShortID: s, Matches: matches}
	}
}

// NotFoundError indicates no deployments matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no deployments found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple deployments matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []origin.DeploymentRef
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d deployments", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError creates a user-friendly error message for ambiguous short IDs.
// Lists all matching deployments (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ambiguous short ID '%s' matches %d deployments:\n", err.ShortID, len(err.Matches))

	displayCount := min(len(err.Matches), 10)
	for i := 0; i < displayCount; i++ {
		fmt.Fprintf(&b, "  %s\n", err.Matches[i])
	}

	if len(err.Matches) > 10 {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-10)
	}

	b.WriteString("\nUse a longer prefix to uniquely identify the deployment.")
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
