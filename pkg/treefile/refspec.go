package treefile

import (
	"fmt"
	"strings"

	"github.com/opencontainers/go-digest"
)

// RefspecKind identifies what a base reference points at.
type RefspecKind string

const (
	// RefspecOstree is an ostree branch, optionally prefixed by a remote ("remote:ref").
	RefspecOstree RefspecKind = "ostree"

	// RefspecChecksum is a bare commit checksum.
	RefspecChecksum RefspecKind = "checksum"

	// RefspecContainer is a container image reference with an ostree transport prefix.
	RefspecContainer RefspecKind = "container"
)

// containerTransports are the prefixes that mark a base reference as a container image.
var containerTransports = []string{
	"ostree-unverified-registry:",
	"ostree-unverified-image:",
	"ostree-remote-registry:",
	"ostree-remote-image:",
	"ostree-image-signed:",
}

// Refspec is the provenance of a deployment: where its base content comes from.
type Refspec struct {
	Kind  RefspecKind `yaml:"kind"`
	Value string      `yaml:"value"`
}

// String returns the reference text.
func (r Refspec) String() string {
	return r.Value
}

// IsZero reports whether no reference is set.
func (r Refspec) IsZero() bool {
	return r.Value == ""
}

// ParseRefspec classifies a reference string.
func ParseRefspec(s string) (Refspec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Refspec{}, fmt.Errorf("refspec cannot be empty")
	}

	for _, prefix := range containerTransports {
		if strings.HasPrefix(s, prefix) {
			if len(s) == len(prefix) {
				return Refspec{}, fmt.Errorf("container reference '%s' is missing an image", s)
			}
			return Refspec{Kind: RefspecContainer, Value: s}, nil
		}
	}

	if isChecksum(s) {
		return Refspec{Kind: RefspecChecksum, Value: s}, nil
	}

	if strings.ContainsAny(s, " \t\n") {
		return Refspec{}, fmt.Errorf("invalid refspec '%s': contains whitespace", s)
	}
	if strings.HasSuffix(s, ":") || strings.HasPrefix(s, ":") {
		return Refspec{}, fmt.Errorf("invalid refspec '%s': empty remote or ref", s)
	}

	return Refspec{Kind: RefspecOstree, Value: s}, nil
}

func (r Refspec) validate() error {
	parsed, err := ParseRefspec(r.Value)
	if err != nil {
		return err
	}
	if r.Kind != "" && r.Kind != parsed.Kind {
		return fmt.Errorf("refspec '%s' is a %s reference, not %s", r.Value, parsed.Kind, r.Kind)
	}
	return nil
}

func isChecksum(s string) bool {
	return digest.SHA256.Validate(s) == nil
}
