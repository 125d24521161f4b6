// Package nevra decomposes versioned package identifiers of the form
// name-[epoch:]version-release.arch, optionally prefixed by a content digest
// ("<digest>:<nevra>") as recorded for locally supplied packages.
package nevra

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/opencontainers/go-digest"
)

// ErrMalformedIdentifier is the sentinel wrapped by every parse failure in this package.
var ErrMalformedIdentifier = errors.New("malformed package identifier")

// MalformedError describes why an identifier could not be decomposed.
type MalformedError struct {
	Identifier string
	Reason     string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed package identifier '%s': %s", e.Identifier, e.Reason)
}

// Unwrap allows errors.Is(err, ErrMalformedIdentifier).
func (e *MalformedError) Unwrap() error {
	return ErrMalformedIdentifier
}

// IsMalformed checks if an error is (or wraps) a malformed identifier error.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedIdentifier)
}

// NEVRA holds the components of a versioned package identifier.
type NEVRA struct {
	Name    string
	Epoch   uint64
	Version string
	Release string
	Arch    string
}

// String formats the identifier back into name-[epoch:]version-release.arch.
// A zero epoch is omitted.
func (n NEVRA) String() string {
	evr := n.Version
	if n.Epoch > 0 {
		evr = fmt.Sprintf("%d:%s", n.Epoch, n.Version)
	}
	return fmt.Sprintf("%s-%s-%s.%s", n.Name, evr, n.Release, n.Arch)
}

// Qualified pairs a NEVRA with the content digest of the package it names.
type Qualified struct {
	Digest string
	NEVRA
	// Identifier is the identifier text exactly as it appeared after the digest.
	Identifier string
}

// String formats the entry as "<digest>:<identifier>".
func (q Qualified) String() string {
	return Format(q.Digest, q.Identifier)
}

// Format joins a digest and an identifier into the persisted "<digest>:<identifier>" form.
func Format(digestHex, identifier string) string {
	return digestHex + ":" + identifier
}

// Decompose parses name-[epoch:]version-release.arch.
//
// Fields are taken from the right: the architecture follows the last '.', the
// release follows the last '-', and the version follows the one before it.
// Everything left of that is the name, which may itself contain dashes.
func Decompose(identifier string) (NEVRA, error) {
	var n NEVRA
	if identifier == "" {
		return n, &MalformedError{Identifier: identifier, Reason: "empty identifier"}
	}

	dot := strings.LastIndexByte(identifier, '.')
	if dot < 0 {
		return n, &MalformedError{Identifier: identifier, Reason: "missing architecture"}
	}
	n.Arch = identifier[dot+1:]
	rest := identifier[:dot]
	if n.Arch == "" {
		return n, &MalformedError{Identifier: identifier, Reason: "empty architecture"}
	}

	dash := strings.LastIndexByte(rest, '-')
	if dash < 0 {
		return n, &MalformedError{Identifier: identifier, Reason: "missing release"}
	}
	n.Release = rest[dash+1:]
	rest = rest[:dash]
	if n.Release == "" {
		return n, &MalformedError{Identifier: identifier, Reason: "empty release"}
	}

	dash = strings.LastIndexByte(rest, '-')
	if dash < 0 {
		return n, &MalformedError{Identifier: identifier, Reason: "missing version"}
	}
	evr := rest[dash+1:]
	n.Name = rest[:dash]
	if n.Name == "" {
		return n, &MalformedError{Identifier: identifier, Reason: "empty name"}
	}

	if colon := strings.IndexByte(evr, ':'); colon >= 0 {
		epoch, err := strconv.ParseUint(evr[:colon], 10, 64)
		if err != nil {
			return n, &MalformedError{Identifier: identifier, Reason: fmt.Sprintf("invalid epoch %q", evr[:colon])}
		}
		n.Epoch = epoch
		evr = evr[colon+1:]
	}
	if evr == "" {
		return n, &MalformedError{Identifier: identifier, Reason: "empty version"}
	}
	n.Version = evr

	return n, nil
}

// DecomposeDigestQualified parses "<digest>:<nevra>". The digest is the hex
// encoded SHA-256 of the package header; anything else is rejected.
func DecomposeDigestQualified(token string) (Qualified, error) {
	colon := strings.IndexByte(token, ':')
	if colon < 0 {
		return Qualified{}, &MalformedError{Identifier: token, Reason: "missing digest separator"}
	}

	digestHex, identifier := token[:colon], token[colon+1:]
	if err := ValidateDigest(digestHex); err != nil {
		return Qualified{}, &MalformedError{Identifier: token, Reason: err.Error()}
	}

	n, err := Decompose(identifier)
	if err != nil {
		return Qualified{}, err
	}

	return Qualified{Digest: digestHex, NEVRA: n, Identifier: identifier}, nil
}

// ValidateDigest checks that s is a well-formed hex SHA-256 digest.
func ValidateDigest(s string) error {
	if err := digest.SHA256.Validate(s); err != nil {
		return fmt.Errorf("invalid sha256 digest %q: %w", s, err)
	}
	return nil
}
