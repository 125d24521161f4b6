package origin

import (
	"fmt"
	"sort"

	"github.com/dyluth/origin/pkg/keyfile"
	"github.com/dyluth/origin/pkg/nevra"
	"github.com/dyluth/origin/pkg/treefile"
)

type stringSet map[string]struct{}

func (s stringSet) remove(v string) bool {
	if _, ok := s[v]; !ok {
		return false
	}
	delete(s, v)
	return true
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// packageSets caches the package lists of the mirror for membership tests
// and name resolution. Digest-bearing sets map bare NEVRA -> digest.
type packageSets struct {
	requested                  stringSet
	requestedLocal             map[string]string
	requestedLocalFileOverride map[string]string
	overridesRemove            stringSet
	overridesReplaceLocal      map[string]string
}

func buildPackageSets(kf *keyfile.Document) (packageSets, error) {
	s := packageSets{
		requested:                  stringSet{},
		requestedLocal:             map[string]string{},
		requestedLocalFileOverride: map[string]string{},
		overridesRemove:            stringSet{},
		overridesReplaceLocal:      map[string]string{},
	}

	readNames(kf, treefile.GroupPackages, treefile.KeyRequested, s.requested)
	readNames(kf, treefile.GroupOverrides, treefile.KeyOverrideRemove, s.overridesRemove)

	for _, p := range []struct {
		key   string
		group string
		dst   map[string]string
	}{
		{treefile.KeyRequestedLocal, treefile.GroupPackages, s.requestedLocal},
		{treefile.KeyRequestedLocalFileOverride, treefile.GroupPackages, s.requestedLocalFileOverride},
		{treefile.KeyOverrideReplaceLocal, treefile.GroupOverrides, s.overridesReplaceLocal},
	} {
		if err := readQualified(kf, p.group, p.key, p.dst); err != nil {
			return packageSets{}, err
		}
	}

	return s, nil
}

func readNames(kf *keyfile.Document, group, key string, dst stringSet) {
	for _, v := range kf.GetStringList(group, key) {
		dst[v] = struct{}{}
	}
}

func readQualified(kf *keyfile.Document, group, key string, dst map[string]string) error {
	for _, v := range kf.GetStringList(group, key) {
		q, err := nevra.DecomposeDigestQualified(v)
		if err != nil {
			return fmt.Errorf("invalid SHA-256 NEVRA string in %s/%s: %w", group, key, err)
		}
		dst[q.Identifier] = q.Digest
	}
	return nil
}

func (s packageSets) clone() packageSets {
	return packageSets{
		requested:                  cloneSet(s.requested),
		requestedLocal:             cloneMap(s.requestedLocal),
		requestedLocalFileOverride: cloneMap(s.requestedLocalFileOverride),
		overridesRemove:            cloneSet(s.overridesRemove),
		overridesReplaceLocal:      cloneMap(s.overridesReplaceLocal),
	}
}

func cloneSet(s stringSet) stringSet {
	out := make(stringSet, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// qualifiedEntries renders NEVRA -> digest as "<digest>:<nevra>" entries.
func qualifiedEntries(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for id, d := range m {
		out = append(out, nevra.Format(d, id))
	}
	sort.Strings(out)
	return out
}

// nameIndex maps package name -> NEVRA for every identifier in m.
func nameIndex(m map[string]string) (map[string]string, error) {
	idx := make(map[string]string, len(m))
	for id := range m {
		n, err := nevra.Decompose(id)
		if err != nil {
			return nil, err
		}
		idx[n.Name] = id
	}
	return idx, nil
}
