package origin

import (
	"fmt"

	"github.com/dyluth/origin/pkg/treefile"
)

// RemovePackages removes requested packages. Each token may be:
//
//   - the NEVRA of a local or local file-override package,
//   - a repo package or capability exactly as requested, or
//   - the bare name of a local or local file-override package.
//
// Tokens are resolved left to right in that order. A token that matches
// nothing fails with a PackageNotRequestedError unless allowMissing is set.
//
// Only the package lists that changed are written back to the mirror (an
// emptied list removes its key); the treefile is then re-parsed from the
// mirror once. When nothing changed the origin is left untouched.
func (o *Origin) RemovePackages(pkgs []string, allowMissing bool) (bool, error) {
	if len(pkgs) == 0 {
		return false, nil
	}

	sets := o.sets.clone()
	var (
		requestedChanged    bool
		localChanged        bool
		fileOverrideChanged bool

		// built on the first token that needs name resolution
		localByName        map[string]string
		fileOverrideByName map[string]string
	)

	for _, pkg := range pkgs {
		if _, ok := sets.requestedLocal[pkg]; ok {
			delete(sets.requestedLocal, pkg)
			localChanged = true
			continue
		}
		if _, ok := sets.requestedLocalFileOverride[pkg]; ok {
			delete(sets.requestedLocalFileOverride, pkg)
			fileOverrideChanged = true
			continue
		}
		if sets.requested.remove(pkg) {
			requestedChanged = true
			continue
		}

		if localByName == nil {
			var err error
			if localByName, err = nameIndex(sets.requestedLocal); err != nil {
				return false, err
			}
			if fileOverrideByName, err = nameIndex(sets.requestedLocalFileOverride); err != nil {
				return false, err
			}
		}

		if removeByName(sets.requestedLocal, localByName, pkg) {
			localChanged = true
			continue
		}
		if removeByName(sets.requestedLocalFileOverride, fileOverrideByName, pkg) {
			fileOverrideChanged = true
			continue
		}

		if !allowMissing {
			return false, &PackageNotRequestedError{Package: pkg}
		}
	}

	if !requestedChanged && !localChanged && !fileOverrideChanged {
		return false, nil
	}

	mirror := o.mirror.Clone()
	if requestedChanged {
		mirror.SetOrRemoveStringList(treefile.GroupPackages, treefile.KeyRequested, sets.requested.sorted())
	}
	if localChanged {
		mirror.SetOrRemoveStringList(treefile.GroupPackages, treefile.KeyRequestedLocal, qualifiedEntries(sets.requestedLocal))
	}
	if fileOverrideChanged {
		mirror.SetOrRemoveStringList(treefile.GroupPackages, treefile.KeyRequestedLocalFileOverride, qualifiedEntries(sets.requestedLocalFileOverride))
	}

	if err := o.reconcileConfigFromMirror(mirror, sets); err != nil {
		return false, fmt.Errorf("failed to remove packages: %w", err)
	}
	return true, nil
}

// removeByName removes the identifier that byName maps pkg to, if that
// identifier is still present in set. An exact-match removal earlier in the
// same call may already have dropped it.
func removeByName(set map[string]string, byName map[string]string, pkg string) bool {
	id, ok := byName[pkg]
	if !ok {
		return false
	}
	delete(byName, pkg)
	if _, ok := set[id]; !ok {
		return false
	}
	delete(set, id)
	return true
}
