package treefile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dyluth/origin/pkg/nevra"
)

// Rebase points the origin at a new base reference. An empty url or
// description clears the corresponding custom origin field.
func (t *Treefile) Rebase(refspec, customURL, customDescription string) error {
	ref, err := ParseRefspec(refspec)
	if err != nil {
		return err
	}
	if customDescription != "" && customURL == "" {
		return fmt.Errorf("custom description requires a custom URL")
	}
	t.base = ref
	t.customURL = customURL
	t.customDescription = customDescription
	return nil
}

// SetOverrideCommit pins the deployment to a commit. An empty checksum unpins.
func (t *Treefile) SetOverrideCommit(checksum string) error {
	if checksum != "" && !isChecksum(checksum) {
		return fmt.Errorf("invalid override commit '%s': expected a sha256 checksum", checksum)
	}
	t.overrideCommit = checksum
	return nil
}

// SetCliwrap enables or disables CLI wrapping.
func (t *Treefile) SetCliwrap(enabled bool) {
	t.cliwrap = enabled
}

// AddPackages requests repo packages or capabilities. Re-adding a requested
// package is an error unless allowExisting is set.
func (t *Treefile) AddPackages(pkgs []string, allowExisting bool) (bool, error) {
	changed := false
	for _, pkg := range pkgs {
		pkg = strings.TrimSpace(pkg)
		if pkg == "" {
			return changed, fmt.Errorf("empty package name")
		}
		if t.packages.has(pkg) {
			if !allowExisting {
				return changed, fmt.Errorf("package/capability '%s' is already requested", pkg)
			}
			continue
		}
		t.packages.add(pkg)
		changed = true
	}
	return changed, nil
}

// AddLocalPackages records locally supplied packages given as "<digest>:<nevra>".
func (t *Treefile) AddLocalPackages(entries []string, allowExisting bool) (bool, error) {
	return addLocal(t.localPackages, t.localFileOverridePackages, entries, allowExisting, "file override")
}

// AddLocalFileOverridePackages records local packages whose files override
// base content, given as "<digest>:<nevra>".
func (t *Treefile) AddLocalFileOverridePackages(entries []string, allowExisting bool) (bool, error) {
	return addLocal(t.localFileOverridePackages, t.localPackages, entries, allowExisting, "local package")
}

func addLocal(dst, other map[string]string, entries []string, allowExisting bool, otherKind string) (bool, error) {
	otherNames := localNameIndex(other)
	changed := false
	for _, e := range entries {
		q, err := nevra.DecomposeDigestQualified(e)
		if err != nil {
			return changed, err
		}
		if conflict, ok := otherNames[q.Name]; ok {
			return changed, fmt.Errorf("package '%s' is already requested as %s %s", q.Name, otherKind, conflict)
		}
		if existing, ok := dst[q.Identifier]; ok {
			if !allowExisting {
				return changed, fmt.Errorf("package '%s' is already layered", q.Identifier)
			}
			if existing == q.Digest {
				continue
			}
		}
		dst[q.Identifier] = q.Digest
		changed = true
	}
	return changed, nil
}

// RemoveAllPackages drops every repo, local, and file-override package.
func (t *Treefile) RemoveAllPackages() bool {
	changed := t.HasAnyPackages()
	t.packages = stringSet{}
	t.localPackages = map[string]string{}
	t.localFileOverridePackages = map[string]string{}
	return changed
}

// AddModules enables module streams (enableOnly) or installs module profiles.
func (t *Treefile) AddModules(modules []string, enableOnly bool) (bool, error) {
	set := t.modulesInstall
	if enableOnly {
		set = t.modulesEnable
	}
	changed := false
	for _, m := range modules {
		if err := validateModule(m); err != nil {
			return changed, err
		}
		if set.add(m) {
			changed = true
		}
	}
	return changed, nil
}

// RemoveModules is the inverse of AddModules. Absent modules are ignored.
func (t *Treefile) RemoveModules(modules []string, enableOnly bool) bool {
	set := t.modulesInstall
	if enableOnly {
		set = t.modulesEnable
	}
	changed := false
	for _, m := range modules {
		if set.remove(m) {
			changed = true
		}
	}
	return changed
}

// AddOverrideRemove removes base packages by name. Naming a package that is
// already overridden, or replaced by a local override, is an error.
func (t *Treefile) AddOverrideRemove(names []string) error {
	replaced := localNameIndex(t.overrideReplaceLocal)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("empty package name")
		}
		if t.overrideRemove.has(name) {
			return fmt.Errorf("package '%s' is already overridden", name)
		}
		if id, ok := replaced[name]; ok {
			return fmt.Errorf("package '%s' is already replaced by local override %s", name, id)
		}
		t.overrideRemove.add(name)
	}
	return nil
}

// AddOverrideReplaceLocal replaces base packages with local ones given as
// "<digest>:<nevra>".
func (t *Treefile) AddOverrideReplaceLocal(entries []string) error {
	for _, e := range entries {
		q, err := nevra.DecomposeDigestQualified(e)
		if err != nil {
			return err
		}
		if _, ok := t.overrideReplaceLocal[q.Identifier]; ok {
			return fmt.Errorf("package '%s' is already overridden", q.Identifier)
		}
		if t.overrideRemove.has(q.Name) {
			return fmt.Errorf("package '%s' is already removed by override", q.Name)
		}
		t.overrideReplaceLocal[q.Identifier] = q.Digest
	}
	return nil
}

// RemoveOverrideRemove resets a removal override. Returns false if name was not overridden.
func (t *Treefile) RemoveOverrideRemove(name string) bool {
	return t.overrideRemove.remove(name)
}

// RemoveOverrideReplaceLocal resets a local replacement override, given
// either its NEVRA or its package name. Returns false if nothing matched.
func (t *Treefile) RemoveOverrideReplaceLocal(pkg string) bool {
	if _, ok := t.overrideReplaceLocal[pkg]; ok {
		delete(t.overrideReplaceLocal, pkg)
		return true
	}
	if id, ok := localNameIndex(t.overrideReplaceLocal)[pkg]; ok {
		delete(t.overrideReplaceLocal, id)
		return true
	}
	return false
}

// RemoveAllOverrides resets every override.
func (t *Treefile) RemoveAllOverrides() bool {
	changed := len(t.overrideRemove) > 0 || len(t.overrideReplaceLocal) > 0
	t.overrideRemove = stringSet{}
	t.overrideReplaceLocal = map[string]string{}
	return changed
}

// InitramfsEtcFilesTrack starts tracking /etc files into the initramfs.
func (t *Treefile) InitramfsEtcFilesTrack(paths []string) (bool, error) {
	for _, p := range paths {
		if err := validateEtcPath(p); err != nil {
			return false, err
		}
	}
	changed := false
	for _, p := range paths {
		if t.initramfsEtcFiles.add(p) {
			changed = true
		}
	}
	return changed, nil
}

// InitramfsEtcFilesUntrack stops tracking the given files.
func (t *Treefile) InitramfsEtcFilesUntrack(paths []string) bool {
	changed := false
	for _, p := range paths {
		if t.initramfsEtcFiles.remove(p) {
			changed = true
		}
	}
	return changed
}

// InitramfsEtcFilesUntrackAll stops tracking every file.
func (t *Treefile) InitramfsEtcFilesUntrackAll() bool {
	changed := len(t.initramfsEtcFiles) > 0
	t.initramfsEtcFiles = stringSet{}
	return changed
}

// SetInitramfsRegenerate toggles client-side initramfs regeneration. Args
// are kept only while regeneration is enabled.
func (t *Treefile) SetInitramfsRegenerate(regenerate bool, args []string) bool {
	if !regenerate {
		args = nil
	}
	changed := t.initramfsRegenerate != regenerate || !slices.Equal(t.initramfsArgs, args)
	t.initramfsRegenerate = regenerate
	t.initramfsArgs = append([]string(nil), args...)
	return changed
}
