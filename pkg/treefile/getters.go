package treefile

import "github.com/dyluth/origin/pkg/nevra"

// BaseRefspec returns the base reference.
func (t *Treefile) BaseRefspec() Refspec { return t.base }

// CustomURL returns the custom origin URL set by the last rebase, if any.
func (t *Treefile) CustomURL() string { return t.customURL }

// CustomDescription returns the custom origin description set by the last rebase, if any.
func (t *Treefile) CustomDescription() string { return t.customDescription }

// OverrideCommit returns the pinned commit checksum, or "".
func (t *Treefile) OverrideCommit() string { return t.overrideCommit }

// UnconfiguredState returns the message explaining why the deployment is not yet usable, or "".
func (t *Treefile) UnconfiguredState() string { return t.unconfiguredState }

// Packages returns the requested repo packages and capabilities, sorted.
func (t *Treefile) Packages() []string { return t.packages.sorted() }

// LocalPackages returns local packages as sorted "<digest>:<nevra>" entries.
func (t *Treefile) LocalPackages() []string { return qualifiedList(t.localPackages) }

// LocalFileOverridePackages returns local file-override packages as sorted "<digest>:<nevra>" entries.
func (t *Treefile) LocalFileOverridePackages() []string {
	return qualifiedList(t.localFileOverridePackages)
}

// ModulesEnable returns the enabled module streams.
func (t *Treefile) ModulesEnable() []string { return t.modulesEnable.sorted() }

// ModulesInstall returns the installed module profiles.
func (t *Treefile) ModulesInstall() []string { return t.modulesInstall.sorted() }

// OverridesRemove returns the names of base packages removed by override.
func (t *Treefile) OverridesRemove() []string { return t.overrideRemove.sorted() }

// OverridesReplaceLocal returns local replacement overrides as sorted "<digest>:<nevra>" entries.
func (t *Treefile) OverridesReplaceLocal() []string { return qualifiedList(t.overrideReplaceLocal) }

// HasOverridesRemoveName reports whether name is removed by override.
func (t *Treefile) HasOverridesRemoveName(name string) bool { return t.overrideRemove.has(name) }

// InitramfsEtcFiles returns the /etc files tracked into the initramfs.
func (t *Treefile) InitramfsEtcFiles() []string { return t.initramfsEtcFiles.sorted() }

// HasInitramfsEtcFiles reports whether any /etc file is tracked.
func (t *Treefile) HasInitramfsEtcFiles() bool { return len(t.initramfsEtcFiles) > 0 }

// InitramfsRegenerate reports whether the initramfs is regenerated client side.
func (t *Treefile) InitramfsRegenerate() bool { return t.initramfsRegenerate }

// InitramfsArgs returns the extra dracut arguments, in order.
func (t *Treefile) InitramfsArgs() []string { return append([]string(nil), t.initramfsArgs...) }

// Cliwrap reports whether CLI wrapping is enabled.
func (t *Treefile) Cliwrap() bool { return t.cliwrap }

// HasPackages reports whether any repo package is requested.
func (t *Treefile) HasPackages() bool { return len(t.packages) > 0 }

// HasAnyPackages reports whether any repo, local, or file-override package is requested.
func (t *Treefile) HasAnyPackages() bool {
	return len(t.packages) > 0 || len(t.localPackages) > 0 || len(t.localFileOverridePackages) > 0
}

// HasModulesEnable reports whether any module stream is enabled.
func (t *Treefile) HasModulesEnable() bool { return len(t.modulesEnable) > 0 }

// MayRequireLocalAssembly reports whether deploying this origin may need a
// client-side layering step rather than a plain checkout of the base.
func (t *Treefile) MayRequireLocalAssembly() bool {
	return t.HasAnyPackages() ||
		len(t.modulesEnable) > 0 ||
		len(t.modulesInstall) > 0 ||
		len(t.overrideRemove) > 0 ||
		len(t.overrideReplaceLocal) > 0 ||
		t.initramfsRegenerate ||
		len(t.initramfsEtcFiles) > 0 ||
		t.cliwrap
}

// localNameIndex maps package name to NEVRA for a NEVRA -> digest map.
func localNameIndex(m map[string]string) map[string]string {
	idx := make(map[string]string, len(m))
	for id := range m {
		if n, err := nevra.Decompose(id); err == nil {
			idx[n.Name] = id
		}
	}
	return idx
}
