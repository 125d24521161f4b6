package origin

import "github.com/dyluth/origin/pkg/treefile"

// Getters read straight from the treefile; none of them cache or mutate.

func (o *Origin) Refspec() treefile.Refspec { return o.config.BaseRefspec() }

func (o *Origin) CustomURL() string { return o.config.CustomURL() }

func (o *Origin) CustomDescription() string { return o.config.CustomDescription() }

func (o *Origin) Packages() []string { return o.config.Packages() }

func (o *Origin) HasPackages() bool { return o.config.HasPackages() }

func (o *Origin) HasAnyPackages() bool { return o.config.HasAnyPackages() }

func (o *Origin) HasModulesEnable() bool { return o.config.HasModulesEnable() }

func (o *Origin) ModulesEnable() []string { return o.config.ModulesEnable() }

func (o *Origin) ModulesInstall() []string { return o.config.ModulesInstall() }

func (o *Origin) LocalPackages() []string { return o.config.LocalPackages() }

func (o *Origin) LocalFileOverridePackages() []string { return o.config.LocalFileOverridePackages() }

func (o *Origin) OverridesRemove() []string { return o.config.OverridesRemove() }

func (o *Origin) HasOverridesRemoveName(name string) bool { return o.config.HasOverridesRemoveName(name) }

func (o *Origin) OverridesReplaceLocal() []string { return o.config.OverridesReplaceLocal() }

func (o *Origin) OverrideCommit() string { return o.config.OverrideCommit() }

func (o *Origin) InitramfsEtcFiles() []string { return o.config.InitramfsEtcFiles() }

func (o *Origin) HasInitramfsEtcFiles() bool { return o.config.HasInitramfsEtcFiles() }

func (o *Origin) RegenerateInitramfs() bool { return o.config.InitramfsRegenerate() }

func (o *Origin) InitramfsArgs() []string { return o.config.InitramfsArgs() }

func (o *Origin) UnconfiguredState() string { return o.config.UnconfiguredState() }

func (o *Origin) Cliwrap() bool { return o.config.Cliwrap() }

func (o *Origin) MayRequireLocalAssembly() bool { return o.config.MayRequireLocalAssembly() }

// CachedUnconfiguredState returns the unconfigured state captured when the
// origin was loaded. It is not refreshed by later mutations.
func (o *Origin) CachedUnconfiguredState() string { return o.cachedUnconfiguredState }
