package origin

import "github.com/dyluth/origin/pkg/treefile"

// SetOverrideCommit pins the origin to a commit; "" unpins.
func (o *Origin) SetOverrideCommit(checksum string) error {
	_, err := o.mutateConfig(true, func(t *treefile.Treefile) (bool, error) {
		return true, t.SetOverrideCommit(checksum)
	})
	return err
}

// SetCliwrap enables or disables CLI wrapping.
func (o *Origin) SetCliwrap(enabled bool) error {
	_, err := o.mutateConfig(true, func(t *treefile.Treefile) (bool, error) {
		t.SetCliwrap(enabled)
		return true, nil
	})
	return err
}

// Rebase points the origin at a new base reference and clears any custom origin.
func (o *Origin) Rebase(refspec string) error {
	return o.RebaseCustom(refspec, "", "")
}

// RebaseCustom points the origin at a new base reference with a custom origin URL and description.
func (o *Origin) RebaseCustom(refspec, customURL, customDescription string) error {
	_, err := o.mutateConfig(true, func(t *treefile.Treefile) (bool, error) {
		return true, t.Rebase(refspec, customURL, customDescription)
	})
	return err
}

func (o *Origin) AddModules(modules []string, enableOnly bool) (bool, error) {
	return o.mutateConfig(false, func(t *treefile.Treefile) (bool, error) {
		return t.AddModules(modules, enableOnly)
	})
}

func (o *Origin) RemoveModules(modules []string, enableOnly bool) (bool, error) {
	return o.mutateConfig(false, func(t *treefile.Treefile) (bool, error) {
		return t.RemoveModules(modules, enableOnly), nil
	})
}

// AddPackages requests repo packages or capabilities.
func (o *Origin) AddPackages(pkgs []string, allowExisting bool) (bool, error) {
	return o.mutateConfig(false, func(t *treefile.Treefile) (bool, error) {
		return t.AddPackages(pkgs, allowExisting)
	})
}

// AddLocalPackages records local packages given as "<digest>:<nevra>".
func (o *Origin) AddLocalPackages(pkgs []string, allowExisting bool) (bool, error) {
	return o.mutateConfig(false, func(t *treefile.Treefile) (bool, error) {
		return t.AddLocalPackages(pkgs, allowExisting)
	})
}

// AddLocalFileOverridePackages records local file-override packages given as "<digest>:<nevra>".
func (o *Origin) AddLocalFileOverridePackages(pkgs []string, allowExisting bool) (bool, error) {
	return o.mutateConfig(false, func(t *treefile.Treefile) (bool, error) {
		return t.AddLocalFileOverridePackages(pkgs, allowExisting)
	})
}

func (o *Origin) RemoveAllPackages() (bool, error) {
	return o.mutateConfig(false, func(t *treefile.Treefile) (bool, error) {
		return t.RemoveAllPackages(), nil
	})
}

// AddOverrideRemove removes base packages by name. It fails if any of them is
// already overridden.
func (o *Origin) AddOverrideRemove(pkgs []string) error {
	_, err := o.mutateConfig(false, func(t *treefile.Treefile) (bool, error) {
		return len(pkgs) > 0, t.AddOverrideRemove(pkgs)
	})
	return err
}

// AddOverrideReplaceLocal replaces base packages with local ones given as
// "<digest>:<nevra>". It fails if any of them is already overridden.
func (o *Origin) AddOverrideReplaceLocal(pkgs []string) error {
	_, err := o.mutateConfig(false, func(t *treefile.Treefile) (bool, error) {
		return len(pkgs) > 0, t.AddOverrideReplaceLocal(pkgs)
	})
	return err
}

// RemoveOverrideRemove resets a removal override. It reports false, without
// error, when the package was not overridden.
func (o *Origin) RemoveOverrideRemove(pkg string) (bool, error) {
	return o.mutateConfig(false, func(t *treefile.Treefile) (bool, error) {
		return t.RemoveOverrideRemove(pkg), nil
	})
}

// RemoveOverrideReplaceLocal resets a local replacement override by NEVRA or
// name. It reports false, without error, when nothing matched.
func (o *Origin) RemoveOverrideReplaceLocal(pkg string) (bool, error) {
	return o.mutateConfig(false, func(t *treefile.Treefile) (bool, error) {
		return t.RemoveOverrideReplaceLocal(pkg), nil
	})
}

func (o *Origin) RemoveAllOverrides() (bool, error) {
	return o.mutateConfig(false, func(t *treefile.Treefile) (bool, error) {
		return t.RemoveAllOverrides(), nil
	})
}

func (o *Origin) InitramfsEtcFilesTrack(paths []string) (bool, error) {
	return o.mutateConfig(false, func(t *treefile.Treefile) (bool, error) {
		return t.InitramfsEtcFilesTrack(paths)
	})
}

func (o *Origin) InitramfsEtcFilesUntrack(paths []string) (bool, error) {
	return o.mutateConfig(false, func(t *treefile.Treefile) (bool, error) {
		return t.InitramfsEtcFilesUntrack(paths), nil
	})
}

func (o *Origin) InitramfsEtcFilesUntrackAll() (bool, error) {
	return o.mutateConfig(false, func(t *treefile.Treefile) (bool, error) {
		return t.InitramfsEtcFilesUntrackAll(), nil
	})
}

// SetRegenerateInitramfs toggles client-side initramfs regeneration with
// extra arguments; args are dropped when disabling.
func (o *Origin) SetRegenerateInitramfs(regenerate bool, args []string) (bool, error) {
	return o.mutateConfig(false, func(t *treefile.Treefile) (bool, error) {
		return t.SetInitramfsRegenerate(regenerate, args), nil
	})
}
