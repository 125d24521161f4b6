package origin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dyluth/origin/pkg/keyfile"
	"github.com/dyluth/origin/pkg/treefile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	digestA  = strings.Repeat("a", 64)
	digestB  = strings.Repeat("b", 64)
	checksum = strings.Repeat("c", 64)
)

const baseOrigin = "[origin]\nrefspec=fedora:fedora/39/x86_64/silverblue\n"

func layeredOrigin() string {
	return `[origin]
refspec=fedora:fedora/39/x86_64/silverblue
unconfigured-state=Run subscription-manager to register

[packages]
requested=htop;vim;
requested-local=` + digestA + `:pkg-1.0-1.x86_64;
requested-local-fileoverride=` + digestB + `:tool-2.0-1.noarch;

[overrides]
remove=firefox;
`
}

func mustParse(t *testing.T, text string) *Origin {
	t.Helper()
	kf, err := keyfile.Parse([]byte(text))
	require.NoError(t, err)
	o, err := Parse(kf)
	require.NoError(t, err)
	return o
}

// assertConsistent checks that the mirror serializes the treefile and that
// the package sets match the mirror.
func assertConsistent(t *testing.T, o *Origin) {
	t.Helper()
	expected, err := o.config.ToOrigin()
	require.NoError(t, err)
	assert.True(t, keyfile.Equivalent(expected, o.mirror), keyfile.Diff(expected, o.mirror))

	sets, err := buildPackageSets(o.mirror)
	require.NoError(t, err)
	assert.Equal(t, sets, o.sets)
}

func TestParse(t *testing.T) {
	t.Run("loads all package sets", func(t *testing.T) {
		o := mustParse(t, layeredOrigin())

		assert.Equal(t, "fedora:fedora/39/x86_64/silverblue", o.Refspec().Value)
		assert.Equal(t, []string{"htop", "vim"}, o.Packages())
		assert.Equal(t, []string{digestA + ":pkg-1.0-1.x86_64"}, o.LocalPackages())
		assert.Equal(t, []string{digestB + ":tool-2.0-1.noarch"}, o.LocalFileOverridePackages())
		assert.Equal(t, []string{"firefox"}, o.OverridesRemove())
		assert.Equal(t, "Run subscription-manager to register", o.CachedUnconfiguredState())
		assert.Equal(t, o.UnconfiguredState(), o.CachedUnconfiguredState())

		assert.Equal(t, map[string]string{"pkg-1.0-1.x86_64": digestA}, o.sets.requestedLocal)
		assert.Equal(t, stringSet{"firefox": {}}, o.sets.overridesRemove)
		assertConsistent(t, o)
	})

	t.Run("invalid origin", func(t *testing.T) {
		kf, err := keyfile.Parse([]byte("[packages]\nrequested=vim;\n"))
		require.NoError(t, err)

		_, err = Parse(kf)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidOrigin))
	})

	t.Run("malformed local package identifier", func(t *testing.T) {
		kf, err := keyfile.Parse([]byte(baseOrigin + "[packages]\nrequested-local=" + digestA + ":pkg;\n"))
		require.NoError(t, err)

		_, err = Parse(kf)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedIdentifier))
		assert.True(t, errors.Is(err, ErrInvalidOrigin))
	})

	t.Run("abbreviated digest is rejected", func(t *testing.T) {
		kf, err := keyfile.Parse([]byte(baseOrigin + "[packages]\nrequested-local=abc123:pkg-1.0-1.x86_64;\n"))
		require.NoError(t, err)

		_, err = Parse(kf)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedIdentifier))
	})

	t.Run("legacy baserefspec still loads", func(t *testing.T) {
		o := mustParse(t, "[origin]\nbaserefspec=fedora:fedora/39/x86_64/silverblue\n[packages]\nrequested=vim;\n")
		assert.Equal(t, "fedora:fedora/39/x86_64/silverblue", o.Refspec().Value)
		assertConsistent(t, o)
	})
}

func TestRoundTrip(t *testing.T) {
	kf, err := keyfile.Parse([]byte(layeredOrigin()))
	require.NoError(t, err)

	o, err := Parse(kf)
	require.NoError(t, err)
	assert.True(t, keyfile.Equivalent(kf, o.Keyfile()), keyfile.Diff(kf, o.Keyfile()))
}

func TestClone(t *testing.T) {
	o := mustParse(t, `[origin]
refspec=fedora:fedora/39/x86_64/silverblue
custom-url=https://example.com/stream
custom-description=Example stream
override-commit=`+checksum+`
unconfigured-state=Run subscription-manager to register

[packages]
requested=htop;vim;
requested-local=`+digestA+`:pkg-1.0-1.x86_64;
requested-local-fileoverride=`+digestB+`:tool-2.0-1.noarch;

[modules]
enable=nodejs:18;
install=postgresql:15/server;

[overrides]
remove=firefox;
replace-local=`+digestB+`:kernel-6.5.0-1.x86_64;

[rpmostree]
regenerate-initramfs=true
initramfs-args=-I;/etc/crypttab;
initramfs-etc=/etc/crypttab;
ex-cliwrap=true
`)
	require.NotEmpty(t, o.CustomURL())
	require.NotEmpty(t, o.ModulesInstall())
	require.NotEmpty(t, o.InitramfsArgs())
	require.True(t, o.RegenerateInitramfs())

	c := o.Clone()
	assert.Equal(t, o.Refspec(), c.Refspec())
	assert.Equal(t, o.CustomURL(), c.CustomURL())
	assert.Equal(t, o.CustomDescription(), c.CustomDescription())
	assert.Equal(t, o.OverrideCommit(), c.OverrideCommit())
	assert.Equal(t, o.UnconfiguredState(), c.UnconfiguredState())
	assert.Equal(t, o.Packages(), c.Packages())
	assert.Equal(t, o.HasPackages(), c.HasPackages())
	assert.Equal(t, o.HasAnyPackages(), c.HasAnyPackages())
	assert.Equal(t, o.LocalPackages(), c.LocalPackages())
	assert.Equal(t, o.LocalFileOverridePackages(), c.LocalFileOverridePackages())
	assert.Equal(t, o.HasModulesEnable(), c.HasModulesEnable())
	assert.Equal(t, o.ModulesEnable(), c.ModulesEnable())
	assert.Equal(t, o.ModulesInstall(), c.ModulesInstall())
	assert.Equal(t, o.OverridesRemove(), c.OverridesRemove())
	assert.Equal(t, o.OverridesReplaceLocal(), c.OverridesReplaceLocal())
	assert.Equal(t, o.InitramfsEtcFiles(), c.InitramfsEtcFiles())
	assert.Equal(t, o.HasInitramfsEtcFiles(), c.HasInitramfsEtcFiles())
	assert.Equal(t, o.RegenerateInitramfs(), c.RegenerateInitramfs())
	assert.Equal(t, o.InitramfsArgs(), c.InitramfsArgs())
	assert.Equal(t, o.Cliwrap(), c.Cliwrap())
	assert.Equal(t, o.MayRequireLocalAssembly(), c.MayRequireLocalAssembly())
	assert.Equal(t, o.CachedUnconfiguredState(), c.CachedUnconfiguredState())
	assert.True(t, keyfile.Equivalent(o.Keyfile(), c.Keyfile()))

	t.Run("clone is independent", func(t *testing.T) {
		_, err := c.AddPackages([]string{"emacs"}, false)
		require.NoError(t, err)
		assert.NotContains(t, o.Packages(), "emacs")
		assert.Contains(t, c.Packages(), "emacs")
	})
}

func TestAddRemoveInverse(t *testing.T) {
	o := mustParse(t, layeredOrigin())
	before := o.Packages()

	changed, err := o.AddPackages([]string{"foo"}, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, o.Packages(), "foo")
	assertConsistent(t, o)

	changed, err = o.RemovePackages([]string{"foo"}, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, before, o.Packages())
	assertConsistent(t, o)
}

func TestAddLocalPackages_DigestRoundTrip(t *testing.T) {
	o := mustParse(t, baseOrigin)

	changed, err := o.AddLocalPackages([]string{digestB + ":bar-1.0-1.x86_64"}, false)
	require.NoError(t, err)
	assert.True(t, changed)

	kf := o.Keyfile()
	assert.Equal(t, []string{digestB + ":bar-1.0-1.x86_64"},
		kf.GetStringList(treefile.GroupPackages, treefile.KeyRequestedLocal))

	reparsed, err := Parse(kf)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"bar-1.0-1.x86_64": digestB}, reparsed.sets.requestedLocal)
	assert.Equal(t, o.LocalPackages(), reparsed.LocalPackages())
}

func TestRemovePackages_Resolution(t *testing.T) {
	t.Run("bare name resolves to local package", func(t *testing.T) {
		o := mustParse(t, layeredOrigin())

		changed, err := o.RemovePackages([]string{"pkg"}, false)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Empty(t, o.LocalPackages())
		assertConsistent(t, o)
	})

	t.Run("NEVRA matches local package exactly", func(t *testing.T) {
		o := mustParse(t, layeredOrigin())

		changed, err := o.RemovePackages([]string{"pkg-1.0-1.x86_64"}, false)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Empty(t, o.LocalPackages())
		assertConsistent(t, o)
	})

	t.Run("bare name resolves to file override package", func(t *testing.T) {
		o := mustParse(t, layeredOrigin())

		changed, err := o.RemovePackages([]string{"tool"}, false)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Empty(t, o.LocalFileOverridePackages())
		assertConsistent(t, o)
	})

	t.Run("digest-qualified token does not match", func(t *testing.T) {
		o := mustParse(t, layeredOrigin())

		_, err := o.RemovePackages([]string{digestA + ":pkg-1.0-1.x86_64"}, false)
		require.Error(t, err)
		assert.True(t, IsPackageNotRequested(err))
	})

	t.Run("NEVRA then name of same package", func(t *testing.T) {
		o := mustParse(t, layeredOrigin())

		_, err := o.RemovePackages([]string{"pkg-1.0-1.x86_64", "pkg"}, false)
		require.Error(t, err)
		assert.True(t, IsPackageNotRequested(err))
		assert.Equal(t, []string{digestA + ":pkg-1.0-1.x86_64"}, o.LocalPackages(), "failed call must not commit")

		changed, err := o.RemovePackages([]string{"pkg-1.0-1.x86_64", "pkg"}, true)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Empty(t, o.LocalPackages())
	})

	t.Run("several partitions in one call", func(t *testing.T) {
		o := mustParse(t, layeredOrigin())

		changed, err := o.RemovePackages([]string{"vim", "pkg", "tool"}, false)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []string{"htop"}, o.Packages())
		assert.Empty(t, o.LocalPackages())
		assert.Empty(t, o.LocalFileOverridePackages())
		assertConsistent(t, o)

		kf := o.Keyfile()
		assert.False(t, kf.HasKey(treefile.GroupPackages, treefile.KeyRequestedLocal))
		assert.False(t, kf.HasKey(treefile.GroupPackages, treefile.KeyRequestedLocalFileOverride))
	})
}

func TestRemovePackages_MissingPolicy(t *testing.T) {
	o := mustParse(t, layeredOrigin())
	before := o.Keyfile()

	_, err := o.RemovePackages([]string{"nonexistent"}, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPackageNotRequested))
	assert.Contains(t, err.Error(), "'nonexistent' is not currently requested")

	var notRequested *PackageNotRequestedError
	require.True(t, errors.As(err, &notRequested))
	assert.Equal(t, "nonexistent", notRequested.Package)

	changed, err := o.RemovePackages([]string{"nonexistent"}, true)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before.Marshal(), o.Keyfile().Marshal())

	changed, err = o.RemovePackages(nil, false)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRemovePackages_MinimalDiff(t *testing.T) {
	o := mustParse(t, layeredOrigin())

	// Equivalent to the serialized form but in a different order; a rewrite
	// of either key would normalize it.
	o.mirror.SetValue(treefile.GroupPackages, treefile.KeyRequested, "vim;htop;")
	o.mirror.SetValue(treefile.GroupOverrides, treefile.KeyOverrideRemove, "firefox;")

	changed, err := o.RemovePackages([]string{"pkg"}, false)
	require.NoError(t, err)
	assert.True(t, changed)

	requested, _ := o.mirror.Value(treefile.GroupPackages, treefile.KeyRequested)
	assert.Equal(t, "vim;htop;", requested)
	remove, _ := o.mirror.Value(treefile.GroupOverrides, treefile.KeyOverrideRemove)
	assert.Equal(t, "firefox;", remove)
	assertConsistent(t, o)
}

func TestRemovePackages_ReconciliationFailure(t *testing.T) {
	o := mustParse(t, layeredOrigin())
	before := o.Packages()

	// An edited mirror that no longer parses must surface as a reconciliation
	// failure and leave the origin untouched.
	o.mirror.RemoveKey(treefile.GroupOrigin, treefile.KeyRefspec)
	mirror := o.mirror

	_, err := o.RemovePackages([]string{"vim"}, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReconciliation))
	assert.Equal(t, before, o.Packages())
	assert.Same(t, mirror, o.mirror)
}

func TestUnconfiguredState_CachedAtLoadOnly(t *testing.T) {
	o := mustParse(t, layeredOrigin())

	// Nothing in the public surface rewrites unconfigured-state; simulate a
	// mirror edit to show that the cached copy is not re-synchronized.
	o.mirror.SetString(treefile.GroupOrigin, treefile.KeyUnconfiguredState, "changed")
	_, err := o.RemovePackages([]string{"vim"}, false)
	require.NoError(t, err)

	assert.Equal(t, "changed", o.UnconfiguredState())
	assert.Equal(t, "Run subscription-manager to register", o.CachedUnconfiguredState())
}

func TestConfigSetters(t *testing.T) {
	t.Run("add packages policy", func(t *testing.T) {
		o := mustParse(t, layeredOrigin())

		_, err := o.AddPackages([]string{"vim"}, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already requested")

		changed, err := o.AddPackages([]string{"vim"}, true)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("failed mutation commits nothing", func(t *testing.T) {
		o := mustParse(t, layeredOrigin())
		before := o.Keyfile()

		_, err := o.AddPackages([]string{"emacs", "vim"}, false)
		require.Error(t, err)
		assert.NotContains(t, o.Packages(), "emacs")
		assert.True(t, keyfile.Equivalent(before, o.mirror))
	})

	t.Run("local and file override packages", func(t *testing.T) {
		o := mustParse(t, baseOrigin)

		changed, err := o.AddLocalFileOverridePackages([]string{digestA + ":tool-1-1.x86_64"}, false)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.True(t, o.HasAnyPackages())
		assert.False(t, o.HasPackages())

		_, err = o.AddLocalPackages([]string{digestB + ":tool-2-1.x86_64"}, false)
		require.Error(t, err)
		assertConsistent(t, o)

		changed, err = o.RemoveAllPackages()
		require.NoError(t, err)
		assert.True(t, changed)
		assert.False(t, o.HasAnyPackages())
		assertConsistent(t, o)
	})

	t.Run("modules", func(t *testing.T) {
		o := mustParse(t, baseOrigin)

		changed, err := o.AddModules([]string{"nodejs:18"}, true)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.True(t, o.HasModulesEnable())
		assert.Equal(t, []string{"nodejs:18"}, o.ModulesEnable())

		changed, err = o.AddModules([]string{"nodejs:18/default"}, false)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []string{"nodejs:18/default"}, o.ModulesInstall())

		changed, err = o.RemoveModules([]string{"nodejs:18"}, true)
		require.NoError(t, err)
		assert.True(t, changed)
		assertConsistent(t, o)
	})

	t.Run("overrides", func(t *testing.T) {
		o := mustParse(t, layeredOrigin())

		err := o.AddOverrideRemove([]string{"firefox"})
		require.Error(t, err)

		require.NoError(t, o.AddOverrideRemove([]string{"nano"}))
		assert.True(t, o.HasOverridesRemoveName("nano"))
		assert.Contains(t, o.sets.overridesRemove, "nano")

		require.NoError(t, o.AddOverrideReplaceLocal([]string{digestA + ":kernel-6.5.0-1.x86_64"}))
		assert.Equal(t, map[string]string{"kernel-6.5.0-1.x86_64": digestA}, o.sets.overridesReplaceLocal)
		assertConsistent(t, o)

		changed, err := o.RemoveOverrideRemove("missing")
		require.NoError(t, err)
		assert.False(t, changed)

		changed, err = o.RemoveOverrideRemove("nano")
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = o.RemoveOverrideReplaceLocal("kernel-6.5.0-1.x86_64")
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = o.RemoveAllOverrides()
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Empty(t, o.OverridesRemove())
		assertConsistent(t, o)
	})

	t.Run("initramfs", func(t *testing.T) {
		o := mustParse(t, baseOrigin)

		changed, err := o.InitramfsEtcFilesTrack([]string{"/etc/crypttab", "/etc/vconsole.conf"})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.True(t, o.HasInitramfsEtcFiles())

		changed, err = o.InitramfsEtcFilesUntrack([]string{"/etc/crypttab"})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []string{"/etc/vconsole.conf"}, o.InitramfsEtcFiles())

		changed, err = o.InitramfsEtcFilesUntrackAll()
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = o.SetRegenerateInitramfs(true, []string{"--add", "fips"})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.True(t, o.RegenerateInitramfs())
		assert.Equal(t, []string{"--add", "fips"}, o.InitramfsArgs())
		assert.True(t, o.MayRequireLocalAssembly())
		assertConsistent(t, o)
	})

	t.Run("rebase, override commit and cliwrap", func(t *testing.T) {
		o := mustParse(t, layeredOrigin())

		require.NoError(t, o.RebaseCustom("fedora:fedora/40/x86_64/silverblue", "https://example.com", "Example"))
		assert.Equal(t, "fedora:fedora/40/x86_64/silverblue", o.Refspec().Value)
		assert.Equal(t, "https://example.com", o.CustomURL())
		assert.Equal(t, "Example", o.CustomDescription())

		require.NoError(t, o.Rebase("fedora:fedora/41/x86_64/silverblue"))
		assert.Empty(t, o.CustomURL())

		require.NoError(t, o.SetOverrideCommit(checksum))
		assert.Equal(t, checksum, o.OverrideCommit())
		require.Error(t, o.SetOverrideCommit("not-a-checksum"))
		assert.Equal(t, checksum, o.OverrideCommit())
		require.NoError(t, o.SetOverrideCommit(""))
		assert.Empty(t, o.OverrideCommit())

		require.NoError(t, o.SetCliwrap(true))
		assert.True(t, o.Cliwrap())
		assertConsistent(t, o)
	})
}

type fakeLookup map[DeploymentRef]*keyfile.Document

func (f fakeLookup) LookupOrigin(_ context.Context, ref DeploymentRef) (*keyfile.Document, error) {
	kf, ok := f[ref]
	if !ok {
		return nil, &NoOriginError{Deployment: ref}
	}
	return kf, nil
}

func TestDeployments(t *testing.T) {
	kf, err := keyfile.Parse([]byte(baseOrigin))
	require.NoError(t, err)
	ref := DeploymentRef{Stateroot: "fedora", Checksum: checksum, Serial: 0}

	t.Run("parse deployment", func(t *testing.T) {
		o, err := ParseDeployment(Deployment{DeploymentRef: ref, Origin: kf})
		require.NoError(t, err)
		assert.Equal(t, "fedora:fedora/39/x86_64/silverblue", o.Refspec().Value)
	})

	t.Run("deployment without origin", func(t *testing.T) {
		_, err := ParseDeployment(Deployment{DeploymentRef: ref})
		require.Error(t, err)
		assert.True(t, IsNoOrigin(err))
		assert.Contains(t, err.Error(), checksum+".0")
	})

	t.Run("load through lookup", func(t *testing.T) {
		l := fakeLookup{ref: kf}
		o, err := Load(context.Background(), l, ref)
		require.NoError(t, err)
		assert.False(t, o.HasAnyPackages())

		_, err = Load(context.Background(), l, DeploymentRef{Stateroot: "fedora", Checksum: checksum, Serial: 1})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoOriginForDeployment))
	})

	t.Run("parse deployment ref", func(t *testing.T) {
		parsed, err := ParseDeploymentRef("fedora", checksum+".0")
		require.NoError(t, err)
		assert.Equal(t, ref, parsed)

		_, err = ParseDeploymentRef("fedora", checksum)
		assert.Error(t, err)
		_, err = ParseDeploymentRef("fedora", checksum+".x")
		assert.Error(t, err)
	})
}
