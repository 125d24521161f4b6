package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dyluth/origin/internal/printer"
	"github.com/dyluth/origin/pkg/keyfile"
	"github.com/dyluth/origin/pkg/origin"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	digestA  = strings.Repeat("a", 64)
	checksum = strings.Repeat("c", 64)
)

func layeredOrigin() string {
	return `[origin]
refspec=fedora:fedora/39/x86_64/silverblue

[packages]
requested=htop;
requested-local=` + digestA + `:hello-2.12-1.x86_64;

[overrides]
remove=firefox;
`
}

// resetFlags restores every flag to its default so tests do not leak state
// through the package-level command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// executeCommand runs originctl with args and returns stdout and stderr
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	printer.SetOutput(&out, &errOut)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		printer.SetOutput(nil, nil)
		color.NoColor = noColor
	})

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func writeOrigin(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), checksum+".0.origin")
	require.NoError(t, os.WriteFile(path, []byte(text), 0600))
	return path
}

func readOrigin(t *testing.T, path string) *origin.Origin {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	kf, err := keyfile.Parse(data)
	require.NoError(t, err)
	o, err := origin.Parse(kf)
	require.NoError(t, err)
	return o
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	out, _, err := executeCommand(t)
	assert.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "originctl")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, _, err := executeCommand(t, "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestTargetSelection(t *testing.T) {
	t.Run("no target", func(t *testing.T) {
		_, errOut, err := executeCommand(t, "show")
		require.Error(t, err)
		assert.Equal(t, "no origin selected", err.Error())
		assert.Contains(t, errOut, "--deployment CHECKSUM.0")
	})

	t.Run("both targets", func(t *testing.T) {
		_, _, err := executeCommand(t, "--file", "x", "--deployment", "y.0", "show")
		require.Error(t, err)
		assert.Equal(t, "conflicting targets", err.Error())
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := executeCommand(t, "--file", filepath.Join(t.TempDir(), "absent"), "show")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot read origin file")
	})

	t.Run("invalid origin", func(t *testing.T) {
		path := writeOrigin(t, "[packages]\nrequested=vim;\n")
		_, _, err := executeCommand(t, "--file", path, "check")
		require.Error(t, err)
		assert.Equal(t, "invalid origin", err.Error())
	})
}

func TestShow(t *testing.T) {
	path := writeOrigin(t, layeredOrigin())

	t.Run("summary", func(t *testing.T) {
		out, _, err := executeCommand(t, "--file", path, "show")
		require.NoError(t, err)
		assert.Contains(t, out, "Layered packages: htop")
		assert.Contains(t, out, "Local packages: hello-2.12-1.x86_64")
		assert.Contains(t, out, "Removed base packages: firefox")
	})

	t.Run("yaml", func(t *testing.T) {
		out, _, err := executeCommand(t, "--file", path, "show", "--format", "yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "override-remove:\n    - firefox\n")
	})

	t.Run("invalid format", func(t *testing.T) {
		_, _, err := executeCommand(t, "--file", path, "show", "--format", "json")
		require.Error(t, err)
		assert.Equal(t, "invalid output format", err.Error())
	})
}

func TestCheck(t *testing.T) {
	t.Run("canonical", func(t *testing.T) {
		path := writeOrigin(t, layeredOrigin())
		out, _, err := executeCommand(t, "--file", path, "check")
		require.NoError(t, err)
		assert.Contains(t, out, "is valid\n")
	})

	t.Run("legacy key", func(t *testing.T) {
		path := writeOrigin(t, "[origin]\nbaserefspec=fedora:fedora/39/x86_64/silverblue\n")
		out, _, err := executeCommand(t, "--file", path, "check")
		require.NoError(t, err)
		assert.Contains(t, out, "not in canonical form")
		assert.Contains(t, out, "baserefspec")
	})
}

func TestInstallUninstall(t *testing.T) {
	t.Run("install repo packages", func(t *testing.T) {
		path := writeOrigin(t, layeredOrigin())

		out, _, err := executeCommand(t, "--file", path, "install", "vim", "tmux")
		require.NoError(t, err)
		assert.Contains(t, out, "Requested 2 packages")
		assert.Equal(t, []string{"htop", "tmux", "vim"}, readOrigin(t, path).Packages())

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("install already requested", func(t *testing.T) {
		path := writeOrigin(t, layeredOrigin())

		_, errOut, err := executeCommand(t, "--file", path, "install", "htop")
		require.Error(t, err)
		assert.Contains(t, errOut, "already requested")

		out, _, err := executeCommand(t, "--file", path, "install", "--idempotent", "htop")
		require.NoError(t, err)
		assert.Contains(t, out, "No changes.")
	})

	t.Run("install local package", func(t *testing.T) {
		path := writeOrigin(t, layeredOrigin())

		_, _, err := executeCommand(t, "--file", path, "install", "--local", digestA+":world-1.0-1.noarch")
		require.NoError(t, err)
		assert.Contains(t, readOrigin(t, path).LocalPackages(), digestA+":world-1.0-1.noarch")

		_, _, err = executeCommand(t, "--file", path, "install", "--local", "world-1.0-1.noarch")
		require.Error(t, err)
		assert.Equal(t, "malformed package identifier", err.Error())
	})

	t.Run("uninstall local package by name", func(t *testing.T) {
		path := writeOrigin(t, layeredOrigin())

		out, _, err := executeCommand(t, "--file", path, "uninstall", "hello")
		require.NoError(t, err)
		assert.Contains(t, out, "Removed 1 package\n")
		assert.Empty(t, readOrigin(t, path).LocalPackages())
	})

	t.Run("uninstall missing package", func(t *testing.T) {
		path := writeOrigin(t, layeredOrigin())

		_, errOut, err := executeCommand(t, "--file", path, "uninstall", "nonexistent")
		require.Error(t, err)
		assert.Equal(t, "package not requested", err.Error())
		assert.Contains(t, errOut, "'nonexistent' is not currently requested")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, layeredOrigin(), string(data))

		out, _, err := executeCommand(t, "--file", path, "uninstall", "--idempotent", "nonexistent")
		require.NoError(t, err)
		assert.Contains(t, out, "No changes.")
	})

	t.Run("uninstall all", func(t *testing.T) {
		path := writeOrigin(t, layeredOrigin())

		_, _, err := executeCommand(t, "--file", path, "uninstall", "--all")
		require.NoError(t, err)
		assert.False(t, readOrigin(t, path).HasAnyPackages())
	})

	t.Run("dry run", func(t *testing.T) {
		path := writeOrigin(t, layeredOrigin())

		out, _, err := executeCommand(t, "--file", path, "--dry-run", "uninstall", "htop")
		require.NoError(t, err)
		assert.Contains(t, out, "Would update "+path)
		assert.Contains(t, out, "htop")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, layeredOrigin(), string(data))
	})
}

func TestOverride(t *testing.T) {
	path := writeOrigin(t, layeredOrigin())

	_, _, err := executeCommand(t, "--file", path, "override", "remove", "nano")
	require.NoError(t, err)
	assert.Equal(t, []string{"firefox", "nano"}, readOrigin(t, path).OverridesRemove())

	_, _, err = executeCommand(t, "--file", path, "override", "remove", "nano")
	require.Error(t, err)

	_, _, err = executeCommand(t, "--file", path, "override", "replace", digestA+":kernel-6.5.0-1.x86_64")
	require.NoError(t, err)
	assert.Equal(t, []string{digestA + ":kernel-6.5.0-1.x86_64"}, readOrigin(t, path).OverridesReplaceLocal())

	_, _, err = executeCommand(t, "--file", path, "override", "reset", "nano", "kernel")
	require.NoError(t, err)
	o := readOrigin(t, path)
	assert.Equal(t, []string{"firefox"}, o.OverridesRemove())
	assert.Empty(t, o.OverridesReplaceLocal())

	_, errOut, err := executeCommand(t, "--file", path, "override", "reset", "bash")
	require.Error(t, err)
	assert.Contains(t, errOut, "no override found for 'bash'")

	_, _, err = executeCommand(t, "--file", path, "override", "reset", "--all")
	require.NoError(t, err)
	assert.Empty(t, readOrigin(t, path).OverridesRemove())
}

func TestRebaseAndDeploy(t *testing.T) {
	path := writeOrigin(t, layeredOrigin())

	_, _, err := executeCommand(t, "--file", path, "rebase", "fedora:fedora/40/x86_64/silverblue",
		"--custom-url", "https://example.com", "--custom-description", "Example")
	require.NoError(t, err)
	o := readOrigin(t, path)
	assert.Equal(t, "fedora:fedora/40/x86_64/silverblue", o.Refspec().Value)
	assert.Equal(t, "https://example.com", o.CustomURL())
	assert.Equal(t, []string{"htop"}, o.Packages())

	_, _, err = executeCommand(t, "--file", path, "rebase", "fedora:fedora/41/x86_64/silverblue", "--custom-description", "No URL")
	require.Error(t, err)

	_, _, err = executeCommand(t, "--file", path, "deploy", checksum)
	require.NoError(t, err)
	assert.Equal(t, checksum, readOrigin(t, path).OverrideCommit())

	_, _, err = executeCommand(t, "--file", path, "deploy", "--unpin")
	require.NoError(t, err)
	assert.Empty(t, readOrigin(t, path).OverrideCommit())

	_, _, err = executeCommand(t, "--file", path, "deploy")
	require.Error(t, err)
}

func TestModulesInitramfsCliwrap(t *testing.T) {
	path := writeOrigin(t, layeredOrigin())

	_, _, err := executeCommand(t, "--file", path, "module", "enable", "nodejs:18")
	require.NoError(t, err)
	_, _, err = executeCommand(t, "--file", path, "module", "install", "nodejs:18/default")
	require.NoError(t, err)
	o := readOrigin(t, path)
	assert.Equal(t, []string{"nodejs:18"}, o.ModulesEnable())
	assert.Equal(t, []string{"nodejs:18/default"}, o.ModulesInstall())

	_, _, err = executeCommand(t, "--file", path, "module", "disable", "nodejs:18")
	require.NoError(t, err)
	assert.False(t, readOrigin(t, path).HasModulesEnable())

	_, _, err = executeCommand(t, "--file", path, "initramfs", "--enable", "--arg=-I", "--arg=/etc/crypttab")
	require.NoError(t, err)
	o = readOrigin(t, path)
	assert.True(t, o.RegenerateInitramfs())
	assert.Equal(t, []string{"-I", "/etc/crypttab"}, o.InitramfsArgs())

	_, _, err = executeCommand(t, "--file", path, "initramfs")
	require.Error(t, err)

	_, _, err = executeCommand(t, "--file", path, "initramfs-etc", "--track", "/etc/crypttab", "--track", "/etc/vconsole.conf")
	require.NoError(t, err)
	assert.Equal(t, []string{"/etc/crypttab", "/etc/vconsole.conf"}, readOrigin(t, path).InitramfsEtcFiles())

	_, _, err = executeCommand(t, "--file", path, "initramfs-etc", "--track", "/usr/lib/os-release")
	require.Error(t, err)

	_, _, err = executeCommand(t, "--file", path, "initramfs-etc", "--untrack-all")
	require.NoError(t, err)
	assert.False(t, readOrigin(t, path).HasInitramfsEtcFiles())

	_, _, err = executeCommand(t, "--file", path, "cliwrap", "on")
	require.NoError(t, err)
	assert.True(t, readOrigin(t, path).Cliwrap())

	_, _, err = executeCommand(t, "--file", path, "cliwrap", "maybe")
	require.Error(t, err)
}

func TestDeploymentStore(t *testing.T) {
	root := t.TempDir()
	deployDir := filepath.Join(root, "fedora", "deploy")
	require.NoError(t, os.MkdirAll(deployDir, 0755))
	originPath := filepath.Join(deployDir, checksum+".0.origin")
	require.NoError(t, os.WriteFile(originPath, []byte(layeredOrigin()), 0644))

	configPath := filepath.Join(t.TempDir(), "originctl.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(`version: "1.0"
stateroot: fedora
store:
  backend: blob
  bucket_url: file://`+root+`
`), 0644))

	t.Run("list", func(t *testing.T) {
		out, _, err := executeCommand(t, "--config", configPath, "list")
		require.NoError(t, err)
		assert.Contains(t, out, checksum+".0")
		assert.Contains(t, out, "1 deployment found")
	})

	t.Run("edit deployment", func(t *testing.T) {
		_, _, err := executeCommand(t, "--config", configPath, "--deployment", checksum+".0", "uninstall", "htop", "hello")
		require.NoError(t, err)

		o := readOrigin(t, originPath)
		assert.False(t, o.HasAnyPackages())
		assert.Equal(t, []string{"firefox"}, o.OverridesRemove())
	})

	t.Run("unknown deployment", func(t *testing.T) {
		_, errOut, err := executeCommand(t, "--config", configPath, "--deployment", checksum+".7", "show")
		require.Error(t, err)
		assert.Equal(t, "no origin", err.Error())
		assert.Contains(t, errOut, checksum+".7")
	})

	t.Run("short checksum prefix", func(t *testing.T) {
		out, _, err := executeCommand(t, "--config", configPath, "--deployment", checksum[:8]+".0", "show")
		require.NoError(t, err)
		assert.Contains(t, out, "deployment "+checksum+".0")

		_, _, err = executeCommand(t, "--config", configPath, "--deployment", "dddddd.0", "show")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")

		_, _, err = executeCommand(t, "--config", configPath, "--deployment", "ccc.0", "show")
		require.Error(t, err)
		assert.Equal(t, "invalid deployment", err.Error())
	})

	t.Run("watch for existing deployment", func(t *testing.T) {
		out, _, err := executeCommand(t, "--config", configPath, "watch", "--for", checksum+".0", "--timeout", "2s")
		require.NoError(t, err)
		assert.Contains(t, out, "fedora/39/x86_64/silverblue")
	})

	t.Run("watch for missing deployment times out", func(t *testing.T) {
		_, _, err := executeCommand(t, "--config", configPath, "watch", "--for", checksum+".9", "--timeout", "300ms")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no origin for deployment")
	})

	t.Run("streaming needs redis", func(t *testing.T) {
		_, _, err := executeCommand(t, "--config", configPath, "watch")
		require.Error(t, err)
		assert.Equal(t, "watching requires the redis backend", err.Error())
	})

	t.Run("stateroot override", func(t *testing.T) {
		out, _, err := executeCommand(t, "--config", configPath, "--stateroot", "other", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "No deployments found in stateroot 'other'")
	})
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "originctl.yml")
	originPath := filepath.Join(dir, "new.origin")

	out, _, err := executeCommand(t, "--config", configPath, "--stateroot", "fedora", "init",
		"--bucket-url", "file://"+dir, "--origin", originPath, "--refspec", "fedora:fedora/40/x86_64/silverblue")
	require.NoError(t, err)
	assert.Contains(t, out, configPath)
	assert.Contains(t, out, originPath)

	o := readOrigin(t, originPath)
	assert.Equal(t, "fedora:fedora/40/x86_64/silverblue", o.Refspec().Value)
	assert.False(t, o.HasAnyPackages())

	_, _, err = executeCommand(t, "--config", configPath, "init")
	require.Error(t, err)
	assert.Equal(t, "initialization failed", err.Error())

	_, _, err = executeCommand(t, "--config", configPath, "init", "--origin", originPath)
	require.Error(t, err)

	_, _, err = executeCommand(t, "--config", configPath, "init", "--force")
	require.NoError(t, err)
}
