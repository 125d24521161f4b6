package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dyluth/origin/internal/config"
	"github.com/dyluth/origin/internal/deployment"
	"github.com/dyluth/origin/internal/printer"
	"github.com/dyluth/origin/internal/resolver"
	"github.com/dyluth/origin/pkg/keyfile"
	"github.com/dyluth/origin/pkg/origin"
)

// target is an origin loaded from a file or a deployment store, together with
// the means to write it back.
type target struct {
	name   string
	source *keyfile.Document
	origin *origin.Origin

	save  func(ctx context.Context, kf *keyfile.Document) error
	close func()
}

// openTarget loads the origin selected by --file or --deployment.
func openTarget(ctx context.Context) (*target, error) {
	switch {
	case targetFile != "" && targetDeploy != "":
		return nil, printer.Error(
			"conflicting targets",
			"Both --file and --deployment were given.",
			[]string{"Pick one of:\n  --file PATH\n  --deployment CHECKSUM.SERIAL"},
		)
	case targetFile != "":
		return openFileTarget(targetFile)
	case targetDeploy != "":
		return openDeploymentTarget(ctx, targetDeploy)
	default:
		return nil, printer.Error(
			"no origin selected",
			"Specify which origin to operate on.",
			[]string{
				"Edit an origin file:\n  originctl --file /ostree/deploy/fedora/deploy/CHECKSUM.0.origin show",
				"Edit a stored deployment:\n  originctl --deployment CHECKSUM.0 show",
			},
		)
	}
}

func openFileTarget(path string) (*target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, printer.Error(
			fmt.Sprintf("cannot read origin file '%s'", path),
			err.Error(),
			[]string{"Check the path passed to --file."},
		)
	}

	source, err := keyfile.Parse(data)
	if err != nil {
		return nil, originError(fmt.Errorf("%s: %w", path, err))
	}
	o, err := origin.Parse(source)
	if err != nil {
		return nil, originError(fmt.Errorf("%s: %w", path, err))
	}

	return &target{
		name:   path,
		source: source,
		origin: o,
		save: func(_ context.Context, kf *keyfile.Document) error {
			return writeFileAtomic(path, kf.Marshal())
		},
		close: func() {},
	}, nil
}

// openStore loads the configuration, applies --stateroot and opens the
// configured deployment store.
func openStore(ctx context.Context) (*config.Config, deployment.Store, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{fmt.Sprintf("Fix %s or point --config at a valid file.", configPath)},
		)
	}
	if stateroot != "" {
		cfg.Stateroot = stateroot
	}

	store, err := deployment.Open(ctx, cfg)
	if err != nil {
		return nil, nil, printer.ErrorWithContext(
			"cannot open deployment store",
			err.Error(),
			map[string]string{"Backend": cfg.Store.Backend},
			[]string{fmt.Sprintf("Check the store section of %s.", configPath)},
		)
	}
	return cfg, store, nil
}

func openDeploymentTarget(ctx context.Context, deploy string) (*target, error) {
	cfg, store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	ref, err := resolver.ResolveDeployment(ctx, store, cfg.Stateroot, deploy)
	if err != nil {
		store.Close()
		return nil, deploymentError(deploy, err)
	}

	var notifier *deployment.Notifier
	if cfg.Events != nil {
		if notifier, err = deployment.OpenNotifier(ctx, cfg.Events.TopicURL); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to open event topic: %w", err)
		}
	}

	closeAll := func() {
		if notifier != nil {
			if err := notifier.Shutdown(context.Background()); err != nil {
				log.Printf("[WARN] Failed to shut down event topic: %v", err)
			}
		}
		store.Close()
	}

	source, err := store.LookupOrigin(ctx, ref)
	if err != nil {
		closeAll()
		return nil, originError(err)
	}
	o, err := origin.ParseDeployment(origin.Deployment{DeploymentRef: ref, Origin: source})
	if err != nil {
		closeAll()
		return nil, originError(fmt.Errorf("deployment %s: %w", ref, err))
	}

	return &target{
		name:   fmt.Sprintf("deployment %s in stateroot '%s'", ref, ref.Stateroot),
		source: source,
		origin: o,
		save: func(ctx context.Context, kf *keyfile.Document) error {
			if err := store.StoreOrigin(ctx, ref, kf); err != nil {
				return err
			}
			if notifier != nil {
				return notifier.OriginChanged(ctx, ref, kf)
			}
			return nil
		},
		close: closeAll,
	}, nil
}

// deploymentError renders a failure to resolve a --deployment argument.
func deploymentError(deploy string, err error) error {
	switch {
	case resolver.IsAmbiguousError(err):
		return printer.Error(
			"ambiguous deployment",
			resolver.FormatAmbiguousError(err.(*resolver.AmbiguousError)),
			nil,
		)
	case resolver.IsNotFoundError(err):
		return printer.Error(
			fmt.Sprintf("deployment '%s' not found", deploy),
			err.Error(),
			[]string{"List known deployments:\n  originctl list"},
		)
	default:
		return printer.Error("invalid deployment", err.Error(), []string{"Use the form CHECKSUM.SERIAL, e.g. --deployment abc123.0"})
	}
}

// writeFileAtomic replaces path with data, keeping its permissions.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set mode of %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// mutate applies fn to the selected origin and persists the result when it
// reports a change. With --dry-run the change is shown as a diff instead.
func mutate(cmd string, fn func(o *origin.Origin) (bool, error), format string, a ...any) error {
	ctx := context.Background()

	t, err := openTarget(ctx)
	if err != nil {
		return err
	}
	defer t.close()

	before := t.origin.Keyfile()
	changed, err := fn(t.origin)
	if err != nil {
		return originError(err)
	}
	if !changed {
		printer.Changed(false, "")
		return nil
	}

	after := t.origin.Keyfile()
	if dryRun {
		printer.Info("Would update %s:\n", t.name)
		printer.Diff(keyfile.Diff(before, after))
		return nil
	}

	if err := t.save(ctx, after); err != nil {
		return printer.ErrorWithContext(
			fmt.Sprintf("%s: failed to save origin", cmd),
			err.Error(),
			map[string]string{"Target": t.name},
			nil,
		)
	}
	printer.Changed(true, format, a...)
	return nil
}

// changedOnly adapts an error-only mutation to mutate; a successful call always
// counts as a change.
func changedOnly(fn func(o *origin.Origin) error) func(o *origin.Origin) (bool, error) {
	return func(o *origin.Origin) (bool, error) {
		if err := fn(o); err != nil {
			return false, err
		}
		return true, nil
	}
}

// originError renders library errors with a hint matching their kind.
func originError(err error) error {
	switch {
	case origin.IsPackageNotRequested(err):
		return printer.Error(
			"package not requested",
			err.Error(),
			[]string{"List requested packages:\n  originctl show", "Ignore missing packages:\n  originctl uninstall --idempotent PKG..."},
		)
	case origin.IsNoOrigin(err):
		return printer.Error(
			"no origin",
			err.Error(),
			[]string{"List known deployments:\n  originctl list"},
		)
	case errors.Is(err, origin.ErrMalformedIdentifier):
		return printer.Error(
			"malformed package identifier",
			err.Error(),
			[]string{"Local packages are given as SHA256:NAME-VERSION-RELEASE.ARCH"},
		)
	case errors.Is(err, origin.ErrInvalidOrigin):
		return printer.Error("invalid origin", err.Error(), nil)
	case errors.Is(err, origin.ErrReconciliation):
		return printer.Error("internal error", err.Error(), []string{"The origin was left unchanged."})
	default:
		return printer.Error("operation failed", err.Error(), nil)
	}
}
