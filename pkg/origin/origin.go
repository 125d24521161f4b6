package origin

import (
	"fmt"
	"log"

	"github.com/dyluth/origin/pkg/keyfile"
	"github.com/dyluth/origin/pkg/treefile"
)

// Origin is the in-memory state of a deployment origin.
type Origin struct {
	// config is the single source of truth for every getter.
	config *treefile.Treefile

	// mirror is always ToOrigin(config) once a call returns.
	mirror *keyfile.Document

	// cachedUnconfiguredState is copied from the mirror at load time only.
	cachedUnconfiguredState string

	sets packageSets
}

// Parse builds an Origin from an origin keyfile. The document is parsed into
// a treefile and serialized back to form the mirror; any divergence between
// the source and the mirror is logged, not rejected.
func Parse(kf *keyfile.Document) (*Origin, error) {
	config, err := treefile.FromOrigin(kf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOrigin, err)
	}

	mirror, err := config.ToOrigin()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOrigin, err)
	}

	if !keyfile.Equivalent(kf, mirror) {
		log.Printf("[WARN] Origin does not round-trip through treefile (-source +mirror):\n%s", keyfile.Diff(kf, mirror))
	}

	sets, err := buildPackageSets(mirror)
	if err != nil {
		return nil, err
	}

	o := &Origin{
		config: config,
		mirror: mirror,
		sets:   sets,
	}
	o.cachedUnconfiguredState, _ = mirror.GetString(treefile.GroupOrigin, treefile.KeyUnconfiguredState)

	return o, nil
}

// Clone returns an independent Origin by re-parsing the current mirror.
// The mirror was valid when it was produced, so a failure here is a bug and panics.
func (o *Origin) Clone() *Origin {
	c, err := Parse(o.mirror)
	if err != nil {
		panic(fmt.Sprintf("origin: cloning a valid origin failed: %v", err))
	}
	return c
}

// Keyfile returns a copy of the persisted form of the origin.
func (o *Origin) Keyfile() *keyfile.Document {
	return o.mirror.Clone()
}

// Treefile returns a copy of the structured form of the origin.
func (o *Origin) Treefile() *treefile.Treefile {
	return o.config.Clone()
}

// mutateConfig applies fn to a copy of the treefile and, when it reports a
// change (or always is set), regenerates the mirror from it. Nothing is
// committed when fn or the reconciliation fails.
func (o *Origin) mutateConfig(always bool, fn func(t *treefile.Treefile) (bool, error)) (bool, error) {
	next := o.config.Clone()
	changed, err := fn(next)
	if err != nil {
		return false, err
	}
	if !changed && !always {
		return false, nil
	}
	if err := o.reconcileMirrorFromConfig(next); err != nil {
		return false, err
	}
	return changed, nil
}

// reconcileMirrorFromConfig makes config authoritative: the mirror and the
// package sets are rebuilt from it and all three are swapped in together.
func (o *Origin) reconcileMirrorFromConfig(config *treefile.Treefile) error {
	mirror, err := config.ToOrigin()
	if err != nil {
		return fmt.Errorf("%w: serializing treefile: %w", ErrReconciliation, err)
	}
	sets, err := buildPackageSets(mirror)
	if err != nil {
		return fmt.Errorf("%w: rebuilding package sets: %w", ErrReconciliation, err)
	}

	o.config, o.mirror, o.sets = config, mirror, sets
	return nil
}

// reconcileConfigFromMirror makes an edited mirror authoritative: the
// treefile is re-parsed from it. The cached unconfigured state is not refreshed.
func (o *Origin) reconcileConfigFromMirror(mirror *keyfile.Document, sets packageSets) error {
	config, err := treefile.FromOrigin(mirror)
	if err != nil {
		return fmt.Errorf("%w: parsing edited origin: %w", ErrReconciliation, err)
	}

	o.config, o.mirror, o.sets = config, mirror, sets
	return nil
}
