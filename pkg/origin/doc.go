// Package origin manages the origin of a deployment: the base reference it
// was built from, the packages and modules layered on top, and the override
// directives applied to the base.
//
// # Two representations
//
// An Origin holds the same information twice:
//
//   - a treefile.Treefile, the authoritative structured form that every getter
//     reads from, and
//   - a keyfile.Document mirror, the persisted form written to disk.
//
// After every mutation returns, the mirror is an exact serialization of the
// treefile. Most setters mutate the treefile and regenerate the mirror from
// it. Package removal works the other way around: it edits the mirror (via a
// cache of the package sets it contains) and rebuilds the treefile from the
// edited mirror, because a removal token may be a bare package name that the
// treefile cannot resolve on its own.
//
// Each mutation is applied to copies; the Origin swaps in the new treefile,
// mirror, and package sets together only once reconciliation succeeded.
//
// # Ownership
//
// An Origin is a single-owner, single-threaded value. Concurrent reads are
// safe only while no mutation is in flight. Use Clone to hand an independent
// copy to another owner.
//
// # Usage Example
//
//	kf, err := keyfile.Parse(data)
//	if err != nil {
//		return err
//	}
//	o, err := origin.Parse(kf)
//	if err != nil {
//		return err
//	}
//	if _, err := o.RemovePackages([]string{"vim"}, false); err != nil {
//		return err
//	}
//	os.WriteFile(path, o.Keyfile().Marshal(), 0644)
package origin
