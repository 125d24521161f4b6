package keyfile

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// view is the comparison form of a document: group -> key -> list elements.
// Empty groups are dropped.
type view map[string]map[string][]string

func (d *Document) view() view {
	v := make(view, len(d.groups))
	for _, g := range d.groups {
		if len(g.entries) == 0 {
			continue
		}
		keys := make(map[string][]string, len(g.entries))
		for _, e := range g.entries {
			keys[e.key] = splitList(e.value)
		}
		v[g.name] = keys
	}
	return v
}

var compareOpts = cmp.Options{
	cmpopts.SortSlices(func(a, b string) bool { return a < b }),
	cmpopts.EquateEmpty(),
}

// Equivalent reports whether two documents carry the same groups, keys and
// values. Group order, key order and list element order are ignored.
func Equivalent(a, b *Document) bool {
	return cmp.Equal(a.view(), b.view(), compareOpts)
}

// Diff returns a human-readable description of how b differs from a, or the
// empty string when they are equivalent.
func Diff(a, b *Document) string {
	return cmp.Diff(a.view(), b.view(), compareOpts)
}
