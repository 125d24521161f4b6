// Package treefile holds the structured, validated configuration of a
// deployment origin: its base reference, layered packages and modules,
// package overrides, and initramfs settings.
//
// A Treefile is produced from an origin keyfile with FromOrigin and written
// back with ToOrigin. All mutators validate their input; a Treefile that was
// built successfully always serializes.
package treefile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/origin/pkg/keyfile"
	"github.com/dyluth/origin/pkg/nevra"
)

// Treefile is the authoritative in-memory form of an origin.
// It is not safe for concurrent mutation.
type Treefile struct {
	base              Refspec
	customURL         string
	customDescription string
	overrideCommit    string
	unconfiguredState string

	packages                  stringSet
	localPackages             map[string]string // NEVRA -> digest
	localFileOverridePackages map[string]string // NEVRA -> digest

	modulesEnable  stringSet
	modulesInstall stringSet

	overrideRemove       stringSet
	overrideReplaceLocal map[string]string // NEVRA -> digest

	initramfsRegenerate bool
	initramfsArgs       []string
	initramfsEtcFiles   stringSet

	cliwrap bool
}

// document is the exchange form shared by the keyfile and YAML codecs.
// Validation happens once, in fromDocument.
type document struct {
	Base                      Refspec            `yaml:"base"`
	CustomURL                 string             `yaml:"custom-url,omitempty"`
	CustomDescription         string             `yaml:"custom-description,omitempty"`
	OverrideCommit            string             `yaml:"override-commit,omitempty"`
	UnconfiguredState         string             `yaml:"unconfigured-state,omitempty"`
	Packages                  []string           `yaml:"packages,omitempty"`
	PackagesLocal             map[string]string  `yaml:"packages-local,omitempty"`
	PackagesLocalFileOverride map[string]string  `yaml:"packages-local-fileoverride,omitempty"`
	Modules                   *modulesDocument   `yaml:"modules,omitempty"`
	OverrideRemove            []string           `yaml:"override-remove,omitempty"`
	OverrideReplaceLocal      map[string]string  `yaml:"override-replace-local,omitempty"`
	Initramfs                 *initramfsDocument `yaml:"initramfs,omitempty"`
	Cliwrap                   bool               `yaml:"cliwrap,omitempty"`
}

type modulesDocument struct {
	Enable  []string `yaml:"enable,omitempty"`
	Install []string `yaml:"install,omitempty"`
}

type initramfsDocument struct {
	Regenerate bool     `yaml:"regenerate,omitempty"`
	Args       []string `yaml:"args,omitempty"`
	Etc        []string `yaml:"etc,omitempty"`
}

// FromOrigin parses an origin keyfile into a Treefile.
func FromOrigin(kf *keyfile.Document) (*Treefile, error) {
	doc, err := documentFromKeyfile(kf)
	if err != nil {
		return nil, err
	}
	return fromDocument(doc)
}

func documentFromKeyfile(kf *keyfile.Document) (*document, error) {
	doc := &document{}

	var refKeys []string
	for _, key := range []string{KeyRefspec, KeyBaseRefspec, KeyContainerImageReference} {
		if kf.HasKey(GroupOrigin, key) {
			refKeys = append(refKeys, key)
		}
	}
	switch len(refKeys) {
	case 0:
		return nil, fmt.Errorf("no %s/%s, %s/%s, or %s/%s in origin",
			GroupOrigin, KeyRefspec, GroupOrigin, KeyBaseRefspec, GroupOrigin, KeyContainerImageReference)
	case 1:
	default:
		return nil, fmt.Errorf("origin has multiple base references: %s", strings.Join(refKeys, ", "))
	}

	ref, _ := kf.GetString(GroupOrigin, refKeys[0])
	doc.Base = Refspec{Value: ref}
	if refKeys[0] == KeyContainerImageReference {
		doc.Base.Kind = RefspecContainer
	}

	doc.CustomURL, _ = kf.GetString(GroupOrigin, KeyCustomURL)
	doc.CustomDescription, _ = kf.GetString(GroupOrigin, KeyCustomDescription)
	doc.OverrideCommit, _ = kf.GetString(GroupOrigin, KeyOverrideCommit)
	doc.UnconfiguredState, _ = kf.GetString(GroupOrigin, KeyUnconfiguredState)

	doc.Packages = kf.GetStringList(GroupPackages, KeyRequested)

	var err error
	if doc.PackagesLocal, err = qualifiedMap(kf, GroupPackages, KeyRequestedLocal); err != nil {
		return nil, err
	}
	if doc.PackagesLocalFileOverride, err = qualifiedMap(kf, GroupPackages, KeyRequestedLocalFileOverride); err != nil {
		return nil, err
	}

	enable := kf.GetStringList(GroupModules, KeyModulesEnable)
	install := kf.GetStringList(GroupModules, KeyModulesInstall)
	if len(enable) > 0 || len(install) > 0 {
		doc.Modules = &modulesDocument{Enable: enable, Install: install}
	}

	doc.OverrideRemove = kf.GetStringList(GroupOverrides, KeyOverrideRemove)
	if doc.OverrideReplaceLocal, err = qualifiedMap(kf, GroupOverrides, KeyOverrideReplaceLocal); err != nil {
		return nil, err
	}

	regenerate, err := kf.GetBool(GroupRpmostree, KeyRegenerateInitramfs)
	if err != nil {
		return nil, err
	}
	args := kf.GetStringList(GroupRpmostree, KeyInitramfsArgs)
	etc := kf.GetStringList(GroupRpmostree, KeyInitramfsEtc)
	if regenerate || len(args) > 0 || len(etc) > 0 {
		doc.Initramfs = &initramfsDocument{Regenerate: regenerate, Args: args, Etc: etc}
	}

	if doc.Cliwrap, err = kf.GetBool(GroupRpmostree, KeyCliwrap); err != nil {
		return nil, err
	}

	return doc, nil
}

// qualifiedMap reads a list of "<digest>:<nevra>" entries as NEVRA -> digest.
func qualifiedMap(kf *keyfile.Document, group, key string) (map[string]string, error) {
	entries := kf.GetStringList(group, key)
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		q, err := nevra.DecomposeDigestQualified(e)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", group, key, err)
		}
		out[q.Identifier] = q.Digest
	}
	return out, nil
}

func fromDocument(doc *document) (*Treefile, error) {
	if doc.Base.IsZero() {
		return nil, fmt.Errorf("base refspec is required")
	}
	if err := doc.Base.validate(); err != nil {
		return nil, err
	}
	base, _ := ParseRefspec(doc.Base.Value)

	if doc.OverrideCommit != "" && !isChecksum(doc.OverrideCommit) {
		return nil, fmt.Errorf("invalid override commit '%s': expected a sha256 checksum", doc.OverrideCommit)
	}
	if doc.CustomDescription != "" && doc.CustomURL == "" {
		return nil, fmt.Errorf("custom description requires a custom URL")
	}

	t := &Treefile{
		base:              base,
		customURL:         doc.CustomURL,
		customDescription: doc.CustomDescription,
		overrideCommit:    doc.OverrideCommit,
		unconfiguredState: doc.UnconfiguredState,

		packages:                  stringSet{},
		localPackages:             map[string]string{},
		localFileOverridePackages: map[string]string{},
		modulesEnable:             stringSet{},
		modulesInstall:            stringSet{},
		overrideRemove:            stringSet{},
		overrideReplaceLocal:      map[string]string{},
		initramfsEtcFiles:         stringSet{},

		cliwrap: doc.Cliwrap,
	}

	if err := addNames(t.packages, doc.Packages, "package"); err != nil {
		return nil, err
	}
	if err := addQualified(t.localPackages, doc.PackagesLocal); err != nil {
		return nil, err
	}
	if err := addQualified(t.localFileOverridePackages, doc.PackagesLocalFileOverride); err != nil {
		return nil, err
	}
	if err := checkDisjointNames(t.localPackages, t.localFileOverridePackages); err != nil {
		return nil, err
	}

	if doc.Modules != nil {
		if err := addModules(t.modulesEnable, doc.Modules.Enable); err != nil {
			return nil, err
		}
		if err := addModules(t.modulesInstall, doc.Modules.Install); err != nil {
			return nil, err
		}
	}

	if err := addNames(t.overrideRemove, doc.OverrideRemove, "override"); err != nil {
		return nil, err
	}
	if err := addQualified(t.overrideReplaceLocal, doc.OverrideReplaceLocal); err != nil {
		return nil, err
	}

	if doc.Initramfs != nil {
		t.initramfsRegenerate = doc.Initramfs.Regenerate
		if t.initramfsRegenerate {
			t.initramfsArgs = append([]string(nil), doc.Initramfs.Args...)
		}
		for _, p := range doc.Initramfs.Etc {
			if err := validateEtcPath(p); err != nil {
				return nil, err
			}
			t.initramfsEtcFiles.add(p)
		}
	}

	return t, nil
}

func addNames(set stringSet, names []string, what string) error {
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("empty %s name", what)
		}
		set.add(n)
	}
	return nil
}

func addModules(set stringSet, modules []string) error {
	for _, m := range modules {
		if err := validateModule(m); err != nil {
			return err
		}
		set.add(m)
	}
	return nil
}

func addQualified(dst, src map[string]string) error {
	for id, d := range src {
		if _, err := nevra.DecomposeDigestQualified(nevra.Format(d, id)); err != nil {
			return err
		}
		dst[id] = d
	}
	return nil
}

// checkDisjointNames enforces that no package name is both a local package
// and a local file override.
func checkDisjointNames(a, b map[string]string) error {
	names := make(map[string]string, len(a))
	for id := range a {
		n, err := nevra.Decompose(id)
		if err != nil {
			return err
		}
		names[n.Name] = id
	}
	for id := range b {
		n, err := nevra.Decompose(id)
		if err != nil {
			return err
		}
		if other, ok := names[n.Name]; ok {
			return fmt.Errorf("package '%s' is requested both as local package %s and file override %s", n.Name, other, id)
		}
	}
	return nil
}

func validateModule(m string) error {
	if !strings.Contains(m, ":") || strings.HasPrefix(m, ":") || strings.HasSuffix(m, ":") {
		return fmt.Errorf("invalid module '%s': expected NAME:STREAM[/PROFILE]", m)
	}
	return nil
}

func validateEtcPath(p string) error {
	if !strings.HasPrefix(p, "/etc/") || strings.Contains(p, "/../") || strings.HasSuffix(p, "/..") {
		return fmt.Errorf("invalid initramfs file '%s': must be a path under /etc", p)
	}
	return nil
}

// ToOrigin serializes the Treefile into a fresh origin keyfile.
func (t *Treefile) ToOrigin() (*keyfile.Document, error) {
	if t.base.IsZero() {
		return nil, fmt.Errorf("cannot serialize origin without a base refspec")
	}

	kf := keyfile.New()
	if t.base.Kind == RefspecContainer {
		kf.SetString(GroupOrigin, KeyContainerImageReference, t.base.Value)
	} else {
		kf.SetString(GroupOrigin, KeyRefspec, t.base.Value)
	}
	setIfNotEmpty(kf, GroupOrigin, KeyCustomURL, t.customURL)
	setIfNotEmpty(kf, GroupOrigin, KeyCustomDescription, t.customDescription)
	setIfNotEmpty(kf, GroupOrigin, KeyOverrideCommit, t.overrideCommit)
	setIfNotEmpty(kf, GroupOrigin, KeyUnconfiguredState, t.unconfiguredState)

	kf.SetOrRemoveStringList(GroupPackages, KeyRequested, t.packages.sorted())
	kf.SetOrRemoveStringList(GroupPackages, KeyRequestedLocal, qualifiedList(t.localPackages))
	kf.SetOrRemoveStringList(GroupPackages, KeyRequestedLocalFileOverride, qualifiedList(t.localFileOverridePackages))

	kf.SetOrRemoveStringList(GroupModules, KeyModulesEnable, t.modulesEnable.sorted())
	kf.SetOrRemoveStringList(GroupModules, KeyModulesInstall, t.modulesInstall.sorted())

	kf.SetOrRemoveStringList(GroupOverrides, KeyOverrideRemove, t.overrideRemove.sorted())
	kf.SetOrRemoveStringList(GroupOverrides, KeyOverrideReplaceLocal, qualifiedList(t.overrideReplaceLocal))

	if t.initramfsRegenerate {
		kf.SetBool(GroupRpmostree, KeyRegenerateInitramfs, true)
		kf.SetOrRemoveStringList(GroupRpmostree, KeyInitramfsArgs, t.initramfsArgs)
	}
	kf.SetOrRemoveStringList(GroupRpmostree, KeyInitramfsEtc, t.initramfsEtcFiles.sorted())
	if t.cliwrap {
		kf.SetBool(GroupRpmostree, KeyCliwrap, true)
	}

	return kf, nil
}

func setIfNotEmpty(kf *keyfile.Document, group, key, value string) {
	if value != "" {
		kf.SetString(group, key, value)
	}
}

// qualifiedList renders NEVRA -> digest as sorted "<digest>:<nevra>" entries.
func qualifiedList(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for id, d := range m {
		out = append(out, nevra.Format(d, id))
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy.
func (t *Treefile) Clone() *Treefile {
	c := *t
	c.packages = t.packages.clone()
	c.localPackages = cloneMap(t.localPackages)
	c.localFileOverridePackages = cloneMap(t.localFileOverridePackages)
	c.modulesEnable = t.modulesEnable.clone()
	c.modulesInstall = t.modulesInstall.clone()
	c.overrideRemove = t.overrideRemove.clone()
	c.overrideReplaceLocal = cloneMap(t.overrideReplaceLocal)
	c.initramfsArgs = append([]string(nil), t.initramfsArgs...)
	c.initramfsEtcFiles = t.initramfsEtcFiles.clone()
	return &c
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
