package treefile

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalYAML implements yaml.Marshaler.
func (t *Treefile) MarshalYAML() (interface{}, error) {
	return t.document(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler. The decoded Treefile is
// validated exactly like one built from an origin keyfile.
func (t *Treefile) UnmarshalYAML(value *yaml.Node) error {
	var doc document
	if err := value.Decode(&doc); err != nil {
		return err
	}
	parsed, err := fromDocument(&doc)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

// ParseYAML decodes a Treefile from YAML.
func ParseYAML(data []byte) (*Treefile, error) {
	var t Treefile
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse treefile YAML: %w", err)
	}
	return &t, nil
}

func (t *Treefile) document() *document {
	doc := &document{
		Base:                      t.base,
		CustomURL:                 t.customURL,
		CustomDescription:         t.customDescription,
		OverrideCommit:            t.overrideCommit,
		UnconfiguredState:         t.unconfiguredState,
		Packages:                  t.packages.sorted(),
		PackagesLocal:             cloneMap(t.localPackages),
		PackagesLocalFileOverride: cloneMap(t.localFileOverridePackages),
		OverrideRemove:            t.overrideRemove.sorted(),
		OverrideReplaceLocal:      cloneMap(t.overrideReplaceLocal),
		Cliwrap:                   t.cliwrap,
	}
	if len(t.modulesEnable) > 0 || len(t.modulesInstall) > 0 {
		doc.Modules = &modulesDocument{
			Enable:  t.modulesEnable.sorted(),
			Install: t.modulesInstall.sorted(),
		}
	}
	if t.initramfsRegenerate || len(t.initramfsEtcFiles) > 0 {
		doc.Initramfs = &initramfsDocument{
			Regenerate: t.initramfsRegenerate,
			Args:       append([]string(nil), t.initramfsArgs...),
			Etc:        t.initramfsEtcFiles.sorted(),
		}
	}
	return doc
}
