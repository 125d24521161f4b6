package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/origin/pkg/nevra"
	"github.com/dyluth/origin/pkg/origin"
	"gopkg.in/yaml.v3"
)

// OutputFormat selects how an origin is rendered.
type OutputFormat string

const (
	OutputFormatSummary OutputFormat = "summary"
	OutputFormatYAML    OutputFormat = "yaml"
	OutputFormatKeyfile OutputFormat = "keyfile"
)

// ParseOutputFormat validates a user-supplied format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputFormatSummary, OutputFormatYAML, OutputFormatKeyfile:
		return f, nil
	}
	return "", fmt.Errorf("unknown format: %s", s)
}

// Write renders o in the given format.
func Write(w io.Writer, o *origin.Origin, f OutputFormat) error {
	switch f {
	case OutputFormatSummary:
		FormatSummary(w, o)
		return nil
	case OutputFormatYAML:
		return FormatYAML(w, o)
	case OutputFormatKeyfile:
		return FormatKeyfile(w, o)
	}
	return fmt.Errorf("unknown format: %s", f)
}

// FormatSummary writes a human-readable description of the origin. Empty
// fields are omitted.
func FormatSummary(w io.Writer, o *origin.Origin) {
	ref := o.Refspec()
	row(w, "Base", fmt.Sprintf("%s (%s)", ref.Value, ref.Kind))
	row(w, "Custom URL", o.CustomURL())
	row(w, "Custom description", o.CustomDescription())
	row(w, "Pinned commit", o.OverrideCommit())
	row(w, "Unconfigured", o.UnconfiguredState())

	row(w, "Layered packages", strings.Join(o.Packages(), " "))
	row(w, "Local packages", formatQualified(o.LocalPackages()))
	row(w, "Local file overrides", formatQualified(o.LocalFileOverridePackages()))
	row(w, "Removed base packages", strings.Join(o.OverridesRemove(), " "))
	row(w, "Replaced base packages", formatQualified(o.OverridesReplaceLocal()))
	row(w, "Enabled modules", strings.Join(o.ModulesEnable(), " "))
	row(w, "Installed modules", strings.Join(o.ModulesInstall(), " "))

	if o.RegenerateInitramfs() {
		row(w, "Initramfs", formatArgs(o.InitramfsArgs()))
	}
	row(w, "Initramfs /etc files", strings.Join(o.InitramfsEtcFiles(), " "))
	if o.Cliwrap() {
		row(w, "CLI wrapping", "enabled")
	}

	if o.MayRequireLocalAssembly() {
		fmt.Fprintln(w, "\nDeploying this origin requires client-side assembly.")
	}
}

// FormatYAML writes the structured form of the origin.
func FormatYAML(w io.Writer, o *origin.Origin) error {
	data, err := yaml.Marshal(o.Treefile())
	if err != nil {
		return fmt.Errorf("failed to marshal treefile to YAML: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write YAML output: %w", err)
	}
	return nil
}

// FormatKeyfile writes the persisted form of the origin.
func FormatKeyfile(w io.Writer, o *origin.Origin) error {
	if _, err := o.Keyfile().WriteTo(w); err != nil {
		return fmt.Errorf("failed to write keyfile output: %w", err)
	}
	return nil
}

// FormatDeployments writes deployment references as a table. Returns the
// number of deployments formatted.
func FormatDeployments(w io.Writer, refs []origin.DeploymentRef, stateroot string) int {
	if len(refs) == 0 {
		fmt.Fprintf(w, "No deployments found in stateroot '%s'\n", stateroot)
		return 0
	}

	fmt.Fprintf(w, "Deployments in stateroot '%s':\n\n", stateroot)
	fmt.Fprintf(w, "%-14s %-6s %s\n", "CHECKSUM", "SERIAL", "DEPLOYMENT")
	fmt.Fprintf(w, "%-14s %-6s %s\n", "--------------", "------", "----------")
	for _, ref := range refs {
		fmt.Fprintf(w, "%-14s %-6d %s\n", formatDigest(ref.Checksum), ref.Serial, ref)
	}

	countMsg := "deployment"
	if len(refs) != 1 {
		countMsg = "deployments"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(refs), countMsg)

	return len(refs)
}

func row(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "%24s: %s\n", label, value)
}

// formatQualified shows "<nevra> (<short digest>)" for each digest-qualified entry.
func formatQualified(entries []string) string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		q, err := nevra.DecomposeDigestQualified(e)
		if err != nil {
			out = append(out, e)
			continue
		}
		out = append(out, fmt.Sprintf("%s (%s)", q.Identifier, formatDigest(q.Digest)))
	}
	return strings.Join(out, " ")
}

// formatDigest truncates a digest to its first 12 characters for compact display.
func formatDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func formatArgs(args []string) string {
	if len(args) == 0 {
		return "regenerate"
	}
	return "regenerate " + strings.Join(args, " ")
}
