package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/dyluth/origin/internal/config"
	"github.com/dyluth/origin/pkg/keyfile"
	"github.com/dyluth/origin/pkg/origin"
	"github.com/dyluth/origin/pkg/treefile"
)

//go:embed templates/*
var templatesFS embed.FS

// Options controls what Initialize writes.
type Options struct {
	ConfigPath string
	Stateroot  string
	Store      config.StoreConfig

	// OriginPath, when set, receives a new origin tracking Refspec.
	OriginPath string
	Refspec    string

	// Force overwrites existing files.
	Force bool
}

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes an originctl configuration and, optionally, a new origin
// file. Existing files are only replaced when opts.Force is set. Returns the
// paths written.
func Initialize(opts Options) ([]string, error) {
	if !opts.Force {
		if err := CheckExisting(opts.ConfigPath, opts.OriginPath); err != nil {
			return nil, err
		}
	}

	files, err := getFiles(opts)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, file := range files {
		if err := os.MkdirAll(filepath.Dir(file.Path), 0755); err != nil {
			return written, fmt.Errorf("failed to create directory for %s: %w", file.Path, err)
		}
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
		written = append(written, file.Path)
	}

	if err := validateCreatedFiles(opts); err != nil {
		return written, err
	}
	return written, nil
}

// getFiles renders every file Initialize writes.
func getFiles(opts Options) ([]FileInfo, error) {
	files := []FileInfo{}

	cfg, err := renderConfig(opts)
	if err != nil {
		return nil, err
	}
	files = append(files, FileInfo{
		Path:        opts.ConfigPath,
		Content:     cfg,
		Permissions: 0644,
	})

	if opts.OriginPath != "" {
		o, err := NewOrigin(opts.Refspec)
		if err != nil {
			return nil, err
		}
		files = append(files, FileInfo{
			Path:        opts.OriginPath,
			Content:     o.Keyfile().Marshal(),
			Permissions: 0644,
		})
	}

	return files, nil
}

func renderConfig(opts Options) ([]byte, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/originctl.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read config template: %w", err)
	}

	defaults := config.Default()
	data := struct {
		Stateroot string
		config.StoreConfig
	}{
		Stateroot:   opts.Stateroot,
		StoreConfig: opts.Store,
	}
	if data.Stateroot == "" {
		data.Stateroot = defaults.Stateroot
	}
	if data.Backend == "" {
		data.Backend = defaults.Store.Backend
	}
	if data.Namespace == "" {
		data.Namespace = defaults.Store.Namespace
	}
	if data.BucketURL == "" {
		data.BucketURL = defaults.Store.BucketURL
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render config template: %w", err)
	}
	return buf.Bytes(), nil
}

// NewOrigin returns a minimal origin that tracks refspec and has no local
// modifications.
func NewOrigin(refspec string) (*origin.Origin, error) {
	if refspec == "" {
		return nil, fmt.Errorf("a refspec is required to create an origin")
	}
	kf := keyfile.New()
	kf.SetString(treefile.GroupOrigin, treefile.KeyRefspec, refspec)
	return origin.Parse(kf)
}

// validateCreatedFiles re-reads what Initialize wrote.
func validateCreatedFiles(opts Options) error {
	if _, err := config.Load(opts.ConfigPath); err != nil {
		return fmt.Errorf("created %s is invalid: %w", opts.ConfigPath, err)
	}

	if opts.OriginPath == "" {
		return nil
	}
	data, err := os.ReadFile(opts.OriginPath)
	if err != nil {
		return fmt.Errorf("failed to read created %s: %w", opts.OriginPath, err)
	}
	kf, err := keyfile.Parse(data)
	if err != nil {
		return fmt.Errorf("created %s is not a valid keyfile: %w", opts.OriginPath, err)
	}
	if _, err := origin.Parse(kf); err != nil {
		return fmt.Errorf("created %s is not a valid origin: %w", opts.OriginPath, err)
	}
	return nil
}
