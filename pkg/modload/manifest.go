// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

const (
	// DefaultManifestFile is the project descriptor looked up in the working directory.
	DefaultManifestFile = "package.json"
	// DefaultAliasKey is the manifest key holding the alias table.
	// Dots select nested tables ("modload.aliases").
	DefaultAliasKey = "aliases"
)

// ManifestOptions locates the manifest and its alias table.
type ManifestOptions struct {
	// File is the manifest file name, relative to the working directory.
	// A ".toml" extension selects TOML; anything else is parsed as JSON.
	File string
	// AliasKey is the (dot-separated) key of the alias table.
	AliasKey string
}

// manifestAliases lazily parses the manifest once per Loader. A missing or
// unparseable manifest is cached as "no manifest" and never retried.
type manifestAliases struct {
	fs      afero.Fs
	workDir string
	opts    ManifestOptions
	logger  *slog.Logger

	loaded  bool
	aliases map[string]string
}

func newManifestAliases(fs afero.Fs, workDir string, opts ManifestOptions, logger *slog.Logger) *manifestAliases {
	if opts.File == "" {
		opts.File = DefaultManifestFile
	}
	if opts.AliasKey == "" {
		opts.AliasKey = DefaultAliasKey
	}
	return &manifestAliases{fs: fs, workDir: workDir, opts: opts, logger: logger}
}

// Dir is the directory relative alias targets are resolved against: the
// directory holding the manifest file.
func (m *manifestAliases) Dir() string { return filepath.Dir(m.Path()) }

// Path is the manifest file location.
func (m *manifestAliases) Path() string {
	if filepath.IsAbs(m.opts.File) {
		return m.opts.File
	}
	return filepath.Join(m.workDir, m.opts.File)
}

// Resolve returns the substitute for name, if the manifest declares one.
func (m *manifestAliases) Resolve(name string) (string, bool) {
	if !m.loaded {
		m.load()
	}
	if m.aliases == nil {
		return "", false
	}
	if filepath.IsAbs(name) {
		if rel, err := filepath.Rel(m.workDir, name); err == nil {
			name = filepath.ToSlash(rel)
		}
	}
	sub, ok := m.aliases[name]
	return sub, ok
}

func (m *manifestAliases) load() {
	m.loaded = true
	path := m.Path()
	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		m.logger.Debug("no manifest", "path", path, "error", err)
		return
	}
	aliases, err := parseManifest(path, data, m.opts.AliasKey)
	if err != nil {
		m.logger.Debug("manifest ignored", "path", path, "error", err)
		return
	}
	m.aliases = aliases
}

// parseManifest decodes a JSON or TOML manifest and extracts the string
// entries of the alias table under key. A manifest without the key yields
// an empty, non-nil table.
func parseManifest(path string, data []byte, key string) (map[string]string, error) {
	var doc map[string]any
	var err error
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	aliases := make(map[string]string)
	var node any = doc
	for part := range strings.SplitSeq(key, ".") {
		table, ok := node.(map[string]any)
		if !ok {
			return aliases, nil
		}
		if node, ok = table[part]; !ok {
			return aliases, nil
		}
	}
	table, ok := node.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse manifest %s: %q is not a table", path, key)
	}
	for name, v := range table {
		if s, ok := v.(string); ok {
			aliases[name] = s
		}
	}
	return aliases, nil
}
