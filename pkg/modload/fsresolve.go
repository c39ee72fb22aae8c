// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	// SearchPathEnv overrides the search path. Entries are separated by
	// os.PathListSeparator.
	SearchPathEnv = "MODLOAD_PATH"
)

var (
	// DefaultSearchPath is used when neither the environment nor the
	// embedder provides a search path.
	DefaultSearchPath = []string{".", "lib"}

	// DefaultSuffixes are the recognized suffixes in priority order: native
	// extension, source extension, directory index.
	DefaultSuffixes = []string{".so", ".js", "/index.js"}
)

// SearchPathWith returns the search path from the SearchPathEnv variable
// using getenv, or fallback when the variable is unset or empty.
func SearchPathWith(getenv func(string) string, fallback []string) []string {
	if v := getenv(SearchPathEnv); v != "" {
		var dirs []string
		for _, d := range filepath.SplitList(v) {
			if d != "" {
				dirs = append(dirs, d)
			}
		}
		if len(dirs) > 0 {
			return dirs
		}
	}
	return fallback
}

// FSResolver finds module files by suffix search.
type FSResolver struct {
	fs       afero.Fs
	workDir  string
	suffixes []string
}

// NewFSResolver returns a resolver over fs. Relative directories are
// anchored at workDir.
func NewFSResolver(fs afero.Fs, workDir string, suffixes []string) *FSResolver {
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	return &FSResolver{fs: fs, workDir: workDir, suffixes: suffixes}
}

// Suffixes returns the recognized suffixes in priority order.
func (r *FSResolver) Suffixes() []string { return r.suffixes }

// HasRecognizedSuffix reports whether name already ends in one of the
// recognized suffixes.
func (r *FSResolver) HasRecognizedSuffix(name string) bool {
	slashed := filepath.ToSlash(name)
	for _, s := range r.suffixes {
		if strings.HasSuffix(slashed, s) {
			return true
		}
	}
	return false
}

// Search looks for name in each directory of searchPath, in order. A miss
// is not an error.
func (r *FSResolver) Search(name string, searchPath []string) (string, bool) {
	for _, dir := range searchPath {
		if hit, ok := r.Probe(filepath.Join(r.abs(dir), filepath.FromSlash(name))); ok {
			return hit, true
		}
	}
	return "", false
}

// Probe tests base as is when it already carries a recognized suffix, and
// otherwise base with each suffix appended in priority order.
func (r *FSResolver) Probe(base string) (string, bool) {
	base = r.abs(base)
	if r.HasRecognizedSuffix(base) {
		if r.isFile(base) {
			return base, true
		}
		return "", false
	}
	for _, s := range r.suffixes {
		candidate := filepath.Clean(base + filepath.FromSlash(s))
		if r.isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (r *FSResolver) abs(p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.workDir, p)
	}
	return filepath.Clean(p)
}

func (r *FSResolver) isFile(p string) bool {
	info, err := r.fs.Stat(p)
	return err == nil && !info.IsDir()
}
