// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"context"
	"path/filepath"
	"strings"
)

// resolution is the outcome of normalizing one specifier.
type resolution struct {
	path CanonicalPath
	// src is set when normalization already produced the source (data URIs
	// and built-ins).
	src Source
	// srcErr is a synthesis failure, surfaced as a CompileError on the record.
	srcErr  error
	builtin *BuiltinEntry
}

// Resolve maps specifier to its canonical path without compiling or
// evaluating anything. Normalizer hooks run first.
func (l *Loader) Resolve(ctx context.Context, specifier, referrer string) (CanonicalPath, error) {
	res, ok, err := l.resolve(ctx, specifier, referrer)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &NotFoundError{Specifier: specifier, Referrer: referrer}
	}
	return res.path, nil
}

// resolve runs the normalizer hooks and then the built-in algorithm.
func (l *Loader) resolve(ctx context.Context, specifier, referrer string) (resolution, bool, error) {
	spec, pinned, err := l.hooks.RunNormalizers(ctx, referrer, specifier)
	if err != nil {
		return resolution{}, false, err
	}
	if spec != specifier {
		l.trace(ctx, 2, "normalizer hooks rewrote specifier", "specifier", specifier, "rewritten", spec)
	}
	if pinned != "" {
		l.trace(ctx, 2, "normalizer hooks pinned canonical path", "specifier", spec, "path", pinned)
		return l.pinned(pinned), true, nil
	}
	res, ok := l.normalize(ctx, spec, l.baseDir(referrer), true)
	if ok {
		l.trace(ctx, 2, "normalized", "specifier", spec, "path", res.path)
	}
	return res, ok, nil
}

// pinned completes a canonical path chosen by a normalizer hook. Data URIs
// are synthesized, built-in paths are bound to their entry, and relative
// file paths are anchored at the working directory.
func (l *Loader) pinned(p CanonicalPath) resolution {
	if IsDataURI(string(p)) {
		return l.data(string(p))
	}
	if name, ok := strings.CutPrefix(string(p), builtinScheme); ok {
		if e, found := l.builtins.Find(name); found {
			return resolution{path: p, src: e.src, builtin: e}
		}
		return resolution{path: p}
	}
	target := filepath.FromSlash(string(p))
	if !filepath.IsAbs(target) {
		target = filepath.Join(l.workDir, target)
	}
	return resolution{path: CanonicalPath(filepath.Clean(target))}
}

// normalize implements the ordered strategies: data URI, built-in name,
// relative or absolute path, manifest alias (once), search path.
func (l *Loader) normalize(ctx context.Context, specifier, baseDir string, allowAlias bool) (resolution, bool) {
	if IsDataURI(specifier) {
		return l.data(specifier), true
	}

	if name, ok := strings.CutPrefix(specifier, builtinScheme); ok {
		if e, found := l.builtins.Find(name); found {
			return resolution{path: e.Path(), src: e.src, builtin: e}, true
		}
		return resolution{}, false
	}
	if !strings.ContainsAny(specifier, `/\`) {
		if e, found := l.builtins.Find(specifier); found {
			return resolution{path: e.Path(), src: e.src, builtin: e}, true
		}
	}

	if isPathSpecifier(specifier) {
		target := filepath.FromSlash(specifier)
		if !filepath.IsAbs(target) {
			target = filepath.Join(baseDir, target)
		}
		if hit, ok := l.files.Probe(target); ok {
			return resolution{path: CanonicalPath(hit)}, true
		}
		l.trace(ctx, 2, "no file at path", "specifier", specifier, "base", baseDir)
		return resolution{}, false
	}

	if allowAlias {
		if sub, ok := l.manifest.Resolve(specifier); ok {
			l.trace(ctx, 2, "manifest alias", "specifier", specifier, "substitute", sub)
			return l.normalize(ctx, sub, l.manifest.Dir(), false)
		}
	}

	if hit, ok := l.files.Search(specifier, l.searchPath); ok {
		return resolution{path: CanonicalPath(hit)}, true
	}
	return resolution{}, false
}

func (l *Loader) data(specifier string) resolution {
	src, err := synthesize(specifier)
	return resolution{path: DataPath(specifier), src: src, srcErr: err}
}

// baseDir is the directory relative specifiers are resolved against.
func (l *Loader) baseDir(referrer string) string {
	if referrer == "" || IsDataURI(referrer) || strings.HasPrefix(referrer, builtinScheme) {
		return l.workDir
	}
	if !filepath.IsAbs(referrer) {
		referrer = filepath.Join(l.workDir, referrer)
	}
	return filepath.Dir(referrer)
}

// isPathSpecifier reports whether s is relative ("./", "../") or absolute.
func isPathSpecifier(s string) bool {
	switch {
	case s == "." || s == "..":
		return true
	case strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../"):
		return true
	case filepath.Separator == '\\' && (strings.HasPrefix(s, `.\`) || strings.HasPrefix(s, `..\`)):
		return true
	default:
		return strings.HasPrefix(s, "/") || filepath.IsAbs(s)
	}
}
