// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"cmp"
	"slices"
)

// registry is the at-most-once module cache of a Loader. It also keeps the
// import edges observed while modules evaluated.
type registry struct {
	records map[CanonicalPath]*Record
	imports map[CanonicalPath][]CanonicalPath
}

func newRegistry() *registry {
	return &registry{
		records: make(map[CanonicalPath]*Record),
		imports: make(map[CanonicalPath][]CanonicalPath),
	}
}

// addImport records that from imported to. Repeated imports are kept once.
func (r *registry) addImport(from, to CanonicalPath) {
	if slices.Contains(r.imports[from], to) {
		return
	}
	r.imports[from] = append(r.imports[from], to)
}

func (r *registry) lookup(p CanonicalPath) (*Record, bool) {
	rec, ok := r.records[p]
	return rec, ok
}

// insert stores rec unless a record already exists for its path, in which
// case the existing record wins and is returned.
func (r *registry) insert(rec *Record) *Record {
	if existing, ok := r.records[rec.Name]; ok {
		return existing
	}
	r.records[rec.Name] = rec
	return rec
}

// sorted returns all records ordered by canonical path.
func (r *registry) sorted() []*Record {
	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b *Record) int { return cmp.Compare(a.Name, b.Name) })
	return out
}
