// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"container/list"
	"context"
	"errors"
	"fmt"
)

const (
	phaseLoad      = "load"
	phaseNormalize = "normalize"
)

const (
	outcomePass outcomeKind = iota
	outcomeRewrite
	outcomeResolved
	outcomeCanonical
)

var (
	// ErrInvalidHook is returned when registering a hook without an ID or
	// without any function.
	ErrInvalidHook = errors.New("invalid loader hook")
	// ErrInvalidOutcome is wrapped in a HookError when a hook returns an
	// outcome its phase does not accept.
	ErrInvalidOutcome = errors.New("invalid hook outcome")
)

type (
	// HookID identifies a hook in the chain. Registering an ID again
	// replaces the old hook and moves it to the end.
	HookID string

	outcomeKind int

	// Outcome is what a hook decides about the current specifier.
	Outcome struct {
		kind      outcomeKind
		specifier string
		record    *Record
	}

	// NormalizeFunc may rewrite a specifier given its referrer, or pin it
	// to a canonical path.
	NormalizeFunc func(ctx context.Context, referrer, specifier string) (Outcome, error)

	// LoadFunc may rewrite a specifier or return a fully resolved module.
	LoadFunc func(ctx context.Context, specifier string) (Outcome, error)

	// Hook is a host-supplied interception point. Either function may be nil.
	Hook struct {
		ID        HookID
		Normalize NormalizeFunc
		Load      LoadFunc
	}

	// LoaderChain is the ordered, ID-keyed sequence of hooks.
	LoaderChain struct {
		order *list.List
		index map[HookID]*list.Element
	}
)

// Pass leaves the current specifier unchanged.
func Pass() Outcome { return Outcome{kind: outcomePass} }

// Rewrite replaces the current specifier for the rest of the chain and
// for normalization.
func Rewrite(specifier string) Outcome {
	return Outcome{kind: outcomeRewrite, specifier: specifier}
}

// Resolved short-circuits resolution with a ready module. Only loader
// functions may return it.
func Resolved(rec *Record) Outcome {
	return Outcome{kind: outcomeResolved, record: rec}
}

// Canonical pins the specifier to a canonical path, bypassing the
// normalization algorithm. Only normalizer functions may return it.
func Canonical(path CanonicalPath) Outcome {
	return Outcome{kind: outcomeCanonical, specifier: string(path)}
}

// NewLoaderChain returns an empty chain.
func NewLoaderChain() *LoaderChain {
	return &LoaderChain{order: list.New(), index: make(map[HookID]*list.Element)}
}

// Register appends h, first removing any hook with the same ID.
func (c *LoaderChain) Register(h Hook) error {
	if h.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidHook)
	}
	if h.Normalize == nil && h.Load == nil {
		return fmt.Errorf("%w: %q has no functions", ErrInvalidHook, h.ID)
	}
	c.Remove(h.ID)
	c.index[h.ID] = c.order.PushBack(h)
	return nil
}

// Remove drops the hook with id and reports whether it was present.
func (c *LoaderChain) Remove(id HookID) bool {
	el, ok := c.index[id]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.index, id)
	return true
}

// IDs returns hook IDs in chain order.
func (c *LoaderChain) IDs() []HookID {
	ids := make([]HookID, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		ids = append(ids, el.Value.(Hook).ID)
	}
	return ids
}

// Len returns the number of registered hooks.
func (c *LoaderChain) Len() int { return c.order.Len() }

// snapshot copies the chain so hooks may re-register while it runs.
func (c *LoaderChain) snapshot() []Hook {
	hooks := make([]Hook, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		hooks = append(hooks, el.Value.(Hook))
	}
	return hooks
}

// RunLoaders threads specifier through every Load function. It returns the
// possibly rewritten specifier, or a record when a hook resolved the
// module.
func (c *LoaderChain) RunLoaders(ctx context.Context, specifier string) (string, *Record, error) {
	current := specifier
	for _, h := range c.snapshot() {
		if h.Load == nil {
			continue
		}
		out, err := h.Load(ctx, current)
		if err != nil {
			return "", nil, &HookError{ID: h.ID, Phase: phaseLoad, Specifier: current, Err: err}
		}
		switch out.kind {
		case outcomePass:
		case outcomeRewrite:
			current = out.specifier
		case outcomeResolved:
			if out.record == nil {
				return "", nil, &HookError{ID: h.ID, Phase: phaseLoad, Specifier: current, Err: fmt.Errorf("%w: nil record", ErrInvalidOutcome)}
			}
			return current, out.record, nil
		default:
			return "", nil, &HookError{ID: h.ID, Phase: phaseLoad, Specifier: current, Err: fmt.Errorf("%w: canonical path from a loader", ErrInvalidOutcome)}
		}
	}
	return current, nil, nil
}

// RunNormalizers threads specifier through every Normalize function. A
// non-empty canonical path means a hook pinned the result.
func (c *LoaderChain) RunNormalizers(ctx context.Context, referrer, specifier string) (string, CanonicalPath, error) {
	current := specifier
	for _, h := range c.snapshot() {
		if h.Normalize == nil {
			continue
		}
		out, err := h.Normalize(ctx, referrer, current)
		if err != nil {
			return "", "", &HookError{ID: h.ID, Phase: phaseNormalize, Specifier: current, Err: err}
		}
		switch out.kind {
		case outcomePass:
		case outcomeRewrite:
			current = out.specifier
		case outcomeCanonical:
			return current, CanonicalPath(out.specifier), nil
		default:
			return "", "", &HookError{ID: h.ID, Phase: phaseNormalize, Specifier: current, Err: fmt.Errorf("%w: module from a normalizer", ErrInvalidOutcome)}
		}
	}
	return current, "", nil
}
