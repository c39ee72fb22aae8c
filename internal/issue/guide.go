// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// GuideID identifies a long-form help topic.
type GuideID int

const (
	// NoGuide is the zero GuideID.
	NoGuide GuideID = iota
	ModuleNotFoundID
	CircularDependencyID
	CompileFailedID
	EvaluationFailedID
	HookFailedID
	MalformedDataURIID
	ConfigLoadFailedID
)

type (
	// MarkdownMsg is the Markdown body of a guide.
	MarkdownMsg string

	// HTTPLink is an external reference shown under "See also".
	HTTPLink string

	// Guide is a Markdown help topic for one failure class.
	Guide struct {
		id    GuideID
		name  string
		mdMsg MarkdownMsg
		links []HTTPLink
	}
)

var (
	render = glamour.Render

	moduleNotFoundGuide = &Guide{
		id:   ModuleNotFoundID,
		name: "not-found",
		mdMsg: `
# Module not found

No strategy produced a canonical path for the specifier.

## Resolution order
1. ` + "`data:`" + ` URIs are synthesized in memory
2. Built-in names (` + "`os`, `strings`" + `) and ` + "`builtin:<name>`" + `
3. Relative and absolute paths, probed with each suffix
4. One alias substitution from the manifest (` + "`package.json`" + `)
5. Each directory of the search path

## Things you can try
- Check the spelling and the referrer's directory for relative imports
- Add the directory to the search path:
~~~
$ MODLOAD_PATH=./lib:./vendor modload run main
~~~
- Inspect where a specifier lands:
~~~
$ modload resolve ./util --from main.js
~~~`,
	}

	circularDependencyGuide = &Guide{
		id:   CircularDependencyID,
		name: "cycle",
		mdMsg: `
# Circular dependency

A module imported another module that is still being evaluated. The importer
sees the exports populated so far, which may be incomplete.

## Things you can try
- Move the shared values into a third module imported by both
- Choose how cycles are reported:
~~~
$ modload run main --on-cycle error
~~~`,
	}

	compileFailedGuide = &Guide{
		id:   CompileFailedID,
		name: "compile",
		mdMsg: `
# Module failed to compile

The source text, bytecode blob, or JSON payload could not be turned into a
module definition. The failure is cached: later imports report the same
error without recompiling.

## Things you can try
- Look at the reported line in the module source
- For JSON data URIs, validate the payload after decoding`,
	}

	evaluationFailedGuide = &Guide{
		id:   EvaluationFailedID,
		name: "evaluation",
		mdMsg: `
# Module body raised an error

The module compiled but its body failed while running. Every later importer
receives the same cached error.

## Things you can try
- Re-run with ` + "`-vv`" + ` to trace each module as it is evaluated
- Check the modules it imports, which fail first`,
	}

	hookFailedGuide = &Guide{
		id:   HookFailedID,
		name: "hook",
		mdMsg: `
# Loader hook failed

A host-installed loader or normalizer hook returned an error. Hook failures
abort the whole resolution, not only the module being loaded.

## Things you can try
- Check the hook named in the error
- Remove the hook to fall back to the default resolution`,
	}

	malformedDataURIGuide = &Guide{
		id:   MalformedDataURIID,
		name: "data-uri",
		mdMsg: `
# Malformed data URI

Data URIs have the form ` + "`data:[<mediatype>][;base64],<payload>`" + `.

## Things you can try
- Make sure the comma separating header and payload is present
- Percent-encode reserved characters or use ` + "`;base64`" + ``,
		links: []HTTPLink{"https://www.rfc-editor.org/rfc/rfc2397"},
	}

	configLoadFailedGuide = &Guide{
		id:   ConfigLoadFailedID,
		name: "config",
		mdMsg: `
# Configuration could not be loaded

The configuration file is CUE and is validated against a closed schema.

## Example
~~~cue
search_path: [".", "lib"]
on_cycle:    "warn"
manifest: alias_key: "aliases"
log: format: "text"
~~~

## Things you can try
- Print the effective configuration:
~~~
$ modload config show
~~~`,
	}

	guides = map[GuideID]*Guide{
		moduleNotFoundGuide.ID():     moduleNotFoundGuide,
		circularDependencyGuide.ID(): circularDependencyGuide,
		compileFailedGuide.ID():      compileFailedGuide,
		evaluationFailedGuide.ID():   evaluationFailedGuide,
		hookFailedGuide.ID():         hookFailedGuide,
		malformedDataURIGuide.ID():   malformedDataURIGuide,
		configLoadFailedGuide.ID():   configLoadFailedGuide,
	}
)

// ID returns the guide identifier.
func (g *Guide) ID() GuideID {
	return g.id
}

// Name returns the topic name used by 'modload explain'.
func (g *Guide) Name() string {
	return g.name
}

// MarkdownMsg returns the raw Markdown body.
func (g *Guide) MarkdownMsg() MarkdownMsg {
	return g.mdMsg
}

// Links returns a copy of the external references.
func (g *Guide) Links() []HTTPLink {
	return slices.Clone(g.links)
}

// Render renders the guide for a terminal using the given glamour style
// ("dark", "light", "notty", ...).
func (g *Guide) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(g.mdMsg))
	if len(g.links) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range g.links {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

// Values returns all guides ordered by ID.
func Values() []*Guide {
	out := make([]*Guide, 0, len(guides))
	for _, g := range guides {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b *Guide) int { return int(a.id) - int(b.id) })
	return out
}

// Get returns the guide for id, or nil.
func Get(id GuideID) *Guide {
	return guides[id]
}

// Lookup returns the guide with the given topic name, or nil.
func Lookup(name string) *Guide {
	for _, g := range guides {
		if g.name == name {
			return g
		}
	}
	return nil
}
