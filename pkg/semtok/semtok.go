/*
Package semtok provides span classification for Python source.

Core Functions:
-------------

	       Input
	         |
	         v
	  +------------+
	  |   Python   |
	  |   Line     |
	  +------------+
	         |
	  Named Passes
	         |
	         v
	  +------------+
	  | Classified |
	  |   Spans    |
	  +------------+
*/
package semtok

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/walteh/pyhighlight/pkg/pyimport"
)

var (
	// underscores split names, so self._myValue yields myValue
	nameRunRe       = regexp.MustCompile(`[A-Za-z0-9]+`)
	camelCaseRe     = regexp.MustCompile(`^[a-z][a-zA-Z0-9]*[A-Z][a-zA-Z0-9]*$`)
	pascalCaseRe    = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*[a-z][A-Z][a-zA-Z0-9]*$`)
	qualifiedCallRe = regexp.MustCompile(`\b([A-Za-z_]\w*)((?:\.[A-Za-z_]\w*)+)\(`)
	directCallRe    = regexp.MustCompile(`\b([A-Za-z_]\w*)\(`)
)

// ClassifyText classifies every line of text against table.
//
// The context is checked between lines; a cancelled scan returns the spans
// produced so far along with the context error.
func ClassifyText(ctx context.Context, text string, table *pyimport.Table) ([]Span, error) {
	return ClassifyLines(ctx, pyimport.SplitLines(text), table)
}

// ClassifyLines is ClassifyText over text that was already split into lines.
func ClassifyLines(ctx context.Context, lines []string, table *pyimport.Table) ([]Span, error) {
	var spans []Span
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return spans, err
		}
		spans = append(spans, ClassifyLine(line, i, table)...)
	}
	return spans, nil
}

// ClassifyLine returns the spans of a single line, ordered by start offset.
func ClassifyLine(line string, index int, table *pyimport.Table) []Span {
	if !shouldScan(line) {
		return nil
	}

	return merge(
		NamingSpans(line, index),
		QualifiedCallSpans(line, index, table),
		DirectCallSpans(line, index, table),
	)
}

// shouldScan skips blank lines, comments and lines opening a docstring, then
// checks that at least one pass could match.
func shouldScan(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" ||
		strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, `"""`) ||
		strings.HasPrefix(trimmed, "'''") {
		return false
	}

	return hasNamingShape(line) ||
		qualifiedCallRe.MatchString(line) ||
		directCallRe.MatchString(line)
}

// NamingSpans emits camelCaseVar and pascalCaseVar spans. Every run of
// letters and digits is tested against both shapes; a PascalCase run needs a
// lowercase letter directly followed by an uppercase one, so MyClass and
// XMLHttpRequest qualify while Foo, HTTPServer and V2Config do not.
func NamingSpans(line string, index int) []Span {
	var camel, pascal []Span
	for _, loc := range nameRunRe.FindAllStringIndex(line, -1) {
		name := line[loc[0]:loc[1]]
		if camelCaseRe.MatchString(name) {
			camel = append(camel, Span{Line: index, Start: loc[0], Length: loc[1] - loc[0], Category: CamelCaseVar})
		}
		if pascalCaseRe.MatchString(name) {
			pascal = append(pascal, Span{Line: index, Start: loc[0], Length: loc[1] - loc[0], Category: PascalCaseVar})
		}
	}
	return append(camel, pascal...)
}

func hasNamingShape(line string) bool {
	for _, name := range nameRunRe.FindAllString(line, -1) {
		if camelCaseRe.MatchString(name) || pascalCaseRe.MatchString(name) {
			return true
		}
	}
	return false
}

// QualifiedCallSpans emits module and function spans for calls shaped like
// mod.fn(...) or mod.sub.fn(...). The function span covers the first segment
// after the module token.
func QualifiedCallSpans(line string, index int, table *pyimport.Table) []Span {
	var spans []Span
	for _, m := range qualifiedCallRe.FindAllStringSubmatchIndex(line, -1) {
		modStart, modEnd := m[2], m[3]
		if precededByDot(line, modStart) {
			continue
		}

		alias := line[modStart:modEnd]

		// m[4] points at the first '.'
		fnStart := m[4] + 1
		fnEnd := fnStart
		for fnEnd < m[5] && line[fnEnd] != '.' {
			fnEnd++
		}
		fn := line[fnStart:fnEnd]

		modCat, fnCat, ok := classifyQualified(alias, fn, table)
		if !ok {
			continue
		}

		spans = append(spans,
			Span{Line: index, Start: modStart, Length: modEnd - modStart, Category: modCat},
			Span{Line: index, Start: fnStart, Length: fnEnd - fnStart, Category: fnCat},
		)
	}
	return spans
}

func classifyQualified(alias, fn string, table *pyimport.Table) (Category, Category, bool) {
	module := table.Module(alias)

	switch {
	case pyimport.IsModule(module, "numpy"):
		return NumpyModule, NumpyFunction, true
	case pyimport.IsModule(module, "pandas"):
		if IsPandasClass(fn) {
			return PandasModule, PandasClass, true
		}
		return PandasModule, PandasFunction, true
	case IsKnownLibrary(alias), IsKnownLibrary(module):
		return LibraryModule, LibraryFunction, true
	}

	return 0, 0, false
}

// DirectCallSpans emits a function span for name(...) when name was bound by a
// from-import of a tracked module.
func DirectCallSpans(line string, index int, table *pyimport.Table) []Span {
	var spans []Span
	for _, m := range directCallRe.FindAllStringSubmatchIndex(line, -1) {
		start, end := m[2], m[3]
		if precededByDot(line, start) {
			continue
		}

		b, ok := table.Lookup(line[start:end])
		if !ok || b.Kind != pyimport.FromImport {
			continue
		}

		var cat Category
		switch {
		case pyimport.IsModule(b.Module, "numpy"):
			cat = NumpyFunction
		case pyimport.IsModule(b.Module, "pandas"):
			cat = PandasFunction
		case IsKnownLibrary(b.Module):
			cat = LibraryFunction
		default:
			continue
		}

		spans = append(spans, Span{Line: index, Start: start, Length: end - start, Category: cat})
	}
	return spans
}

func precededByDot(line string, at int) bool {
	return at > 0 && line[at-1] == '.'
}

type spanKey struct {
	start int
	cat   Category
}

// merge joins the pass results. Qualified spans win over direct spans that
// start at the same offset and a (start, category) pair is only emitted once.
func merge(naming, qualified, direct []Span) []Span {
	seen := map[spanKey]struct{}{}
	qualifiedStarts := map[int]struct{}{}

	var out []Span
	add := func(s Span) {
		k := spanKey{start: s.Start, cat: s.Category}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}

	for _, s := range naming {
		add(s)
	}
	for _, s := range qualified {
		qualifiedStarts[s.Start] = struct{}{}
		add(s)
	}
	for _, s := range direct {
		if _, taken := qualifiedStarts[s.Start]; taken {
			continue
		}
		add(s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Category < out[j].Category
	})

	return out
}

// Filter returns the spans whose category keep accepts.
func Filter(spans []Span, keep func(Category) bool) []Span {
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		if keep(s.Category) {
			out = append(out, s)
		}
	}
	return out
}
