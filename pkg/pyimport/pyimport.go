// Package pyimport resolves the import aliases declared in a Python source file.
//
// The resolver is line oriented on purpose: it never builds a syntax tree and
// it never follows statements across lines. Each physical line is trimmed and
// matched against three shapes, first match wins:
//
//	import numpy as np                -> np     => (numpy, ImportAs)
//	import os.path                    -> path   => (os.path, ImportAs)
//	from pandas import read_csv as rc -> rc     => (pandas, FromImport)
//
// Lines that match nothing (including malformed import lines) are skipped.
package pyimport

import (
	"context"
	"regexp"
	"strings"
)

var (
	importAsRe   = regexp.MustCompile(`^import\s+([\w.]+)\s+as\s+(\w+)\s*$`)
	importRe     = regexp.MustCompile(`^import\s+(.+)$`)
	fromImportRe = regexp.MustCompile(`^from\s+([\w.]+)\s+import\s+(.+)$`)

	dottedEntryRe = regexp.MustCompile(`^([\w.]+)(?:\s+as\s+(\w+))?$`)
	asEntryRe     = regexp.MustCompile(`^(\w+)\s+as\s+(\w+)`)
	nonWordRe     = regexp.MustCompile(`\W+`)
)

// Resolve scans text line by line and returns the alias table it declares.
//
// The context is checked between lines. When it is cancelled the bindings
// found so far are returned together with the context error.
func Resolve(ctx context.Context, text string) (*Table, error) {
	return ResolveLines(ctx, SplitLines(text))
}

// ResolveLines is Resolve over text that was already split into lines.
func ResolveLines(ctx context.Context, lines []string) (*Table, error) {
	table := NewTable()

	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return table, err
		}

		for _, b := range ParseLine(line, i) {
			table.Bind(b)
		}
	}

	return table, nil
}

// ParseLine returns the bindings declared by a single line, in declaration order.
// A nil result means the line is not an import this package understands.
func ParseLine(line string, index int) []Binding {
	line = strings.TrimSpace(stripComment(line))
	if line == "" {
		return nil
	}

	if m := importAsRe.FindStringSubmatch(line); m != nil {
		return []Binding{{Alias: m[2], Module: m[1], Kind: ImportAs, Line: index}}
	}

	if m := importRe.FindStringSubmatch(line); m != nil {
		return parseImportList(m[1], index)
	}

	if m := fromImportRe.FindStringSubmatch(line); m != nil {
		return parseFromList(m[1], m[2], index)
	}

	return nil
}

// parseImportList handles `import a.b` and `import a, b as c`.
func parseImportList(list string, index int) []Binding {
	var out []Binding
	for _, entry := range strings.Split(list, ",") {
		m := dottedEntryRe.FindStringSubmatch(strings.TrimSpace(entry))
		if m == nil {
			continue
		}

		module := m[1]
		alias := m[2]
		if alias == "" {
			alias = lastSegment(module)
		}
		if alias == "" {
			continue
		}

		out = append(out, Binding{Alias: alias, Module: module, Kind: ImportAs, Line: index})
	}
	return out
}

func parseFromList(module, list string, index int) []Binding {
	var out []Binding
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)

		if m := asEntryRe.FindStringSubmatch(entry); m != nil {
			out = append(out, Binding{Alias: m[2], Module: module, Kind: FromImport, Line: index})
			continue
		}

		// handles "(a", "b)" and "c \" without tracking continuation lines
		name := nonWordRe.ReplaceAllString(entry, "")
		if name == "" {
			continue
		}

		out = append(out, Binding{Alias: name, Module: module, Kind: FromImport, Line: index})
	}
	return out
}

func lastSegment(module string) string {
	module = strings.TrimRight(module, ".")
	if i := strings.LastIndexByte(module, '.'); i >= 0 {
		return module[i+1:]
	}
	return module
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

// SplitLines splits text on "\n" and drops a trailing "\r" from every line.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
