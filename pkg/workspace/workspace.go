// Package workspace owns the analysis result of every open python document.
package workspace

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/walteh/pyhighlight/pkg/metrics"
	"github.com/walteh/pyhighlight/pkg/pyimport"
	"github.com/walteh/pyhighlight/pkg/semtok"
)

// LanguageID is the only language the workspace analyzes.
const LanguageID = "python"

// Document is the editor's view of a text document.
type Document struct {
	URI        string
	LanguageID string
	Version    int32
	Text       string
}

// Result is the analysis of one document. It is replaced as a whole on every
// re-analysis and never mutated after it is stored.
type Result struct {
	Document
	Imports *pyimport.Table
	Spans   []semtok.Span
}

// Analyze resolves the imports of text and classifies every line against them.
// On cancellation the partial imports and spans are returned with the context error.
func Analyze(ctx context.Context, text string) (*pyimport.Table, []semtok.Span, error) {
	lines := pyimport.SplitLines(text)

	start := time.Now()
	table, err := pyimport.ResolveLines(ctx, lines)
	metrics.ObservePass(metrics.PassResolve, start)
	if err != nil {
		return table, nil, err
	}

	start = time.Now()
	spans, err := semtok.ClassifyLines(ctx, lines, table)
	metrics.ObservePass(metrics.PassClassify, start)
	if err != nil {
		return table, spans, err
	}

	metrics.DocumentsAnalyzed.Inc()
	for _, s := range spans {
		metrics.SpansEmitted.WithLabelValues(s.Category.String()).Inc()
	}

	return table, spans, nil
}

// NormalizeURI turns a file URI into a decoded local path so the same file
// opened through different URI spellings maps to one entry. Windows drive
// paths lose their leading slash (file:///c%3A/x -> c:/x). Anything that is
// not a file URI is returned unchanged.
func NormalizeURI(uri string) string {
	if !strings.HasPrefix(uri, "file:") {
		return uri
	}

	u, err := url.Parse(uri)
	if err != nil {
		return strings.TrimPrefix(strings.TrimPrefix(uri, "file://"), "file:")
	}

	path := u.Path
	if u.Host != "" && u.Host != "localhost" {
		path = "//" + u.Host + path
	}

	if len(path) >= 3 && path[0] == '/' && path[2] == ':' && isDriveLetter(path[1]) {
		path = path[1:]
	}

	return path
}

func isDriveLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// Workspace maps document URIs to their latest Result.
type Workspace struct {
	mu   sync.RWMutex
	docs map[string]*Result
}

func New() *Workspace {
	return &Workspace{docs: map[string]*Result{}}
}

// Open analyzes doc and stores the result, replacing any previous one.
// Documents in other languages are not tracked; opening one under a URI that
// held a python document removes that entry.
//
// The returned flag reports whether the import bindings of the document
// differ from what was stored before. On error nothing is stored.
func (w *Workspace) Open(ctx context.Context, doc Document) (bool, error) {
	if doc.LanguageID != LanguageID {
		return w.Close(doc.URI), nil
	}

	table, spans, err := Analyze(ctx, doc.Text)
	if err != nil {
		return false, err
	}

	key := NormalizeURI(doc.URI)

	w.mu.Lock()
	defer w.mu.Unlock()

	var previous *pyimport.Table
	if old, ok := w.docs[key]; ok {
		previous = old.Imports
	}

	w.docs[key] = &Result{Document: doc, Imports: table, Spans: spans}
	metrics.OpenDocuments.Set(float64(len(w.docs)))

	changed := !previous.Equal(table)
	zerolog.Ctx(ctx).Debug().
		Str("uri", doc.URI).
		Int32("version", doc.Version).
		Int("bindings", table.Len()).
		Int("spans", len(spans)).
		Bool("bindings_changed", changed).
		Msg("analyzed document")

	return changed, nil
}

// Change re-analyzes a tracked document with new text. Untracked documents
// are ignored.
func (w *Workspace) Change(ctx context.Context, uri string, version int32, text string) (bool, error) {
	current, ok := w.Get(uri)
	if !ok {
		return false, nil
	}

	doc := current.Document
	doc.Version = version
	doc.Text = text
	return w.Open(ctx, doc)
}

// Close forgets uri. It reports whether the forgotten document contributed
// any import bindings.
func (w *Workspace) Close(uri string) bool {
	key := NormalizeURI(uri)

	w.mu.Lock()
	defer w.mu.Unlock()

	old, ok := w.docs[key]
	if !ok {
		return false
	}
	delete(w.docs, key)
	metrics.OpenDocuments.Set(float64(len(w.docs)))
	return old.Imports.Len() > 0
}

func (w *Workspace) Get(uri string) (*Result, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.docs[NormalizeURI(uri)]
	return r, ok
}

func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.docs)
}

// Results returns every stored result ordered by URI.
func (w *Workspace) Results() []*Result {
	w.mu.RLock()
	defer w.mu.RUnlock()

	keys := make([]string, 0, len(w.docs))
	for k := range w.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*Result, 0, len(keys))
	for _, k := range keys {
		out = append(out, w.docs[k])
	}
	return out
}

// Tables returns the import table of every document ordered by URI.
func (w *Workspace) Tables() []*pyimport.Table {
	results := w.Results()
	out := make([]*pyimport.Table, 0, len(results))
	for _, r := range results {
		out = append(out, r.Imports)
	}
	return out
}

// Report lists, per document, every alias and the module it resolves to.
func (w *Workspace) Report() string {
	return Report(w.Results())
}

// Report formats results as the plain text import report.
func Report(results []*Result) string {
	if len(results) == 0 {
		return "no python documents open\n"
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(r.URI)
		sb.WriteString("\n")

		bindings := r.Imports.Bindings()
		if len(bindings) == 0 {
			sb.WriteString("  (no imports)\n")
			continue
		}
		for _, b := range bindings {
			fmt.Fprintf(&sb, "  %s -> %s (%s, line %d)\n", b.Alias, b.Module, b.Kind, b.Line+1)
		}
	}
	return sb.String()
}
