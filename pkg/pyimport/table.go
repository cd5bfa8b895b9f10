package pyimport

import (
	"sort"
	"strings"
)

// Kind records which import statement produced a binding.
type Kind int

const (
	// ImportAs comes from `import X as Y` or a bare `import X`.
	ImportAs Kind = iota + 1
	// FromImport comes from `from X import Y [as Z]`.
	FromImport
)

func (k Kind) String() string {
	switch k {
	case ImportAs:
		return "ImportAs"
	case FromImport:
		return "FromImport"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Binding maps a locally used name to the module it was imported from.
type Binding struct {
	Alias  string `json:"alias" yaml:"alias"`
	Module string `json:"module" yaml:"module"`
	Kind   Kind   `json:"kind" yaml:"kind"`
	// Line is the zero based line of the declaring import.
	Line int `json:"line" yaml:"line"`
}

// Table is the alias table of one document. Later bindings for the same
// alias replace earlier ones.
type Table struct {
	bindings map[string]Binding
}

func NewTable() *Table {
	return &Table{bindings: map[string]Binding{}}
}

func (t *Table) Bind(b Binding) {
	t.bindings[b.Alias] = b
}

func (t *Table) Lookup(alias string) (Binding, bool) {
	if t == nil {
		return Binding{}, false
	}
	b, ok := t.bindings[alias]
	return b, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.bindings)
}

// Aliases returns the bound aliases in lexical order.
func (t *Table) Aliases() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.bindings))
	for alias := range t.bindings {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// Bindings returns every binding ordered by alias.
func (t *Table) Bindings() []Binding {
	aliases := t.Aliases()
	out := make([]Binding, 0, len(aliases))
	for _, alias := range aliases {
		out = append(out, t.bindings[alias])
	}
	return out
}

// Module returns the module name is bound to, or name itself when unbound.
func (t *Table) Module(name string) string {
	if b, ok := t.Lookup(name); ok {
		return b.Module
	}
	return name
}

// Equal reports whether both tables hold the same alias -> (module, kind) rows.
// Declaration lines are ignored.
func (t *Table) Equal(other *Table) bool {
	if t.Len() != other.Len() {
		return false
	}
	for _, b := range t.Bindings() {
		o, ok := other.Lookup(b.Alias)
		if !ok || o.Module != b.Module || o.Kind != b.Kind {
			return false
		}
	}
	return true
}

// IsModule reports whether module is name itself or a dotted path ending in it,
// so both "numpy" and "jax.numpy" are numpy modules.
func IsModule(module, name string) bool {
	return module == name || strings.HasSuffix(module, "."+name)
}
