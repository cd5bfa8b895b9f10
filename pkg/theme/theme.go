/*
Package theme renders highlighter options and import tables into TextMate
color rules and merges them into an editor's token color customizations.

	 Options + Tables
	        |
	        v
	+---------------+      +-------------------+
	|    Render     | ---> |  []Rule (python)  |
	+---------------+      +-------------------+
	                                |
	  existing []TextMateRule ---> Merge ---> []TextMateRule
*/
package theme

import (
	"sort"

	"github.com/walteh/pyhighlight/pkg/config"
	"github.com/walteh/pyhighlight/pkg/pyimport"
	"github.com/walteh/pyhighlight/pkg/semtok"
)

// ModuleLighten is how much module colors are lifted over their function color.
const ModuleLighten = 0.3

const (
	FontBold   = "bold"
	FontItalic = "italic"
)

var categoryScopes = [...]string{
	semtok.CamelCaseVar:    "variable.other.camelcase.python",
	semtok.PascalCaseVar:   "entity.name.type.pascalcase.python",
	semtok.NumpyModule:     "support.module.numpy.python",
	semtok.NumpyFunction:   "support.function.numpy.python",
	semtok.PandasModule:    "support.module.pandas.python",
	semtok.PandasFunction:  "support.function.pandas.python",
	semtok.PandasClass:     "support.class.pandas.python",
	semtok.LibraryModule:   "support.module.library.python",
	semtok.LibraryFunction: "support.function.library.python",
}

// excludedAliases already have fixed rules through the grammar.
var excludedAliases = map[string]struct{}{
	"np":         {},
	"pd":         {},
	"plt":        {},
	"numpy":      {},
	"pandas":     {},
	"matplotlib": {},
}

// Scope returns the TextMate scope used for category c.
func Scope(c semtok.Category) string {
	if int(c) < len(categoryScopes) {
		return categoryScopes[c]
	}
	return ""
}

// IsExcludedAlias reports whether alias is a shorthand that never gets a
// dynamic rule.
func IsExcludedAlias(alias string) bool {
	_, ok := excludedAliases[alias]
	return ok
}

// Rule is one rendered highlight rule.
type Rule struct {
	Scope      string `json:"scope" yaml:"scope"`
	Foreground string `json:"foreground" yaml:"foreground"`
	FontStyle  string `json:"fontStyle,omitempty" yaml:"fontStyle,omitempty"`
}

// AliasRule is an alias bound to numpy or pandas that gets its own pair of rules.
type AliasRule struct {
	Alias   string
	Library string
}

// Render turns opts and the union of tables into an ordered rule list.
// The output only depends on its inputs.
func Render(opts config.Options, tables ...*pyimport.Table) []Rule {
	var rules []Rule

	if opts.EnableCamelCase {
		rules = append(rules, Rule{Scope: Scope(semtok.CamelCaseVar), Foreground: opts.CamelCaseColor})
	}
	if opts.EnablePascalCase {
		rules = append(rules, Rule{Scope: Scope(semtok.PascalCaseVar), Foreground: opts.PascalCaseColor, FontStyle: FontBold})
	}

	if !opts.EnableLibraryFunctions {
		return rules
	}

	numpyModule := lightenOrKeep(opts.NumpyColor)
	pandasModule := lightenOrKeep(opts.PandasColor)

	rules = append(rules,
		Rule{Scope: Scope(semtok.NumpyModule), Foreground: numpyModule},
		Rule{Scope: Scope(semtok.NumpyFunction), Foreground: opts.NumpyColor},
		Rule{Scope: Scope(semtok.PandasModule), Foreground: pandasModule},
		Rule{Scope: Scope(semtok.PandasFunction), Foreground: opts.PandasColor, FontStyle: FontItalic},
		Rule{Scope: Scope(semtok.PandasClass), Foreground: opts.PandasColor, FontStyle: FontBold},
		Rule{Scope: Scope(semtok.LibraryModule), Foreground: lightenOrKeep(opts.LibraryColor)},
		Rule{Scope: Scope(semtok.LibraryFunction), Foreground: opts.LibraryColor},
	)

	for _, a := range DynamicAliases(tables...) {
		fn, mod := opts.NumpyColor, numpyModule
		if a.Library == "pandas" {
			fn, mod = opts.PandasColor, pandasModule
		}
		rules = append(rules,
			Rule{Scope: "support.function." + a.Library + ".alias." + a.Alias + ".python", Foreground: fn},
			Rule{Scope: "support.module." + a.Library + ".alias." + a.Alias + ".python", Foreground: mod},
		)
	}

	return rules
}

// DynamicAliases collects every alias bound to numpy or pandas across tables,
// skipping the excluded shorthands, ordered by alias then library.
func DynamicAliases(tables ...*pyimport.Table) []AliasRule {
	seen := map[AliasRule]struct{}{}
	for _, table := range tables {
		for _, b := range table.Bindings() {
			if IsExcludedAlias(b.Alias) {
				continue
			}

			var lib string
			switch {
			case pyimport.IsModule(b.Module, "numpy"):
				lib = "numpy"
			case pyimport.IsModule(b.Module, "pandas"):
				lib = "pandas"
			default:
				continue
			}
			seen[AliasRule{Alias: b.Alias, Library: lib}] = struct{}{}
		}
	}

	out := make([]AliasRule, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Alias != out[j].Alias {
			return out[i].Alias < out[j].Alias
		}
		return out[i].Library < out[j].Library
	})
	return out
}

func lightenOrKeep(hex string) string {
	lighter, err := Lighten(hex, ModuleLighten)
	if err != nil {
		return hex
	}
	return lighter
}
