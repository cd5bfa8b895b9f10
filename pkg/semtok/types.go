/*
Categories and Spans:
--------------------
This file defines the core types produced by the classifier.

	+-------------+     +-----------------+
	|  Category   | --> |      Span       |
	+-------------+     +-----------------+
	      |                     |
	      v                     v
	[camelCaseVar,       [Line, Start, Length]
	 numpyModule,         byte offsets in the
	 pandasClass,         line
	 etc.]

The numeric value of a Category is its index in the semantic token legend.
*/
package semtok

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// Category is the semantic meaning of a span.
type Category uint32

const (
	// CamelCaseVar is an identifier like myValue
	CamelCaseVar Category = iota
	// PascalCaseVar is an identifier like MyClass
	PascalCaseVar
	NumpyModule
	NumpyFunction
	PandasModule
	PandasFunction
	PandasClass
	LibraryModule
	LibraryFunction
)

var categoryNames = [...]string{
	CamelCaseVar:    "camelCaseVar",
	PascalCaseVar:   "pascalCaseVar",
	NumpyModule:     "numpyModule",
	NumpyFunction:   "numpyFunction",
	PandasModule:    "pandasModule",
	PandasFunction:  "pandasFunction",
	PandasClass:     "pandasClass",
	LibraryModule:   "libraryModule",
	LibraryFunction: "libraryFunction",
}

// Categories returns every category in legend order.
func Categories() []Category {
	out := make([]Category, len(categoryNames))
	for i := range categoryNames {
		out[i] = Category(i)
	}
	return out
}

// Legend returns the category names in legend order.
func Legend() []string {
	return append([]string(nil), categoryNames[:]...)
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

func (c Category) MarshalText() ([]byte, error) {
	if int(c) >= len(categoryNames) {
		return nil, errors.Errorf("unknown category %d", uint32(c))
	}
	return []byte(c.String()), nil
}

// Span is one classified region of a line.
type Span struct {
	// Line is zero based
	Line int `json:"line" yaml:"line"`
	// Start is the byte offset of the region within the line
	Start    int      `json:"start" yaml:"start"`
	Length   int      `json:"length" yaml:"length"`
	Category Category `json:"category" yaml:"category"`
}

func (s Span) End() int {
	return s.Start + s.Length
}

// Text returns the part of line the span covers.
func (s Span) Text(line string) string {
	if s.Start < 0 || s.End() > len(line) {
		return ""
	}
	return line[s.Start:s.End()]
}

func (s Span) String() string {
	return fmt.Sprintf("%s@%d:%d+%d", s.Category, s.Line, s.Start, s.Length)
}
