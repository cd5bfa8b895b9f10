// Package diff renders human readable line diffs.
package diff

import (
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/kylelemons/godebug/diff"
)

// Text returns a unified style diff turning before into after, or "" when
// they are equal.
func Text(before, after string) string {
	if before == after {
		return ""
	}
	return diff.Diff(before, after)
}

// Annotated is Text with a legend and marker glyphs, for terminal output.
func Annotated(before, after string) string {
	d := Text(before, after)
	if d == "" {
		return ""
	}
	str := "add:    ➕\n"
	str += "remove: ➖\n"
	str += "\n"
	str += strings.ReplaceAll(strings.ReplaceAll("\n"+d, "\n-", "\n➖"), "\n+", "\n➕")[1:]

	return str
}

// Values pretty prints both values and diffs them, ignoring unexported
// fields. Used for test failure messages.
func Values[T any](want T, got T) string {
	printer := pp.New()
	printer.SetExportedOnly(true)
	printer.SetColoringEnabled(false)
	d := Text(printer.Sprint(got), printer.Sprint(want))
	if d == "" {
		return ""
	}
	return "\n\nto convert ACTUAL ⏩️ EXPECTED:\n\n" + strings.ReplaceAll(strings.ReplaceAll(d, "\n-", "\n➖"), "\n+", "\n➕")
}
