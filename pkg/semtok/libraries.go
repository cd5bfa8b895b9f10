package semtok

import "strings"

var pandasClasses = map[string]struct{}{
	"DataFrame":   {},
	"Series":      {},
	"Index":       {},
	"Panel":       {},
	"TimeSeries":  {},
	"Categorical": {},
	"Timestamp":   {},
	"Timedelta":   {},
	"Period":      {},
	"Interval":    {},
}

var knownLibraries = []string{
	"matplotlib",
	"pyplot",
	"sklearn",
	"tensorflow",
	"torch",
	"pytorch",
}

// IsPandasClass reports whether name is one of the pandas type names that are
// highlighted as classes rather than functions.
func IsPandasClass(name string) bool {
	_, ok := pandasClasses[name]
	return ok
}

// IsKnownLibrary reports whether s mentions one of the tracked third party
// libraries (matplotlib, sklearn, torch, ...).
func IsKnownLibrary(s string) bool {
	for _, lib := range knownLibraries {
		if strings.Contains(s, lib) {
			return true
		}
	}
	return false
}
