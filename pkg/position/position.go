// Package position converts byte offsets to the column unit an editor expects.
//
// Spans are produced as byte offsets within a line. LSP clients count columns in
// UTF-16 code units unless they negotiate another encoding, and terminal output
// reads best in grapheme clusters.
package position

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/apparentlymart/go-textseg/v15/textseg"
	"gitlab.com/tozd/go/errors"
)

// Encoding is the unit columns and lengths are counted in.
type Encoding string

const (
	UTF8     Encoding = "utf-8"
	UTF16    Encoding = "utf-16"
	UTF32    Encoding = "utf-32"
	Grapheme Encoding = "grapheme"
)

func ParseEncoding(s string) (Encoding, error) {
	switch enc := Encoding(strings.ToLower(strings.TrimSpace(s))); enc {
	case UTF8, UTF16, UTF32, Grapheme:
		return enc, nil
	case "":
		return UTF16, nil
	default:
		return "", errors.Errorf("unknown position encoding %q (use utf-8, utf-16, utf-32 or grapheme)", s)
	}
}

// Negotiate picks the encoding for an LSP session from the encodings the
// client offered. UTF-8 needs no conversion so it wins when offered; with no
// usable offer the protocol default UTF-16 applies.
func Negotiate(offered []string) Encoding {
	var sawUTF32 bool
	for _, o := range offered {
		switch Encoding(o) {
		case UTF8:
			return UTF8
		case UTF32:
			sawUTF32 = true
		}
	}
	if sawUTF32 {
		return UTF32
	}
	return UTF16
}

// Width returns the length of s in enc units.
func Width(s string, enc Encoding) int {
	switch enc {
	case UTF8:
		return len(s)
	case UTF32:
		return utf8.RuneCountInString(s)
	case Grapheme:
		n, err := textseg.TokenCount([]byte(s), textseg.ScanGraphemeClusters)
		if err != nil {
			return utf8.RuneCountInString(s)
		}
		return n
	default:
		n := 0
		for _, r := range s {
			n += utf16Len(r)
		}
		return n
	}
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

// Column converts a byte offset within line to a column in enc units.
// Offsets outside the line are clamped.
func Column(line string, byteOffset int, enc Encoding) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset > len(line) {
		byteOffset = len(line)
	}
	return Width(line[:byteOffset], enc)
}

// ByteOffset converts a column in enc units back to a byte offset within line.
// A column that lands inside a multi-unit character resolves to the start of
// the next character. Columns past the end clamp to len(line).
func ByteOffset(line string, col int, enc Encoding) int {
	if col <= 0 {
		return 0
	}

	switch enc {
	case UTF8:
		if col > len(line) {
			return len(line)
		}
		return col
	case Grapheme:
		data := []byte(line)
		off, n := 0, 0
		for off < len(data) && n < col {
			adv, _, err := textseg.ScanGraphemeClusters(data[off:], true)
			if err != nil || adv <= 0 {
				break
			}
			off += adv
			n++
		}
		return off
	}

	n := 0
	for i, r := range line {
		if n >= col {
			return i
		}
		if enc == UTF32 {
			n++
		} else {
			n += utf16Len(r)
		}
	}
	return len(line)
}

// Place is a zero based line and column.
type Place struct {
	Line      int `json:"line" yaml:"line"`
	Character int `json:"character" yaml:"character"`
}

func (p Place) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// Range is a half open region between two places.
type Range struct {
	Start Place `json:"start" yaml:"start"`
	End   Place `json:"end" yaml:"end"`
}

// Offset returns the byte offset of p within text, where p.Character is
// counted in enc units. Lines past the end clamp to len(text).
func Offset(text string, p Place, enc Encoding) int {
	offset := 0
	for line := 0; line < p.Line; line++ {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return len(text)
		}
		offset += nl + 1
	}

	rest := text[offset:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return offset + ByteOffset(strings.TrimSuffix(rest, "\r"), p.Character, enc)
}

// Splice replaces the text covered by r with replacement.
func Splice(text string, r Range, replacement string, enc Encoding) string {
	start := Offset(text, r.Start, enc)
	end := Offset(text, r.End, enc)
	if end < start {
		end = start
	}
	return text[:start] + replacement + text[end:]
}
