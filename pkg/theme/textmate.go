package theme

import (
	"bytes"
	"encoding/json"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Scopes is a TextMate scope selector. Editors write it either as a single
// string or as a list of strings.
type Scopes []string

func (s Scopes) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

func (s *Scopes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return errors.Errorf("decoding scope: %w", err)
		}
		*s = Scopes{one}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.Errorf("decoding scope list: %w", err)
	}
	*s = many
	return nil
}

// Mentions reports whether any scope contains word.
func (s Scopes) Mentions(word string) bool {
	for _, scope := range s {
		if strings.Contains(scope, word) {
			return true
		}
	}
	return false
}

type TextMateSettings struct {
	Foreground string `json:"foreground,omitempty"`
	Background string `json:"background,omitempty"`
	FontStyle  string `json:"fontStyle,omitempty"`
}

// TextMateRule is one entry of an editor's textMateRules list. Rules read
// from disk keep their original bytes so rules we do not own round-trip
// unchanged.
type TextMateRule struct {
	Name     string           `json:"name,omitempty"`
	Scope    Scopes           `json:"scope"`
	Settings TextMateSettings `json:"settings"`

	raw json.RawMessage
}

type textMateRuleFields struct {
	Name     string           `json:"name,omitempty"`
	Scope    Scopes           `json:"scope"`
	Settings TextMateSettings `json:"settings"`
}

func (r *TextMateRule) UnmarshalJSON(data []byte) error {
	var f textMateRuleFields
	if err := json.Unmarshal(data, &f); err != nil {
		return errors.Errorf("decoding textMate rule: %w", err)
	}
	r.Name = f.Name
	r.Scope = f.Scope
	r.Settings = f.Settings
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (r TextMateRule) MarshalJSON() ([]byte, error) {
	if r.raw != nil {
		return r.raw, nil
	}
	return json.Marshal(textMateRuleFields{Name: r.Name, Scope: r.Scope, Settings: r.Settings})
}

// TextMate converts a rendered rule into its settings file form.
func (r Rule) TextMate() TextMateRule {
	return TextMateRule{
		Scope: Scopes{r.Scope},
		Settings: TextMateSettings{
			Foreground: r.Foreground,
			FontStyle:  r.FontStyle,
		},
	}
}

// Merge drops every existing rule whose scope mentions python, keeps the
// others in order and appends rules. Applying the same rules twice yields the
// same list.
func Merge(existing []TextMateRule, rules []Rule) []TextMateRule {
	out := make([]TextMateRule, 0, len(existing)+len(rules))
	for _, r := range existing {
		if r.Scope.Mentions("python") {
			continue
		}
		out = append(out, r)
	}
	for _, r := range rules {
		out = append(out, r.TextMate())
	}
	return out
}
