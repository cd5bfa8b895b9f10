// Package settings reads and writes the editor's token color customizations.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/pyhighlight/pkg/theme"
)

// Key is the editor setting the rendered rules are written under.
const Key = "editor.tokenColorCustomizations"

const textMateRulesKey = "textMateRules"

// Blob is the token color customizations object. Keys other than
// textMateRules are kept as read.
type Blob struct {
	TextMateRules []theme.TextMateRule
	Other         map[string]json.RawMessage
}

func (b *Blob) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return errors.Errorf("decoding %s: %w", Key, err)
	}

	b.TextMateRules = nil
	if raw, ok := fields[textMateRulesKey]; ok {
		if err := json.Unmarshal(raw, &b.TextMateRules); err != nil {
			return errors.Errorf("decoding %s.%s: %w", Key, textMateRulesKey, err)
		}
		delete(fields, textMateRulesKey)
	}

	b.Other = fields
	return nil
}

func (b Blob) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(b.Other)+1)
	for k, v := range b.Other {
		fields[k] = v
	}

	rules := b.TextMateRules
	if rules == nil {
		rules = []theme.TextMateRule{}
	}
	raw, err := json.Marshal(rules)
	if err != nil {
		return nil, errors.Errorf("encoding %s: %w", textMateRulesKey, err)
	}
	fields[textMateRulesKey] = raw

	return json.Marshal(fields)
}

// Pretty returns the blob as indented JSON, the form diffs are computed on.
func (b *Blob) Pretty() (string, error) {
	if b == nil {
		b = &Blob{}
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return "", errors.Errorf("indenting %s: %w", Key, err)
	}
	return buf.String() + "\n", nil
}

// Store is where the customizations blob lives.
type Store interface {
	Read(ctx context.Context) (*Blob, error)
	Write(ctx context.Context, blob *Blob) error
}

// MemoryStore keeps the blob in memory. The zero value is ready to use.
type MemoryStore struct {
	mu     sync.Mutex
	blob   *Blob
	writes int
}

func (m *MemoryStore) Read(ctx context.Context) (*Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blob == nil {
		return &Blob{}, nil
	}
	cp := *m.blob
	return &cp, nil
}

func (m *MemoryStore) Write(ctx context.Context, blob *Blob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *blob
	m.blob = &cp
	m.writes++
	return nil
}

// Writes returns how many times Write was called.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
