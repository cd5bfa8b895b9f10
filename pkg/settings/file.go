package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// FileStore keeps the blob inside a JSON settings file such as
// .vscode/settings.json. Other top level settings are preserved; their key
// order is not.
type FileStore struct {
	Fs   afero.Fs
	Path string
}

func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{Fs: fs, Path: path}
}

func (f *FileStore) readTop() (map[string]json.RawMessage, error) {
	data, err := afero.ReadFile(f.Fs, f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, errors.Errorf("reading settings file %s: %w", f.Path, err)
	}

	top := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(data)) == 0 {
		return top, nil
	}
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errors.Errorf("parsing settings file %s: %w", f.Path, err)
	}
	if top == nil {
		top = map[string]json.RawMessage{}
	}
	return top, nil
}

// Read returns the stored blob, or an empty one when the file or key is missing.
func (f *FileStore) Read(ctx context.Context) (*Blob, error) {
	top, err := f.readTop()
	if err != nil {
		return nil, err
	}

	blob := &Blob{}
	raw, ok := top[Key]
	if !ok {
		return blob, nil
	}
	if err := json.Unmarshal(raw, blob); err != nil {
		return nil, errors.Errorf("reading %s from %s: %w", Key, f.Path, err)
	}
	return blob, nil
}

func (f *FileStore) Write(ctx context.Context, blob *Blob) error {
	top, err := f.readTop()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(blob)
	if err != nil {
		return errors.Errorf("encoding %s: %w", Key, err)
	}
	top[Key] = raw

	out, err := json.MarshalIndent(top, "", "    ")
	if err != nil {
		return errors.Errorf("encoding settings file: %w", err)
	}

	if err := f.Fs.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return errors.Errorf("creating settings directory: %w", err)
	}
	if err := afero.WriteFile(f.Fs, f.Path, append(out, '\n'), 0o644); err != nil {
		return errors.Errorf("writing settings file %s: %w", f.Path, err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", f.Path).Int("rules", len(blob.TextMateRules)).Msg("wrote settings")
	return nil
}
