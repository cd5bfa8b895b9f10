package apply

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/pyhighlight/pkg/settings"
)

func newFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p/main.py", []byte("import jax.numpy as jnp\nx = jnp.ones(2)\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/p/.vscode/settings.json", []byte(`{"editor.fontSize": 14}`), 0o644))
	return fs
}

func scopes(t *testing.T, fs afero.Fs) []string {
	t.Helper()
	blob, err := settings.NewFileStore(fs, "/p/.vscode/settings.json").Read(context.Background())
	require.NoError(t, err)
	var out []string
	for _, r := range blob.TextMateRules {
		out = append(out, r.Scope...)
	}
	return out
}

func TestDryRunDoesNotWrite(t *testing.T) {
	fs := newFs(t)
	me := &Handler{root: "/p", settingsFile: "/p/.vscode/settings.json", dryRun: true}

	var out bytes.Buffer
	require.NoError(t, me.Run(context.Background(), fs, nil, &out))

	assert.Contains(t, out.String(), "add:")
	assert.Contains(t, out.String(), "support.function.numpy.alias.jnp.python")
	assert.Empty(t, scopes(t, fs))
}

func TestApply(t *testing.T) {
	fs := newFs(t)
	me := &Handler{root: "/p", settingsFile: "/p/.vscode/settings.json"}

	var out bytes.Buffer
	require.NoError(t, me.Run(context.Background(), fs, nil, &out))
	assert.Contains(t, out.String(), "wrote 11 rules from 1 files")
	assert.Contains(t, scopes(t, fs), "support.module.numpy.alias.jnp.python")

	data, err := afero.ReadFile(fs, "/p/.vscode/settings.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"editor.fontSize": 14`)

	t.Run("second_run_is_a_no_op", func(t *testing.T) {
		out.Reset()
		require.NoError(t, me.Run(context.Background(), fs, nil, &out))
		assert.Equal(t, "/p/.vscode/settings.json is up to date\n", out.String())

		me.dryRun = true
		out.Reset()
		require.NoError(t, me.Run(context.Background(), fs, nil, &out))
		assert.Equal(t, "/p/.vscode/settings.json is up to date\n", out.String())
	})
}

func TestApplyStopsOnUnreadableFiles(t *testing.T) {
	fs := newFs(t)
	me := &Handler{root: "/p", settingsFile: "/p/.vscode/settings.json"}

	var out bytes.Buffer
	assert.Error(t, me.Run(context.Background(), fs, []string{"[a-"}, &out))
	assert.Empty(t, scopes(t, fs))
}
