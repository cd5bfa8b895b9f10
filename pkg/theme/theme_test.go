package theme_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/pyhighlight/pkg/config"
	"github.com/walteh/pyhighlight/pkg/pyimport"
	"github.com/walteh/pyhighlight/pkg/semtok"
	"github.com/walteh/pyhighlight/pkg/theme"
)

func TestLighten(t *testing.T) {
	tests := []struct {
		name    string
		hex     string
		amount  float64
		want    string
		wantErr bool
	}{
		{name: "zero_normalizes", hex: "#4EC9B0", amount: 0, want: "#4ec9b0"},
		{name: "short_form", hex: "#abc", amount: 0, want: "#aabbcc"},
		{name: "no_hash", hex: "102030", amount: 0.1, want: "#2a3a4a"},
		{name: "clamped", hex: "#4FC1FF", amount: 0.3, want: "#9cffff"},
		{name: "full", hex: "#000000", amount: 1, want: "#ffffff"},
		{name: "past_full", hex: "#123456", amount: 5, want: "#ffffff"},
		{name: "darken_clamps_at_zero", hex: "#101010", amount: -1, want: "#000000"},
		{name: "zero_padded", hex: "#000000", amount: 0.01, want: "#030303"},
		{name: "bad_length", hex: "#abcd", wantErr: true},
		{name: "bad_digit", hex: "#zzzzzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := theme.Lighten(tt.hex, tt.amount)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLightenMonotone(t *testing.T) {
	prev := [3]uint8{}
	for i := 0; i <= 20; i++ {
		hex, err := theme.Lighten("#4EC9B0", float64(i)/20)
		require.NoError(t, err)

		r, g, b, err := theme.ParseHex(hex)
		require.NoError(t, err)

		cur := [3]uint8{r, g, b}
		for c := range cur {
			assert.GreaterOrEqual(t, cur[c], prev[c], "channel %d at step %d", c, i)
		}
		prev = cur
	}
	assert.Equal(t, [3]uint8{255, 255, 255}, prev)
}

func mustTable(t *testing.T, src string) *pyimport.Table {
	t.Helper()
	table, err := pyimport.Resolve(context.Background(), src)
	require.NoError(t, err)
	return table
}

func TestRender(t *testing.T) {
	a := mustTable(t, "import numpy as np\nimport numpy as npy\nimport os\n")
	b := mustTable(t, "import pandas as dataframes\nfrom numpy import array as arr\nimport numpy as npy\n")

	rules := theme.Render(config.Default(), a, b)

	scopes := make([]string, 0, len(rules))
	for _, r := range rules {
		scopes = append(scopes, r.Scope)
	}

	assert.Equal(t, []string{
		"variable.other.camelcase.python",
		"entity.name.type.pascalcase.python",
		"support.module.numpy.python",
		"support.function.numpy.python",
		"support.module.pandas.python",
		"support.function.pandas.python",
		"support.class.pandas.python",
		"support.module.library.python",
		"support.function.library.python",
		"support.function.numpy.alias.arr.python",
		"support.module.numpy.alias.arr.python",
		"support.function.pandas.alias.dataframes.python",
		"support.module.pandas.alias.dataframes.python",
		"support.function.numpy.alias.npy.python",
		"support.module.numpy.alias.npy.python",
	}, scopes)

	assert.Equal(t, theme.Rule{Scope: "entity.name.type.pascalcase.python", Foreground: "#FF8C00", FontStyle: "bold"}, rules[1])
	assert.Equal(t, "#9cffff", rules[2].Foreground)
	assert.Equal(t, "italic", rules[5].FontStyle)
	assert.Equal(t, "bold", rules[6].FontStyle)
	assert.Equal(t, "#ffd3ff", rules[12].Foreground)

	assert.Equal(t, rules, theme.Render(config.Default(), a, b), "render is deterministic")
}

func TestRenderRespectsToggles(t *testing.T) {
	table := mustTable(t, "import numpy as npy\n")

	opts := config.Default()
	opts.EnableCamelCase = false
	opts.EnableLibraryFunctions = false

	rules := theme.Render(opts, table)
	require.Len(t, rules, 1)
	assert.Equal(t, theme.Scope(semtok.PascalCaseVar), rules[0].Scope)

	opts.EnablePascalCase = false
	assert.Empty(t, theme.Render(opts, table))
}

func TestRenderWithoutTables(t *testing.T) {
	rules := theme.Render(config.Default())
	assert.Len(t, rules, 9)
}

func TestDynamicAliasesExcludesShorthand(t *testing.T) {
	table := mustTable(t, `
import numpy as np
import pandas as pd
import numpy
import pandas
import matplotlib.pyplot as plt
import jax.numpy as jnp
`)
	assert.Equal(t, []theme.AliasRule{{Alias: "jnp", Library: "numpy"}}, theme.DynamicAliases(table))
}

func TestMerge(t *testing.T) {
	var existing []theme.TextMateRule
	require.NoError(t, json.Unmarshal([]byte(`[
		{"scope": "comment", "settings": {"foreground": "#6A9955"}, "comment": "kept verbatim"},
		{"scope": ["keyword.python", "storage"], "settings": {"foreground": "#000000"}},
		{"name": "stale", "scope": "support.function.numpy.python", "settings": {"foreground": "#111111"}}
	]`), &existing))

	rules := []theme.Rule{
		{Scope: "support.function.numpy.python", Foreground: "#4FC1FF"},
		{Scope: "support.class.pandas.python", Foreground: "#C586C0", FontStyle: "bold"},
	}

	merged := theme.Merge(existing, rules)
	require.Len(t, merged, 3)
	assert.Equal(t, theme.Scopes{"comment"}, merged[0].Scope)
	assert.Equal(t, theme.Scopes{"support.function.numpy.python"}, merged[1].Scope)
	assert.Equal(t, "#4FC1FF", merged[1].Settings.Foreground)

	t.Run("idempotent", func(t *testing.T) {
		again := theme.Merge(merged, rules)
		assert.Equal(t, merged, again)
	})

	t.Run("unrelated_rule_round_trips", func(t *testing.T) {
		out, err := json.Marshal(merged[0])
		require.NoError(t, err)
		assert.JSONEq(t, `{"scope": "comment", "settings": {"foreground": "#6A9955"}, "comment": "kept verbatim"}`, string(out))
	})

	t.Run("rendered_rule_shape", func(t *testing.T) {
		out, err := json.Marshal(merged[2])
		require.NoError(t, err)
		assert.JSONEq(t, `{"scope": "support.class.pandas.python", "settings": {"foreground": "#C586C0", "fontStyle": "bold"}}`, string(out))
	})
}

func TestScopesUnmarshal(t *testing.T) {
	var s theme.Scopes
	require.NoError(t, json.Unmarshal([]byte(`"a.python"`), &s))
	assert.Equal(t, theme.Scopes{"a.python"}, s)
	assert.True(t, s.Mentions("python"))

	require.NoError(t, json.Unmarshal([]byte(`["a", "b"]`), &s))
	assert.Equal(t, theme.Scopes{"a", "b"}, s)
	assert.False(t, s.Mentions("python"))

	assert.Error(t, json.Unmarshal([]byte(`12`), &s))
}
