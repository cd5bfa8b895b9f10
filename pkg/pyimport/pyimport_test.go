package pyimport_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/pyhighlight/pkg/pyimport"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected []pyimport.Binding
	}{
		{
			name: "import_as",
			line: "import numpy as np",
			expected: []pyimport.Binding{
				{Alias: "np", Module: "numpy", Kind: pyimport.ImportAs},
			},
		},
		{
			name: "import_dotted_as",
			line: "    import matplotlib.pyplot as plotting  ",
			expected: []pyimport.Binding{
				{Alias: "plotting", Module: "matplotlib.pyplot", Kind: pyimport.ImportAs},
			},
		},
		{
			name: "bare_import_uses_last_segment",
			line: "import os.path",
			expected: []pyimport.Binding{
				{Alias: "path", Module: "os.path", Kind: pyimport.ImportAs},
			},
		},
		{
			name: "bare_import_list",
			line: "import os, numpy as npy",
			expected: []pyimport.Binding{
				{Alias: "os", Module: "os", Kind: pyimport.ImportAs},
				{Alias: "npy", Module: "numpy", Kind: pyimport.ImportAs},
			},
		},
		{
			name: "from_import_list",
			line: "from numpy import array, zeros, ones",
			expected: []pyimport.Binding{
				{Alias: "array", Module: "numpy", Kind: pyimport.FromImport},
				{Alias: "zeros", Module: "numpy", Kind: pyimport.FromImport},
				{Alias: "ones", Module: "numpy", Kind: pyimport.FromImport},
			},
		},
		{
			name: "from_import_with_aliases",
			line: "from pandas import isna as is_nan, fillna as fill_missing",
			expected: []pyimport.Binding{
				{Alias: "is_nan", Module: "pandas", Kind: pyimport.FromImport},
				{Alias: "fill_missing", Module: "pandas", Kind: pyimport.FromImport},
			},
		},
		{
			name: "from_import_parenthesized_single_line",
			line: "from sklearn.metrics import (accuracy_score, f1_score)",
			expected: []pyimport.Binding{
				{Alias: "accuracy_score", Module: "sklearn.metrics", Kind: pyimport.FromImport},
				{Alias: "f1_score", Module: "sklearn.metrics", Kind: pyimport.FromImport},
			},
		},
		{
			name: "from_import_trailing_comment",
			line: "from torch import tensor as fire_tensor  # renamed",
			expected: []pyimport.Binding{
				{Alias: "fire_tensor", Module: "torch", Kind: pyimport.FromImport},
			},
		},
		{
			name:     "from_import_star_is_skipped",
			line:     "from numpy import *",
			expected: nil,
		},
		{
			name: "relative_from_import",
			line: "from .helpers import loadData",
			expected: []pyimport.Binding{
				{Alias: "loadData", Module: ".helpers", Kind: pyimport.FromImport},
			},
		},
		{
			name:     "not_an_import",
			line:     "important = importlib.import_module('x')",
			expected: nil,
		},
		{
			name: "import_list_with_aliases",
			line: "import numpy as np, pandas as pd",
			expected: []pyimport.Binding{
				{Alias: "np", Module: "numpy", Kind: pyimport.ImportAs},
				{Alias: "pd", Module: "pandas", Kind: pyimport.ImportAs},
			},
		},
		{
			name: "import_list_mixed",
			line: "import os, numpy as np",
			expected: []pyimport.Binding{
				{Alias: "os", Module: "os", Kind: pyimport.ImportAs},
				{Alias: "np", Module: "numpy", Kind: pyimport.ImportAs},
			},
		},
		{
			name:     "comment_line",
			line:     "# import numpy as np",
			expected: nil,
		},
		{
			name:     "malformed_import",
			line:     "import",
			expected: nil,
		},
		{
			name:     "empty",
			line:     "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pyimport.ParseLine(tt.line, 0)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("alias_and_from_import", func(t *testing.T) {
		table, err := pyimport.Resolve(ctx, "import numpy as np\nfrom numpy import array as arr\n")
		require.NoError(t, err)

		assert.Equal(t, []pyimport.Binding{
			{Alias: "arr", Module: "numpy", Kind: pyimport.FromImport, Line: 1},
			{Alias: "np", Module: "numpy", Kind: pyimport.ImportAs, Line: 0},
		}, table.Bindings())
	})

	t.Run("last_write_wins", func(t *testing.T) {
		table, err := pyimport.Resolve(ctx, "import numpy as x\nimport pandas as x")
		require.NoError(t, err)

		b, ok := table.Lookup("x")
		require.True(t, ok)
		assert.Equal(t, "pandas", b.Module)
		assert.Equal(t, 1, table.Len())
	})

	t.Run("crlf_lines", func(t *testing.T) {
		table, err := pyimport.Resolve(ctx, "import numpy as np\r\nimport pandas as pd\r\n")
		require.NoError(t, err)
		assert.Equal(t, []string{"np", "pd"}, table.Aliases())
	})

	t.Run("deterministic", func(t *testing.T) {
		src := "import numpy as np\nfrom pandas import DataFrame, read_csv\nimport torch\n"
		a, err := pyimport.Resolve(ctx, src)
		require.NoError(t, err)
		b, err := pyimport.Resolve(ctx, src)
		require.NoError(t, err)

		assert.True(t, a.Equal(b))
		assert.Equal(t, a.Bindings(), b.Bindings())
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		table, err := pyimport.Resolve(cctx, "import numpy as np")
		require.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, table)
		assert.Equal(t, 0, table.Len())
	})

	t.Run("empty_text", func(t *testing.T) {
		table, err := pyimport.Resolve(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, 0, table.Len())
	})
}

func TestTable(t *testing.T) {
	table := pyimport.NewTable()
	table.Bind(pyimport.Binding{Alias: "npy", Module: "numpy", Kind: pyimport.ImportAs})

	assert.Equal(t, "numpy", table.Module("npy"))
	assert.Equal(t, "scipy", table.Module("scipy"), "unbound names resolve to themselves")

	var nilTable *pyimport.Table
	_, ok := nilTable.Lookup("npy")
	assert.False(t, ok)
	assert.Equal(t, 0, nilTable.Len())

	other := pyimport.NewTable()
	other.Bind(pyimport.Binding{Alias: "npy", Module: "numpy", Kind: pyimport.ImportAs, Line: 12})
	assert.True(t, table.Equal(other), "declaration line does not affect equality")

	other.Bind(pyimport.Binding{Alias: "npy", Module: "numpy", Kind: pyimport.FromImport})
	assert.False(t, table.Equal(other))
}

func TestIsModule(t *testing.T) {
	assert.True(t, pyimport.IsModule("numpy", "numpy"))
	assert.True(t, pyimport.IsModule("jax.numpy", "numpy"))
	assert.False(t, pyimport.IsModule("numpyro", "numpy"))
	assert.False(t, pyimport.IsModule("numpy.linalg", "numpy"))
}
