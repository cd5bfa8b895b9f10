package semtok_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/pyhighlight/pkg/pyimport"
	"github.com/walteh/pyhighlight/pkg/semtok"
)

/*
Test Organization:
----------------
Each test group focuses on a single pass, then the passes are combined:

    +----------------+
    |  Test Groups   |
    +----------------+
           |
    +------+-------+
    |              |
 Single         Combined
 Pass           Lines
    |              |
 Naming       Precedence
 Qualified    Skipped lines
 Direct       Whole documents
*/

func mustTable(t *testing.T, src string) *pyimport.Table {
	t.Helper()
	table, err := pyimport.Resolve(context.Background(), src)
	require.NoError(t, err)
	return table
}

func span(start, length int, cat semtok.Category) semtok.Span {
	return semtok.Span{Line: 0, Start: start, Length: length, Category: cat}
}

func TestNamingSpans(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []semtok.Span
	}{
		{
			name:     "camel_case_assignment",
			input:    "myValue = 5",
			expected: []semtok.Span{span(0, 7, semtok.CamelCaseVar)},
		},
		{
			name:     "pascal_case_class",
			input:    "class MyClass:",
			expected: []semtok.Span{span(6, 7, semtok.PascalCaseVar)},
		},
		{
			name:     "single_hump_is_not_pascal",
			input:    "Foo = 1",
			expected: nil,
		},
		{
			name:     "all_lower_is_ignored",
			input:    "result = value",
			expected: nil,
		},
		{
			name:  "camel_and_pascal_on_one_line",
			input: "dataProcessingPipeline = NeuralNetworkArchitecture()",
			expected: []semtok.Span{
				span(0, 22, semtok.CamelCaseVar),
				span(25, 25, semtok.PascalCaseVar),
			},
		},
		{
			name:     "snake_case_is_ignored",
			input:    "my_value = other_value",
			expected: nil,
		},
		{
			name:     "acronym_prefix_is_not_pascal",
			input:    "HTTPServer = None",
			expected: nil,
		},
		{
			name:     "camel_after_underscore_prefix",
			input:    "self._myValue = 1",
			expected: []semtok.Span{span(6, 7, semtok.CamelCaseVar)},
		},
		{
			name:     "camel_after_snake_segment",
			input:    "get_userName()",
			expected: []semtok.Span{span(4, 8, semtok.CamelCaseVar)},
		},
		{
			name:     "leading_underscore",
			input:    "_cacheSize = 0",
			expected: []semtok.Span{span(1, 9, semtok.CamelCaseVar)},
		},
		{
			name:     "acronym_then_hump_is_pascal",
			input:    "XMLHttpRequest = 1",
			expected: []semtok.Span{span(0, 14, semtok.PascalCaseVar)},
		},
		{
			name:     "digit_is_not_lowercase",
			input:    "V2Config = 1",
			expected: nil,
		},
		{
			name:     "letters_and_digits_only",
			input:    "A1B = 2",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := semtok.NamingSpans(tt.input, 0)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestClassifyLine(t *testing.T) {
	table := mustTable(t, `
import numpy as np
import numpy as npy
import pandas as pd
import matplotlib.pyplot as plt
import torch as fire
from numpy import array, zeros
from pandas import read_csv, DataFrame
from sklearn import metrics as performance
from collections import OrderedDict
`)

	tests := []struct {
		name     string
		input    string
		expected []semtok.Span
	}{
		{
			name:  "numpy_alias_call",
			input: "result = np.array([1,2])",
			expected: []semtok.Span{
				span(9, 2, semtok.NumpyModule),
				span(12, 5, semtok.NumpyFunction),
			},
		},
		{
			name:  "custom_numpy_alias_nested_call",
			input: "custom_random = npy.random.uniform(0, 1, 50)",
			expected: []semtok.Span{
				span(16, 3, semtok.NumpyModule),
				span(20, 6, semtok.NumpyFunction),
			},
		},
		{
			name:  "pandas_class",
			input: "df = pd.DataFrame({'A': [1, 2, 3]})",
			expected: []semtok.Span{
				span(5, 2, semtok.PandasModule),
				span(8, 9, semtok.PascalCaseVar),
				span(8, 9, semtok.PandasClass),
			},
		},
		{
			name:  "pandas_function",
			input: "csv_data = pd.read_csv('data.csv')",
			expected: []semtok.Span{
				span(11, 2, semtok.PandasModule),
				span(14, 8, semtok.PandasFunction),
			},
		},
		{
			name:  "library_by_module_path",
			input: "plt.plot(x)",
			expected: []semtok.Span{
				span(0, 3, semtok.LibraryModule),
				span(4, 4, semtok.LibraryFunction),
			},
		},
		{
			name:  "library_by_alias_text",
			input: "model = torch.nn.Linear(3, 1)",
			expected: []semtok.Span{
				span(8, 5, semtok.LibraryModule),
				span(14, 2, semtok.LibraryFunction),
			},
		},
		{
			name:  "renamed_library_module",
			input: "t = fire.tensor([1])",
			expected: []semtok.Span{
				span(4, 4, semtok.LibraryModule),
				span(9, 6, semtok.LibraryFunction),
			},
		},
		{
			name:     "untracked_module_call",
			input:    "os.path.join(a, b)",
			expected: nil,
		},
		{
			name:  "direct_numpy_call",
			input: "x = array([1, 2])",
			expected: []semtok.Span{
				span(4, 5, semtok.NumpyFunction),
			},
		},
		{
			name:  "direct_pandas_call",
			input: "frame = read_csv('a.csv')",
			expected: []semtok.Span{
				span(8, 8, semtok.PandasFunction),
			},
		},
		{
			name:  "direct_pandas_type_is_a_function_and_pascal",
			input: "frame = DataFrame()",
			expected: []semtok.Span{
				span(8, 9, semtok.PascalCaseVar),
				span(8, 9, semtok.PandasFunction),
			},
		},
		{
			name:  "direct_library_call",
			input: "score = performance(y, p)",
			expected: []semtok.Span{
				span(8, 11, semtok.LibraryFunction),
			},
		},
		{
			name:  "direct_call_from_untracked_module",
			input: "d = OrderedDict()",
			expected: []semtok.Span{
				span(4, 11, semtok.PascalCaseVar),
			},
		},
		{
			name:  "method_named_like_import_is_not_direct",
			input: "obj.zeros(3)",
			expected: nil,
		},
		{
			name:  "two_calls_one_line",
			input: "x = np.zeros(3) + zeros(2)",
			expected: []semtok.Span{
				span(4, 2, semtok.NumpyModule),
				span(7, 5, semtok.NumpyFunction),
				span(18, 5, semtok.NumpyFunction),
			},
		},
		{
			name:     "comment_line_skipped",
			input:    "    # np.array(myValue)",
			expected: nil,
		},
		{
			name:     "docstring_line_skipped",
			input:    `"""np.array(myValue)"""`,
			expected: nil,
		},
		{
			name:     "single_quote_docstring_skipped",
			input:    "'''MyClass'''",
			expected: nil,
		},
		{
			name:  "unbalanced_quotes_do_not_break_scan",
			input: `s = "np.array(`,
			expected: []semtok.Span{
				span(5, 2, semtok.NumpyModule),
				span(8, 5, semtok.NumpyFunction),
			},
		},
		{
			name:     "blank",
			input:    "   ",
			expected: nil,
		},
		{
			name:     "empty",
			input:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := semtok.ClassifyLine(tt.input, 0, table)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestUnboundModuleNamesResolveToThemselves(t *testing.T) {
	got := semtok.ClassifyLine("numpy.mean(x)", 3, pyimport.NewTable())
	assert.Equal(t, []semtok.Span{
		{Line: 3, Start: 0, Length: 5, Category: semtok.NumpyModule},
		{Line: 3, Start: 6, Length: 4, Category: semtok.NumpyFunction},
	}, got)

	got = semtok.ClassifyLine("np.mean(x)", 0, nil)
	assert.Nil(t, got, "np is only numpy when it was imported as numpy")
}

func TestClassifyText(t *testing.T) {
	ctx := context.Background()
	src := "import numpy as np\n\nmyData = np.ones(3)\n# np.zeros(1)\n"

	table := mustTable(t, src)

	spans, err := semtok.ClassifyText(ctx, src, table)
	require.NoError(t, err)

	assert.Equal(t, []semtok.Span{
		{Line: 2, Start: 0, Length: 6, Category: semtok.CamelCaseVar},
		{Line: 2, Start: 9, Length: 2, Category: semtok.NumpyModule},
		{Line: 2, Start: 12, Length: 4, Category: semtok.NumpyFunction},
	}, spans)

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		spans, err := semtok.ClassifyText(cctx, src, table)
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, spans)
	})
}

func TestClassifyTextIsDeterministic(t *testing.T) {
	ctx := context.Background()
	src := "import numpy as np\nfrom pandas import DataFrame, read_csv\nimport torch\n\nself._rawData = read_csv('a.csv')\nmyArray = np.zeros(3)\nframe = DataFrame()\n"

	tableA, err := pyimport.Resolve(ctx, src)
	require.NoError(t, err)
	tableB, err := pyimport.Resolve(ctx, src)
	require.NoError(t, err)
	require.True(t, tableA.Equal(tableB))

	spansA, err := semtok.ClassifyText(ctx, src, tableA)
	require.NoError(t, err)
	spansB, err := semtok.ClassifyText(ctx, src, tableB)
	require.NoError(t, err)

	assert.NotEmpty(t, spansA)
	assert.Equal(t, spansA, spansB)
}

func TestFilter(t *testing.T) {
	spans := []semtok.Span{
		span(0, 2, semtok.CamelCaseVar),
		span(3, 2, semtok.NumpyModule),
	}

	got := semtok.Filter(spans, func(c semtok.Category) bool { return c != semtok.CamelCaseVar })
	assert.Equal(t, []semtok.Span{span(3, 2, semtok.NumpyModule)}, got)
}

func TestLegend(t *testing.T) {
	legend := semtok.Legend()
	require.Len(t, legend, len(semtok.Categories()))

	for _, c := range semtok.Categories() {
		assert.Equal(t, c.String(), legend[c])
	}

	text, err := semtok.PandasClass.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "pandasClass", string(text))

	_, err = semtok.Category(99).MarshalText()
	assert.Error(t, err)
}
