/*
Package semtok classifies identifier occurrences in Python source lines.

🎨 Classification Overview:
--------------------------
Every line is scanned on its own, with no state carried between lines or
between passes. Three named passes run over a line and each returns its own
spans:

	      line + alias table
	              |
	   +----------+-----------+
	   |          |           |
	   v          v           v
	+--------+ +---------+ +--------+
	| naming | |qualified| | direct |
	|  scan  | |  calls  | | calls  |
	+--------+ +---------+ +--------+
	   |          |           |
	   +----------+-----------+
	              |
	            merge
	              |
	              v
	        []Span (sorted)

1. Naming scan
  - camelCase identifiers  -> camelCaseVar
  - PascalCase identifiers -> pascalCaseVar (needs an inner case change, so Foo is skipped)

2. Qualified calls (np.array(...), pd.DataFrame(...))
  - module token is resolved through the alias table
  - numpy  -> numpyModule + numpyFunction
  - pandas -> pandasModule + pandasClass | pandasFunction
  - matplotlib, sklearn, torch, ... -> libraryModule + libraryFunction

3. Direct calls (array(...), read_csv(...))
  - only names bound by `from X import Y`

When a qualified span and a direct span start at the same offset the
qualified one is kept.

Columns are byte offsets into the line. Use package position to convert them
to the unit the editor expects.

Example Usage:
-------------

	table, _ := pyimport.Resolve(ctx, text)
	spans, err := semtok.ClassifyText(ctx, text, table)
	if err != nil {
	    return err
	}
	// Use spans...
*/
package semtok
