// Package config holds the highlighter options and loads them from config
// files or from language server settings payloads.
package config

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/walteh/pyhighlight/pkg/semtok"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// Namespace is the settings section the language server listens to.
const Namespace = "pythonHighlighter"

const (
	DefaultCamelCaseColor  = "#4EC9B0"
	DefaultPascalCaseColor = "#FF8C00"
	DefaultNumpyColor      = "#4FC1FF"
	DefaultPandasColor     = "#C586C0"
	DefaultLibraryColor    = "#DCDCAA"
)

var hexColorRe = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// 🎨 Options controls which categories are highlighted and in which colors
type Options struct {
	EnableCamelCase        bool   `json:"enableCamelCase" yaml:"enableCamelCase" toml:"enableCamelCase"`
	EnablePascalCase       bool   `json:"enablePascalCase" yaml:"enablePascalCase" toml:"enablePascalCase"`
	EnableLibraryFunctions bool   `json:"enableLibraryFunctions" yaml:"enableLibraryFunctions" toml:"enableLibraryFunctions"`
	CamelCaseColor         string `json:"camelCaseColor" yaml:"camelCaseColor" toml:"camelCaseColor"`
	PascalCaseColor        string `json:"pascalCaseColor" yaml:"pascalCaseColor" toml:"pascalCaseColor"`
	NumpyColor             string `json:"numpyColor" yaml:"numpyColor" toml:"numpyColor"`
	PandasColor            string `json:"pandasColor" yaml:"pandasColor" toml:"pandasColor"`
	LibraryColor           string `json:"libraryColor" yaml:"libraryColor" toml:"libraryColor"`
	AutoApplySettings      bool   `json:"autoApplySettings" yaml:"autoApplySettings" toml:"autoApplySettings"`
}

func Default() Options {
	return Options{
		EnableCamelCase:        true,
		EnablePascalCase:       true,
		EnableLibraryFunctions: true,
		CamelCaseColor:         DefaultCamelCaseColor,
		PascalCaseColor:        DefaultPascalCaseColor,
		NumpyColor:             DefaultNumpyColor,
		PandasColor:            DefaultPandasColor,
		LibraryColor:           DefaultLibraryColor,
		AutoApplySettings:      true,
	}
}

// Enabled reports whether spans of category c should be shown.
func (o Options) Enabled(c semtok.Category) bool {
	switch c {
	case semtok.CamelCaseVar:
		return o.EnableCamelCase
	case semtok.PascalCaseVar:
		return o.EnablePascalCase
	default:
		return o.EnableLibraryFunctions
	}
}

// Validate checks every color is a #rgb or #rrggbb hex string.
func (o Options) Validate() error {
	var result *multierror.Error
	for _, c := range []struct{ name, value string }{
		{"camelCaseColor", o.CamelCaseColor},
		{"pascalCaseColor", o.PascalCaseColor},
		{"numpyColor", o.NumpyColor},
		{"pandasColor", o.PandasColor},
		{"libraryColor", o.LibraryColor},
	} {
		if !hexColorRe.MatchString(c.value) {
			result = multierror.Append(result, errors.Errorf("%s: %q is not a hex color", c.name, c.value))
		}
	}
	return result.ErrorOrNil()
}

// overlay is the on-disk shape. Every field is optional; unset fields keep
// the value of the Options the overlay is applied to.
type overlay struct {
	EnableCamelCase        *bool   `json:"enableCamelCase,omitempty" yaml:"enableCamelCase,omitempty" toml:"enableCamelCase,omitempty" hcl:"enable_camel_case,optional"`
	EnablePascalCase       *bool   `json:"enablePascalCase,omitempty" yaml:"enablePascalCase,omitempty" toml:"enablePascalCase,omitempty" hcl:"enable_pascal_case,optional"`
	EnableLibraryFunctions *bool   `json:"enableLibraryFunctions,omitempty" yaml:"enableLibraryFunctions,omitempty" toml:"enableLibraryFunctions,omitempty" hcl:"enable_library_functions,optional"`
	CamelCaseColor         *string `json:"camelCaseColor,omitempty" yaml:"camelCaseColor,omitempty" toml:"camelCaseColor,omitempty" hcl:"camel_case_color,optional"`
	PascalCaseColor        *string `json:"pascalCaseColor,omitempty" yaml:"pascalCaseColor,omitempty" toml:"pascalCaseColor,omitempty" hcl:"pascal_case_color,optional"`
	NumpyColor             *string `json:"numpyColor,omitempty" yaml:"numpyColor,omitempty" toml:"numpyColor,omitempty" hcl:"numpy_color,optional"`
	PandasColor            *string `json:"pandasColor,omitempty" yaml:"pandasColor,omitempty" toml:"pandasColor,omitempty" hcl:"pandas_color,optional"`
	LibraryColor           *string `json:"libraryColor,omitempty" yaml:"libraryColor,omitempty" toml:"libraryColor,omitempty" hcl:"library_color,optional"`
	AutoApplySettings      *bool   `json:"autoApplySettings,omitempty" yaml:"autoApplySettings,omitempty" toml:"autoApplySettings,omitempty" hcl:"auto_apply_settings,optional"`
}

func (ov overlay) apply(o Options) Options {
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	setBool(&o.EnableCamelCase, ov.EnableCamelCase)
	setBool(&o.EnablePascalCase, ov.EnablePascalCase)
	setBool(&o.EnableLibraryFunctions, ov.EnableLibraryFunctions)
	setString(&o.CamelCaseColor, ov.CamelCaseColor)
	setString(&o.PascalCaseColor, ov.PascalCaseColor)
	setString(&o.NumpyColor, ov.NumpyColor)
	setString(&o.PandasColor, ov.PandasColor)
	setString(&o.LibraryColor, ov.LibraryColor)
	setBool(&o.AutoApplySettings, ov.AutoApplySettings)
	return o
}

// 📝 Load reads options from path on fsys (supports YAML, HCL, TOML and JSON).
// Fields missing from the file keep their defaults.
func Load(fsys afero.Fs, path string) (Options, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return Options{}, errors.Errorf("reading config file: %w", err)
	}

	ov, err := decode(path, data)
	if err != nil {
		return Options{}, err
	}

	opts := ov.apply(Default())
	if err := opts.Validate(); err != nil {
		return Options{}, errors.Errorf("validating %s: %w", path, err)
	}
	return opts, nil
}

func decode(path string, data []byte) (overlay, error) {
	var ov overlay

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&ov); err != nil {
			return ov, errors.Errorf("parsing YAML: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &ov)
		if err != nil {
			return ov, errors.Errorf("parsing TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return ov, errors.Errorf("parsing TOML: unknown keys %v", undecoded)
		}
	case ".json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&ov); err != nil {
			return ov, errors.Errorf("parsing JSON: %w", err)
		}
	case ".hcl":
		parser := hclparse.NewParser()
		hclFile, diags := parser.ParseHCL(data, path)
		if diags.HasErrors() {
			return ov, errors.Errorf("parsing HCL: %s", diags.Error())
		}

		if diags := gohcl.DecodeBody(hclFile.Body, evalContext(), &ov); diags.HasErrors() {
			return ov, errors.Errorf("decoding HCL: %s", diags.Error())
		}
	default:
		return ov, errors.Errorf("unsupported config format %q (use .yaml, .yml, .hcl, .toml or .json)", filepath.Ext(path))
	}

	return ov, nil
}

// evalContext exposes the default palette to HCL files as defaults.<name>,
// so a file can write numpy_color = defaults.pandas_color.
func evalContext() *hcl.EvalContext {
	d := Default()
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"defaults": cty.ObjectVal(map[string]cty.Value{
				"camel_case_color":  cty.StringVal(d.CamelCaseColor),
				"pascal_case_color": cty.StringVal(d.PascalCaseColor),
				"numpy_color":       cty.StringVal(d.NumpyColor),
				"pandas_color":      cty.StringVal(d.PandasColor),
				"library_color":     cty.StringVal(d.LibraryColor),
			}),
		},
	}
}

// FromSettings applies a settings section (the JSON object stored under
// Namespace) on top of base. Unknown keys are ignored since editors send
// their own fields alongside ours. A null or empty payload returns base.
func FromSettings(base Options, raw []byte) (Options, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return base, nil
	}

	var ov overlay
	if err := json.Unmarshal(trimmed, &ov); err != nil {
		return base, errors.Errorf("decoding %s settings: %w", Namespace, err)
	}

	opts := ov.apply(base)
	if err := opts.Validate(); err != nil {
		return base, errors.Errorf("validating %s settings: %w", Namespace, err)
	}
	return opts, nil
}
