// Package config loads tinypy settings from a TOML file layered over
// built-in defaults.
//
//	[builtins]
//	print = "printf"
//
//	[format]
//	integer = "%d"
//	float = "%f"
//	string = "%s"
//	separator = " "
//
//	[lowering]
//	int_width = 32
//	float_width = 32
//	printf_float_width = 64
//
//	[reduction]
//	policy = "skip"
//	operations = ["add", "mult"]
//
// TINYPY_CONFIG names the file when no path is given explicitly and
// TINYPY_REDUCTION_POLICY overrides the reduction policy of whatever was
// loaded.
package config

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/pelletier/go-toml"
	"github.com/xyproto/env/v2"

	"github.com/roach88/tinypy/internal/ir"
	"github.com/roach88/tinypy/internal/lower"
	"github.com/roach88/tinypy/internal/rewrite"
)

// Environment variables consulted by Resolve.
const (
	EnvConfig          = "TINYPY_CONFIG"
	EnvReductionPolicy = "TINYPY_REDUCTION_POLICY"
)

// Config is the resolved configuration.
type Config struct {
	// Builtins maps builtin call names to runtime symbols.
	Builtins  map[string]string
	Format    Format
	Lowering  Lowering
	Reduction Reduction

	// Source is the file the configuration was read from, empty for the
	// defaults.
	Source string
}

// Format holds the conversion markers used when synthesizing format
// strings for print.
type Format struct {
	Integer   string
	Float     string
	String    string
	Separator string
}

// Lowering holds literal and call widths.
type Lowering struct {
	IntWidth         int
	FloatWidth       int
	PrintfFloatWidth int
}

// Reduction configures the parallelize pass.
type Reduction struct {
	Policy     string
	Operations []string
}

// tomlFile is the config file as it is encoded in TOML. Pointers tell
// absent keys apart from zero values.
type tomlFile struct {
	Builtins  map[string]string `toml:"builtins"`
	Format    *tomlFormat       `toml:"format"`
	Lowering  *tomlLowering     `toml:"lowering"`
	Reduction *tomlReduction    `toml:"reduction"`
}

type tomlFormat struct {
	Integer   *string `toml:"integer"`
	Float     *string `toml:"float"`
	String    *string `toml:"string"`
	Separator *string `toml:"separator"`
}

type tomlLowering struct {
	IntWidth         *int `toml:"int_width"`
	FloatWidth       *int `toml:"float_width"`
	PrintfFloatWidth *int `toml:"printf_float_width"`
}

type tomlReduction struct {
	Policy     *string  `toml:"policy"`
	Operations []string `toml:"operations"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Builtins: map[string]string{"print": "printf"},
		Format: Format{
			Integer:   "%d",
			Float:     "%f",
			String:    "%s",
			Separator: " ",
		},
		Lowering: Lowering{
			IntWidth:         32,
			FloatWidth:       32,
			PrintfFloatWidth: 64,
		},
		Reduction: Reduction{
			Policy:     string(rewrite.PolicySkip),
			Operations: []string{"add", "mult"},
		},
	}
}

// Load reads the TOML file at path over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// Parse decodes TOML text over the defaults and validates the result.
func Parse(buf []byte) (*Config, error) {
	tf := &tomlFile{}
	if err := toml.Unmarshal(buf, tf); err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.overlay(tf)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve picks the configuration for a run: the file at path when given,
// else the file named by TINYPY_CONFIG, else the defaults. A set
// TINYPY_REDUCTION_POLICY replaces the reduction policy afterwards.
// The environment is re-read on every call.
func Resolve(path string) (*Config, error) {
	env.Load()
	if path == "" {
		path = env.Str(EnvConfig)
	}

	cfg := Default()
	if path != "" {
		var err error
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	if policy := env.Str(EnvReductionPolicy); policy != "" {
		cfg.Reduction.Policy = policy
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvReductionPolicy, err)
		}
	}
	return cfg, nil
}

func (c *Config) overlay(tf *tomlFile) {
	maps.Copy(c.Builtins, tf.Builtins)

	if f := tf.Format; f != nil {
		setString(&c.Format.Integer, f.Integer)
		setString(&c.Format.Float, f.Float)
		setString(&c.Format.String, f.String)
		setString(&c.Format.Separator, f.Separator)
	}

	if l := tf.Lowering; l != nil {
		setInt(&c.Lowering.IntWidth, l.IntWidth)
		setInt(&c.Lowering.FloatWidth, l.FloatWidth)
		setInt(&c.Lowering.PrintfFloatWidth, l.PrintfFloatWidth)
	}

	if r := tf.Reduction; r != nil {
		setString(&c.Reduction.Policy, r.Policy)
		if r.Operations != nil {
			c.Reduction.Operations = r.Operations
		}
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

var (
	reductionOps = []string{"add", "sub", "mult", "div"}
	floatWidths  = []int{16, 32, 64}
)

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	for name, sym := range c.Builtins {
		if name == "" || sym == "" {
			return &ValidationError{Field: "builtins", Message: fmt.Sprintf("empty entry %q = %q", name, sym)}
		}
	}

	if c.Format.Integer == "" {
		return &ValidationError{Field: "format.integer", Message: "marker must not be empty"}
	}
	if c.Format.Float == "" {
		return &ValidationError{Field: "format.float", Message: "marker must not be empty"}
	}
	if c.Format.String == "" {
		return &ValidationError{Field: "format.string", Message: "marker must not be empty"}
	}

	if w := c.Lowering.IntWidth; w < 1 || w > 64 {
		return &ValidationError{Field: "lowering.int_width", Message: fmt.Sprintf("width %d out of range 1..64", w)}
	}
	if !slices.Contains(floatWidths, c.Lowering.FloatWidth) {
		return &ValidationError{Field: "lowering.float_width", Message: fmt.Sprintf("width %d not one of %v", c.Lowering.FloatWidth, floatWidths)}
	}
	if !slices.Contains(floatWidths, c.Lowering.PrintfFloatWidth) {
		return &ValidationError{Field: "lowering.printf_float_width", Message: fmt.Sprintf("width %d not one of %v", c.Lowering.PrintfFloatWidth, floatWidths)}
	}

	if _, err := rewrite.ParsePolicy(c.Reduction.Policy); err != nil {
		return &ValidationError{Field: "reduction.policy", Message: err.Error()}
	}
	for _, op := range c.Reduction.Operations {
		if !slices.Contains(reductionOps, op) {
			return &ValidationError{Field: "reduction.operations", Message: fmt.Sprintf("unknown operation %q (want one of %v)", op, reductionOps)}
		}
	}
	return nil
}

// IntType is the type of integer literals.
func (c *Config) IntType() ir.Type { return ir.IntType(c.Lowering.IntWidth) }

// FloatType is the type of float literals.
func (c *Config) FloatType() ir.Type { return ir.FloatType(c.Lowering.FloatWidth) }

// Policy returns the parsed reduction policy. The config must be valid.
func (c *Config) Policy() rewrite.Policy {
	p, _ := rewrite.ParsePolicy(c.Reduction.Policy)
	return p
}

// LowerBuiltins converts the config into the lowering builtin table.
func (c *Config) LowerBuiltins() lower.Builtins {
	b := lower.DefaultBuiltins()
	b.Symbols = maps.Clone(c.Builtins)
	b.Markers = map[ir.TypeKind]string{
		ir.IntegerKind: c.Format.Integer,
		ir.FloatKind:   c.Format.Float,
	}
	b.StringMarker = c.Format.String
	b.Separator = c.Format.Separator
	b.FloatWidth = c.Lowering.PrintfFloatWidth
	return b
}

// ValidationError reports an invalid config value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
