package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"blend-lens/pkg/analyzer"
	"blend-lens/pkg/printer"

	"gopkg.in/yaml.v3"
)

// EnvFile names a config file used when no -config flag is given
const EnvFile = "BLEND_LENS_CONFIG"

// Config is read once at startup and not changed afterwards
type Config struct {
	Output     Output     `yaml:"output"`
	Log        Log        `yaml:"log"`
	Heuristics Heuristics `yaml:"heuristics"`
}

// Output selects the parts of the document
type Output struct {
	Types       bool `yaml:"types"`
	Data        bool `yaml:"data"`
	RawPointers bool `yaml:"raw_pointers"`
	BlockDigest bool `yaml:"block_digest"`
}

// Log holds the log level (debug, info, warn, error)
type Log struct {
	Level string `yaml:"level"`
}

// Heuristics overrides the field-name rules. A list given in the file
// replaces the built-in list entirely.
type Heuristics struct {
	StringContains []string `yaml:"string_contains"`
	StringEquals   []string `yaml:"string_equals"`
	StringSuffixes []string `yaml:"string_suffixes"`
	FlagContains   []string `yaml:"flag_contains"`
	PaddingPattern string   `yaml:"padding_pattern"`
}

// Defaults returns the configuration used without a file
func Defaults() Config {
	h := analyzer.DefaultHeuristics()
	return Config{
		Output: Output{Types: true, Data: true},
		Log:    Log{Level: "warn"},
		Heuristics: Heuristics{
			StringContains: h.StringContains,
			StringEquals:   h.StringEquals,
			StringSuffixes: h.StringSuffixes,
			FlagContains:   h.FlagContains,
			PaddingPattern: analyzer.DefaultPaddingPattern,
		},
	}
}

// Load reads a YAML file on top of Defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Defaults
func Parse(raw []byte) (Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve picks the config source: an explicit path, then $BLEND_LENS_CONFIG,
// then the defaults.
func Resolve(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv(EnvFile))
	}
	if path == "" {
		return Defaults(), nil
	}
	return Load(path)
}

// Validate checks values that would otherwise fail late
func (c Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: want debug, info, warn or error", c.Log.Level)
	}
	if _, err := c.heuristics(); err != nil {
		return err
	}
	return nil
}

// PrinterOptions converts the config into printer options
func (c Config) PrinterOptions() (printer.Options, error) {
	h, err := c.heuristics()
	if err != nil {
		return printer.Options{}, err
	}
	return printer.Options{
		TypeCatalog: c.Output.Types,
		Data:        c.Output.Data,
		RawPointers: c.Output.RawPointers,
		BlockDigest: c.Output.BlockDigest,
		Heuristics:  h,
	}, nil
}

func (c Config) heuristics() (*analyzer.Heuristics, error) {
	h := analyzer.DefaultHeuristics()
	h.StringContains = lower(c.Heuristics.StringContains)
	h.StringEquals = lower(c.Heuristics.StringEquals)
	h.StringSuffixes = lower(c.Heuristics.StringSuffixes)
	h.FlagContains = lower(c.Heuristics.FlagContains)
	if c.Heuristics.PaddingPattern != "" {
		if err := h.SetPaddingPattern(c.Heuristics.PaddingPattern); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func lower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
