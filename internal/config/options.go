package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CompileMode controls when the builder hands freshly created
// specializations to the inference hook.
type CompileMode string

const (
	// CompileOn infers every uncached specialization as it is built.
	CompileOn CompileMode = "on"
	// CompileOff never triggers inference from the dispatch path.
	CompileOff CompileMode = "off"
	// CompileAll additionally makes Precompile enumerate every definition.
	CompileAll CompileMode = "all"
	// CompileMin only infers specializations explicitly hinted.
	CompileMin CompileMode = "min"
)

// Options holds the tunable engine settings. The zero value is not usable;
// call DefaultOptions and override from fundis.yaml when present.
type Options struct {
	// Compile selects the inference trigger policy.
	Compile CompileMode `yaml:"compile"`

	// EagerAmbiguityPrinting emits a diagnostic for every ambiguous pair
	// discovered at definition time. Off by default: the ambiguity relation
	// is always recorded either way and surfaced on an ambiguous call.
	EagerAmbiguityPrinting bool `yaml:"eager_ambiguity_printing"`

	// OverwriteWarnings controls the method-overwritten diagnostic.
	OverwriteWarnings bool `yaml:"overwrite_warnings"`

	// TraceDispatch logs every slow-path dispatch under the dispatch
	// log section.
	TraceDispatch bool `yaml:"trace_dispatch"`
}

// DefaultOptions mirrors the engine's built-in tuning.
func DefaultOptions() Options {
	return Options{
		Compile:                CompileOn,
		EagerAmbiguityPrinting: false,
		OverwriteWarnings:      true,
		TraceDispatch:          false,
	}
}

// Load reads options from a YAML file, layered over the defaults.
func Load(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// LoadIfPresent behaves like Load but treats a missing file as defaults.
func LoadIfPresent(path string) (Options, error) {
	opts, err := Load(path)
	if os.IsNotExist(err) {
		return DefaultOptions(), nil
	}
	return opts, err
}

// Validate rejects unknown compile modes.
func (o Options) Validate() error {
	switch o.Compile {
	case CompileOn, CompileOff, CompileAll, CompileMin, "":
		return nil
	}
	return fmt.Errorf("unknown compile mode %q", o.Compile)
}
