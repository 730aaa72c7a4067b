// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads tnseq analysis configuration from files,
// environment variables and command line flags.
//
// Settings are resolved in order of decreasing precedence from set
// command line flags, TNSEQ_ prefixed environment variables with dots
// replaced by underscores, the configuration file and the defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/kortschak/tnseq"
	"github.com/kortschak/tnseq/density"
	"github.com/kortschak/tnseq/essential"
	"github.com/kortschak/tnseq/insertion"
	"github.com/kortschak/tnseq/mixture"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "TNSEQ"

// Config is the complete analysis configuration.
type Config struct {
	Input    InputConfig    `mapstructure:"input" yaml:"input"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Fit      FitConfig      `mapstructure:"fit" yaml:"fit"`
	Classify ClassifyConfig `mapstructure:"classify" yaml:"classify"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
}

// InputConfig holds the input file paths.
type InputConfig struct {
	Genes   string `mapstructure:"genes" yaml:"genes"`
	Format  string `mapstructure:"format" yaml:"format"`
	Feature string `mapstructure:"feature" yaml:"feature"`
	Lengths string `mapstructure:"lengths" yaml:"lengths"`
	Pool    string `mapstructure:"pool" yaml:"pool"`
}

// AnalysisConfig holds insertion aggregation and density settings.
type AnalysisConfig struct {
	Window     int     `mapstructure:"window" yaml:"window"`
	NoiseFloor int     `mapstructure:"noise_floor" yaml:"noise_floor"`
	Margin     float64 `mapstructure:"margin" yaml:"margin"`
	MaxIndex   float64 `mapstructure:"max_index" yaml:"max_index"`
}

// FitConfig holds the index distribution fitting settings.
type FitConfig struct {
	Cutoff   float64 `mapstructure:"cutoff" yaml:"cutoff"`
	Ratio    float64 `mapstructure:"ratio" yaml:"ratio"`
	MinGenes int     `mapstructure:"min_genes" yaml:"min_genes"`
	Bins     int     `mapstructure:"bins" yaml:"bins"`
	Refine   int     `mapstructure:"refine" yaml:"refine"`
	Smooth   int     `mapstructure:"smooth" yaml:"smooth"`
	Grid     float64 `mapstructure:"grid" yaml:"grid"`
	Method   string  `mapstructure:"method" yaml:"method"`
}

// ClassifyConfig holds the classification settings.
type ClassifyConfig struct {
	Probability float64 `mapstructure:"probability" yaml:"probability"`
	BlockGap    int     `mapstructure:"block_gap" yaml:"block_gap"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// OutputConfig holds output file paths. Empty paths are not written,
// except Table where empty means standard output.
type OutputConfig struct {
	Table   string `mapstructure:"table" yaml:"table"`
	GFF     string `mapstructure:"gff" yaml:"gff"`
	Blocks  string `mapstructure:"blocks" yaml:"blocks"`
	Summary string `mapstructure:"summary" yaml:"summary"`
	DB      string `mapstructure:"db" yaml:"db"`
	Plot    string `mapstructure:"plot" yaml:"plot"`
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"genes":       "input.genes",
	"format":      "input.format",
	"feature":     "input.feature",
	"lengths":     "input.lengths",
	"pool":        "input.pool",
	"window":      "analysis.window",
	"noise-floor": "analysis.noise_floor",
	"margin":      "analysis.margin",
	"max-index":   "analysis.max_index",
	"cutoff":      "fit.cutoff",
	"ratio":       "fit.ratio",
	"min-genes":   "fit.min_genes",
	"method":      "fit.method",
	"probability": "classify.probability",
	"block-gap":   "classify.block_gap",
	"log-level":   "logging.level",
	"log-format":  "logging.format",
	"out":         "output.table",
	"gff":         "output.gff",
	"blocks":      "output.blocks",
	"summary":     "output.summary",
	"db":          "output.db",
	"plot":        "output.plot",
}

// Flags returns a flag set holding the command line flags understood
// by Load. The flag defaults match the configuration defaults.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "specify configuration file")
	fs.String("genes", "", "specify gene table file (required)")
	fs.String("format", "tsv", "specify gene table format (tsv or gff)")
	fs.String("feature", "gene", "specify gff feature type to read as genes")
	fs.String("lengths", "", "specify replicon length table")
	fs.String("pool", "", "specify insertion pool table (required)")
	fs.Int("window", density.DefaultParams.Window, "specify local density window width")
	fs.Int("noise-floor", insertion.DefaultParams.NoiseFloor, "specify largest discarded read count")
	fs.Float64("margin", insertion.DefaultParams.Margin, "specify excluded fraction at each gene end")
	fs.Float64("max-index", density.DefaultParams.MaxIndex, "specify largest reliable insertion index")
	fs.Float64("cutoff", mixture.DefaultParams.Cutoff, "specify index fit cutoff")
	fs.Float64("ratio", mixture.DefaultParams.Ratio, "specify ambiguous zone likelihood ratio")
	fs.Int("min-genes", mixture.DefaultParams.MinGenes, "specify minimum subpopulation size")
	fs.String("method", "mle", "specify fit method (mle or moments)")
	fs.Float64("probability", essential.DefaultProbability, "specify insertion probability downgrading essential calls")
	fs.Int("block-gap", 0, "specify largest gap joining essential genes (0 for no limit)")
	fs.String("log-level", "info", "specify logging level")
	fs.String("log-format", "text", "specify logging format (text or json)")
	fs.String("out", "", "specify gene table output file (default stdout)")
	fs.String("gff", "", "specify labelled gff output file")
	fs.String("blocks", "", "specify essential block table output file")
	fs.String("summary", "", "specify insertion class summary output file")
	fs.String("db", "", "specify sqlite results database")
	fs.String("plot", "", "specify index distribution plot file (.png, .svg or .pdf)")
	return fs
}

// Load reads configuration from the file at path, if path is not
// empty, the environment and the set flags in fs, if fs is not nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			err := v.BindPFlag(key, f)
			if err != nil {
				return nil, fmt.Errorf("failed to bind flag %q: %w", name, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.genes", "")
	v.SetDefault("input.format", "tsv")
	v.SetDefault("input.feature", "gene")
	v.SetDefault("input.lengths", "")
	v.SetDefault("input.pool", "")

	v.SetDefault("analysis.window", density.DefaultParams.Window)
	v.SetDefault("analysis.noise_floor", insertion.DefaultParams.NoiseFloor)
	v.SetDefault("analysis.margin", insertion.DefaultParams.Margin)
	v.SetDefault("analysis.max_index", density.DefaultParams.MaxIndex)

	v.SetDefault("fit.cutoff", mixture.DefaultParams.Cutoff)
	v.SetDefault("fit.ratio", mixture.DefaultParams.Ratio)
	v.SetDefault("fit.min_genes", mixture.DefaultParams.MinGenes)
	v.SetDefault("fit.bins", mixture.DefaultHistogram.Bins)
	v.SetDefault("fit.refine", mixture.DefaultHistogram.Refine)
	v.SetDefault("fit.smooth", mixture.DefaultHistogram.Smooth)
	v.SetDefault("fit.grid", mixture.DefaultParams.Grid)
	v.SetDefault("fit.method", "mle")

	v.SetDefault("classify.probability", essential.DefaultProbability)
	v.SetDefault("classify.block_gap", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("output.table", "")
	v.SetDefault("output.gff", "")
	v.SetDefault("output.blocks", "")
	v.SetDefault("output.summary", "")
	v.SetDefault("output.db", "")
	v.SetDefault("output.plot", "")
}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	switch c.Input.Format {
	case "tsv", "gff":
	default:
		return fmt.Errorf("input.format must be one of: tsv, gff")
	}
	if c.Input.Format == "gff" && c.Input.Feature == "" {
		return fmt.Errorf("input.feature is required for gff input")
	}

	if c.Analysis.Window < 1000 || c.Analysis.Window > 1000000 {
		return fmt.Errorf("analysis.window must be between 1000 and 1000000")
	}
	if c.Analysis.NoiseFloor < 0 {
		return fmt.Errorf("analysis.noise_floor must not be negative")
	}
	if c.Analysis.Margin < 0 || c.Analysis.Margin >= 0.5 {
		return fmt.Errorf("analysis.margin must be at least 0 and less than 0.5")
	}
	if !(c.Analysis.MaxIndex > 0) {
		return fmt.Errorf("analysis.max_index must be positive")
	}

	if !(c.Fit.Cutoff > 0) {
		return fmt.Errorf("fit.cutoff must be positive")
	}
	if !(c.Fit.Ratio > 1) {
		return fmt.Errorf("fit.ratio must be greater than 1")
	}
	if c.Fit.MinGenes < 1 {
		return fmt.Errorf("fit.min_genes must be at least 1")
	}
	if c.Fit.Bins < 3 {
		return fmt.Errorf("fit.bins must be at least 3")
	}
	if c.Fit.Refine < 1 {
		return fmt.Errorf("fit.refine must be at least 1")
	}
	if c.Fit.Smooth < 1 {
		return fmt.Errorf("fit.smooth must be at least 1")
	}
	if !(c.Fit.Grid > 0) || c.Fit.Grid >= c.Fit.Cutoff {
		return fmt.Errorf("fit.grid must be positive and less than fit.cutoff")
	}
	switch c.Fit.Method {
	case "mle", "moments":
	default:
		return fmt.Errorf("fit.method must be one of: mle, moments")
	}

	if !(c.Classify.Probability > 0) || c.Classify.Probability > 1 {
		return fmt.Errorf("classify.probability must be greater than 0 and at most 1")
	}
	if c.Classify.BlockGap < 0 {
		return fmt.Errorf("classify.block_gap must not be negative")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// YAML returns the YAML encoding of c, suitable for use as a
// configuration file.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Params returns the analysis parameters described by c.
func (c *Config) Params() tnseq.Params {
	h := mixture.Histogram{Bins: c.Fit.Bins, Refine: c.Fit.Refine, Smooth: c.Fit.Smooth}
	var s mixture.Strategy = mixture.MaximumLikelihood{Histogram: h}
	if c.Fit.Method == "moments" {
		s = mixture.Moments{Histogram: h}
	}
	return tnseq.Params{
		Insertion: insertion.Params{
			NoiseFloor: c.Analysis.NoiseFloor,
			Margin:     c.Analysis.Margin,
		},
		Density: density.Params{
			Window:   c.Analysis.Window,
			Margin:   c.Analysis.Margin,
			MaxIndex: c.Analysis.MaxIndex,
		},
		Fit: mixture.Params{
			Cutoff:   c.Fit.Cutoff,
			Ratio:    c.Fit.Ratio,
			MinGenes: c.Fit.MinGenes,
			Grid:     c.Fit.Grid,
		},
		Strategy:    s,
		Probability: c.Classify.Probability,
		BlockGap:    c.Classify.BlockGap,
	}
}
