// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/check.v1"

	"github.com/kortschak/tnseq"
	"github.com/kortschak/tnseq/mixture"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func (s *S) TestDefaults(c *check.C) {
	cfg, err := Load("", nil)
	c.Assert(err, check.IsNil)
	c.Check(cfg.Validate(), check.IsNil)
	c.Check(cfg.Analysis, check.Equals, AnalysisConfig{Window: 20000, NoiseFloor: 1, Margin: 0.1, MaxIndex: 100})
	c.Check(cfg.Fit, check.Equals, FitConfig{Cutoff: 3, Ratio: 5, MinGenes: 10, Bins: 30, Refine: 4, Smooth: 5, Grid: 0.001, Method: "mle"})
	c.Check(cfg.Classify, check.Equals, ClassifyConfig{Probability: 0.1, BlockGap: 0})
	c.Check(cfg.Logging, check.Equals, LoggingConfig{Level: "info", Format: "text"})
	c.Check(cfg.Input.Format, check.Equals, "tsv")

	c.Check(cfg.Params(), check.DeepEquals, tnseq.DefaultParams())
}

const yamlConfig = `
input:
  genes: genes.gff
  format: gff
analysis:
  window: 10000
  margin: 0.05
fit:
  method: moments
  bins: 40
classify:
  block_gap: 200
logging:
  format: json
`

func (s *S) TestLoadFileEnvFlags(c *check.C) {
	path := filepath.Join(c.MkDir(), "tnseq.yaml")
	err := os.WriteFile(path, []byte(yamlConfig), 0o644)
	c.Assert(err, check.IsNil)

	os.Setenv("TNSEQ_FIT_RATIO", "8")
	os.Setenv("TNSEQ_ANALYSIS_WINDOW", "12000")
	defer os.Unsetenv("TNSEQ_FIT_RATIO")
	defer os.Unsetenv("TNSEQ_ANALYSIS_WINDOW")

	fs := Flags("test")
	err = fs.Parse([]string{"--window", "15000", "--pool", "pool.tsv"})
	c.Assert(err, check.IsNil)

	cfg, err := Load(path, fs)
	c.Assert(err, check.IsNil)
	c.Check(cfg.Validate(), check.IsNil)

	c.Check(cfg.Input.Genes, check.Equals, "genes.gff")
	c.Check(cfg.Input.Format, check.Equals, "gff")
	c.Check(cfg.Input.Feature, check.Equals, "gene")
	c.Check(cfg.Input.Pool, check.Equals, "pool.tsv")

	// Set flags take precedence over the environment,
	// which takes precedence over the file.
	c.Check(cfg.Analysis.Window, check.Equals, 15000)
	c.Check(cfg.Fit.Ratio, check.Equals, 8.0)
	c.Check(cfg.Analysis.Margin, check.Equals, 0.05)
	c.Check(cfg.Fit.Bins, check.Equals, 40)
	c.Check(cfg.Classify.BlockGap, check.Equals, 200)
	c.Check(cfg.Logging.Format, check.Equals, "json")

	p := cfg.Params()
	c.Check(p.Insertion.Margin, check.Equals, 0.05)
	c.Check(p.Density.Margin, check.Equals, 0.05)
	c.Check(p.Density.Window, check.Equals, 15000)
	c.Check(p.BlockGap, check.Equals, 200)
	c.Check(p.Strategy, check.Equals, mixture.Strategy(mixture.Moments{Histogram: mixture.Histogram{Bins: 40, Refine: 4, Smooth: 5}}))
}

func (s *S) TestLoadMissingFile(c *check.C) {
	_, err := Load(filepath.Join(c.MkDir(), "absent.yaml"), nil)
	c.Check(err, check.NotNil)
}

func (s *S) TestValidate(c *check.C) {
	for i, t := range []struct {
		mutate func(*Config)
		want   string
	}{
		{func(c *Config) { c.Input.Format = "bed" }, "input.format must be one of: tsv, gff"},
		{func(c *Config) { c.Input.Format, c.Input.Feature = "gff", "" }, "input.feature is required for gff input"},
		{func(c *Config) { c.Analysis.Window = 999 }, "analysis.window must be between 1000 and 1000000"},
		{func(c *Config) { c.Analysis.Window = 2000000 }, "analysis.window must be between 1000 and 1000000"},
		{func(c *Config) { c.Analysis.NoiseFloor = -1 }, "analysis.noise_floor must not be negative"},
		{func(c *Config) { c.Analysis.Margin = 0.5 }, "analysis.margin must be at least 0 and less than 0.5"},
		{func(c *Config) { c.Analysis.MaxIndex = 0 }, "analysis.max_index must be positive"},
		{func(c *Config) { c.Fit.Cutoff = 0 }, "fit.cutoff must be positive"},
		{func(c *Config) { c.Fit.Ratio = 1 }, "fit.ratio must be greater than 1"},
		{func(c *Config) { c.Fit.MinGenes = 0 }, "fit.min_genes must be at least 1"},
		{func(c *Config) { c.Fit.Bins = 2 }, "fit.bins must be at least 3"},
		{func(c *Config) { c.Fit.Refine = 0 }, "fit.refine must be at least 1"},
		{func(c *Config) { c.Fit.Smooth = 0 }, "fit.smooth must be at least 1"},
		{func(c *Config) { c.Fit.Grid = 3 }, "fit.grid must be positive and less than fit.cutoff"},
		{func(c *Config) { c.Fit.Method = "em" }, "fit.method must be one of: mle, moments"},
		{func(c *Config) { c.Classify.Probability = 0 }, "classify.probability must be greater than 0 and at most 1"},
		{func(c *Config) { c.Classify.BlockGap = -1 }, "classify.block_gap must not be negative"},
		{func(c *Config) { c.Logging.Level = "trace" }, "logging.level must be one of: debug, info, warn, error"},
		{func(c *Config) { c.Logging.Format = "xml" }, "logging.format must be one of: json, text"},
	} {
		cfg, err := Load("", nil)
		c.Assert(err, check.IsNil)
		t.mutate(cfg)
		c.Check(cfg.Validate(), check.ErrorMatches, t.want, check.Commentf("Test %d", i))
	}
}

func (s *S) TestYAMLRoundTrip(c *check.C) {
	fs := Flags("test")
	err := fs.Parse([]string{"--genes", "genes.tsv", "--method", "moments", "--block-gap", "50", "--db", "runs.db"})
	c.Assert(err, check.IsNil)
	want, err := Load("", fs)
	c.Assert(err, check.IsNil)

	b, err := want.YAML()
	c.Assert(err, check.IsNil)
	path := filepath.Join(c.MkDir(), "tnseq.yaml")
	err = os.WriteFile(path, b, 0o644)
	c.Assert(err, check.IsNil)

	got, err := Load(path, nil)
	c.Assert(err, check.IsNil)
	c.Check(got, check.DeepEquals, want)
}
