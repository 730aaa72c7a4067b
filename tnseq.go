// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tnseq classifies genes as essential, ambiguous or non-essential
// from pooled transposon insertion sequencing data.
//
// Insertions are assigned to genes, the density of insertions in the
// central region of each gene is compared with the density in a window
// around the gene, and the genome-wide distribution of the resulting
// insertion indices is fitted with a two component mixture to obtain the
// thresholds used to label each gene.
package tnseq

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kortschak/tnseq/density"
	"github.com/kortschak/tnseq/essential"
	"github.com/kortschak/tnseq/genome"
	"github.com/kortschak/tnseq/insertion"
	"github.com/kortschak/tnseq/mixture"
)

// Params holds the parameters for an analysis.
type Params struct {
	Insertion insertion.Params
	Density   density.Params
	Fit       mixture.Params
	Strategy  mixture.Strategy

	// Probability is the insertion probability at or above
	// which an essential call is downgraded to ambiguous.
	Probability float64

	// BlockGap is the largest separation joining neighbouring
	// essential genes into a block. Zero places no limit.
	BlockGap int
}

// DefaultParams returns the conventional analysis parameters.
func DefaultParams() Params {
	return Params{
		Insertion:   insertion.DefaultParams,
		Density:     density.DefaultParams,
		Fit:         mixture.DefaultParams,
		Strategy:    mixture.MaximumLikelihood{Histogram: mixture.DefaultHistogram},
		Probability: essential.DefaultProbability,
	}
}

// ErrMarginMismatch is returned when the insertion and density central
// region margins differ.
var ErrMarginMismatch = errors.New("tnseq: insertion and density margins differ")

// Result holds the products of an analysis.
type Result struct {
	Annotation *insertion.Annotation
	Stats      []density.Stats

	// Indices are the insertion indices of the
	// fittable genes.
	Indices []float64

	Model      *mixture.Model
	Thresholds essential.Thresholds
	Genes      []essential.Gene
	Blocks     []essential.Block
}

// Analyze annotates the insertions in pool against the genes in idx,
// estimates the insertion statistics of every gene, fits the insertion
// index distribution and classifies the genes.
//
// If the mixture fit fails, the returned Result holds the annotation and
// statistics, no genes are labelled and the fit error is returned.
func Analyze(idx *genome.Index, pool []insertion.Record, p Params, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p.Insertion.Margin != p.Density.Margin {
		return nil, ErrMarginMismatch
	}
	if p.Strategy == nil {
		p.Strategy = mixture.MaximumLikelihood{Histogram: mixture.DefaultHistogram}
	}

	a, err := insertion.Annotate(pool, idx, p.Insertion, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("annotated insertions",
		zap.Int("records", len(pool)),
		zap.Int("discarded", a.Discarded),
		zap.Int("duplicates", a.Duplicates),
		zap.Int("ambiguous", a.Ambiguous),
		zap.Int("unplaced", a.Unplaced),
		zap.Int("hits", len(a.Hits)),
		zap.Int("central", a.Central()),
		zap.Int("intergenic", a.Intergenic()),
	)

	stats, err := density.Estimate(a, idx, p.Density)
	if err != nil {
		return nil, err
	}
	res := &Result{Annotation: a, Stats: stats}
	var empty, unreliable int
	for _, s := range stats {
		switch {
		case s.Window == 0:
			empty++
		case s.Unreliable:
			unreliable++
		default:
			res.Indices = append(res.Indices, s.Index)
		}
	}
	logger.Info("estimated insertion indices",
		zap.Int("genes", len(stats)),
		zap.Int("fittable", len(res.Indices)),
		zap.Int("empty_window", empty),
		zap.Int("unreliable", unreliable),
	)

	m, err := mixture.Fit(res.Indices, p.Strategy, p.Fit)
	if err != nil {
		return res, fmt.Errorf("tnseq: failed to fit index distribution: %w", err)
	}
	res.Model = m
	res.Thresholds = essential.Thresholds{Lower: m.Lower, Upper: m.Upper}
	logger.Info("fitted index distribution",
		zap.Float64("separation", m.Separation),
		zap.Float64("f1", m.F1),
		zap.Float64("f2", m.F2),
		zap.Float64("exponential_rate", m.Exponential.Rate),
		zap.Float64("gamma_shape", m.Gamma.Alpha),
		zap.Float64("gamma_rate", m.Gamma.Beta),
		zap.Float64("lower", m.Lower),
		zap.Float64("upper", m.Upper),
	)

	res.Genes, err = essential.ClassifyAll(stats, res.Thresholds, p.Probability)
	if err != nil {
		return res, err
	}
	res.Blocks = essential.Blocks(res.Genes, p.BlockGap)
	n := essential.Count(res.Genes)
	logger.Info("classified genes",
		zap.Int(essential.Essential.String(), n[essential.Essential]),
		zap.Int(essential.Ambiguous.String(), n[essential.Ambiguous]),
		zap.Int(essential.NonEssential.String(), n[essential.NonEssential]),
		zap.Int(essential.Unclassified.String(), n[essential.Unclassified]),
		zap.Int("blocks", len(res.Blocks)),
	)
	return res, nil
}
