// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package density estimates per-gene insertion density relative to the
// local insertion rate of the surrounding genome.
package density

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kortschak/tnseq/genome"
	"github.com/kortschak/tnseq/insertion"
)

var (
	// ErrWindow is returned for a non-positive window width.
	ErrWindow = errors.New("density: window width must be positive")

	// ErrMargin is returned when the central region margin is outside [0, 0.5).
	ErrMargin = errors.New("density: margin out of range")
)

// Params holds the local density estimation parameters.
type Params struct {
	// Window is the width of the centered rolling window
	// in base pairs.
	Window int

	// Margin is the fraction of gene length excluded from each
	// end of a gene as an insertion target. It must match the
	// margin used to annotate the insertions.
	Margin float64

	// MaxIndex is the largest insertion index considered
	// reliable.
	MaxIndex float64
}

// DefaultParams are the conventional density parameters.
var DefaultParams = Params{Window: 20000, Margin: 0.1, MaxIndex: 100}

// Stats holds the insertion statistics of a single gene.
type Stats struct {
	Gene *genome.Gene

	// Total and Central are the raw gene insertion counts.
	Total   int
	Central int

	// Window is the number of central insertions in the
	// local window and Span is the window width.
	Window int
	Span   int

	// Index is the ratio of the gene's central insertion
	// density to the local window density. It is zero for
	// genes without central insertions.
	Index float64

	// Probability is the binomial probability of observing
	// at most Central insertions given the local window
	// count. It is one when the window is empty.
	Probability float64

	// Unreliable marks an Index above the reliability limit.
	Unreliable bool
}

// Length returns the length of the gene.
func (s Stats) Length() int { return s.Gene.Len() }

// Fittable returns whether the gene's index may contribute to the
// genome-wide index distribution. Genes in windows without central
// insertions and genes with unreliable indices are excluded.
func (s Stats) Fittable() bool { return s.Window > 0 && !s.Unreliable }

// Estimate returns the insertion statistics for every gene of a, in the
// order of a.Genes.
func Estimate(a *insertion.Annotation, idx *genome.Index, p Params) ([]Stats, error) {
	if p.Window <= 0 {
		return nil, ErrWindow
	}
	if p.Margin < 0 || p.Margin >= 0.5 {
		return nil, ErrMargin
	}

	stats := make([]Stats, len(a.Genes))
	for i, c := range a.Genes {
		r := idx.Replicon(c.Gene.Replicon.ID)
		stats[i] = EstimateGene(c, a.CentralPositions(r.ID), r.Length, p)
	}
	return stats, nil
}

// EstimateGene returns the insertion statistics for the gene counted in c
// given the sorted central insertion positions of its replicon and the
// replicon length.
//
// The local window is centered on the gene midpoint and is shifted to
// lie within the replicon when the gene is near an end. Windows are
// widened to cover genes longer than the window, and replicons shorter
// than the window are used whole.
func EstimateGene(c insertion.Counts, positions []int, length int, p Params) Stats {
	g := c.Gene
	lo, hi := window(g, length, p.Window)
	n := sort.SearchInts(positions, hi) - sort.SearchInts(positions, lo)

	s := Stats{
		Gene:        g,
		Total:       c.Total,
		Central:     c.Central,
		Window:      n,
		Span:        hi - lo,
		Probability: 1,
	}
	if n == 0 {
		return s
	}

	if c.Central != 0 {
		geneDensity := float64(c.Central) / float64(g.Len())
		localDensity := float64(n) / float64(s.Span)
		s.Index = geneDensity / localDensity
		s.Unreliable = s.Index > p.MaxIndex
	}

	target := (1 - 2*p.Margin) * float64(g.Len()) / float64(s.Span)
	if target > 1 {
		target = 1
	}
	s.Probability = distuv.Binomial{N: float64(n), P: target}.CDF(float64(c.Central))
	return s
}

// window returns the half-open local window for g.
func window(g *genome.Gene, length, width int) (lo, hi int) {
	if length < g.FeatEnd+1 {
		length = g.FeatEnd + 1
	}
	if width >= length {
		return 0, length
	}
	lo = g.Midpoint() - width/2
	hi = lo + width
	switch {
	case lo < 0:
		lo, hi = 0, width
	case hi > length:
		lo, hi = length-width, length
	}
	if g.FeatStart < lo {
		lo = g.FeatStart
	}
	if g.FeatEnd+1 > hi {
		hi = g.FeatEnd + 1
	}
	return lo, hi
}
