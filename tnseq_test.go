// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tnseq

import (
	"errors"
	"fmt"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/check.v1"

	"github.com/kortschak/tnseq/essential"
	"github.com/kortschak/tnseq/genome"
	"github.com/kortschak/tnseq/insertion"
	"github.com/kortschak/tnseq/mixture"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

const (
	nGenes  = 1000
	geneLen = 1000
)

// library returns a single replicon of abutting 1kb genes, every fifth of
// which is essential, and a pool of insertions into their central regions.
// Essential genes receive insertions at two percent of the background
// rate and non-essential genes at a gamma distributed multiple of it.
func library(c *check.C, seed uint64) (*genome.Index, []insertion.Record, map[string]bool) {
	src := rand.NewSource(seed)
	rnd := rand.New(src)
	rate := distuv.Gamma{Alpha: 3, Beta: 3, Src: src}

	chr := &genome.Replicon{ID: "chr", Length: nGenes * geneLen}
	var (
		genes []*genome.Gene
		pool  []insertion.Record
	)
	truth := make(map[string]bool)
	for i := 0; i < nGenes; i++ {
		g := &genome.Gene{
			LocusTag:  fmt.Sprintf("g%04d", i),
			Replicon:  chr,
			FeatStart: i * geneLen,
			FeatEnd:   (i+1)*geneLen - 1,
		}
		genes = append(genes, g)

		lambda := 40.0
		if i%5 == 0 {
			truth[g.LocusTag] = true
			lambda *= 0.02
		} else {
			lambda *= rate.Rand()
		}
		k := int(distuv.Poisson{Lambda: lambda, Src: src}.Rand())
		for j := 0; j < k; j++ {
			pool = append(pool, insertion.Record{
				Barcode:  fmt.Sprintf("bc%d", len(pool)),
				Replicon: chr.ID,
				Pos:      g.FeatStart + 150 + rnd.Intn(700),
				Reads:    2 + rnd.Intn(20),
			})
		}
	}
	idx, err := genome.NewIndex(genes, nil)
	c.Assert(err, check.IsNil)
	return idx, pool, truth
}

func (s *S) TestAnalyze(c *check.C) {
	for _, seed := range []uint64{1, 2} {
		idx, pool, truth := library(c, seed)
		res, err := Analyze(idx, pool, DefaultParams(), nil)
		c.Assert(err, check.IsNil, check.Commentf("seed %d", seed))

		c.Check(res.Stats, check.HasLen, nGenes)
		c.Check(res.Genes, check.HasLen, nGenes)
		c.Check(res.Thresholds.Lower < res.Thresholds.Upper, check.Equals, true)
		c.Check(res.Thresholds.Lower, check.Equals, res.Model.Lower)

		label := make(map[*genome.Gene]essential.Label)
		var ess, essCalled, non, nonCalled int
		for _, g := range res.Genes {
			label[g.Gene] = g.Label
			if truth[g.Gene.LocusTag] {
				ess++
				if g.Label == essential.Essential || g.Label == essential.Ambiguous {
					essCalled++
				}
			} else {
				non++
				if g.Label == essential.NonEssential {
					nonCalled++
				}
			}
		}
		c.Check(float64(essCalled)/float64(ess) > 0.95, check.Equals, true, check.Commentf("seed %d: %d of %d essential", seed, essCalled, ess))
		c.Check(float64(nonCalled)/float64(non) > 0.8, check.Equals, true, check.Commentf("seed %d: %d of %d non-essential", seed, nonCalled, non))

		// Every block is made of essential genes.
		for _, b := range res.Blocks {
			for _, g := range b.Genes {
				c.Check(label[g], check.Equals, essential.Essential)
			}
		}
	}
}

func (s *S) TestAnalyzeUnimodal(c *check.C) {
	// Uniform insertion density gives no low index population.
	chr := &genome.Replicon{ID: "chr", Length: 100 * geneLen}
	var (
		genes []*genome.Gene
		pool  []insertion.Record
	)
	for i := 0; i < 100; i++ {
		g := &genome.Gene{LocusTag: fmt.Sprint(i), Replicon: chr, FeatStart: i * geneLen, FeatEnd: (i+1)*geneLen - 1}
		genes = append(genes, g)
		for j := 0; j < 20; j++ {
			pool = append(pool, insertion.Record{
				Barcode:  fmt.Sprintf("%d-%d", i, j),
				Replicon: "chr",
				Pos:      g.FeatStart + 150 + j*35,
				Reads:    5,
			})
		}
	}
	idx, err := genome.NewIndex(genes, nil)
	c.Assert(err, check.IsNil)

	res, err := Analyze(idx, pool, DefaultParams(), nil)
	c.Check(errors.Is(err, mixture.ErrUnimodal), check.Equals, true, check.Commentf("%v", err))
	c.Assert(res, check.NotNil)
	c.Check(res.Stats, check.HasLen, 100)
	c.Check(res.Genes, check.IsNil)
	c.Check(res.Model, check.IsNil)
}

func (s *S) TestAnalyzeMarginMismatch(c *check.C) {
	idx, pool, _ := library(c, 1)
	p := DefaultParams()
	p.Density.Margin = 0.2
	_, err := Analyze(idx, pool, p, nil)
	c.Check(err, check.Equals, ErrMarginMismatch)
}
