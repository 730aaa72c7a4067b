// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mixture

import (
	"errors"
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

// bimodal returns n near-zero values drawn from an exponential with
// rate 50 and n values drawn from a gamma with shape 3 and rate 3.
func bimodal(n int, seed uint64) []float64 {
	src := rand.NewSource(seed)
	low := distuv.Exponential{Rate: 50, Src: src}
	high := distuv.Gamma{Alpha: 3, Beta: 3, Src: src}
	x := make([]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		x = append(x, low.Rand())
	}
	for i := 0; i < n; i++ {
		x = append(x, high.Rand())
	}
	return x
}

func within(got, want, frac float64) bool {
	return math.Abs(got-want) <= frac*want
}

func (s *S) TestFitSynthetic(c *check.C) {
	for _, seed := range []uint64{1, 2, 3} {
		x := bimodal(500, seed)
		m, err := Fit(x, MaximumLikelihood{DefaultHistogram}, DefaultParams)
		c.Assert(err, check.IsNil, check.Commentf("seed %d", seed))

		c.Check(m.Lower < m.Upper, check.Equals, true, check.Commentf("seed %d: %+v", seed, m))
		c.Check(m.Lower > 0, check.Equals, true, check.Commentf("seed %d", seed))
		c.Check(m.Upper < 0.5, check.Equals, true, check.Commentf("seed %d: upper=%v", seed, m.Upper))
		c.Check(m.Separation > 0.05 && m.Separation < 0.5, check.Equals, true, check.Commentf("seed %d: sep=%v", seed, m.Separation))
		c.Check(within(m.Exponential.Rate, 50, 0.2), check.Equals, true, check.Commentf("seed %d: rate=%v", seed, m.Exponential.Rate))
		c.Check(within(m.Gamma.Beta, 3, 0.2), check.Equals, true, check.Commentf("seed %d: rate=%v", seed, m.Gamma.Beta))
		c.Check(within(m.Gamma.Alpha, 3, 0.2), check.Equals, true, check.Commentf("seed %d: shape=%v", seed, m.Gamma.Alpha))
		c.Check(math.Abs(m.F1+m.F2-1) < 1e-12, check.Equals, true)
		c.Check(m.N1+m.N2 <= len(x), check.Equals, true)

		// The low component dominates below the zone and the
		// high component above it.
		c.Check(m.Low(m.Lower/2) > 5*m.High(m.Lower/2), check.Equals, true)
		c.Check(m.High(2*m.Upper) > 5*m.Low(2*m.Upper), check.Equals, true)
	}
}

func (s *S) TestFitMoments(c *check.C) {
	x := bimodal(500, 1)
	m, err := Fit(x, Moments{DefaultHistogram}, DefaultParams)
	c.Assert(err, check.IsNil)
	c.Check(m.Lower < m.Upper, check.Equals, true)
	c.Check(within(m.Exponential.Rate, 50, 0.2), check.Equals, true, check.Commentf("rate=%v", m.Exponential.Rate))
}

func (s *S) TestFitDoesNotModifyInput(c *check.C) {
	x := bimodal(200, 4)
	orig := append([]float64(nil), x...)
	Fit(x, MaximumLikelihood{DefaultHistogram}, DefaultParams)
	c.Check(x, check.DeepEquals, orig)
}

func (s *S) TestUnimodal(c *check.C) {
	src := rand.NewSource(1)
	for i, d := range []distuv.Rander{
		distuv.Gamma{Alpha: 3, Beta: 3, Src: src},
		distuv.Exponential{Rate: 5, Src: src},
	} {
		x := make([]float64, 1000)
		for j := range x {
			x[j] = d.Rand()
		}
		_, err := Fit(x, MaximumLikelihood{DefaultHistogram}, DefaultParams)
		c.Check(errors.Is(err, ErrUnimodal), check.Equals, true, check.Commentf("Test %d: %v", i, err))
	}
}

func (s *S) TestTooFew(c *check.C) {
	_, err := Fit([]float64{0, 0, 0, 0.1, 1, 1.1, 0.9}, MaximumLikelihood{DefaultHistogram}, DefaultParams)
	c.Check(errors.Is(err, ErrTooFew), check.Equals, true, check.Commentf("%v", err))

	// A bimodal shape with a tiny high population.
	x := make([]float64, 0, 300)
	for i := 0; i < 290; i++ {
		x = append(x, 0)
	}
	for i := 0; i < 9; i++ {
		x = append(x, 1+float64(i)*0.001)
	}
	_, err = Fit(x, MaximumLikelihood{DefaultHistogram}, DefaultParams)
	c.Check(errors.Is(err, ErrTooFew) || errors.Is(err, ErrUnimodal), check.Equals, true, check.Commentf("%v", err))
}

func (s *S) TestCutoffExcludesOutliers(c *check.C) {
	x := bimodal(500, 1)
	m1, err := Fit(x, MaximumLikelihood{DefaultHistogram}, DefaultParams)
	c.Assert(err, check.IsNil)
	x = append(x, 5, 50, 99, math.NaN(), -1)
	m2, err := Fit(x, MaximumLikelihood{DefaultHistogram}, DefaultParams)
	c.Assert(err, check.IsNil)
	c.Check(m2.N1, check.Equals, m1.N1)
	c.Check(m2.N2, check.Equals, m1.N2)
	c.Check(m2.Lower, check.Equals, m1.Lower)
	c.Check(m2.Upper, check.Equals, m1.Upper)
}

func (s *S) TestAmbiguousEmpty(c *check.C) {
	m := &Model{
		F1: 0.99, Exponential: distuv.Exponential{Rate: 0.1},
		F2: 0.01, Gamma: distuv.Gamma{Alpha: 100, Beta: 1},
	}
	_, _, err := m.ambiguous(5, 0.001, 3)
	c.Check(errors.Is(err, ErrDegenerate), check.Equals, true, check.Commentf("%v", err))
}

func (s *S) TestAmbiguousDisjoint(c *check.C) {
	// The density ratio of these components falls through the
	// ambiguous band near zero and re-enters it above one.
	m := &Model{
		F1: 0.85, Exponential: distuv.Exponential{Rate: 2},
		F2: 0.15, Gamma: distuv.Gamma{Alpha: 0.5, Beta: 1},
	}
	_, _, err := m.ambiguous(5, 0.001, 3)
	c.Check(err, check.ErrorMatches, `mixture: degenerate ambiguous zone: 2 disjoint intervals`)
}

func (s *S) TestParams(c *check.C) {
	for i, p := range []Params{
		{Cutoff: 0, Ratio: 5, MinGenes: 10, Grid: 0.001},
		{Cutoff: 3, Ratio: 1, MinGenes: 10, Grid: 0.001},
		{Cutoff: 3, Ratio: 5, MinGenes: 0, Grid: 0.001},
		{Cutoff: 3, Ratio: 5, MinGenes: 10, Grid: 0},
	} {
		_, err := Fit(bimodal(100, 1), MaximumLikelihood{DefaultHistogram}, p)
		c.Check(err, check.NotNil, check.Commentf("Test %d", i))
	}
}

func (s *S) TestMovingAverage(c *check.C) {
	c.Check(movingAverage([]float64{3, 0, 3, 6, 0}, 3), check.DeepEquals, []float64{1.5, 2, 3, 3, 3})
	c.Check(movingAverage([]float64{1, 2}, 1), check.DeepEquals, []float64{1, 2})
}

func (s *S) TestLocalMinimum(c *check.C) {
	// Fifty zeros, an empty gap and a block of values around one.
	var x []float64
	for i := 0; i < 50; i++ {
		x = append(x, 0)
	}
	for i := 0; i < 100; i++ {
		x = append(x, 0.8+float64(i)*0.004)
	}
	h := Histogram{Bins: 10, Refine: 4, Smooth: 1}
	sep, err := h.LocalMinimum(x, 2)
	c.Assert(err, check.IsNil)
	// Fine bins are 0.05 wide; bins 1 to 15 are empty, so the
	// separation is the center of bin 8.
	c.Check(math.Abs(sep-0.425) < 1e-12, check.Equals, true, check.Commentf("sep=%v", sep))
}
