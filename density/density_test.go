// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package density

import (
	"math"
	"sort"
	"strings"
	"testing"

	"gopkg.in/check.v1"

	"github.com/kortschak/tnseq/genome"
	"github.com/kortschak/tnseq/insertion"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func near(got, want, tol float64) bool {
	if got == want {
		return true
	}
	return math.Abs(got-want) <= tol*math.Max(math.Abs(got), math.Abs(want))
}

// binomialCDF is a direct summation of the binomial mass function.
func binomialCDF(k, n int, p float64) float64 {
	var sum float64
	for i := 0; i <= k; i++ {
		lc, _ := math.Lgamma(float64(n + 1))
		li, _ := math.Lgamma(float64(i + 1))
		lr, _ := math.Lgamma(float64(n - i + 1))
		sum += math.Exp(lc - li - lr + float64(i)*math.Log(p) + float64(n-i)*math.Log1p(-p))
	}
	return sum
}

func testGene() *genome.Gene {
	return &genome.Gene{
		LocusTag:  "g",
		Replicon:  &genome.Replicon{ID: "chr", Length: 100000},
		FeatStart: 50000,
		FeatEnd:   51000,
	}
}

// flanking returns 200 central insertion positions in the 20kb window
// around testGene, all outside the gene, giving 0.01 insertions/bp.
func flanking() []int {
	var pos []int
	for i := 0; i < 100; i++ {
		pos = append(pos, 40500+i*90)
	}
	for i := 0; i < 100; i++ {
		pos = append(pos, 51100+i*90)
	}
	return pos
}

func (s *S) TestZeroInsertionGene(c *check.C) {
	g := testGene()
	st := EstimateGene(insertion.Counts{Gene: g}, flanking(), g.Replicon.Length, DefaultParams)
	c.Check(st.Window, check.Equals, 200)
	c.Check(st.Span, check.Equals, 20000)
	c.Check(st.Index, check.Equals, 0.0)
	c.Check(st.Unreliable, check.Equals, false)
	c.Check(st.Fittable(), check.Equals, true)

	want := math.Pow(1-800.0/20000, 200)
	c.Check(near(st.Probability, want, 1e-10), check.Equals, true, check.Commentf("got:%v want:%v", st.Probability, want))
	c.Check(near(st.Probability, binomialCDF(0, 200, 0.04), 1e-10), check.Equals, true)
}

func (s *S) TestIndexAndProbability(c *check.C) {
	g := testGene()
	pos := flanking()
	// Add three central insertions to the gene.
	pos = append(pos, 50200, 50500, 50800)
	sort.Ints(pos)

	st := EstimateGene(insertion.Counts{Gene: g, Total: 4, Central: 3}, pos, g.Replicon.Length, DefaultParams)
	c.Check(st.Window, check.Equals, 203)
	wantIndex := (3.0 / 1000) / (203.0 / 20000)
	c.Check(near(st.Index, wantIndex, 1e-12), check.Equals, true, check.Commentf("got:%v want:%v", st.Index, wantIndex))
	want := binomialCDF(3, 203, 0.04)
	c.Check(near(st.Probability, want, 1e-8), check.Equals, true, check.Commentf("got:%v want:%v", st.Probability, want))
}

func (s *S) TestEmptyWindow(c *check.C) {
	g := testGene()
	st := EstimateGene(insertion.Counts{Gene: g}, nil, g.Replicon.Length, DefaultParams)
	c.Check(st.Window, check.Equals, 0)
	c.Check(st.Index, check.Equals, 0.0)
	c.Check(st.Probability, check.Equals, 1.0)
	c.Check(st.Fittable(), check.Equals, false)
	c.Check(math.IsNaN(st.Index) || math.IsNaN(st.Probability), check.Equals, false)
}

func (s *S) TestUnreliable(c *check.C) {
	g := &genome.Gene{
		LocusTag:  "tiny",
		Replicon:  &genome.Replicon{ID: "chr", Length: 100000},
		FeatStart: 50000,
		FeatEnd:   50010,
	}
	// One insertion in a ten base gene within a sparse window.
	pos := []int{30000, 50005, 70000}
	st := EstimateGene(insertion.Counts{Gene: g, Total: 1, Central: 1}, pos, 100000, Params{Window: 100000, Margin: 0.1, MaxIndex: 100})
	c.Check(st.Index > 100, check.Equals, true)
	c.Check(st.Unreliable, check.Equals, true)
	c.Check(st.Fittable(), check.Equals, false)
}

func (s *S) TestWindow(c *check.C) {
	r := &genome.Replicon{ID: "chr", Length: 10000}
	for i, t := range []struct {
		start, end int
		length     int
		width      int
		lo, hi     int
	}{
		{start: 4000, end: 4100, length: 10000, width: 2000, lo: 3050, hi: 5050},
		{start: 100, end: 200, length: 10000, width: 2000, lo: 0, hi: 2000},
		{start: 9800, end: 9900, length: 10000, width: 2000, lo: 8000, hi: 10000},
		{start: 100, end: 200, length: 1000, width: 2000, lo: 0, hi: 1000},
		{start: 1000, end: 5000, length: 10000, width: 2000, lo: 1000, hi: 5001},
		// Genes past the recorded length extend the replicon.
		{start: 100, end: 1500, length: 1000, width: 2000, lo: 0, hi: 1501},
	} {
		g := &genome.Gene{LocusTag: "g", Replicon: r, FeatStart: t.start, FeatEnd: t.end}
		lo, hi := window(g, t.length, t.width)
		c.Check(lo, check.Equals, t.lo, check.Commentf("Test %d", i))
		c.Check(hi, check.Equals, t.hi, check.Commentf("Test %d", i))
	}
}

func (s *S) TestEstimate(c *check.C) {
	genes, err := genome.ReadGeneTable(strings.NewReader("a\tchr\t100\t200\t+\nb\tchr\t300\t400\t+\nc\tpA\t10\t90\t+\n"))
	c.Assert(err, check.IsNil)
	err = genome.SetLengths(genes, map[string]int{"chr": 1500})
	c.Assert(err, check.IsNil)
	idx, err := genome.NewIndex(genes, nil)
	c.Assert(err, check.IsNil)
	pool := []insertion.Record{
		{Barcode: "1", Replicon: "chr", Pos: 150, Reads: 5},
		{Barcode: "2", Replicon: "chr", Pos: 160, Reads: 5},
		{Barcode: "3", Replicon: "chr", Pos: 1200, Reads: 5},
		{Barcode: "4", Replicon: "chr", Pos: 5000, Reads: 5},
	}
	a, err := insertion.Annotate(pool, idx, insertion.DefaultParams, nil)
	c.Assert(err, check.IsNil)
	c.Check(a.Unplaced, check.Equals, 1)
	c.Check(a.Intergenic(), check.Equals, 1)

	st, err := Estimate(a, idx, Params{Window: 1000, Margin: 0.1, MaxIndex: 100})
	c.Assert(err, check.IsNil)
	c.Assert(st, check.HasLen, 3)

	// The window of a is shifted to [0, 1000) within the 1500bp chr;
	// the insertion at 5000 does not stretch the replicon.
	c.Check(st[0].Gene.LocusTag, check.Equals, "a")
	c.Check(st[0].Central, check.Equals, 2)
	c.Check(st[0].Window, check.Equals, 2)
	c.Check(st[0].Span, check.Equals, 1000)
	c.Check(near(st[0].Index, (2.0/100)/(2.0/1000), 1e-12), check.Equals, true)
	c.Check(st[1].Central, check.Equals, 0)
	c.Check(st[1].Index, check.Equals, 0.0)
	c.Check(st[2].Window, check.Equals, 0)
	c.Check(st[2].Probability, check.Equals, 1.0)

	_, err = Estimate(a, idx, Params{Window: 0})
	c.Check(err, check.Equals, ErrWindow)
}
