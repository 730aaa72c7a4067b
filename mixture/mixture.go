// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mixture fits a two component mixture to the genome-wide
// distribution of insertion indices and derives the index thresholds
// separating essential, ambiguous and non-essential genes.
//
// The low index population is modelled by an exponential distribution
// and the high index population by a gamma distribution. The ambiguous
// zone is the range of index values where neither weighted component
// density dominates the other by more than a fixed likelihood ratio.
package mixture

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrUnimodal is returned when the index distribution does not
	// show a second mode separated from the near-zero mode.
	ErrUnimodal = errors.New("mixture: no bimodal structure detected")

	// ErrTooFew is returned when a subpopulation has fewer values
	// than the minimum required for fitting.
	ErrTooFew = errors.New("mixture: subpopulation too small")

	// ErrFit is returned when a distribution fit fails.
	ErrFit = errors.New("mixture: distribution fit failed")

	// ErrDegenerate is returned when the ambiguous zone is empty,
	// a single point or disjoint.
	ErrDegenerate = errors.New("mixture: degenerate ambiguous zone")
)

// Params holds the mixture fitting parameters.
type Params struct {
	// Cutoff is the exclusive upper bound of index values
	// used for fitting.
	Cutoff float64

	// Ratio is the likelihood ratio factor bounding the
	// ambiguous zone.
	Ratio float64

	// MinGenes is the minimum size of each subpopulation.
	MinGenes int

	// Grid is the step of the index grid on which the
	// ambiguous zone is evaluated.
	Grid float64
}

// DefaultParams are the conventional fitting parameters.
var DefaultParams = Params{Cutoff: 3, Ratio: 5, MinGenes: 10, Grid: 0.001}

func (p Params) validate() error {
	switch {
	case !(p.Cutoff > 0):
		return fmt.Errorf("mixture: invalid cutoff: %v", p.Cutoff)
	case !(p.Ratio > 1):
		return fmt.Errorf("mixture: invalid likelihood ratio: %v", p.Ratio)
	case p.MinGenes < 1:
		return fmt.Errorf("mixture: invalid minimum population: %d", p.MinGenes)
	case !(p.Grid > 0) || p.Grid >= p.Cutoff:
		return fmt.Errorf("mixture: invalid grid step: %v", p.Grid)
	}
	return nil
}

// Model is a fitted two component insertion index mixture.
type Model struct {
	// Separation is the provisional boundary between the
	// low and high index populations.
	Separation float64

	// N1 and N2 are the sizes of the low and high index
	// populations, and F1 and F2 their fractions.
	N1, N2 int
	F1, F2 float64

	// Exponential and Gamma are the fitted component
	// distributions.
	Exponential distuv.Exponential
	Gamma       distuv.Gamma

	// Lower and Upper are the bounds of the ambiguous zone.
	Lower, Upper float64
}

// Low returns the weighted density of the low index component at x.
func (m *Model) Low(x float64) float64 { return m.F1 * m.Exponential.Prob(x) }

// High returns the weighted density of the high index component at x.
func (m *Model) High(x float64) float64 { return m.F2 * m.Gamma.Prob(x) }

// Fit fits a Model to the provided insertion indices using the given
// strategy. Indices that are negative, NaN or not below p.Cutoff are
// excluded. The indices slice is not modified.
func Fit(indices []float64, s Strategy, p Params) (*Model, error) {
	err := p.validate()
	if err != nil {
		return nil, err
	}

	x := make([]float64, 0, len(indices))
	for _, v := range indices {
		if v >= 0 && v < p.Cutoff {
			x = append(x, v)
		}
	}
	if len(x) < 2*p.MinGenes {
		return nil, fmt.Errorf("%w: %d indices below cutoff %v", ErrTooFew, len(x), p.Cutoff)
	}
	sort.Float64s(x)

	sep, err := s.LocalMinimum(x, p.Cutoff)
	if err != nil {
		return nil, err
	}

	// Zero indices are always in the low population.
	n1 := sort.SearchFloat64s(x, sep)
	low, high := x[:n1], x[n1:]
	if len(low) < p.MinGenes || len(high) < p.MinGenes {
		return nil, fmt.Errorf("%w: %d below and %d above separation %.4g", ErrTooFew, len(low), len(high), sep)
	}

	m := &Model{
		Separation: sep,
		N1:         len(low),
		N2:         len(high),
		F1:         float64(len(low)) / float64(len(x)),
		F2:         float64(len(high)) / float64(len(x)),
	}
	m.Exponential, err = s.FitExponential(low)
	if err != nil {
		return nil, err
	}
	m.Gamma, err = s.FitGamma(high, sep, p.Cutoff)
	if err != nil {
		return nil, err
	}
	m.Lower, m.Upper, err = m.ambiguous(p.Ratio, p.Grid, p.Cutoff)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ambiguous returns the bounds of the grid points in [0, max] at which
// neither weighted density exceeds ratio times the other. The points
// must form a single run of more than one point.
func (m *Model) ambiguous(ratio, step, max float64) (lower, upper float64, err error) {
	n := int(math.Floor(max/step + 0.5))
	var (
		runs int
		prev bool
	)
	for i := 0; i <= n; i++ {
		x := float64(i) * step
		p1, p2 := m.Low(x), m.High(x)
		in := p1 < ratio*p2 && p2 < ratio*p1
		if in {
			if !prev {
				runs++
				if runs == 1 {
					lower = x
				}
			}
			if runs == 1 {
				upper = x
			}
		}
		prev = in
	}
	switch {
	case runs == 0:
		return 0, 0, fmt.Errorf("%w: components never comparable", ErrDegenerate)
	case runs > 1:
		return 0, 0, fmt.Errorf("%w: %d disjoint intervals", ErrDegenerate, runs)
	case lower >= upper:
		return 0, 0, fmt.Errorf("%w: single point at %v", ErrDegenerate, lower)
	}
	return lower, upper, nil
}
