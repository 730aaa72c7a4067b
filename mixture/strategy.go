// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mixture

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Strategy is the numerical method used to separate and fit the two
// insertion index populations.
type Strategy interface {
	// LocalMinimum returns the location of the density minimum
	// between the near-zero population and the second mode of the
	// sorted values in x, all of which are in [0, max).
	LocalMinimum(x []float64, max float64) (float64, error)

	// FitExponential fits an exponential distribution to the
	// low index population.
	FitExponential(x []float64) (distuv.Exponential, error)

	// FitGamma fits a gamma distribution to the high index
	// population, all of which are in [lo, hi).
	FitGamma(x []float64, lo, hi float64) (distuv.Gamma, error)
}

// Histogram finds the inter-mode minimum using a coarse histogram to
// locate the second mode and a finer smoothed histogram to locate the
// minimum between the modes.
type Histogram struct {
	// Bins is the number of coarse bins over [0, max).
	Bins int

	// Refine is the number of fine bins per coarse bin.
	Refine int

	// Smooth is the width of the moving average applied
	// to the fine histogram, in fine bins.
	Smooth int
}

// DefaultHistogram is the default inter-mode minimum search.
var DefaultHistogram = Histogram{Bins: 30, Refine: 4, Smooth: 5}

// prominence is the smallest ratio of the smoothed second mode height
// to the smoothed valley height accepted as a second mode. The rise from
// the valley must also exceed twice the Poisson noise of the mode.
const prominence = 1.5

// LocalMinimum implements the Strategy LocalMinimum method.
func (h Histogram) LocalMinimum(x []float64, max float64) (float64, error) {
	if h.Bins < 3 || h.Refine < 1 || h.Smooth < 1 {
		return 0, fmt.Errorf("mixture: invalid histogram parameters: %+v", h)
	}
	if len(x) == 0 {
		return 0, ErrUnimodal
	}

	coarse := movingAverage(counts(x, max, h.Bins), 3)

	// The first mode must be at zero.
	if coarse[0] == 0 || coarse[0] < coarse[1] {
		return 0, fmt.Errorf("%w: no mode at zero", ErrUnimodal)
	}
	valley := 0
	for valley+1 < len(coarse) && coarse[valley+1] <= coarse[valley] {
		valley++
	}
	if valley+1 == len(coarse) {
		return 0, fmt.Errorf("%w: density decreases monotonically", ErrUnimodal)
	}
	mode := valley + 1
	for j := mode; j < len(coarse); j++ {
		if coarse[j] > coarse[mode] {
			mode = j
		}
	}
	rise := coarse[mode] - coarse[valley]
	if coarse[mode] < prominence*coarse[valley] || rise < 2*math.Sqrt(coarse[mode]) {
		return 0, fmt.Errorf("%w: second mode not prominent", ErrUnimodal)
	}

	n := h.Bins * h.Refine
	width := max / float64(n)
	last := (mode+1)*h.Refine - 1
	fine := movingAverage(counts(x, max, n), h.Smooth)[:last+1]

	// Take the middle of the first run of minimal density.
	lo := floats.MinIdx(fine)
	hi := lo
	for hi+1 < len(fine) && fine[hi+1] == fine[lo] {
		hi++
	}
	return (float64(lo+hi)/2 + 0.5) * width, nil
}

// counts returns the histogram of the sorted values in x over n equal
// bins spanning [0, max).
func counts(x []float64, max float64, n int) []float64 {
	dividers := floats.Span(make([]float64, n+1), 0, max)
	return stat.Histogram(nil, dividers, x, nil)
}

// movingAverage returns the centered moving average of c over windows
// of width w, truncated at the ends.
func movingAverage(c []float64, w int) []float64 {
	half := w / 2
	avg := make([]float64, len(c))
	for i := range c {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > len(c) {
			hi = len(c)
		}
		avg[i] = floats.Sum(c[lo:hi]) / float64(hi-lo)
	}
	return avg
}

// MaximumLikelihood fits the population distributions by maximum
// likelihood. The exponential rate has a closed form. The gamma shape
// and rate are found by Nelder-Mead minimisation of the negative log
// likelihood of the doubly truncated gamma in log parameter space,
// starting from the method of moments estimate.
type MaximumLikelihood struct {
	Histogram
}

// FitExponential implements the Strategy FitExponential method.
func (MaximumLikelihood) FitExponential(x []float64) (distuv.Exponential, error) {
	var e distuv.Exponential
	e.Fit(x, nil)
	if math.IsInf(e.Rate, 0) || math.IsNaN(e.Rate) || e.Rate <= 0 {
		return e, fmt.Errorf("%w: exponential rate %v", ErrFit, e.Rate)
	}
	return e, nil
}

// FitGamma implements the Strategy FitGamma method.
func (MaximumLikelihood) FitGamma(x []float64, lo, hi float64) (distuv.Gamma, error) {
	init, err := gammaMoments(x)
	if err != nil {
		return init, err
	}

	// The log likelihood depends on x only through these.
	n := float64(len(x))
	sum := floats.Sum(x)
	var sumLog float64
	for _, v := range x {
		sumLog += math.Log(v)
	}

	p := optimize.Problem{
		Func: func(theta []float64) float64 {
			alpha := math.Exp(theta[0])
			beta := math.Exp(theta[1])
			lg, _ := math.Lgamma(alpha)
			g := distuv.Gamma{Alpha: alpha, Beta: beta}
			mass := g.CDF(hi) - g.CDF(lo)
			if !(mass > 0) {
				return math.Inf(1)
			}
			return -(n*(alpha*math.Log(beta)-lg-math.Log(mass)) + (alpha-1)*sumLog - beta*sum)
		},
	}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 50,
		},
		MajorIterations: 5000,
	}
	res, err := optimize.Minimize(p, []float64{math.Log(init.Alpha), math.Log(init.Beta)}, settings, &optimize.NelderMead{})
	if err != nil {
		return init, fmt.Errorf("%w: gamma likelihood: %v", ErrFit, err)
	}
	g := distuv.Gamma{Alpha: math.Exp(res.X[0]), Beta: math.Exp(res.X[1])}
	if !(g.Alpha > 0 && g.Beta > 0) || math.IsInf(g.Alpha, 0) || math.IsInf(g.Beta, 0) {
		return init, fmt.Errorf("%w: gamma parameters shape=%v rate=%v", ErrFit, g.Alpha, g.Beta)
	}
	return g, nil
}

// Moments fits the population distributions by the method of moments.
type Moments struct {
	Histogram
}

// FitExponential implements the Strategy FitExponential method.
func (Moments) FitExponential(x []float64) (distuv.Exponential, error) {
	mean := stat.Mean(x, nil)
	if !(mean > 0) {
		return distuv.Exponential{}, fmt.Errorf("%w: exponential mean %v", ErrFit, mean)
	}
	return distuv.Exponential{Rate: 1 / mean}, nil
}

// FitGamma implements the Strategy FitGamma method.
// The truncation bounds are ignored.
func (Moments) FitGamma(x []float64, _, _ float64) (distuv.Gamma, error) {
	return gammaMoments(x)
}

func gammaMoments(x []float64) (distuv.Gamma, error) {
	if len(x) < 2 {
		return distuv.Gamma{}, fmt.Errorf("%w: too few values for gamma", ErrFit)
	}
	if floats.Min(x) <= 0 {
		return distuv.Gamma{}, fmt.Errorf("%w: non-positive value in gamma population", ErrFit)
	}
	mean, variance := stat.MeanVariance(x, nil)
	if !(variance > 0) {
		return distuv.Gamma{}, fmt.Errorf("%w: zero variance gamma population", ErrFit)
	}
	return distuv.Gamma{Alpha: mean * mean / variance, Beta: mean / variance}, nil
}
