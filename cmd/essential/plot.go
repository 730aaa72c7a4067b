// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/kortschak/tnseq/mixture"
)

// plotIndices renders the distribution of insertion indices below cutoff
// with the fitted mixture components and the ambiguous zone bounds.
func plotIndices(path string, indices []float64, m *mixture.Model, cutoff float64) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = "Insertion index distribution"
	p.X.Label.Text = "insertion index"
	p.Y.Label.Text = "density"

	var (
		v    plotter.Values
		ymax float64
	)
	for _, x := range indices {
		if x < cutoff {
			v = append(v, x)
		}
	}
	if len(v) != 0 {
		h, err := plotter.NewHist(v, 50)
		if err != nil {
			return err
		}
		h.Normalize(1)
		h.FillColor = color.Gray{0xd0}
		for _, b := range h.Bins {
			ymax = math.Max(ymax, b.Weight)
		}
		p.Add(h)
	}

	if m != nil {
		for _, c := range []struct {
			name string
			fn   func(float64) float64
			col  color.Color
		}{
			{name: "essential", fn: m.Low, col: color.RGBA{R: 0xc0, A: 0xff}},
			{name: "non-essential", fn: m.High, col: color.RGBA{B: 0xc0, A: 0xff}},
		} {
			f := plotter.NewFunction(c.fn)
			f.Color = c.col
			f.Width = vg.Points(1.5)
			f.Samples = 200
			for i := 0; i <= f.Samples; i++ {
				y := c.fn(cutoff * float64(i) / float64(f.Samples))
				if !math.IsInf(y, 0) && !math.IsNaN(y) {
					ymax = math.Max(ymax, y)
				}
			}
			p.Add(f)
			p.Legend.Add(c.name, f)
		}

		for _, x := range []float64{m.Lower, m.Upper} {
			l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: ymax}})
			if err != nil {
				return err
			}
			l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
			l.Color = color.Gray{0x40}
			p.Add(l)
		}
		p.Legend.Top = true
	}

	font, err := vg.MakeFont("Helvetica", 12)
	if err != nil {
		return err
	}
	p.Title.TextStyle = draw.TextStyle{Color: color.Gray{0}, Font: font}

	p.Y.Min = 0
	if ymax > 0 {
		p.Y.Max = ymax * 1.05
	}
	p.X.Min = 0
	p.X.Max = cutoff
	return p.Save(20*vg.Centimeter, 12*vg.Centimeter, path)
}
