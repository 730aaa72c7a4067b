// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package genome provides gene feature types and a replicon keyed
// interval index for locating the gene containing a genomic position.
package genome

import (
	"fmt"

	"github.com/biogo/biogo/feat"
)

// Replicon is a physically distinct DNA molecule of a genome, either
// a chromosome or a plasmid. Replicons are linear.
type Replicon struct {
	ID     string
	Length int
}

func (r *Replicon) Start() int             { return 0 }
func (r *Replicon) End() int               { return r.Length }
func (r *Replicon) Len() int               { return r.Length }
func (r *Replicon) Name() string           { return r.ID }
func (r *Replicon) Description() string    { return "replicon" }
func (r *Replicon) Location() feat.Feature { return nil }

// Gene is an annotated gene feature. Coordinates are zero-based and
// the interval [FeatStart, FeatEnd] is closed.
type Gene struct {
	LocusTag   string
	Replicon   *Replicon
	FeatStart  int
	FeatEnd    int
	FeatStrand feat.Orientation
	Desc       string
}

var (
	_ feat.Feature  = (*Gene)(nil)
	_ feat.Orienter = (*Gene)(nil)
)

func (g *Gene) Start() int                    { return g.FeatStart }
func (g *Gene) End() int                      { return g.FeatEnd }
func (g *Gene) Len() int                      { return g.FeatEnd - g.FeatStart }
func (g *Gene) Name() string                  { return g.LocusTag }
func (g *Gene) Description() string           { return g.Desc }
func (g *Gene) Location() feat.Feature        { return g.Replicon }
func (g *Gene) Orientation() feat.Orientation { return g.FeatStrand }

// Contains returns whether pos lies within the closed interval of g.
func (g *Gene) Contains(pos int) bool {
	return g.FeatStart <= pos && pos <= g.FeatEnd
}

// RelativePosition returns the fractional position of pos along the
// gene body, measured from FeatStart regardless of strand.
func (g *Gene) RelativePosition(pos int) float64 {
	return float64(pos-g.FeatStart) / float64(g.FeatEnd-g.FeatStart)
}

// Midpoint returns the central coordinate of the gene.
func (g *Gene) Midpoint() int { return (g.FeatStart + g.FeatEnd) / 2 }

func (g *Gene) validate() error {
	switch {
	case g.LocusTag == "":
		return fmt.Errorf("genome: missing locus tag")
	case g.Replicon == nil || g.Replicon.ID == "":
		return fmt.Errorf("genome: %s: missing replicon", g.LocusTag)
	case g.FeatStart < 0:
		return fmt.Errorf("genome: %s: negative start: %d", g.LocusTag, g.FeatStart)
	case g.FeatStart >= g.FeatEnd:
		return fmt.Errorf("genome: %s: start %d not before end %d", g.LocusTag, g.FeatStart, g.FeatEnd)
	}
	return nil
}

func strandOf(s string) (feat.Orientation, error) {
	switch s {
	case "+", "1":
		return feat.Forward, nil
	case "-", "-1":
		return feat.Reverse, nil
	case ".", "", "0":
		return feat.NotOriented, nil
	default:
		return 0, fmt.Errorf("invalid strand: %q", s)
	}
}

// StrandString returns the conventional single character strand
// representation of o.
func StrandString(o feat.Orientation) string {
	switch o {
	case feat.Forward:
		return "+"
	case feat.Reverse:
		return "-"
	default:
		return "."
	}
}
