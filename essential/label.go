// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package essential assigns essentiality labels to genes from their
// insertion statistics and the fitted index thresholds.
package essential

import (
	"errors"
	"fmt"

	"github.com/kortschak/tnseq/density"
)

// DefaultProbability is the insertion probability at or above which an
// essential call is downgraded to ambiguous.
const DefaultProbability = 0.1

// Label is a gene essentiality call.
type Label int

const (
	// Unclassified genes did not contribute to the
	// index distribution.
	Unclassified Label = iota
	Essential
	Ambiguous
	NonEssential
)

func (l Label) String() string {
	switch l {
	case Unclassified:
		return "unclassified"
	case Essential:
		return "essential"
	case Ambiguous:
		return "ambiguous"
	case NonEssential:
		return "non-essential"
	}
	return fmt.Sprintf("Label(%d)", int(l))
}

// ErrThresholds is returned when the lower threshold is not below the
// upper threshold.
var ErrThresholds = errors.New("essential: lower threshold must be below upper threshold")

// Thresholds are the insertion index bounds of the ambiguous zone.
type Thresholds struct {
	Lower, Upper float64
}

// Gene is a gene's insertion statistics and essentiality call.
type Gene struct {
	density.Stats
	Label Label
}

// Classify returns the label for the gene described by s. Genes that
// are not fittable are Unclassified. An index at or below t.Lower is
// Essential unless the insertion probability is at least prob, in which
// case the gene is Ambiguous. An index at or below t.Upper is Ambiguous
// and any higher index is NonEssential.
func Classify(s density.Stats, t Thresholds, prob float64) Label {
	switch {
	case !s.Fittable():
		return Unclassified
	case s.Index <= t.Lower:
		if s.Probability >= prob {
			return Ambiguous
		}
		return Essential
	case s.Index <= t.Upper:
		return Ambiguous
	default:
		return NonEssential
	}
}

// ClassifyAll labels every gene in stats, retaining the order of stats.
func ClassifyAll(stats []density.Stats, t Thresholds, prob float64) ([]Gene, error) {
	if !(t.Lower < t.Upper) {
		return nil, ErrThresholds
	}
	genes := make([]Gene, len(stats))
	for i, s := range stats {
		genes[i] = Gene{Stats: s, Label: Classify(s, t, prob)}
	}
	return genes, nil
}

// Count returns the number of genes with each label, indexed by Label.
func Count(genes []Gene) [NonEssential + 1]int {
	var n [NonEssential + 1]int
	for _, g := range genes {
		n[g.Label]++
	}
	return n
}
