// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package insertion

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/kortschak/tnseq/genome"
)

// ErrMargin is returned when the central region margin is outside [0, 0.5).
var ErrMargin = errors.New("insertion: margin out of range")

// Params holds the filtering parameters for annotation.
type Params struct {
	// NoiseFloor is the largest read count treated as noise.
	// Records with Reads <= NoiseFloor are discarded.
	NoiseFloor int

	// Margin is the fraction of gene length excluded from each
	// end of a gene when deciding whether an insertion is central.
	Margin float64
}

// DefaultParams are the conventional annotation parameters: single read
// barcodes are noise and the central region is 10%-90% of the gene.
var DefaultParams = Params{NoiseFloor: 1, Margin: 0.1}

// Hit is an insertion record mapped against the gene index.
type Hit struct {
	Record

	// Gene is the gene containing the insertion, or nil
	// if the insertion is intergenic or unplaced.
	Gene *genome.Gene

	// Unplaced is whether the insertion lies on a replicon
	// without genes or beyond the end of its replicon.
	Unplaced bool

	// RelPos is the relative position of the insertion
	// within Gene.
	RelPos float64

	// Central is whether the insertion falls within the
	// central region of Gene.
	Central bool
}

// Counts holds the raw insertion counts for a gene.
type Counts struct {
	Gene    *genome.Gene
	Total   int
	Central int
}

// Annotation is the result of mapping an insertion pool to a gene index.
type Annotation struct {
	// Hits holds the filtered insertions in position order
	// within each replicon.
	Hits []Hit

	// Genes holds a Counts for every indexed gene, including
	// genes without insertions, in index order.
	Genes []Counts

	// Discarded is the number of records at or below the
	// noise floor.
	Discarded int

	// Duplicates is the number of secondary records for
	// barcodes that appear at more than one position.
	Duplicates int

	// Ambiguous is the number of retained barcodes with
	// a non-zero secondary read count.
	Ambiguous int

	// Unplaced is the number of retained insertions on
	// replicons without genes or beyond the replicon end.
	Unplaced int

	byGene  map[*genome.Gene]int
	central map[string][]int
}

// Annotate maps pool against idx. Records with read counts at or below
// the noise floor are discarded. When a barcode appears at more than one
// position only the record with the most reads is kept, with ties going
// to the first in pool order. Ambiguous barcodes, those with secondary
// reads, are kept at their primary position; secondary placements are
// not used. Annotate does not modify pool.
func Annotate(pool []Record, idx *genome.Index, p Params, logger *zap.Logger) (*Annotation, error) {
	if p.Margin < 0 || p.Margin >= 0.5 {
		return nil, ErrMargin
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Annotation{
		byGene:  make(map[*genome.Gene]int),
		central: make(map[string][]int),
	}
	for i, g := range idx.All() {
		a.Genes = append(a.Genes, Counts{Gene: g})
		a.byGene[g] = i
	}

	primary := make(map[string]int)
	var kept []Record
	for _, r := range pool {
		if r.Reads <= p.NoiseFloor {
			a.Discarded++
			continue
		}
		j, ok := primary[r.Barcode]
		if !ok {
			primary[r.Barcode] = len(kept)
			kept = append(kept, r)
			continue
		}
		a.Duplicates++
		if r.Reads > kept[j].Reads {
			logger.Debug("replacing duplicate barcode placement",
				zap.String("barcode", r.Barcode),
				zap.String("replicon", r.Replicon),
				zap.Int("position", r.Pos),
				zap.Int("reads", r.Reads),
			)
			kept[j] = r
		}
	}
	if a.Duplicates != 0 {
		logger.Warn("resolved barcodes mapped to multiple positions", zap.Int("records", a.Duplicates))
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Replicon != kept[j].Replicon {
			return kept[i].Replicon < kept[j].Replicon
		}
		return kept[i].Pos < kept[j].Pos
	})

	warned := make(map[string]bool)
	a.Hits = make([]Hit, len(kept))
	for i, r := range kept {
		h := Hit{Record: r}
		if r.Secondary > 0 {
			a.Ambiguous++
		}
		rep := idx.Replicon(r.Replicon)
		switch {
		case rep == nil:
			h.Unplaced = true
			if !warned[r.Replicon] {
				warned[r.Replicon] = true
				logger.Warn("insertions on replicon without genes", zap.String("replicon", r.Replicon))
			}
		case r.Pos < 0 || r.Pos >= rep.Length:
			h.Unplaced = true
			if !warned[r.Replicon] {
				warned[r.Replicon] = true
				logger.Warn("insertions beyond replicon end",
					zap.String("replicon", r.Replicon),
					zap.Int("length", rep.Length),
					zap.Int("position", r.Pos),
				)
			}
		default:
			h.Gene = idx.Locate(r.Replicon, r.Pos)
		}
		if h.Unplaced {
			a.Unplaced++
		}
		if h.Gene != nil {
			h.RelPos = h.Gene.RelativePosition(r.Pos)
			h.Central = p.Margin <= h.RelPos && h.RelPos <= 1-p.Margin

			c := &a.Genes[a.byGene[h.Gene]]
			c.Total++
			if h.Central {
				c.Central++
				a.central[r.Replicon] = append(a.central[r.Replicon], r.Pos)
			}
		}
		a.Hits[i] = h
	}

	logger.Debug("annotated insertions",
		zap.Int("records", len(pool)),
		zap.Int("retained", len(a.Hits)),
		zap.Int("discarded", a.Discarded),
		zap.Int("ambiguous", a.Ambiguous),
	)
	return a, nil
}

// CountsFor returns the insertion counts for g.
func (a *Annotation) CountsFor(g *genome.Gene) (Counts, bool) {
	i, ok := a.byGene[g]
	if !ok {
		return Counts{}, false
	}
	return a.Genes[i], true
}

// CentralPositions returns the sorted positions of central insertions
// on the named replicon. The returned slice must not be modified.
func (a *Annotation) CentralPositions(replicon string) []int {
	return a.central[replicon]
}

// Central returns the total number of central insertions.
func (a *Annotation) Central() int {
	var n int
	for _, h := range a.Hits {
		if h.Central {
			n++
		}
	}
	return n
}

// Intergenic returns the number of placed insertions not contained
// by any gene.
func (a *Annotation) Intergenic() int {
	var n int
	for _, h := range a.Hits {
		if h.Gene == nil && !h.Unplaced {
			n++
		}
	}
	return n
}
