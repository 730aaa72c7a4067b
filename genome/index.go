// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package genome

import (
	"errors"
	"fmt"
	"sort"

	"github.com/biogo/store/interval"
	"go.uber.org/zap"
)

// ErrNoGenes is returned when an index is built from an empty feature set.
var ErrNoGenes = errors.New("genome: no genes")

// Index is a read-only collection of genes keyed by replicon that
// answers point containment queries. An Index is safe for concurrent
// use once built.
type Index struct {
	replicons []*Replicon
	byID      map[string]*Replicon
	trees     map[string]*interval.IntTree
	genes     map[string][]*Gene
	byTag     map[string]*Gene
	overlaps  int
}

// NewIndex returns an Index of the provided genes. Locus tags must be
// unique within a replicon. A replicon with zero Length is given the
// length of its largest gene end plus one. Pairs of overlapping genes
// are logged as warnings; Locate resolves them with the tie-break
// described there.
func NewIndex(genes []*Gene, logger *zap.Logger) (*Index, error) {
	if len(genes) == 0 {
		return nil, ErrNoGenes
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	idx := &Index{
		byID:  make(map[string]*Replicon),
		trees: make(map[string]*interval.IntTree),
		genes: make(map[string][]*Gene),
		byTag: make(map[string]*Gene),
	}
	seen := make(map[string]map[string]bool)
	for i, g := range genes {
		err := g.validate()
		if err != nil {
			return nil, err
		}
		r := g.Replicon
		canon, ok := idx.byID[r.ID]
		switch {
		case !ok:
			idx.byID[r.ID] = r
			idx.replicons = append(idx.replicons, r)
			idx.trees[r.ID] = &interval.IntTree{}
			seen[r.ID] = make(map[string]bool)
		case canon != r:
			return nil, fmt.Errorf("genome: replicon %q defined more than once", r.ID)
		}
		if seen[r.ID][g.LocusTag] {
			return nil, fmt.Errorf("genome: duplicate locus tag %q on replicon %q", g.LocusTag, r.ID)
		}
		seen[r.ID][g.LocusTag] = true
		if _, ok := idx.byTag[g.LocusTag]; !ok {
			idx.byTag[g.LocusTag] = g
		}

		// IDs start at one, following the order of the input.
		err = idx.trees[r.ID].Insert(geneInterval{Gene: g, id: uintptr(i + 1)}, true)
		if err != nil {
			return nil, fmt.Errorf("genome: failed to index %s: %v", g.LocusTag, err)
		}
		idx.genes[r.ID] = append(idx.genes[r.ID], g)
	}
	for _, t := range idx.trees {
		t.AdjustRanges()
	}

	for _, r := range idx.replicons {
		gs := idx.genes[r.ID]
		sort.SliceStable(gs, func(i, j int) bool { return before(gs[i], gs[j]) })
		if r.Length == 0 {
			for _, g := range gs {
				if g.FeatEnd+1 > r.Length {
					r.Length = g.FeatEnd + 1
				}
			}
		}

		// Sweep for overlapping genes, remembering the furthest end seen.
		var last *Gene
		for _, g := range gs {
			if last != nil && g.FeatStart <= last.FeatEnd {
				idx.overlaps++
				logger.Warn("overlapping genes",
					zap.String("replicon", r.ID),
					zap.String("first", last.LocusTag),
					zap.String("second", g.LocusTag),
					zap.Int("start", g.FeatStart),
					zap.Int("end", min(g.FeatEnd, last.FeatEnd)),
				)
			}
			if last == nil || g.FeatEnd > last.FeatEnd {
				last = g
			}
		}
	}
	return idx, nil
}

// before orders genes by start, then end, then locus tag.
func before(a, b *Gene) bool {
	if a.FeatStart != b.FeatStart {
		return a.FeatStart < b.FeatStart
	}
	if a.FeatEnd != b.FeatEnd {
		return a.FeatEnd < b.FeatEnd
	}
	return a.LocusTag < b.LocusTag
}

// Locate returns the gene on the named replicon containing pos, or nil
// if pos is intergenic or the replicon is unknown. When more than one
// gene contains pos, the shortest gene is returned, with ties broken by
// the lower start position, the lower end position and then the lexically
// lower locus tag.
func (idx *Index) Locate(replicon string, pos int) *Gene {
	t, ok := idx.trees[replicon]
	if !ok {
		return nil
	}
	hits := t.Get(position(pos))
	var best *Gene
	for _, h := range hits {
		g := h.(geneInterval).Gene
		if best == nil || shorter(g, best) {
			best = g
		}
	}
	return best
}

func shorter(a, b *Gene) bool {
	if a.Len() != b.Len() {
		return a.Len() < b.Len()
	}
	return before(a, b)
}

// Replicons returns the indexed replicons in order of first appearance.
func (idx *Index) Replicons() []*Replicon { return idx.replicons }

// Replicon returns the named replicon, or nil if it is not indexed.
func (idx *Index) Replicon(id string) *Replicon { return idx.byID[id] }

// Genes returns the genes of the named replicon sorted by position.
// The returned slice must not be modified.
func (idx *Index) Genes(replicon string) []*Gene { return idx.genes[replicon] }

// Gene returns the gene with the given locus tag. If the tag is used on
// more than one replicon, the first indexed is returned.
func (idx *Index) Gene(tag string) *Gene { return idx.byTag[tag] }

// Len returns the total number of indexed genes.
func (idx *Index) Len() int {
	var n int
	for _, gs := range idx.genes {
		n += len(gs)
	}
	return n
}

// Overlaps returns the number of overlapping gene pairs found when the
// index was built.
func (idx *Index) Overlaps() int { return idx.overlaps }

// All returns all genes ordered by replicon and then position.
func (idx *Index) All() []*Gene {
	all := make([]*Gene, 0, idx.Len())
	for _, r := range idx.replicons {
		all = append(all, idx.genes[r.ID]...)
	}
	return all
}

type geneInterval struct {
	*Gene
	id uintptr
}

func (g geneInterval) ID() uintptr { return g.id }

// Range returns the half-open equivalent of the closed gene interval.
func (g geneInterval) Range() interval.IntRange {
	return interval.IntRange{Start: g.FeatStart, End: g.FeatEnd + 1}
}
func (g geneInterval) Overlap(b interval.IntRange) bool {
	return g.FeatEnd+1 > b.Start && g.FeatStart < b.End
}

// position is a single base interval query.
type position int

func (p position) Overlap(b interval.IntRange) bool {
	return b.Start <= int(p) && int(p) < b.End
}
