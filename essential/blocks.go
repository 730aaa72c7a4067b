// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package essential

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/kortschak/tnseq/genome"
)

// Block is a run of consecutive essential genes on a replicon.
type Block struct {
	Replicon string

	// Start and End are the zero-based closed bounds
	// of the block.
	Start, End int

	Genes []*genome.Gene
}

// Blocks returns the runs of consecutive essential genes in genes, which
// must be ordered by replicon and position as returned by ClassifyAll on
// the statistics of an insertion.Annotation. Neighbouring essential genes
// are joined when they are separated by at most gap base pairs. A gap of
// zero or less places no limit on the separation. Blocks are returned in
// the order of genes.
func Blocks(genes []Gene, gap int) []Block {
	g := simple.NewUndirectedGraph()
	for i, cur := range genes {
		if cur.Label != Essential {
			continue
		}
		g.AddNode(simple.Node(i))
		if i == 0 || genes[i-1].Label != Essential {
			continue
		}
		last := genes[i-1].Gene
		if last.Replicon == cur.Gene.Replicon && (gap <= 0 || cur.Gene.FeatStart-last.FeatEnd-1 <= gap) {
			g.SetEdge(simple.Edge{F: simple.Node(i - 1), T: simple.Node(i)})
		}
	}

	cc := topo.ConnectedComponents(g)
	comps := make([][]int, len(cc))
	for i, c := range cc {
		ids := make([]int, len(c))
		for j, n := range c {
			ids[j] = int(n.ID())
		}
		sort.Ints(ids)
		comps[i] = ids
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })

	blocks := make([]Block, 0, len(cc))
	for _, ids := range comps {
		head := genes[ids[0]].Gene
		b := Block{Replicon: head.Replicon.ID, Start: head.FeatStart, End: head.FeatEnd}
		for _, id := range ids {
			e := genes[id].Gene
			if e.FeatEnd > b.End {
				b.End = e.FeatEnd
			}
			b.Genes = append(b.Genes, e)
		}
		blocks = append(blocks, b)
	}
	return blocks
}
