// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package insertion

import (
	"fmt"
	"io"
	"sort"
)

// Class is the feature class of an insertion site.
type Class int

const (
	Central Class = iota
	Edge
	Intergenic
	Unplaced

	numClasses
)

func (c Class) String() string {
	switch c {
	case Central:
		return "central"
	case Edge:
		return "edge"
	case Intergenic:
		return "intergenic"
	case Unplaced:
		return "unplaced"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// ClassOf returns the feature class of h.
func ClassOf(h Hit) Class {
	switch {
	case h.Unplaced:
		return Unplaced
	case h.Gene == nil:
		return Intergenic
	case h.Central:
		return Central
	default:
		return Edge
	}
}

// Tally is the distribution of barcodes and reads over feature
// classes for a replicon.
type Tally struct {
	Replicon string
	Barcodes [numClasses]int
	Reads    [numClasses]int
}

// Summary returns the per-replicon barcode distribution by feature
// class, sorted by replicon name.
func (a *Annotation) Summary() []Tally {
	idx := make(map[string]int)
	var t []Tally
	for _, h := range a.Hits {
		i, ok := idx[h.Replicon]
		if !ok {
			i = len(t)
			idx[h.Replicon] = i
			t = append(t, Tally{Replicon: h.Replicon})
		}
		c := ClassOf(h)
		t[i].Barcodes[c]++
		t[i].Reads[c] += h.Reads
	}
	sort.Slice(t, func(i, j int) bool { return t[i].Replicon < t[j].Replicon })
	return t
}

// WriteSummary writes the tallies to w as a tab separated table.
func WriteSummary(w io.Writer, tallies []Tally) error {
	_, err := fmt.Fprintln(w, "replicon\tclass\tbarcodes\treads")
	if err != nil {
		return err
	}
	for _, t := range tallies {
		for c := Central; c < numClasses; c++ {
			_, err = fmt.Fprintf(w, "%s\t%v\t%d\t%d\n", t.Replicon, c, t.Barcodes[c], t.Reads[c])
			if err != nil {
				return err
			}
		}
	}
	return nil
}
