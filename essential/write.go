// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package essential

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/biogo/biogo/io/featio/gff"
	"github.com/biogo/biogo/seq"
)

const tableHeader = "locus_tag\treplicon\tstart\tend\tn_insertions_total\tn_insertions_central\tn_window_central\tinsertion_index\tinsertion_probability\tessentiality_label"

// WriteTable writes a tab separated table of gene results to w, with a
// header line.
func WriteTable(w io.Writer, genes []Gene) error {
	_, err := fmt.Fprintln(w, tableHeader)
	if err != nil {
		return err
	}
	for _, g := range genes {
		_, err = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
			g.Gene.LocusTag, g.Gene.Replicon.ID, g.Gene.FeatStart, g.Gene.FeatEnd,
			g.Total, g.Central, g.Window,
			formatFloat(g.Index), formatFloat(g.Probability), g.Label,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

// WriteGFF writes a gene feature for each of genes to w, annotated with
// the insertion statistics and essentiality label.
func WriteGFF(w *gff.Writer, genes []Gene, source string) error {
	for _, g := range genes {
		_, err := w.Write(&gff.Feature{
			SeqName:    g.Gene.Replicon.ID,
			Source:     source,
			Feature:    "gene",
			FeatStart:  g.Gene.FeatStart,
			FeatEnd:    g.Gene.FeatEnd + 1,
			FeatStrand: seq.Strand(g.Gene.FeatStrand),
			FeatFrame:  gff.NoFrame,
			FeatAttributes: gff.Attributes{
				{Tag: "locus_tag", Value: g.Gene.LocusTag},
				{Tag: "insertion_index", Value: formatFloat(g.Index)},
				{Tag: "insertion_probability", Value: formatFloat(g.Probability)},
				{Tag: "essentiality", Value: g.Label.String()},
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteBlocks writes a tab separated table of essential blocks to w,
// with a header line.
func WriteBlocks(w io.Writer, blocks []Block) error {
	_, err := fmt.Fprintln(w, "replicon\tstart\tend\tn_genes\tlocus_tags")
	if err != nil {
		return err
	}
	for _, b := range blocks {
		tags := make([]string, len(b.Genes))
		for i, g := range b.Genes {
			tags[i] = g.LocusTag
		}
		_, err = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", b.Replicon, b.Start, b.End, len(b.Genes), strings.Join(tags, ","))
		if err != nil {
			return err
		}
	}
	return nil
}
