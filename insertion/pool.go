// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package insertion

import (
	"fmt"
	"io"
	"sort"

	"github.com/biogo/hts/sam"
)

// SAMReader is satisfied by *sam.Reader and *bam.Reader.
type SAMReader interface {
	Read() (*sam.Record, error)
}

// PoolParams holds the parameters for pool construction from
// aligned barcode reads.
type PoolParams struct {
	// Tag is the auxiliary tag holding the read barcode.
	Tag sam.Tag

	// MinMapQ is the minimum mapping quality of a read to
	// be counted.
	MinMapQ byte
}

// DefaultPoolParams reads barcodes from the standard BC tag and keeps
// all primary alignments.
var DefaultPoolParams = PoolParams{Tag: sam.NewTag("BC")}

// PoolStats records the reads excluded during pool construction.
type PoolStats struct {
	Reads      int
	Unmapped   int
	NotPrimary int
	LowMapQ    int
	NoBarcode  int
}

// PoolFromSAM builds an insertion pool from aligned barcode flank reads.
// The insertion site of a read is the transposon-proximal end of its
// alignment: the alignment start on the forward strand and the last
// aligned base on the reverse strand. For each barcode the site with the
// most reads is the primary position; reads at all other sites are
// counted as secondary. The returned records are sorted by barcode.
func PoolFromSAM(r SAMReader, p PoolParams) ([]Record, PoolStats, error) {
	type site struct {
		replicon string
		pos      int
	}
	counts := make(map[string]map[site]int)

	var stats PoolStats
	for {
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, stats, err
		}
		stats.Reads++
		switch {
		case rec.Flags&sam.Unmapped != 0 || rec.Ref == nil:
			stats.Unmapped++
			continue
		case rec.Flags&(sam.Secondary|sam.Supplementary) != 0:
			stats.NotPrimary++
			continue
		case rec.MapQ < p.MinMapQ:
			stats.LowMapQ++
			continue
		}
		aux := rec.AuxFields.Get(p.Tag)
		if aux == nil {
			stats.NoBarcode++
			continue
		}
		bc := fmt.Sprint(aux.Value())

		s := site{replicon: rec.Ref.Name(), pos: rec.Pos}
		if rec.Flags&sam.Reverse != 0 {
			s.pos = rec.End() - 1
		}
		m, ok := counts[bc]
		if !ok {
			m = make(map[site]int)
			counts[bc] = m
		}
		m[s]++
	}

	recs := make([]Record, 0, len(counts))
	for bc, sites := range counts {
		var (
			best  site
			most  int
			total int
		)
		for s, n := range sites {
			total += n
			if n > most || (n == most && (s.replicon < best.replicon || (s.replicon == best.replicon && s.pos < best.pos))) {
				best, most = s, n
			}
		}
		recs = append(recs, Record{
			Barcode:   bc,
			Replicon:  best.replicon,
			Pos:       best.pos,
			Reads:     most,
			Secondary: total - most,
		})
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Barcode < recs[j].Barcode })
	return recs, stats, nil
}
