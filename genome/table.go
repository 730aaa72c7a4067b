// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package genome

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/biogo/biogo/feat"
	"github.com/biogo/biogo/io/featio"
	"github.com/biogo/biogo/io/featio/gff"
	"github.com/biogo/biogo/seq"
)

// RowError describes a malformed row in an input table.
// Line is the 1-based line number of rows read from tab separated
// tables. GFF input reports the 1-based index of the offending
// feature record in Record instead, leaving Line zero.
type RowError struct {
	Line   int
	Record int
	Row    string
	Err    error
}

func (e *RowError) Error() string {
	if e.Line == 0 && e.Record != 0 {
		return fmt.Sprintf("genome: feature %d: %v: %q", e.Record, e.Err, e.Row)
	}
	return fmt.Sprintf("genome: line %d: %v: %q", e.Line, e.Err, e.Row)
}

func (e *RowError) Unwrap() error { return e.Err }

const (
	locusTagField = iota
	repliconField
	startField
	endField
	strandField
	descriptionField

	numGeneFields
)

// ReadGeneTable reads a tab separated gene feature table with the
// columns locus_tag, replicon, start, end, strand and description.
// A header line starting with "locus_tag" and lines starting with '#'
// are skipped. The description column may be omitted. Duplicate locus
// tags within a replicon are an error.
func ReadGeneTable(r io.Reader) ([]*Gene, error) {
	replicons := make(map[string]*Replicon)
	seen := make(map[string]map[string]bool)

	var genes []*Gene
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		row := sc.Text()
		if row == "" || strings.HasPrefix(row, "#") || strings.HasPrefix(row, "locus_tag\t") {
			continue
		}
		g, err := parseGene(row, replicons)
		if err != nil {
			return nil, &RowError{Line: line, Row: row, Err: err}
		}
		tags, ok := seen[g.Replicon.ID]
		if !ok {
			tags = make(map[string]bool)
			seen[g.Replicon.ID] = tags
		}
		if tags[g.LocusTag] {
			return nil, &RowError{Line: line, Row: row, Err: fmt.Errorf("duplicate locus tag %q", g.LocusTag)}
		}
		tags[g.LocusTag] = true
		genes = append(genes, g)
	}
	return genes, sc.Err()
}

func parseGene(row string, replicons map[string]*Replicon) (*Gene, error) {
	fields := strings.Split(row, "\t")
	if len(fields) < numGeneFields-1 || len(fields) > numGeneFields {
		return nil, fmt.Errorf("wrong number of fields: %d", len(fields))
	}
	start, err := strconv.Atoi(fields[startField])
	if err != nil {
		return nil, fmt.Errorf("invalid start: %v", err)
	}
	end, err := strconv.Atoi(fields[endField])
	if err != nil {
		return nil, fmt.Errorf("invalid end: %v", err)
	}
	strand, err := strandOf(fields[strandField])
	if err != nil {
		return nil, err
	}
	g := &Gene{
		LocusTag:   fields[locusTagField],
		Replicon:   repliconFor(fields[repliconField], replicons),
		FeatStart:  start,
		FeatEnd:    end,
		FeatStrand: strand,
	}
	if len(fields) > descriptionField {
		g.Desc = fields[descriptionField]
	}
	return g, g.validate()
}

func repliconFor(id string, replicons map[string]*Replicon) *Replicon {
	r, ok := replicons[id]
	if !ok {
		r = &Replicon{ID: id}
		replicons[id] = r
	}
	return r
}

// ReadGFF reads genes from a GFF stream, keeping features of the given
// type. The locus tag is taken from the locus_tag attribute, falling back
// to ID. GFF coordinates are converted to zero-based closed intervals.
// Errors in features are reported by feature record index.
func ReadGFF(r io.Reader, typ string) ([]*Gene, error) {
	replicons := make(map[string]*Replicon)
	seen := make(map[string]map[string]bool)

	var genes []*Gene
	sc := featio.NewScanner(gff.NewReader(r))
	for n := 1; sc.Next(); n++ {
		f := sc.Feat().(*gff.Feature)
		if f.Feature != typ {
			continue
		}
		tag := f.FeatAttributes.Get("locus_tag")
		if tag == "" {
			tag = f.FeatAttributes.Get("ID")
		}
		g := &Gene{
			LocusTag:   tag,
			Replicon:   repliconFor(f.SeqName, replicons),
			FeatStart:  f.FeatStart,
			FeatEnd:    f.FeatEnd - 1,
			FeatStrand: orientationOf(f.FeatStrand),
			Desc:       f.FeatAttributes.Get("product"),
		}
		err := g.validate()
		if err != nil {
			return nil, &RowError{Record: n, Row: fmt.Sprintf("%s %s %d %d", f.SeqName, f.Feature, f.FeatStart+1, f.FeatEnd), Err: err}
		}
		tags, ok := seen[g.Replicon.ID]
		if !ok {
			tags = make(map[string]bool)
			seen[g.Replicon.ID] = tags
		}
		if tags[tag] {
			return nil, &RowError{Record: n, Row: tag, Err: fmt.Errorf("duplicate locus tag %q", tag)}
		}
		tags[tag] = true
		genes = append(genes, g)
	}
	if err := sc.Error(); err != nil {
		return nil, err
	}
	return genes, nil
}

func orientationOf(s seq.Strand) feat.Orientation {
	switch s {
	case seq.Plus:
		return feat.Forward
	case seq.Minus:
		return feat.Reverse
	default:
		return feat.NotOriented
	}
}

// ReadLengths reads a tab separated table of replicon names and lengths.
func ReadLengths(r io.Reader) (map[string]int, error) {
	lengths := make(map[string]int)
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		row := sc.Text()
		if row == "" || strings.HasPrefix(row, "#") || strings.HasPrefix(row, "replicon\t") {
			continue
		}
		fields := strings.Fields(row)
		if len(fields) != 2 {
			return nil, &RowError{Line: line, Row: row, Err: fmt.Errorf("wrong number of fields: %d", len(fields))}
		}
		l, err := strconv.Atoi(fields[1])
		if err != nil || l <= 0 {
			return nil, &RowError{Line: line, Row: row, Err: fmt.Errorf("invalid length: %q", fields[1])}
		}
		if _, ok := lengths[fields[0]]; ok {
			return nil, &RowError{Line: line, Row: row, Err: fmt.Errorf("duplicate replicon %q", fields[0])}
		}
		lengths[fields[0]] = l
	}
	return lengths, sc.Err()
}

// SetLengths sets the length of each replicon referenced by genes from
// lengths. It is an error for a gene to extend past its replicon.
func SetLengths(genes []*Gene, lengths map[string]int) error {
	for _, g := range genes {
		l, ok := lengths[g.Replicon.ID]
		if !ok {
			continue
		}
		if g.FeatEnd >= l {
			return fmt.Errorf("genome: %s ends at %d beyond replicon %q length %d", g.LocusTag, g.FeatEnd, g.Replicon.ID, l)
		}
		g.Replicon.Length = l
	}
	return nil
}
