// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package insertion provides transposon insertion pool records and
// their annotation against a gene index.
package insertion

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Record is a single barcoded transposon insertion.
type Record struct {
	Barcode  string
	Replicon string
	Pos      int

	// Reads is the number of reads supporting the barcode
	// at Pos.
	Reads int

	// Secondary is the number of reads placing the barcode
	// at other positions. A non-zero value marks the barcode
	// as ambiguous.
	Secondary int
}

// RowError describes a malformed row in a pool table.
type RowError struct {
	Line int
	Row  string
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("insertion: line %d: %v: %q", e.Line, e.Err, e.Row)
}

func (e *RowError) Unwrap() error { return e.Err }

const (
	barcodeField = iota
	repliconField
	positionField
	readsField
	secondaryField

	numFields
)

const header = "barcode\treplicon\tposition\tread_count\tsecondary_position_count"

// ReadPool reads a tab separated insertion pool table with the columns
// barcode, replicon, position, read_count and an optional
// secondary_position_count. A header line starting with "barcode" and
// lines starting with '#' are skipped. A barcode may appear at more
// than one position, but a repeated barcode and position pair is an
// error.
func ReadPool(r io.Reader) ([]Record, error) {
	type site struct {
		barcode, replicon string
		pos               int
	}
	seen := make(map[site]bool)

	var recs []Record
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		row := sc.Text()
		if row == "" || strings.HasPrefix(row, "#") || strings.HasPrefix(row, "barcode\t") {
			continue
		}
		rec, err := parseRecord(row)
		if err != nil {
			return nil, &RowError{Line: line, Row: row, Err: err}
		}
		s := site{rec.Barcode, rec.Replicon, rec.Pos}
		if seen[s] {
			return nil, &RowError{Line: line, Row: row, Err: fmt.Errorf("duplicate barcode %q", rec.Barcode)}
		}
		seen[s] = true
		recs = append(recs, rec)
	}
	return recs, sc.Err()
}

func parseRecord(row string) (rec Record, err error) {
	defer handlePanic(&err)
	fields := strings.Split(row, "\t")
	if len(fields) != numFields && len(fields) != numFields-1 {
		return rec, fmt.Errorf("wrong number of fields: %d", len(fields))
	}
	rec = Record{
		Barcode:  fields[barcodeField],
		Replicon: fields[repliconField],
		Pos:      mustAtoi(fields[positionField]),
		Reads:    mustAtoi(fields[readsField]),
	}
	if len(fields) > secondaryField && fields[secondaryField] != "" {
		rec.Secondary = mustAtoi(fields[secondaryField])
	}
	switch {
	case rec.Barcode == "":
		return rec, fmt.Errorf("missing barcode")
	case rec.Replicon == "":
		return rec, fmt.Errorf("missing replicon")
	case rec.Pos < 0:
		return rec, fmt.Errorf("negative position: %d", rec.Pos)
	case rec.Reads < 0 || rec.Secondary < 0:
		return rec, fmt.Errorf("negative read count")
	}
	return rec, nil
}

// WritePool writes recs to w in the format read by ReadPool.
func WritePool(w io.Writer, recs []Record) error {
	bw := bufio.NewWriter(w)
	_, err := fmt.Fprintln(bw, header)
	if err != nil {
		return err
	}
	for _, r := range recs {
		_, err = fmt.Fprintf(bw, "%s\t%s\t%d\t%d\t%d\n", r.Barcode, r.Replicon, r.Pos, r.Reads, r.Secondary)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

func handlePanic(err *error) {
	r := recover()
	if r != nil {
		switch r := r.(type) {
		case error:
			*err = r
		default:
			panic(r)
		}
	}
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		panic(err)
	}
	return i
}
