// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bowtie2 provides interaction with the bowtie2 short read aligner.
package bowtie2

import (
	"errors"
	"os/exec"
	"strings"
	"text/template"

	"github.com/biogo/external"
)

var ErrMissingRequired = errors.New("bowtie2: missing required argument")

// Bowtie2 defines parameters for the bowtie2 aligner.
type Bowtie2 struct {
	// Usage: bowtie2 [options]* -x <bt2-idx> {-1 <m1> -2 <m2> | -U <r>} [-S <sam>]
	//
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}bowtie2{{end}}"` // bowtie2

	// Input files:
	Index    string   `buildarg:"{{if .}}-x{{split}}{{.}}{{end}}"`                             // -x: index filename prefix
	Unpaired []string `buildarg:"{{if .}}-U{{split}}{{commas .}}{{end}}"`                      // -U: files with unpaired reads
	Mate1    []string `buildarg:"{{if .}}-1{{split}}{{commas .}}{{end}}"`                      // -1: files with #1 mates
	Mate2    []string `buildarg:"{{if .}}-2{{split}}{{commas .}}{{end}}"`                      // -2: files with #2 mates
	Fasta    bool     `buildarg:"{{if .}}-f{{end}}"`                                           // -f: query input files are fasta
	BAM      bool     `buildarg:"{{if .}}-b{{end}}"`                                           // -b: query input files are unaligned BAM
	Trim5    int      `buildarg:"{{if .}}--trim5{{split}}{{.}}{{end}}"`                        // -5: trim bases from 5' end of each read
	Trim3    int      `buildarg:"{{if .}}--trim3{{split}}{{.}}{{end}}"`                        // -3: trim bases from 3' end of each read
	Phred64  bool     `buildarg:"{{if .}}--phred64{{end}}"`                                    // --phred64: qualities are Phred+64
	Skip     int      `buildarg:"{{if .}}--skip{{split}}{{.}}{{end}}"`                         // -s: skip the first reads
	Upto     int      `buildarg:"{{if .}}--upto{{split}}{{.}}{{end}}"`                         // -u: stop after the first reads
	Preset   string   `buildarg:"{{if .}}--{{.}}{{end}}"`                                      // --very-fast, --fast, --sensitive, --very-sensitive
	Local    bool     `buildarg:"{{if .}}--local{{end}}"`                                      // --local: local alignment
	EndToEnd bool     `buildarg:"{{if .}}--end-to-end{{end}}"`                                 // --end-to-end: entire read must align
	SeedMis  int      `buildarg:"{{if .}}-N{{split}}{{.}}{{end}}"`                             // -N: mismatches in seed alignment
	SeedLen  int      `buildarg:"{{if .}}-L{{split}}{{.}}{{end}}"`                             // -L: length of seed substrings
	ReadGrp  string   `buildarg:"{{if .}}--rg-id{{split}}{{.}}{{end}}"`                        // --rg-id: read group id
	Reorder  bool     `buildarg:"{{if .}}--reorder{{end}}"`                                    // --reorder: output in input order
	NoUnal   bool     `buildarg:"{{if .}}--no-unal{{end}}"`                                    // --no-unal: suppress unaligned reads
	Report   int      `buildarg:"{{if .}}-k{{split}}{{.}}{{end}}"`                             // -k: report up to k alignments per read
	All      bool     `buildarg:"{{if .}}-a{{end}}"`                                           // -a: report all alignments
	Seed     int      `buildarg:"{{if .}}--seed{{split}}{{.}}{{end}}"`                         // --seed: prng seed
	Threads  int      `buildarg:"{{if .}}--threads{{split}}{{.}}{{end}}"`                      // -p: number of alignment threads
	Tagged   bool     `buildarg:"{{if .}}--preserve-tags{{end}}"`                              // --preserve-tags: keep unaligned BAM tags
	Aligned  string   `buildarg:"{{if .}}-S{{split}}{{.}}{{end}}"`                             // -S: SAM output file (stdout if empty)
	Metrics  string   `buildarg:"{{if .}}--met-file{{split}}{{.}}{{end}}"`                     // --met-file: metrics output file
	Extra    []string `buildarg:"{{range $i, $a := .}}{{if $i}}{{split}}{{end}}{{$a}}{{end}}"` // additional arguments
}

// BuildCommand returns an exec.Cmd built from the parameters in b.
func (b Bowtie2) BuildCommand() (*exec.Cmd, error) {
	if b.Index == "" || (len(b.Unpaired) == 0 && (len(b.Mate1) == 0 || len(b.Mate2) == 0)) {
		return nil, ErrMissingRequired
	}
	cl := external.Must(external.Build(b, template.FuncMap{"commas": commas}))
	return exec.Command(cl[0], cl[1:]...), nil
}

// commas returns a comma separated list of file names.
func commas(a interface{}) string {
	return strings.Join(a.([]string), ",")
}
