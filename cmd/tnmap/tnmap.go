// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// tnmap aligns barcoded transposon flank reads with bowtie2 and reduces the
// alignments to an insertion pool table.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kortschak/tnseq/bowtie2"
	"github.com/kortschak/tnseq/insertion"
	"github.com/kortschak/tnseq/logging"
)

var (
	reads       = pflag.StringSlice("reads", nil, "input flank read files; unaligned BAM with barcode tags or fastq (required unless run is false)")
	index       = pflag.String("index", "", "bowtie2 index prefix of the reference (required unless run is false)")
	bowtie2Path = pflag.String("bowtie2", "", "path to bowtie2 if not in $PATH")
	preset      = pflag.String("preset", "sensitive", "bowtie2 end-to-end preset")
	threads     = pflag.Int("threads", 1, "number of bowtie2 and BAM decompression threads")
	run         = pflag.Bool("run", true, `actually run bowtie2
    	false is useful to rebuild a pool from existing alignments`,
	)
	alignments = pflag.String("alignments", "", "SAM or BAM alignment file (default derived from the first read file)")

	tag     = pflag.String("tag", "BC", "auxiliary tag holding the read barcode")
	minMapQ = pflag.Uint8("min-mapq", 0, "minimum mapping quality of counted reads")

	outFile   = pflag.String("out", "", "output pool file name (default to stdout)")
	logLevel  = pflag.String("log-level", "info", "log level: debug, info, warn or error")
	logFormat = pflag.String("log-format", "text", "log format: text or json")
)

func main() {
	dotenvErr := godotenv.Load()

	pflag.Parse()
	if len(*tag) != 2 {
		fmt.Fprintf(os.Stderr, "invalid argument: barcode tag must be two characters: %q\n", *tag)
		pflag.Usage()
		os.Exit(1)
	}
	if *run && (len(*reads) == 0 || *index == "") {
		fmt.Fprintln(os.Stderr, "invalid argument: must have reads and index set")
		pflag.Usage()
		os.Exit(1)
	}
	if !*run && *alignments == "" && len(*reads) == 0 {
		fmt.Fprintln(os.Stderr, "invalid argument: must have alignments or reads set")
		pflag.Usage()
		os.Exit(1)
	}

	logger, err := logging.New(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	if dotenvErr != nil {
		logger.Debug("no .env found, using local environment")
	}

	aligned := *alignments
	if aligned == "" {
		aligned = strings.TrimSuffix(filepath.Base((*reads)[0]), filepath.Ext((*reads)[0])) + ".sam"
	}

	if *run {
		logger.Info("aligning flank reads", zap.Strings("reads", *reads), zap.String("index", *index))
		err = align(*reads, *index, aligned, logger)
		if err != nil {
			logger.Fatal("failed alignment", zap.Error(err))
		}
	}

	logger.Info("building insertion pool", zap.String("alignments", aligned))
	pool, stats, err := poolFrom(aligned, insertion.PoolParams{
		Tag:     sam.NewTag(*tag),
		MinMapQ: *minMapQ,
	})
	if err != nil {
		logger.Fatal("failed to build pool", zap.String("path", aligned), zap.Error(err))
	}
	logger.Info("built insertion pool",
		zap.Int("barcodes", len(pool)),
		zap.Int("reads", stats.Reads),
		zap.Int("unmapped", stats.Unmapped),
		zap.Int("not_primary", stats.NotPrimary),
		zap.Int("low_mapq", stats.LowMapQ),
		zap.Int("no_barcode", stats.NoBarcode),
	)
	if len(pool) == 0 {
		logger.Warn("no barcoded insertions found")
	}

	var out io.Writer = os.Stdout
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			logger.Fatal("failed to create out file", zap.String("path", *outFile), zap.Error(err))
		}
		defer f.Close()
		out = f
	}
	err = insertion.WritePool(out, pool)
	if err != nil {
		logger.Fatal("failed to write pool", zap.Error(err))
	}
}

// align runs bowtie2 over the reads, writing SAM to the aligned path.
// Unaligned BAM input keeps its auxiliary tags in the output so that
// barcodes are available to pool construction.
func align(reads []string, index, aligned string, logger *zap.Logger) error {
	ubam := true
	for _, r := range reads {
		if filepath.Ext(r) != ".bam" {
			ubam = false
			break
		}
	}
	b := bowtie2.Bowtie2{
		Cmd: *bowtie2Path,

		Index:    index,
		Unpaired: reads,
		BAM:      ubam,
		Tagged:   ubam,

		Preset:   *preset,
		EndToEnd: true,
		Threads:  *threads,

		Aligned: aligned,
	}
	cmd, err := b.BuildCommand()
	if err != nil {
		return err
	}
	logger.Debug("running bowtie2", zap.Strings("args", cmd.Args))
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// poolFrom returns the insertion pool built from the SAM or BAM file at path.
func poolFrom(path string, p insertion.PoolParams) ([]insertion.Record, insertion.PoolStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, insertion.PoolStats{}, err
	}
	defer f.Close()

	var r insertion.SAMReader
	switch filepath.Ext(path) {
	case ".bam":
		br, err := bam.NewReader(f, *threads)
		if err != nil {
			return nil, insertion.PoolStats{}, err
		}
		defer br.Close()
		r = br
	case ".sam":
		r, err = sam.NewReader(f)
		if err != nil {
			return nil, insertion.PoolStats{}, err
		}
	default:
		return nil, insertion.PoolStats{}, errors.New("unknown alignment format: " + path)
	}
	return insertion.PoolFromSAM(r, p)
}
