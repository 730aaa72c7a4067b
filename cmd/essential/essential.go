// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// essential classifies genes by essentiality from a transposon insertion
// pool and a gene annotation.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/biogo/biogo/io/featio/gff"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kortschak/tnseq"
	"github.com/kortschak/tnseq/config"
	"github.com/kortschak/tnseq/essential"
	"github.com/kortschak/tnseq/genome"
	"github.com/kortschak/tnseq/insertion"
	"github.com/kortschak/tnseq/logging"
	"github.com/kortschak/tnseq/store"
)

func main() {
	dotenvErr := godotenv.Load()

	fs := config.Flags("essential")
	err := fs.Parse(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	path, _ := fs.GetString("config")
	cfg, err := config.Load(path, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	err = cfg.Validate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Input.Genes == "" || cfg.Input.Pool == "" {
		fmt.Fprintln(os.Stderr, "invalid argument: must have genes and pool set")
		fs.Usage()
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	if dotenvErr != nil {
		logger.Debug("no .env found, using local environment")
	}

	idx, err := readGenes(cfg.Input, logger)
	if err != nil {
		logger.Fatal("failed to read genes", zap.String("path", cfg.Input.Genes), zap.Error(err))
	}
	logger.Info("read genes",
		zap.Int("genes", idx.Len()),
		zap.Int("replicons", len(idx.Replicons())),
		zap.Int("overlaps", idx.Overlaps()),
	)

	pool, err := readPool(cfg.Input.Pool)
	if err != nil {
		logger.Fatal("failed to read insertion pool", zap.String("path", cfg.Input.Pool), zap.Error(err))
	}

	res, err := tnseq.Analyze(idx, pool, cfg.Params(), logger)
	if err != nil {
		logger.Fatal("analysis failed", zap.Error(err))
	}

	err = writeOutputs(cfg, res, logger)
	if err != nil {
		logger.Fatal("failed to write results", zap.Error(err))
	}
}

func readGenes(in config.InputConfig, logger *zap.Logger) (*genome.Index, error) {
	f, err := os.Open(in.Genes)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var genes []*genome.Gene
	switch in.Format {
	case "tsv":
		genes, err = genome.ReadGeneTable(f)
	case "gff":
		genes, err = genome.ReadGFF(f, in.Feature)
	default:
		return nil, fmt.Errorf("unknown gene table format: %q", in.Format)
	}
	if err != nil {
		return nil, err
	}

	if in.Lengths != "" {
		lf, err := os.Open(in.Lengths)
		if err != nil {
			return nil, err
		}
		defer lf.Close()
		lengths, err := genome.ReadLengths(lf)
		if err != nil {
			return nil, err
		}
		err = genome.SetLengths(genes, lengths)
		if err != nil {
			return nil, err
		}
	}

	return genome.NewIndex(genes, logger)
}

func readPool(path string) ([]insertion.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return insertion.ReadPool(f)
}

func writeOutputs(cfg *config.Config, res *tnseq.Result, logger *zap.Logger) error {
	out := cfg.Output
	err := writeFile(out.Table, os.Stdout, func(w io.Writer) error {
		return essential.WriteTable(w, res.Genes)
	})
	if err != nil {
		return fmt.Errorf("gene table: %w", err)
	}

	if out.GFF != "" {
		err = writeFile(out.GFF, nil, func(w io.Writer) error {
			return essential.WriteGFF(gff.NewWriter(w, 60, true), res.Genes, "tnseq")
		})
		if err != nil {
			return fmt.Errorf("gff: %w", err)
		}
	}

	if out.Blocks != "" {
		err = writeFile(out.Blocks, nil, func(w io.Writer) error {
			return essential.WriteBlocks(w, res.Blocks)
		})
		if err != nil {
			return fmt.Errorf("blocks: %w", err)
		}
	}

	if out.Summary != "" {
		err = writeFile(out.Summary, nil, func(w io.Writer) error {
			return insertion.WriteSummary(w, res.Annotation.Summary())
		})
		if err != nil {
			return fmt.Errorf("summary: %w", err)
		}
	}

	if out.Plot != "" {
		err = plotIndices(out.Plot, res.Indices, res.Model, cfg.Fit.Cutoff)
		if err != nil {
			return fmt.Errorf("plot: %w", err)
		}
		logger.Info("wrote index distribution plot", zap.String("path", out.Plot))
	}

	if out.DB != "" {
		db, err := store.Open(out.DB)
		if err != nil {
			return err
		}
		defer db.Close()
		desc, err := cfg.YAML()
		if err != nil {
			return err
		}
		id, err := db.Save(context.Background(), res, string(desc))
		if err != nil {
			return err
		}
		logger.Info("stored run", zap.String("db", out.DB), zap.Stringer("run", id))
	}
	return nil
}

// writeFile calls fn with the file at path, or def if path is empty.
func writeFile(path string, def io.Writer, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		if def == nil {
			return nil
		}
		return fn(def)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = fn(f)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
