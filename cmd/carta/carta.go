// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// carta renders a rings plot of gene essentiality and binned central
// insertion density over the replicons of a genome.
package main

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/biogo/biogo/feat"
	"github.com/biogo/graphics/rings"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/kortschak/tnseq"
	"github.com/kortschak/tnseq/config"
	"github.com/kortschak/tnseq/essential"
	"github.com/kortschak/tnseq/genome"
	"github.com/kortschak/tnseq/insertion"
	"github.com/kortschak/tnseq/logging"
)

func main() {
	fs := config.Flags("carta")
	binLength := fs.Int("bin", 10000, "specifies the insertion density bin length.")
	format := fs.String("image", "svg", "specifies the output image format: eps, jpg, jpeg, pdf, png, svg, and tiff.")
	out := fs.String("image-out", "", "output image file name (default derived from the gene table)")
	err := fs.Parse(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if !validFormat(*format) || *binLength < 1 {
		fs.Usage()
		os.Exit(1)
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
	if *out == "" {
		*out = filepath.Base(cfg.Input.Genes) + "." + *format
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	idx, err := readGenes(cfg.Input, logger)
	if err != nil {
		logger.Fatal("failed to read genes", zap.String("path", cfg.Input.Genes), zap.Error(err))
	}
	pool, err := readPool(cfg.Input.Pool)
	if err != nil {
		logger.Fatal("failed to read insertion pool", zap.String("path", cfg.Input.Pool), zap.Error(err))
	}
	res, err := tnseq.Analyze(idx, pool, cfg.Params(), logger)
	if err != nil {
		if res == nil {
			logger.Fatal("analysis failed", zap.Error(err))
		}
		// Plot what we have; genes are left unlabelled.
		logger.Warn("analysis incomplete", zap.Error(err))
	}

	p, err := plot.New()
	if err != nil {
		logger.Fatal("failed to create plot", zap.Error(err))
	}

	hs, err := tracks(idx, res, *binLength, 15*vg.Centimeter)
	if err != nil {
		logger.Fatal("failed to build tracks", zap.Error(err))
	}
	p.Add(hs...)
	p.HideAxes()

	font, err := vg.MakeFont("Helvetica", 14)
	if err != nil {
		logger.Fatal("failed to make font", zap.Error(err))
	}
	p.Title.Text = filepath.Base(cfg.Input.Pool)
	p.Title.TextStyle = draw.TextStyle{Color: color.Gray{0}, Font: font}

	err = p.Save(19*vg.Centimeter, 25*vg.Centimeter, *out)
	if err != nil {
		logger.Fatal("failed to save plot", zap.String("path", *out), zap.Error(err))
	}
	logger.Info("wrote rings plot", zap.String("path", *out))
}

func validFormat(format string) bool {
	for _, s := range []string{"eps", "jpg", "jpeg", "pdf", "png", "svg", "tiff"} {
		if format == s {
			return true
		}
	}
	return false
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

// bins returns the central insertion counts of each replicon in idx
// binned into length long bins.
func bins(idx *genome.Index, a *insertion.Annotation, length int) []rings.Scorer {
	var s []rings.Scorer
	for _, r := range idx.Replicons() {
		if r.Len() <= 0 {
			continue
		}
		b := make([]*bin, (r.Len()-1)/length+1)
		for j := range b {
			b[j] = &bin{
				start:  j * length,
				end:    min(r.Len(), (j+1)*length),
				length: length,
				loc:    r,
			}
		}
		if a != nil {
			for _, pos := range a.CentralPositions(r.ID) {
				if pos >= 0 && pos < r.Len() {
					b[pos/length].events++
				}
			}
		}
		for _, f := range b {
			s = append(s, f)
		}
	}
	return s
}

type bin struct {
	start, end int
	length     int
	loc        feat.Feature
	events     int
}

func (f *bin) Start() int             { return f.start }
func (f *bin) End() int               { return f.end }
func (f *bin) Len() int               { return f.end - f.start }
func (f *bin) Name() string           { return "" }
func (f *bin) Description() string    { return "insertion bin" }
func (f *bin) Location() feat.Feature { return f.loc }
func (f *bin) Scores() []float64 {
	factor := float64(f.length) / float64(f.Len())
	return []float64{float64(f.events) * factor}
}

func tracks(idx *genome.Index, res *tnseq.Result, binLength int, diameter vg.Length) ([]plot.Plotter, error) {
	var p []plot.Plotter

	radius := diameter / 2

	// Relative sizes.
	const (
		gap = 0.01

		label = 117. / 110.

		countsInner = 97. / 110.
		countsOuter = 70. / 110.

		repliconInner = 100. / 110.
		repliconOuter = 1.

		large = 6. / 110.
		small = 2. / 110.
	)

	sty := plotter.DefaultLineStyle
	sty.Width /= 2

	reps := idx.Replicons()
	if len(reps) == 0 {
		return nil, errors.New("no replicons")
	}
	chr := make([]feat.Feature, len(reps))
	for i, r := range reps {
		chr[i] = r
	}
	hs, err := rings.NewGappedBlocks(
		chr,
		rings.Arc{Theta: rings.Complete / 4 * rings.CounterClockwise, Phi: rings.Complete * rings.Clockwise},
		radius*repliconInner, radius*repliconOuter, gap,
	)
	if err != nil {
		return nil, err
	}
	hs.LineStyle = sty
	p = append(p, hs)

	genes := labelled(idx, res)
	if len(genes) != 0 {
		b, err := rings.NewBlocks(genes, hs, radius*repliconInner, radius*repliconOuter)
		if err != nil {
			return nil, fmt.Errorf("genes: %v", err)
		}
		p = append(p, b)
	}

	font, err := vg.MakeFont("Helvetica", radius*large)
	if err != nil {
		return nil, err
	}
	lb, err := rings.NewLabels(hs, radius*label, rings.NameLabels(hs.Set)...)
	if err != nil {
		return nil, err
	}
	lb.TextStyle = draw.TextStyle{Color: color.Gray16{0}, Font: font}
	p = append(p, lb)

	smallFont, err := vg.MakeFont("Helvetica", radius*small)
	if err != nil {
		return nil, err
	}

	var a *insertion.Annotation
	if res != nil {
		a = res.Annotation
	}
	ct, err := rings.NewScores(bins(idx, a, binLength), hs, radius*countsInner, radius*countsOuter,
		&rings.Trace{
			LineStyles: func() []draw.LineStyle {
				ls := []draw.LineStyle{sty}
				ls[0].Color = color.Gray16{0}
				return ls
			}(),
			Join: true,
			Axis: &rings.Axis{
				Angle:     rings.Complete / 4,
				Grid:      plotter.DefaultGridLineStyle,
				LineStyle: sty,
				Tick: rings.TickConfig{
					Marker:    plot.DefaultTicks{},
					LineStyle: sty,
					Length:    2,
					Label:     draw.TextStyle{Color: color.Gray16{0}, Font: smallFont},
				},
			},
		},
	)
	if err != nil {
		return nil, err
	}
	p = append(p, ct)

	return p, nil
}

// labelled returns the genes of idx coloured by their essentiality
// label in res. Genes without a label are returned as unclassified.
func labelled(idx *genome.Index, res *tnseq.Result) []feat.Feature {
	labels := make(map[*genome.Gene]essential.Label)
	if res != nil {
		for _, g := range res.Genes {
			labels[g.Gene] = g.Label
		}
	}
	var fs []feat.Feature
	for _, g := range idx.All() {
		if g.Len() <= 0 {
			continue
		}
		fs = append(fs, colorGene{Gene: g, label: labels[g]})
	}
	return fs
}

type colorGene struct {
	*genome.Gene
	label essential.Label
}

func (g colorGene) FillColor() color.Color {
	switch g.label {
	case essential.Essential:
		return color.RGBA{R: 0xd0, A: 0xff}
	case essential.Ambiguous:
		return color.RGBA{R: 0xff, G: 0x8c, A: 0xff}
	case essential.NonEssential:
		return color.Gray{0xa0}
	case essential.Unclassified:
		return color.Gray{0xe8}
	default:
		panic("unexpected essentiality label: " + g.label.String())
	}
}

func (g colorGene) LineStyle() draw.LineStyle { return draw.LineStyle{} }
