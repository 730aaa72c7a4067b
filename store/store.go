// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store persists analysis runs and their per-gene results in
// an sqlite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kortschak/tnseq"
)

// ErrNoModel is returned when saving a result without a fitted model.
var ErrNoModel = errors.New("store: result has no fitted model")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	created          TEXT NOT NULL,
	config           TEXT NOT NULL,
	lower_threshold  REAL NOT NULL,
	upper_threshold  REAL NOT NULL,
	separation       REAL NOT NULL,
	f1               REAL NOT NULL,
	f2               REAL NOT NULL,
	exponential_rate REAL NOT NULL,
	gamma_shape      REAL NOT NULL,
	gamma_rate       REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS genes (
	run                   TEXT NOT NULL REFERENCES runs(id),
	locus_tag             TEXT NOT NULL,
	replicon              TEXT NOT NULL,
	gene_start            INTEGER NOT NULL,
	gene_end              INTEGER NOT NULL,
	n_insertions_total    INTEGER NOT NULL,
	n_insertions_central  INTEGER NOT NULL,
	n_window_central      INTEGER NOT NULL,
	insertion_index       REAL NOT NULL,
	insertion_probability REAL NOT NULL,
	essentiality_label    TEXT NOT NULL,
	PRIMARY KEY (run, replicon, locus_tag)
);`

// Store is an sqlite results database.
type Store struct {
	db *sql.DB
}

// Open opens the sqlite database at path, creating the results tables
// if they do not exist. A path of ":memory:" opens a private in-memory
// database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// In-memory databases are private to a connection.
	db.SetMaxOpenConns(1)
	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Run is a stored analysis run.
type Run struct {
	ID      uuid.UUID
	Created time.Time
	Config  string

	Lower, Upper    float64
	Separation      float64
	F1, F2          float64
	ExponentialRate float64
	GammaShape      float64
	GammaRate       float64
}

// Gene is a stored per-gene result.
type Gene struct {
	LocusTag    string
	Replicon    string
	Start, End  int
	Total       int
	Central     int
	Window      int
	Index       float64
	Probability float64
	Label       string
}

// Save stores the thresholds, fitted parameters and gene results of res
// as a new run with the given configuration description, and returns
// the identifier of the run.
func (s *Store) Save(ctx context.Context, res *tnseq.Result, config string) (uuid.UUID, error) {
	if res.Model == nil {
		return uuid.Nil, ErrNoModel
	}
	id := uuid.New()
	m := res.Model

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), time.Now().UTC().Format(time.RFC3339Nano), config,
		res.Thresholds.Lower, res.Thresholds.Upper,
		m.Separation, m.F1, m.F2,
		m.Exponential.Rate, m.Gamma.Alpha, m.Gamma.Beta,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO genes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return uuid.Nil, err
	}
	defer stmt.Close()
	for _, g := range res.Genes {
		_, err = stmt.ExecContext(ctx,
			id.String(), g.Gene.LocusTag, g.Gene.Replicon.ID, g.Gene.FeatStart, g.Gene.FeatEnd,
			g.Total, g.Central, g.Window, g.Index, g.Probability, g.Label.String(),
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("store: failed to insert gene %s: %w", g.Gene.LocusTag, err)
		}
	}
	return id, tx.Commit()
}

// Runs returns all stored runs ordered by creation time.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM runs ORDER BY created, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			id      string
			created string
		)
		err = rows.Scan(&id, &created, &r.Config,
			&r.Lower, &r.Upper, &r.Separation, &r.F1, &r.F2,
			&r.ExponentialRate, &r.GammaShape, &r.GammaRate,
		)
		if err != nil {
			return nil, err
		}
		r.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("store: invalid run id %q: %w", id, err)
		}
		r.Created, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("store: invalid creation time %q: %w", created, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Genes returns the gene results of the run with the given id in the
// order they were stored.
func (s *Store) Genes(ctx context.Context, id uuid.UUID) ([]Gene, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		locus_tag, replicon, gene_start, gene_end,
		n_insertions_total, n_insertions_central, n_window_central,
		insertion_index, insertion_probability, essentiality_label
	FROM genes WHERE run = ? ORDER BY rowid`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var genes []Gene
	for rows.Next() {
		var g Gene
		err = rows.Scan(&g.LocusTag, &g.Replicon, &g.Start, &g.End,
			&g.Total, &g.Central, &g.Window,
			&g.Index, &g.Probability, &g.Label,
		)
		if err != nil {
			return nil, err
		}
		genes = append(genes, g)
	}
	return genes, rows.Err()
}
