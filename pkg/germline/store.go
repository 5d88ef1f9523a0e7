// Package germline provides a SQLite-backed store of germline gene
// sequences, keyed by species and gene name. Sequences are stored as
// ProForma text so allele-specific modifications survive a round trip.
package germline

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mjhoffman/profrag/pkg/core"
	"github.com/mjhoffman/profrag/pkg/proforma"
)

// Lookup resolves a species and gene name to a sequence.
type Lookup interface {
	Lookup(species, gene string) (string, bool)
}

// Store is a SQLite-backed germline sequence database.
type Store struct {
	db         *sql.DB
	insertStmt *sql.Stmt
	lookupStmt *sql.Stmt
}

// Open opens (or creates) a store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open germline database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS germline (
		species  TEXT NOT NULL,
		gene     TEXT NOT NULL,
		sequence TEXT NOT NULL,
		PRIMARY KEY (species, gene)
	);
	CREATE INDEX IF NOT EXISTS idx_germline_species ON germline(species);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (s *Store) prepareStatements() error {
	var err error
	s.insertStmt, err = s.db.Prepare(`
		INSERT OR REPLACE INTO germline (species, gene, sequence)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	s.lookupStmt, err = s.db.Prepare(`
		SELECT sequence FROM germline WHERE species = ? AND gene = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare lookup statement: %w", err)
	}
	return nil
}

// Add stores one germline sequence, replacing any previous entry for the
// same species and gene. The sequence must be valid ProForma.
func (s *Store) Add(species, gene, sequence string) error {
	if _, err := proforma.Parse(sequence); err != nil {
		return fmt.Errorf("germline %s/%s: %w", species, gene, err)
	}
	if _, err := s.insertStmt.Exec(species, gene, sequence); err != nil {
		return fmt.Errorf("failed to insert germline %s/%s: %w", species, gene, err)
	}
	return nil
}

// Lookup returns the stored sequence text.
func (s *Store) Lookup(species, gene string) (string, bool) {
	var sequence string
	err := s.lookupStmt.QueryRow(species, gene).Scan(&sequence)
	if err != nil {
		return "", false
	}
	return sequence, true
}

// Peptidoform looks a gene up and parses it.
func (s *Store) Peptidoform(species, gene string) (*core.PeptidoformSet, error) {
	sequence, ok := s.Lookup(species, gene)
	if !ok {
		return nil, fmt.Errorf("germline %s/%s not found", species, gene)
	}
	return proforma.Parse(sequence)
}

// Species lists the stored species, sorted.
func (s *Store) Species() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT species FROM germline ORDER BY species`)
	if err != nil {
		return nil, fmt.Errorf("failed to list species: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var sp string
		if err := rows.Scan(&sp); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// Genes lists the gene names stored for a species, sorted.
func (s *Store) Genes(species string) ([]string, error) {
	rows, err := s.db.Query(`SELECT gene FROM germline WHERE species = ? ORDER BY gene`, species)
	if err != nil {
		return nil, fmt.Errorf("failed to list genes: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Close closes the prepared statements and the database.
func (s *Store) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	if s.lookupStmt != nil {
		s.lookupStmt.Close()
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close germline database: %w", err)
	}
	return nil
}
