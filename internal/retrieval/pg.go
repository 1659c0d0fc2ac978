package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	pgvector "github.com/pgvector/pgvector-go"
)

// PGIndex stores examples in Postgres with a pgvector column. Append-only:
// rows are inserted and searched, never updated.
type PGIndex struct {
	db  *sql.DB
	dim int

	schemaOnce sync.Once
	schemaErr  error
}

func NewPGIndex(dsn string, dim int) (*PGIndex, error) {
	if dim <= 0 {
		dim = 768
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PGIndex{db: db, dim: dim}, nil
}

func (p *PGIndex) ensureSchema(ctx context.Context) error {
	p.schemaOnce.Do(func() {
		stmts := []string{
			`CREATE EXTENSION IF NOT EXISTS vector`,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS scene_examples (
				id TEXT PRIMARY KEY,
				prompt TEXT NOT NULL,
				code TEXT NOT NULL,
				embedding vector(%d) NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, p.dim),
		}
		for _, q := range stmts {
			if _, err := p.db.ExecContext(ctx, q); err != nil {
				p.schemaErr = err
				return
			}
		}
	})
	return p.schemaErr
}

func (p *PGIndex) Add(ctx context.Context, vec []float32, ex Example) error {
	if err := p.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO scene_examples (id, prompt, code, embedding, created_at) VALUES ($1, $2, $3, $4, $5)`,
		ex.ID, ex.Prompt, ex.Code, pgvector.NewVector(vec), ex.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert example %s: %w", ex.ID, err)
	}
	return nil
}

func (p *PGIndex) Search(ctx context.Context, vec []float32, k int) ([]Example, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, prompt, code, created_at FROM scene_examples ORDER BY embedding <=> $1 LIMIT $2`,
		pgvector.NewVector(vec), k,
	)
	if err != nil {
		return nil, fmt.Errorf("search examples: %w", err)
	}
	defer rows.Close()

	var out []Example
	for rows.Next() {
		var ex Example
		if err := rows.Scan(&ex.ID, &ex.Prompt, &ex.Code, &ex.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

func (p *PGIndex) Close() error {
	return p.db.Close()
}
