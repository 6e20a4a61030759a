// Package postgres provides a knowledge store backed by Postgres with the
// pgvector extension. Ranking is delegated to the hybrid_search SQL function.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/medlens/internal/adapters/driven/storage/postgres/migrations"
	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/logger"
)

// Ensure Store implements the interfaces.
var (
	_ driven.KnowledgeStore = (*Store)(nil)
	_ driven.HybridRanker   = (*Store)(nil)
)

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultPoolConfig returns the pool settings used by NewStore.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// Store is a Postgres-backed knowledge store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn, verifies the connection and applies pending migrations.
func NewStore(ctx context.Context, dsn string, cfg PoolConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx, migrations.FS); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// migrate applies every .sql file in fsys not yet recorded in schema_migrations.
func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	applied, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("failed to scan migration versions: %w", err)
	}

	files, err := pendingMigrations(fsys, applied)
	if err != nil {
		return err
	}

	for _, file := range files {
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for %s: %w", file, err)
		}

		if _, err := tx.Exec(ctx, string(content)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}

		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`,
			strings.TrimSuffix(file, ".sql")); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %s: %w", file, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", file, err)
		}

		logger.Info("applied migration %s", file)
	}

	return nil
}

// pendingMigrations lists the .sql files in fsys whose version is not in
// applied, sorted by name.
func pendingMigrations(fsys fs.FS, applied []string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		if done[strings.TrimSuffix(name, ".sql")] {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

// SaveDocument stores a document.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO knowledge_documents (id, title, content, source, report_type, content_category, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, doc.ID, doc.Title, doc.Content, doc.Source, doc.ReportType, doc.ContentCategory, metadataJSON)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

// SaveChunk stores a single embedded chunk.
func (s *Store) SaveChunk(ctx context.Context, chunk *domain.Chunk) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO document_chunks
			(id, document_id, chunk_index, content, embedding, source, report_type, content_category)
		VALUES ($1, $2, $3, $4, $5::vector, $6, $7, $8)
	`, chunk.ID, chunk.DocumentID, chunk.Index, chunk.Content, vectorParam(chunk.Embedding),
		chunk.Source, chunk.ReportType, chunk.ContentCategory)
	if err != nil {
		return fmt.Errorf("inserting chunk: %w", err)
	}
	return nil
}

// HybridSearch calls the hybrid_search function.
func (s *Store) HybridSearch(ctx context.Context, q domain.HybridQuery) ([]domain.RetrievedChunk, error) {
	if len(q.Embedding) == 0 {
		return nil, fmt.Errorf("hybrid search: %w: empty query embedding", domain.ErrInvalidInput)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id::text, document_id::text, chunk_index, content, source, report_type, content_category,
			similarity, text_rank, combined_score
		FROM hybrid_search($1::vector, $2, $3, $4, $5, $6, $7)
	`, hybridArgs(q)...)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	defer rows.Close()

	var results []domain.RetrievedChunk
	for rows.Next() {
		var r domain.RetrievedChunk
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Index, &r.Content, &r.Source, &r.ReportType,
			&r.ContentCategory, &r.Similarity, &r.TextRank, &r.CombinedScore); err != nil {
			return nil, fmt.Errorf("scanning hybrid result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	return results, nil
}

// DocumentTitles returns titles for the known IDs in one query.
func (s *Store) DocumentTitles(ctx context.Context, ids []string) (map[string]string, error) {
	titles := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, title FROM knowledge_documents WHERE id::text = ANY($1::text[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying titles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scanning title: %w", err)
		}
		titles[id] = title
	}
	return titles, rows.Err()
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, title, content, source, report_type, content_category, metadata, created_at
		FROM knowledge_documents WHERE id::text = $1
	`, id).Scan(&doc.ID, &doc.Title, &doc.Content, &doc.Source, &doc.ReportType,
		&doc.ContentCategory, &metadataJSON, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}
	if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	return &doc, nil
}

// hybridArgs orders the hybrid_search parameters. Empty filters become SQL NULL.
func hybridArgs(q domain.HybridQuery) []any {
	matchCount := q.MatchCount
	if matchCount <= 0 {
		matchCount = domain.DefaultMatchCount
	}
	return []any{
		vectorParam(q.Embedding),
		q.Text,
		nullable(q.ReportType),
		nullable(q.Category),
		matchCount,
		q.VectorWeight,
		q.TextWeight,
	}
}

// vectorParam renders v in pgvector text form, or nil for SQL NULL.
func vectorParam(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v).String()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
