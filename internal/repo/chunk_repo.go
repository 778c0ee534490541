package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/docask/internal/model"
	"github.com/xxxsen/docask/internal/pkg/dbutil"
	apperr "github.com/xxxsen/docask/internal/pkg/errors"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) ListByDocument(ctx context.Context, documentID string) ([]model.Chunk, error) {
	where := map[string]interface{}{
		"document_id": documentID,
		"_orderby":    "idx",
	}
	query, args, err := builder.BuildSelect("document_chunks",
		where, []string{"id", "document_id", "idx", "page_number", "index_on_page", "content"})
	if err != nil {
		return nil, err
	}
	query, args = dbutil.Finalize(query, args)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	chunks := make([]model.Chunk, 0)
	for rows.Next() {
		var chunk model.Chunk
		var page sql.NullInt64
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index, &page, &chunk.IndexOnPage, &chunk.Content); err != nil {
			return nil, err
		}
		if page.Valid {
			p := int(page.Int64)
			chunk.PageNumber = &p
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// Get returns a single chunk including its stored embedding.
func (r *ChunkRepo) Get(ctx context.Context, documentID, chunkID string) (*model.Chunk, error) {
	const query = `
		SELECT id, document_id, idx, page_number, index_on_page, content, embedding
		FROM document_chunks
		WHERE document_id = $1 AND id = $2
	`
	var chunk model.Chunk
	var page sql.NullInt64
	var embedding pgvector.Vector
	row := r.db.QueryRowContext(ctx, query, documentID, chunkID)
	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index, &page, &chunk.IndexOnPage, &chunk.Content, &embedding); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if page.Valid {
		p := int(page.Int64)
		chunk.PageNumber = &p
	}
	chunk.Embedding = embedding.Slice()
	return &chunk, nil
}

// SimilaritySearch returns the k nearest chunks by cosine distance, best
// match first, joined with the owning document's name.
func (r *ChunkRepo) SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]model.ChunkMatch, error) {
	const query = `
		SELECT c.id, c.document_id, c.idx, c.page_number, c.index_on_page, c.content,
		       d.name, c.embedding <=> $1 AS distance
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		ORDER BY distance
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatches(rows)
}

// FullTextSearch is the optional secondary retrieval path; matches carry no
// vector distance and rank behind similarity results.
func (r *ChunkRepo) FullTextSearch(ctx context.Context, query string, k int) ([]model.ChunkMatch, error) {
	const stmt = `
		SELECT c.id, c.document_id, c.idx, c.page_number, c.index_on_page, c.content,
		       d.name, 1.0 AS distance
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE to_tsvector('english', c.content) @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(to_tsvector('english', c.content), plainto_tsquery('english', $1)) DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, stmt, query, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatches(rows)
}

func scanMatches(rows *sql.Rows) ([]model.ChunkMatch, error) {
	matches := make([]model.ChunkMatch, 0)
	for rows.Next() {
		var m model.ChunkMatch
		var page sql.NullInt64
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.Index, &page, &m.IndexOnPage, &m.Content, &m.DocumentName, &m.Distance); err != nil {
			return nil, err
		}
		if page.Valid {
			p := int(page.Int64)
			m.PageNumber = &p
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
