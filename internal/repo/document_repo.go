package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/docask/internal/model"
	"github.com/xxxsen/docask/internal/pkg/dbutil"
	apperr "github.com/xxxsen/docask/internal/pkg/errors"
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Replace stores a document and its chunks in one transaction. Any previous
// document under the same id is deleted first (chunks cascade), so a
// re-import either fully replaces the old version or leaves it untouched.
func (r *DocumentRepo) Replace(ctx context.Context, doc *model.Document, chunks []model.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, doc.ID); err != nil {
		return fmt.Errorf("delete previous document: %w", err)
	}
	const insertDoc = `
		INSERT INTO documents (id, name, content_type, file_key, creation_date)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, insertDoc, doc.ID, doc.Name, doc.ContentType, doc.FileKey, doc.CreationDate); err != nil {
		// A unique violation here means two imports raced on the same id.
		if dbutil.IsConflict(err) {
			return fmt.Errorf("insert document: %w", apperr.ErrConflict)
		}
		return fmt.Errorf("insert document: %w", err)
	}

	const insertChunk = `
		INSERT INTO document_chunks (id, document_id, idx, page_number, index_on_page, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	stmt, err := tx.PrepareContext(ctx, insertChunk)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, chunk := range chunks {
		var page interface{}
		if chunk.PageNumber != nil {
			page = *chunk.PageNumber
		}
		if _, err := stmt.ExecContext(ctx, chunk.ID, doc.ID, chunk.Index, page, chunk.IndexOnPage, chunk.Content, pgvector.NewVector(chunk.Embedding)); err != nil {
			if dbutil.IsConflict(err) {
				return fmt.Errorf("insert chunk %d: %w", chunk.Index, apperr.ErrConflict)
			}
			return fmt.Errorf("insert chunk %d: %w", chunk.Index, err)
		}
	}
	return tx.Commit()
}

func (r *DocumentRepo) List(ctx context.Context) ([]model.Document, error) {
	const query = `
		SELECT d.id, d.name, d.content_type, d.file_key, d.creation_date, COUNT(c.id)
		FROM documents d
		LEFT JOIN document_chunks c ON c.document_id = d.id
		GROUP BY d.id, d.name, d.content_type, d.file_key, d.creation_date
		ORDER BY d.name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.ContentType, &doc.FileKey, &doc.CreationDate, &doc.ChunkCount); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (*model.Document, error) {
	const query = `
		SELECT d.id, d.name, d.content_type, d.file_key, d.creation_date, COUNT(c.id)
		FROM documents d
		LEFT JOIN document_chunks c ON c.document_id = d.id
		WHERE d.id = $1
		GROUP BY d.id, d.name, d.content_type, d.file_key, d.creation_date
	`
	var doc model.Document
	row := r.db.QueryRowContext(ctx, query, id)
	if err := row.Scan(&doc.ID, &doc.Name, &doc.ContentType, &doc.FileKey, &doc.CreationDate, &doc.ChunkCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM documents WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}
