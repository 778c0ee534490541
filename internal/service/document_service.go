package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docask/internal/ai"
	"github.com/xxxsen/docask/internal/chunker"
	"github.com/xxxsen/docask/internal/config"
	"github.com/xxxsen/docask/internal/decoder"
	"github.com/xxxsen/docask/internal/filestore"
	"github.com/xxxsen/docask/internal/model"
)

// DocumentStore persists documents together with their chunks. Replace is
// transactional: a re-import either fully swaps the old version or leaves it
// untouched.
type DocumentStore interface {
	Replace(ctx context.Context, doc *model.Document, chunks []model.Chunk) error
	List(ctx context.Context) ([]model.Document, error)
	Get(ctx context.Context, id string) (*model.Document, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) error
}

// ChunkStore reads back stored chunks for inspection endpoints.
type ChunkStore interface {
	ListByDocument(ctx context.Context, documentID string) ([]model.Chunk, error)
	Get(ctx context.Context, documentID, chunkID string) (*model.Chunk, error)
}

// DocumentService owns the import pipeline: decode the upload, chunk it per
// page, embed the chunks and atomically replace whatever was stored under the
// document id before. It also serves document/chunk inspection and deletion.
type DocumentService struct {
	decoders  *decoder.Registry
	chunkers  *chunker.Registry
	embedder  ai.IEmbedder
	documents DocumentStore
	chunks    ChunkStore
	files     filestore.Store
	tk        TokenCounter
	cfg       config.RAGConfig
}

func NewDocumentService(
	decoders *decoder.Registry,
	chunkers *chunker.Registry,
	embedder ai.IEmbedder,
	documents DocumentStore,
	chunks ChunkStore,
	files filestore.Store,
	tk TokenCounter,
	cfg config.RAGConfig,
) *DocumentService {
	return &DocumentService{
		decoders:  decoders,
		chunkers:  chunkers,
		embedder:  embedder,
		documents: documents,
		chunks:    chunks,
		files:     files,
		tk:        tk,
		cfg:       cfg,
	}
}

// Import ingests one uploaded file. A non-empty documentID replaces that
// document's chunks wholesale; an empty one creates a new document. Returns
// the document id and the number of embedding tokens consumed.
func (s *DocumentService) Import(ctx context.Context, data []byte, name, contentType, documentID string) (string, int, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("name", name), zap.String("content_type", contentType))

	dec, err := s.decoders.For(contentType)
	if err != nil {
		return "", 0, err
	}
	pages, err := dec.Decode(ctx, data)
	if err != nil {
		return "", 0, err
	}

	if documentID == "" {
		documentID = uuid.NewString()
	}
	splitter := s.chunkers.For(contentType)

	var chunks []model.Chunk
	embeddingTokens := 0
	index := 0
	for _, page := range pages {
		pageNumber := page.Number
		for indexOnPage, paragraph := range splitter.Split(page.Content) {
			embeddingTokens += s.tk.CountEmbeddingTokens(paragraph)
			chunks = append(chunks, model.Chunk{
				ID:          uuid.NewString(),
				DocumentID:  documentID,
				Index:       index,
				PageNumber:  &pageNumber,
				IndexOnPage: indexOnPage,
				Content:     paragraph,
			})
			index++
		}
	}
	logger.Info("document decoded", zap.Int("pages", len(pages)), zap.Int("chunks", len(chunks)), zap.Int("embedding_tokens", embeddingTokens))

	if err := s.embedChunks(ctx, chunks); err != nil {
		return "", 0, err
	}

	doc := &model.Document{
		ID:           documentID,
		Name:         name,
		ContentType:  contentType,
		FileKey:      documentID,
		CreationDate: time.Now().UTC(),
	}
	if err := s.documents.Replace(ctx, doc, chunks); err != nil {
		return "", 0, fmt.Errorf("store document: %w", err)
	}
	if err := s.files.Save(ctx, doc.FileKey, bytes.NewReader(data), int64(len(data))); err != nil {
		// The document is already queryable; a lost archive only disables re-download.
		logger.Warn("failed to archive original file", zap.Error(err))
	}
	logger.Info("document imported", zap.String("document_id", documentID))
	return documentID, embeddingTokens, nil
}

func (s *DocumentService) embedChunks(ctx context.Context, chunks []model.Chunk) error {
	batchSize := s.cfg.EmbeddingBatchSize
	if batchSize <= 0 {
		batchSize = len(chunks)
	}
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Content)
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		for i := range vectors {
			chunks[start+i].Embedding = vectors[i]
		}
	}
	return nil
}

func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	return s.documents.List(ctx)
}

func (s *DocumentService) Chunks(ctx context.Context, documentID string) ([]model.Chunk, error) {
	if _, err := s.documents.Get(ctx, documentID); err != nil {
		return nil, err
	}
	return s.chunks.ListByDocument(ctx, documentID)
}

func (s *DocumentService) ChunkEmbedding(ctx context.Context, documentID, chunkID string) (*model.Chunk, error) {
	return s.chunks.Get(ctx, documentID, chunkID)
}

func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.documents.Delete(ctx, documentID); err != nil {
		return err
	}
	if doc.FileKey != "" {
		if err := s.files.Remove(ctx, doc.FileKey); err != nil {
			logutil.GetLogger(ctx).Warn("failed to remove archived file", zap.Error(err))
		}
	}
	return nil
}

func (s *DocumentService) DeleteMany(ctx context.Context, documentIDs []string) error {
	return s.documents.DeleteMany(ctx, documentIDs)
}

// File opens the archived original upload for download.
func (s *DocumentService) File(ctx context.Context, documentID string) (io.ReadCloser, *model.Document, error) {
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(ctx, doc.FileKey)
	if err != nil {
		return nil, nil, err
	}
	return rc, doc, nil
}
