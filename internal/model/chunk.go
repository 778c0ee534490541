package model

type Chunk struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	Index       int       `json:"index"`
	PageNumber  *int      `json:"page_number,omitempty"`
	IndexOnPage int       `json:"index_on_page"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// ChunkMatch is a chunk returned by retrieval, carrying the owning document's
// name and the ranking distance (cosine for vector search, 1.0 for keyword
// matches so they always sort behind vector hits).
type ChunkMatch struct {
	Chunk
	DocumentName string  `json:"document_name"`
	Distance     float64 `json:"distance"`
}
