package model

// Citation points at the exact chunk an answer span was taken from.
type Citation struct {
	DocumentID  string `json:"document_id"`
	ChunkID     string `json:"chunk_id"`
	FileName    string `json:"filename"`
	PageNumber  *int   `json:"page_number,omitempty"`
	IndexOnPage int    `json:"index_on_page"`
	Quote       string `json:"quote"`
}
