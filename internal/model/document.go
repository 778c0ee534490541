package model

import "time"

type Document struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ContentType  string    `json:"content_type"`
	FileKey      string    `json:"-"`
	CreationDate time.Time `json:"creation_date"`
	ChunkCount   int       `json:"chunk_count"`
}

/// Page is the unit a content decoder produces: the raw text of one page of
// the source document. Formats without page structure decode to a single page.
type Page struct {
	Number  int
	Content string
}
