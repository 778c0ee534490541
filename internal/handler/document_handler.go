package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xxxsen/docask/internal/pkg/response"
	"github.com/xxxsen/docask/internal/service"
)

type DocumentHandler struct {
	documents     *service.DocumentService
	maxUploadSize int64
}

func NewDocumentHandler(documents *service.DocumentService, maxUploadSize int64) *DocumentHandler {
	return &DocumentHandler{documents: documents, maxUploadSize: maxUploadSize}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_file", "file is required")
		return
	}
	if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
		response.Error(c, http.StatusBadRequest, "invalid_file", "file too large (max "+strconv.FormatInt(h.maxUploadSize, 10)+" bytes)")
		return
	}
	documentID := c.PostForm("document_id")
	if documentID != "" {
		if _, err := uuid.Parse(documentID); err != nil {
			response.Error(c, http.StatusBadRequest, "invalid", "document_id must be a uuid")
			return
		}
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_file", "failed to open file")
		return
	}
	defer opened.Close()
	data, err := io.ReadAll(opened)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_file", "failed to read file")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	id, embeddingTokens, err := h.documents.Import(c.Request.Context(), data, file.Filename, contentType, documentID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"document_id": id, "embedding_tokens": embeddingTokens})
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}

func (h *DocumentHandler) Chunks(c *gin.Context) {
	chunks, err := h.documents.Chunks(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, chunks)
}

func (h *DocumentHandler) ChunkEmbedding(c *gin.Context) {
	chunk, err := h.documents.ChunkEmbedding(c.Request.Context(), c.Param("id"), c.Param("chunkId"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, chunk)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

type deleteBatchRequest struct {
	DocumentIDs []string `json:"document_ids"`
}

func (h *DocumentHandler) DeleteBatch(c *gin.Context) {
	var req deleteBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request")
		return
	}
	if len(req.DocumentIDs) == 0 {
		response.Error(c, http.StatusBadRequest, "invalid", "document_ids required")
		return
	}
	if err := h.documents.DeleteMany(c.Request.Context(), req.DocumentIDs); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *DocumentHandler) Download(c *gin.Context) {
	file, doc, err := h.documents.File(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer file.Close()
	c.Header("Content-Type", doc.ContentType)
	c.Header("Content-Disposition", `attachment; filename="`+doc.Name+`"`)
	_, _ = io.Copy(c.Writer, file)
}
