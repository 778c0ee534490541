package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Documents *DocumentHandler
	Ask       *AskHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/documents", deps.Documents.Upload)
	api.GET("/documents", deps.Documents.List)
	api.GET("/documents/:id/chunks", deps.Documents.Chunks)
	api.GET("/documents/:id/chunks/:chunkId", deps.Documents.ChunkEmbedding)
	api.GET("/documents/:id/file", deps.Documents.Download)
	api.DELETE("/documents/:id", deps.Documents.Delete)
	api.POST("/documents/delete-batch", deps.Documents.DeleteBatch)

	api.POST("/ask", deps.Ask.Ask)
	api.POST("/ask-streaming", deps.Ask.AskStreaming)
}
