package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	MaxUploadSize int64            `json:"max_upload_size"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Database      DatabaseConfig   `json:"database"`
	AI            AIConfig         `json:"ai"`
	RAG           RAGConfig        `json:"rag"`
	FileStore     FileStoreConfig  `json:"file_store"`
	Jobs          JobsConfig       `json:"jobs"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIConfig struct {
	ChatProvider   string      `json:"chat_provider"`
	ChatModel      string      `json:"chat_model"`
	ChatArgs       interface{} `json:"chat_args"`
	EmbedProvider  string      `json:"embed_provider"`
	EmbedModel     string      `json:"embed_model"`
	EmbedArgs      interface{} `json:"embed_args"`
	TimeoutSeconds int         `json:"timeout_seconds"`
}

// RAGConfig tunes chunking, retrieval and prompt budgeting.
type RAGConfig struct {
	EmbeddingBatchSize       int  `json:"embedding_batch_size"`
	EmbeddingDimensions      int  `json:"embedding_dimensions"`
	MaxTokensPerLine         int  `json:"max_tokens_per_line"`
	MaxTokensPerParagraph    int  `json:"max_tokens_per_paragraph"`
	OverlapTokens            int  `json:"overlap_tokens"`
	MaxRelevantChunks        int  `json:"max_relevant_chunks"`
	MaxInputTokens           int  `json:"max_input_tokens"`
	MaxOutputTokens          int  `json:"max_output_tokens"`
	MessageLimit             int  `json:"message_limit"`
	MessageExpirationMinutes int  `json:"message_expiration_minutes"`
	ConversationCacheSize    int  `json:"conversation_cache_size"`
	EnableFullTextSearch     bool `json:"enable_full_text_search"`
}

func (c RAGConfig) MessageExpiration() time.Duration {
	return time.Duration(c.MessageExpirationMinutes) * time.Minute
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type JobsConfig struct {
	EmbeddingCacheCleanupSpec string `json:"embedding_cache_cleanup_spec"`
	EmbeddingCacheMaxAgeDays  int    `json:"embedding_cache_max_age_days"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.AI.ChatProvider == "" || cfg.AI.ChatModel == "" {
		return nil, fmt.Errorf("ai.chat_provider and ai.chat_model are required")
	}
	if cfg.AI.EmbedProvider == "" || cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_provider and ai.embed_model are required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = 100 << 20
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
		cfg.FileStore.Data = map[string]interface{}{"dir": "./data/files"}
	}
	applyRAGDefaults(&cfg.RAG)
	if cfg.Jobs.EmbeddingCacheCleanupSpec == "" {
		cfg.Jobs.EmbeddingCacheCleanupSpec = "30 3 * * *"
	}
	if cfg.Jobs.EmbeddingCacheMaxAgeDays == 0 {
		cfg.Jobs.EmbeddingCacheMaxAgeDays = 30
	}
	return &cfg, nil
}

func applyRAGDefaults(c *RAGConfig) {
	if c.EmbeddingBatchSize == 0 {
		c.EmbeddingBatchSize = 32
	}
	if c.EmbeddingDimensions == 0 {
		c.EmbeddingDimensions = 1536
	}
	if c.MaxTokensPerLine == 0 {
		c.MaxTokensPerLine = 300
	}
	if c.MaxTokensPerParagraph == 0 {
		c.MaxTokensPerParagraph = 1000
	}
	if c.OverlapTokens == 0 {
		c.OverlapTokens = 100
	}
	if c.MaxRelevantChunks == 0 {
		c.MaxRelevantChunks = 5
	}
	if c.MaxInputTokens == 0 {
		c.MaxInputTokens = 16385
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = 800
	}
	if c.MessageLimit == 0 {
		c.MessageLimit = 20
	}
	if c.MessageExpirationMinutes == 0 {
		c.MessageExpirationMinutes = 60
	}
	if c.ConversationCacheSize == 0 {
		c.ConversationCacheSize = 10000
	}
}
