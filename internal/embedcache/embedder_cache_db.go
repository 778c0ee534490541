// Package embedcache decorates an embedder with caching layers so identical
// text is never embedded twice: an in-process LRU for hot texts (repeated
// questions) and a database cache keyed by content hash that survives
// restarts (re-imports of mostly-unchanged documents).
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docask/internal/ai"
	"github.com/xxxsen/docask/internal/model"
	"github.com/xxxsen/docask/internal/repo"
)

func WrapDBCacheToEmbedder(e ai.IEmbedder, cacheRepo *repo.EmbeddingCacheRepo) ai.IEmbedder {
	if e == nil || cacheRepo == nil {
		return e
	}
	return &dbEmbedder{next: e, repo: cacheRepo}
}

type dbEmbedder struct {
	next ai.IEmbedder
	repo *repo.EmbeddingCacheRepo
}

func (d *dbEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := d.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (d *dbEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	modelName := cacheModelName(d.next.ModelName())
	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	hits := 0
	for i, text := range texts {
		values, ok, err := d.repo.Get(ctx, modelName, contentHash(text))
		if err != nil {
			return nil, err
		}
		if ok {
			vectors[i] = values
			hits++
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if hits > 0 {
		logutil.GetLogger(ctx).Debug("embedding cache hit (db)", zap.Int("hits", hits), zap.Int("total", len(texts)))
	}
	if len(missing) == 0 {
		return vectors, nil
	}
	fresh, err := d.next.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	for j, values := range fresh {
		vectors[missingIdx[j]] = values
		if err := d.repo.Save(ctx, &model.EmbeddingCache{
			ModelName:   modelName,
			ContentHash: contentHash(missing[j]),
			Embedding:   values,
			Ctime:       now,
		}); err != nil {
			logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
		}
	}
	return vectors, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}

func contentHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

func cacheModelName(modelName string) string {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	return modelName
}
