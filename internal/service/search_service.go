package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docask/internal/ai"
	"github.com/xxxsen/docask/internal/citation"
	"github.com/xxxsen/docask/internal/config"
	"github.com/xxxsen/docask/internal/model"
	"github.com/xxxsen/docask/internal/prompt"
)

// Retriever is the similarity index the orchestrator queries; ChunkRepo
// implements it against pgvector.
type Retriever interface {
	SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]model.ChunkMatch, error)
	FullTextSearch(ctx context.Context, query string, k int) ([]model.ChunkMatch, error)
}

// TokenCounter is the part of the tokenizer the services need.
type TokenCounter interface {
	CountChatTokens(text string) int
	CountEmbeddingTokens(text string) int
}

// StreamItem is one frame of a streaming answer. Err terminates the stream.
type StreamItem struct {
	Response model.Response
	Err      error
}

// SearchService orchestrates a question: reformulate, embed, retrieve,
// assemble the context prompt, complete, extract citations, record history.
type SearchService struct {
	chat      *ChatService
	generator ai.IGenerator
	embedder  ai.IEmbedder
	retriever Retriever
	tk        TokenCounter
	cfg       config.RAGConfig
}

func NewSearchService(
	chat *ChatService,
	generator ai.IGenerator,
	embedder ai.IEmbedder,
	retriever Retriever,
	tk TokenCounter,
	cfg config.RAGConfig,
) *SearchService {
	return &SearchService{
		chat:      chat,
		generator: generator,
		embedder:  embedder,
		retriever: retriever,
		tk:        tk,
		cfg:       cfg,
	}
}

func (s *SearchService) AskQuestion(ctx context.Context, conversationID, question string, reformulate bool) (*model.Response, error) {
	reformulated, matches, usage, err := s.prepare(ctx, conversationID, question, reformulate)
	if err != nil {
		return nil, err
	}

	answerPrompt, included := prompt.BuildAnswerPrompt(reformulated, matches, s.limits(), s.tk.CountChatTokens)
	logutil.GetLogger(ctx).Debug("context assembled", zap.Int("candidates", len(matches)), zap.Int("included", included))

	raw, answerUsage, err := s.generator.Generate(ctx, answerPrompt, s.cfg.MaxOutputTokens)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}
	if answerUsage.Total() == 0 {
		answerUsage = s.estimateUsage(answerPrompt, raw)
	}
	usage.Answer = &answerUsage

	clean, citations := citation.Extract(raw)
	s.chat.RecordInteraction(conversationID, question, clean)

	return &model.Response{
		OriginalQuestion:     question,
		ReformulatedQuestion: reformulated,
		Answer:               clean,
		TokenUsage:           usage,
		Citations:            citations,
	}, nil
}

// AskQuestionStreaming behaves like AskQuestion but yields the answer as it
// is generated. Frames: one start (question fields), zero or more appends
// (visible answer fragments, citation markup suppressed), one end (usage and
// citations). The conversation history is updated only after the stream has
// fully drained.
func (s *SearchService) AskQuestionStreaming(ctx context.Context, conversationID, question string, reformulate bool) (<-chan StreamItem, error) {
	reformulated, matches, usage, err := s.prepare(ctx, conversationID, question, reformulate)
	if err != nil {
		return nil, err
	}

	answerPrompt, _ := prompt.BuildAnswerPrompt(reformulated, matches, s.limits(), s.tk.CountChatTokens)
	deltas, err := s.generator.GenerateStream(ctx, answerPrompt, s.cfg.MaxOutputTokens)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	out := make(chan StreamItem)
	go func() {
		defer close(out)
		out <- StreamItem{Response: model.Response{
			OriginalQuestion:     question,
			ReformulatedQuestion: reformulated,
			StreamState:          model.StreamStateStart,
		}}

		var filter citation.StreamFilter
		var answerUsage *model.TokenUsage
		for delta := range deltas {
			if delta.Err != nil {
				out <- StreamItem{Err: delta.Err}
				return
			}
			if delta.Usage != nil {
				answerUsage = delta.Usage
			}
			if delta.Text == "" {
				continue
			}
			visible := filter.Feed(delta.Text)
			if visible == "" {
				continue
			}
			select {
			case out <- StreamItem{Response: model.Response{Answer: visible, StreamState: model.StreamStateAppend}}:
			case <-ctx.Done():
				return
			}
		}
		if ctx.Err() != nil {
			// Cancelled mid-stream: no history update, no end frame.
			return
		}

		full := filter.Text()
		clean, citations := citation.Extract(full)
		if answerUsage == nil {
			estimated := s.estimateUsage(answerPrompt, full)
			answerUsage = &estimated
		}
		usage.Answer = answerUsage
		s.chat.RecordInteraction(conversationID, question, clean)
		out <- StreamItem{Response: model.Response{
			StreamState: model.StreamStateEnd,
			TokenUsage:  usage,
			Citations:   citations,
		}}
	}()
	return out, nil
}

// prepare runs the shared front half of both paths: reformulation, question
// embedding and retrieval.
func (s *SearchService) prepare(ctx context.Context, conversationID, question string, reformulate bool) (string, []model.ChunkMatch, *model.TokenUsageBreakdown, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("conversation_id", conversationID))
	usage := &model.TokenUsageBreakdown{}

	reformulated := question
	if reformulate {
		text, reformUsage, err := s.chat.Reformulate(ctx, conversationID, question)
		if err != nil {
			return "", nil, nil, fmt.Errorf("reformulate: %w", err)
		}
		reformulated = text
		usage.Reformulation = &reformUsage
	}

	embedding, err := s.embedder.Embed(ctx, reformulated)
	if err != nil {
		return "", nil, nil, fmt.Errorf("embed question: %w", err)
	}
	usage.EmbeddingTokens = s.tk.CountEmbeddingTokens(reformulated)

	matches, err := s.retriever.SimilaritySearch(ctx, embedding, s.cfg.MaxRelevantChunks)
	if err != nil {
		return "", nil, nil, fmt.Errorf("similarity search: %w", err)
	}
	if s.cfg.EnableFullTextSearch {
		keyword, err := s.retriever.FullTextSearch(ctx, reformulated, s.cfg.MaxRelevantChunks)
		if err != nil {
			return "", nil, nil, fmt.Errorf("full text search: %w", err)
		}
		matches = mergeMatches(matches, keyword)
	}
	logger.Debug("chunks retrieved", zap.Int("count", len(matches)))
	return reformulated, matches, usage, nil
}

func (s *SearchService) limits() prompt.Limits {
	return prompt.Limits{
		MaxInputTokens:  s.cfg.MaxInputTokens,
		MaxOutputTokens: s.cfg.MaxOutputTokens,
	}
}

func (s *SearchService) estimateUsage(promptText, answer string) model.TokenUsage {
	return model.TokenUsage{
		InputTokens:  s.tk.CountChatTokens(promptText),
		OutputTokens: s.tk.CountChatTokens(answer),
	}
}

// mergeMatches unions keyword matches behind the vector ranking,
// de-duplicated by chunk id.
func mergeMatches(vector, keyword []model.ChunkMatch) []model.ChunkMatch {
	seen := make(map[string]bool, len(vector))
	for _, m := range vector {
		seen[m.ID] = true
	}
	merged := vector
	for _, m := range keyword {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		merged = append(merged, m)
	}
	return merged
}
