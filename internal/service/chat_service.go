package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docask/internal/ai"
	"github.com/xxxsen/docask/internal/config"
	"github.com/xxxsen/docask/internal/convo"
	"github.com/xxxsen/docask/internal/model"
	"github.com/xxxsen/docask/internal/prompt"
)

// ChatService manages conversation history and question reformulation.
// A follow-up like "and what about page two?" is rewritten into a
// self-contained question before it is embedded for retrieval.
type ChatService struct {
	generator ai.IGenerator
	history   *convo.Store
	cfg       config.RAGConfig
}

func NewChatService(generator ai.IGenerator, history *convo.Store, cfg config.RAGConfig) *ChatService {
	return &ChatService{generator: generator, history: history, cfg: cfg}
}

// Reformulate rewrites a question using the conversation so far and records
// the exchange in the history.
func (s *ChatService) Reformulate(ctx context.Context, conversationID, question string) (string, model.TokenUsage, error) {
	history := s.history.History(conversationID)
	reformulated, usage, err := s.generator.Generate(ctx, prompt.ReformulationPrompt(history, question), s.cfg.MaxOutputTokens)
	if err != nil {
		return "", usage, err
	}
	logutil.GetLogger(ctx).Debug("question reformulated",
		zap.String("conversation_id", conversationID),
		zap.String("reformulated", reformulated),
	)
	s.history.Append(conversationID, question, reformulated)
	return reformulated, usage, nil
}

// RecordInteraction stores a completed question/answer pair. It is called
// only once the full answer is known, so a cancelled request never leaves a
// half-recorded turn behind.
func (s *ChatService) RecordInteraction(conversationID, question, answer string) {
	s.history.Append(conversationID, question, answer)
}
