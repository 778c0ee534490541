package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docask/internal/ai"
	"github.com/xxxsen/docask/internal/config"
	"github.com/xxxsen/docask/internal/convo"
	"github.com/xxxsen/docask/internal/model"
)

type wordCounter struct{}

func (wordCounter) CountChatTokens(text string) int      { return len(strings.Fields(text)) }
func (wordCounter) CountEmbeddingTokens(text string) int { return len(strings.Fields(text)) }

type fakeGenerator struct {
	answer      string
	usage       model.TokenUsage
	streamTexts []string
	err         error
	prompts     []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, model.TokenUsage, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", model.TokenUsage{}, f.err
	}
	return f.answer, f.usage, nil
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, prompt string, maxOutputTokens int) (<-chan ai.StreamDelta, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	texts := f.streamTexts
	if len(texts) == 0 {
		texts = []string{f.answer}
	}
	out := make(chan ai.StreamDelta)
	go func() {
		defer close(out)
		for _, text := range texts {
			out <- ai.StreamDelta{Text: text}
		}
		usage := f.usage
		out <- ai.StreamDelta{Usage: &usage}
	}()
	return out, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

type fakeRetriever struct {
	vectorMatches  []model.ChunkMatch
	keywordMatches []model.ChunkMatch
	keywordCalled  bool
}

func (f *fakeRetriever) SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]model.ChunkMatch, error) {
	return f.vectorMatches, nil
}

func (f *fakeRetriever) FullTextSearch(ctx context.Context, query string, k int) ([]model.ChunkMatch, error) {
	f.keywordCalled = true
	return f.keywordMatches, nil
}

func testRAGConfig() config.RAGConfig {
	return config.RAGConfig{
		MaxRelevantChunks:     5,
		MaxInputTokens:        16385,
		MaxOutputTokens:       800,
		MessageLimit:          20,
		ConversationCacheSize: 100,
	}
}

func newTestSearchService(gen ai.IGenerator, retriever Retriever, cfg config.RAGConfig) (*SearchService, *convo.Store) {
	history := convo.NewStore(cfg.ConversationCacheSize, cfg.MessageLimit, time.Hour)
	chat := NewChatService(gen, history, cfg)
	svc := NewSearchService(chat, gen, &fakeEmbedder{vector: []float32{0.1, 0.2}}, retriever, wordCounter{}, cfg)
	return svc, history
}

func chunkMatch(id, name, content string) model.ChunkMatch {
	return model.ChunkMatch{
		Chunk:        model.Chunk{ID: id, DocumentID: "doc-1", Content: content},
		DocumentName: name,
	}
}

func TestAskQuestionAnswersWithCitations(t *testing.T) {
	gen := &fakeGenerator{
		answer: "Rome is the capital.【<citation document-id=\"doc-1\" chunk-id=\"c1\" filename=\"italy.pdf\">the capital</citation>】",
		usage:  model.TokenUsage{InputTokens: 100, OutputTokens: 20},
	}
	retriever := &fakeRetriever{vectorMatches: []model.ChunkMatch{chunkMatch("c1", "italy.pdf", "Rome is the capital of Italy.")}}
	svc, _ := newTestSearchService(gen, retriever, testRAGConfig())

	resp, err := svc.AskQuestion(context.Background(), "conv-1", "What is the capital of Italy?", false)
	require.NoError(t, err)
	require.Equal(t, "What is the capital of Italy?", resp.OriginalQuestion)
	require.Equal(t, "What is the capital of Italy?", resp.ReformulatedQuestion)
	require.Equal(t, "Rome is the capital.", resp.Answer)
	require.Len(t, resp.Citations, 1)
	require.Equal(t, "italy.pdf", resp.Citations[0].FileName)
	require.NotNil(t, resp.TokenUsage.Answer)
	require.Equal(t, 120, resp.TokenUsage.Answer.Total())
	require.Greater(t, resp.TokenUsage.EmbeddingTokens, 0)
	require.Nil(t, resp.TokenUsage.Reformulation)

	require.Len(t, gen.prompts, 1)
	require.Contains(t, gen.prompts[0], "Rome is the capital of Italy.")
}

func TestAskQuestionRecordsHistory(t *testing.T) {
	gen := &fakeGenerator{answer: "The answer."}
	svc, history := newTestSearchService(gen, &fakeRetriever{}, testRAGConfig())

	_, err := svc.AskQuestion(context.Background(), "conv-1", "A question?", false)
	require.NoError(t, err)

	turns := history.History("conv-1")
	require.Len(t, turns, 2)
	require.Equal(t, "A question?", turns[0].Text)
	require.Equal(t, "The answer.", turns[1].Text)
}

func TestAskQuestionReformulates(t *testing.T) {
	gen := &fakeGenerator{answer: "The reformulated answer.", usage: model.TokenUsage{InputTokens: 10, OutputTokens: 5}}
	svc, _ := newTestSearchService(gen, &fakeRetriever{}, testRAGConfig())

	resp, err := svc.AskQuestion(context.Background(), "conv-1", "And the capital?", true)
	require.NoError(t, err)
	require.Equal(t, "And the capital?", resp.OriginalQuestion)
	require.Equal(t, "The reformulated answer.", resp.ReformulatedQuestion)
	require.NotNil(t, resp.TokenUsage.Reformulation)
	require.Equal(t, 15, resp.TokenUsage.Reformulation.Total())

	// First call is the reformulation, second the answer.
	require.Len(t, gen.prompts, 2)
	require.Contains(t, gen.prompts[0], "Reformulate the following question")
	require.Contains(t, gen.prompts[1], "SOURCES:")
}

func TestAskQuestionEstimatesUsageWhenProviderReportsNone(t *testing.T) {
	gen := &fakeGenerator{answer: "Four words long answer."}
	svc, _ := newTestSearchService(gen, &fakeRetriever{}, testRAGConfig())

	resp, err := svc.AskQuestion(context.Background(), "conv-1", "q?", false)
	require.NoError(t, err)
	require.NotNil(t, resp.TokenUsage.Answer)
	require.Equal(t, 4, resp.TokenUsage.Answer.OutputTokens)
	require.Greater(t, resp.TokenUsage.Answer.InputTokens, 0)
}

func TestAskQuestionGeneratorErrorPropagates(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("backend down")}
	svc, history := newTestSearchService(gen, &fakeRetriever{}, testRAGConfig())

	_, err := svc.AskQuestion(context.Background(), "conv-1", "q?", false)
	require.Error(t, err)
	require.Empty(t, history.History("conv-1"))
}

func TestAskQuestionFullTextSearchMergedBehindVector(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	retriever := &fakeRetriever{
		vectorMatches: []model.ChunkMatch{
			chunkMatch("c1", "a.pdf", "vector first"),
			chunkMatch("c2", "a.pdf", "vector second"),
		},
		keywordMatches: []model.ChunkMatch{
			chunkMatch("c2", "a.pdf", "vector second"),
			chunkMatch("c3", "a.pdf", "keyword only"),
		},
	}
	cfg := testRAGConfig()
	cfg.EnableFullTextSearch = true
	svc, _ := newTestSearchService(gen, retriever, cfg)

	_, err := svc.AskQuestion(context.Background(), "conv-1", "q?", false)
	require.NoError(t, err)
	require.True(t, retriever.keywordCalled)

	prompt := gen.prompts[0]
	require.Contains(t, prompt, "keyword only")
	require.Less(t, strings.Index(prompt, "vector first"), strings.Index(prompt, "keyword only"))
	require.Equal(t, 1, strings.Count(prompt, "vector second"))
}

func TestAskQuestionStreamingFrames(t *testing.T) {
	gen := &fakeGenerator{
		streamTexts: []string{"Rome ", "is the capital.", "【<citation document-id=\"doc-1\" chunk-id=\"c1\" filename=\"italy.pdf\">the capital</citation>】"},
		usage:       model.TokenUsage{InputTokens: 50, OutputTokens: 10},
	}
	retriever := &fakeRetriever{vectorMatches: []model.ChunkMatch{chunkMatch("c1", "italy.pdf", "Rome is the capital of Italy.")}}
	svc, history := newTestSearchService(gen, retriever, testRAGConfig())

	items, err := svc.AskQuestionStreaming(context.Background(), "conv-1", "capital?", false)
	require.NoError(t, err)

	var frames []model.Response
	for item := range items {
		require.NoError(t, item.Err)
		frames = append(frames, item.Response)
	}

	require.GreaterOrEqual(t, len(frames), 3)
	require.Equal(t, model.StreamStateStart, frames[0].StreamState)
	require.Equal(t, "capital?", frames[0].OriginalQuestion)

	var streamed strings.Builder
	for _, frame := range frames[1 : len(frames)-1] {
		require.Equal(t, model.StreamStateAppend, frame.StreamState)
		streamed.WriteString(frame.Answer)
	}
	require.Equal(t, "Rome is the capital.", streamed.String())

	end := frames[len(frames)-1]
	require.Equal(t, model.StreamStateEnd, end.StreamState)
	require.Len(t, end.Citations, 1)
	require.NotNil(t, end.TokenUsage.Answer)
	require.Equal(t, 60, end.TokenUsage.Answer.Total())

	turns := history.History("conv-1")
	require.Len(t, turns, 2)
	require.Equal(t, "Rome is the capital.", turns[1].Text)
}

func TestAskQuestionStreamingMidStreamError(t *testing.T) {
	svc, history := newTestSearchService(&failingStreamGenerator{}, &fakeRetriever{}, testRAGConfig())

	items, err := svc.AskQuestionStreaming(context.Background(), "conv-1", "q?", false)
	require.NoError(t, err)

	var sawErr bool
	var frames []model.Response
	for item := range items {
		if item.Err != nil {
			sawErr = true
			continue
		}
		frames = append(frames, item.Response)
	}
	require.True(t, sawErr)
	// A failed stream never produces an end frame or a history entry.
	for _, frame := range frames {
		require.NotEqual(t, model.StreamStateEnd, frame.StreamState)
	}
	require.Empty(t, history.History("conv-1"))
}

type failingStreamGenerator struct{}

func (f *failingStreamGenerator) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, model.TokenUsage, error) {
	return "", model.TokenUsage{}, errors.New("unavailable")
}

func (f *failingStreamGenerator) GenerateStream(ctx context.Context, prompt string, maxOutputTokens int) (<-chan ai.StreamDelta, error) {
	out := make(chan ai.StreamDelta)
	go func() {
		defer close(out)
		out <- ai.StreamDelta{Text: "partial "}
		out <- ai.StreamDelta{Err: errors.New("connection reset")}
	}()
	return out, nil
}
