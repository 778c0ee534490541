package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xxxsen/docask/internal/model"
	apperr "github.com/xxxsen/docask/internal/pkg/errors"
)

// ErrUnavailable aliases the shared sentinel so handlers can map a provider
// without credentials to a 502 instead of a generic 500.
var ErrUnavailable = apperr.ErrAIUnavailable

// StreamDelta is one item of a streaming completion. The producer pushes
// deltas into a channel and closes it when the stream ends; a delta carrying
// Err terminates the stream with that error. Usage, when the provider reports
// it, arrives on the final delta.
type StreamDelta struct {
	Text  string
	Usage *model.TokenUsage
	Err   error
}

type IChatProvider interface {
	Name() string
	Generate(ctx context.Context, modelName, prompt string, maxOutputTokens int) (string, model.TokenUsage, error)
	GenerateStream(ctx context.Context, modelName, prompt string, maxOutputTokens int) (<-chan StreamDelta, error)
}

type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, modelName, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, modelName string, texts []string) ([][]float32, error)
}

// IGenerator and IEmbedder bind a provider to a configured model name so the
// rest of the code never carries model ids around.
type IGenerator interface {
	Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, model.TokenUsage, error)
	GenerateStream(ctx context.Context, prompt string, maxOutputTokens int) (<-chan StreamDelta, error)
}

type IEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

type generator struct {
	provider  IChatProvider
	modelName string
}

func NewGenerator(p IChatProvider, modelName string) IGenerator {
	return &generator{provider: p, modelName: modelName}
}

func (g *generator) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, model.TokenUsage, error) {
	return g.provider.Generate(ctx, g.modelName, prompt, maxOutputTokens)
}

func (g *generator) GenerateStream(ctx context.Context, prompt string, maxOutputTokens int) (<-chan StreamDelta, error) {
	return g.provider.GenerateStream(ctx, g.modelName, prompt, maxOutputTokens)
}

type embedder struct {
	provider  IEmbedProvider
	modelName string
}

func NewEmbedder(p IEmbedProvider, modelName string) IEmbedder {
	return &embedder{provider: p, modelName: modelName}
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.provider.Embed(ctx, e.modelName, text)
}

func (e *embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.provider.EmbedBatch(ctx, e.modelName, texts)
}

func (e *embedder) ModelName() string {
	return e.modelName
}

type ChatFactory func(args interface{}) (IChatProvider, error)
type EmbedFactory func(args interface{}) (IEmbedProvider, error)

var (
	chatRegistry  = map[string]ChatFactory{}
	embedRegistry = map[string]EmbedFactory{}
)

func Register(name string, factory ChatFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	chatRegistry[key] = factory
}

func RegisterEmbed(name string, factory EmbedFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	embedRegistry[key] = factory
}

func NewChatProvider(name string, args interface{}) (IChatProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	factory := chatRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported chat provider: %s", name)
	}
	return factory(args)
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	factory := embedRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embed provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode provider config: %w", err)
	}
	return nil
}
