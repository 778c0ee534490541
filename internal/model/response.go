package model

// StreamState marks a frame's position in a streaming answer.
type StreamState string

const (
	StreamStateStart  StreamState = "start"
	StreamStateAppend StreamState = "append"
	StreamStateEnd    StreamState = "end"
)

type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// TokenUsageBreakdown itemizes where a question's tokens went. Reformulation
// is nil when the step was skipped; Answer is nil only on failure.
type TokenUsageBreakdown struct {
	Reformulation   *TokenUsage `json:"reformulation,omitempty"`
	EmbeddingTokens int         `json:"embedding_tokens"`
	Answer          *TokenUsage `json:"answer,omitempty"`
}

// Response is one answer to a question. In the synchronous path all fields
// are set and StreamState is empty; in the streaming path each frame fills
// only the fields relevant to its state.
type Response struct {
	OriginalQuestion     string               `json:"original_question,omitempty"`
	ReformulatedQuestion string               `json:"reformulated_question,omitempty"`
	Answer               string               `json:"answer,omitempty"`
	StreamState          StreamState          `json:"stream_state,omitempty"`
	TokenUsage           *TokenUsageBreakdown `json:"token_usage,omitempty"`
	Citations            []Citation           `json:"citations,omitempty"`
}
