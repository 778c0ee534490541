// Package tokenizer counts tokens the way the configured models do. Every
// budgeting decision (chunk sizing, prompt assembly, usage accounting) goes
// through these counters instead of character counts.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

type Tokenizer struct {
	chat  *tiktoken.Tiktoken
	embed *tiktoken.Tiktoken
}

// New resolves the tiktoken encodings for the chat and embedding models.
// Unknown model names fall back to cl100k_base rather than failing startup.
func New(chatModel, embedModel string) (*Tokenizer, error) {
	chat, err := encodingFor(chatModel)
	if err != nil {
		return nil, fmt.Errorf("resolve chat tokenizer: %w", err)
	}
	embed, err := encodingFor(embedModel)
	if err != nil {
		return nil, fmt.Errorf("resolve embedding tokenizer: %w", err)
	}
	return &Tokenizer{chat: chat, embed: embed}, nil
}

func encodingFor(model string) (*tiktoken.Tiktoken, error) {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return enc, nil
	}
	return tiktoken.GetEncoding(fallbackEncoding)
}

func (t *Tokenizer) CountChatTokens(text string) int {
	return len(t.chat.Encode(text, nil, nil))
}

func (t *Tokenizer) CountEmbeddingTokens(text string) int {
	return len(t.embed.Encode(text, nil, nil))
}
