// Package convo keeps per-conversation chat history so follow-up questions
// can be reformulated into self-contained queries. Histories are bounded both
// in length (MessageLimit, oldest turns dropped) and in lifetime (entries
// expire after a period of inactivity); the cache is the only cross-request
// mutable state in the core and last-writer-wins is acceptable for a single
// user talking to one conversation id.
package convo

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xxxsen/docask/internal/model"
)

type Store struct {
	cache        *expirable.LRU[string, []model.ConversationTurn]
	messageLimit int
}

func NewStore(size, messageLimit int, expiration time.Duration) *Store {
	return &Store{
		cache:        expirable.NewLRU[string, []model.ConversationTurn](size, nil, expiration),
		messageLimit: messageLimit,
	}
}

// History returns a copy of the turns recorded for a conversation, oldest
// first. Unknown ids yield an empty history.
func (s *Store) History(conversationID string) []model.ConversationTurn {
	turns, ok := s.cache.Get(conversationID)
	if !ok {
		return nil
	}
	out := make([]model.ConversationTurn, len(turns))
	copy(out, turns)
	return out
}

// Append records a question/answer pair and re-arms the expiration.
func (s *Store) Append(conversationID, userText, assistantText string) {
	turns := s.History(conversationID)
	turns = append(turns,
		model.ConversationTurn{Role: model.RoleUser, Text: userText},
		model.ConversationTurn{Role: model.RoleAssistant, Text: assistantText},
	)
	s.put(conversationID, turns)
}

func (s *Store) put(conversationID string, turns []model.ConversationTurn) {
	if s.messageLimit > 0 && len(turns) > s.messageLimit {
		turns = turns[len(turns)-s.messageLimit:]
	}
	s.cache.Add(conversationID, turns)
}
