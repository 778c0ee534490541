// Package prompt builds the prompts sent to the chat model: the reformulation
// prompt that rewrites a follow-up question using conversation history, and
// the answer prompt that packs retrieved chunks into a fixed token budget
// together with the citation protocol instructions.
package prompt

import (
	"fmt"
	"strings"

	"github.com/xxxsen/docask/internal/model"
)

const systemPrompt = `You are a helpful assistant that answers questions using only the information in the SOURCES section below.
If the sources do not contain the answer, say that you don't know. Never invent information.
Answer in the same language as the question.

After the complete answer, append a block delimited by 【 and 】 containing one
<citation document-id="..." chunk-id="..." filename="..." page-number="..." index-on-page="...">quote</citation>
tag for every source you used. The quote must be a verbatim span of at most 5 words copied from the cited source.
Do not mention the citation block in the answer itself.`

const questionScaffold = "QUESTION:\n%s\n\nANSWER:"

// ReformulationPrompt mirrors the instruction the original assistant uses
// before embedding search. History is rendered oldest-first above it.
func ReformulationPrompt(history []model.ConversationTurn, question string) string {
	var sb strings.Builder
	if len(history) > 0 {
		sb.WriteString("Previous conversation:\n")
		for _, turn := range history {
			role := "User"
			if turn.Role == model.RoleAssistant {
				role = "Assistant"
			}
			sb.WriteString(role)
			sb.WriteString(": ")
			sb.WriteString(turn.Text)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Reformulate the following question taking into account the context of the chat to perform embeddings search:\n---\n")
	sb.WriteString(question)
	sb.WriteString("\n---\n")
	sb.WriteString(`You must reformulate the question in the same language of the user's question.
Never add "in this chat", "in the context of this chat", "in the context of our conversation", "search for" or something like that in your answer.`)
	return sb.String()
}

type Limits struct {
	MaxInputTokens  int
	MaxOutputTokens int
}

// BuildAnswerPrompt assembles the final prompt. Chunks are consumed in ranked
// order; the first chunk whose header+content does not fit the remaining
// budget stops the fill, so better-ranked chunks are never displaced by
// smaller lower-ranked ones. The returned count says how many chunks made it
// in; zero means the model will answer from no context.
func BuildAnswerPrompt(question string, chunks []model.ChunkMatch, limits Limits, count func(string) int) (string, int) {
	scaffold := fmt.Sprintf(questionScaffold, question)
	available := limits.MaxInputTokens - count(systemPrompt) - count(scaffold) - limits.MaxOutputTokens

	var sources strings.Builder
	included := 0
	for _, chunk := range chunks {
		if available <= 0 {
			break
		}
		segment := formatChunk(chunk)
		tokens := count(segment)
		if tokens > available {
			break
		}
		sources.WriteString(segment)
		available -= tokens
		included++
	}

	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\nSOURCES:\n")
	if included == 0 {
		sb.WriteString("(no sources available)\n")
	} else {
		sb.WriteString(sources.String())
	}
	sb.WriteString("\n")
	sb.WriteString(scaffold)
	return sb.String(), included
}

// formatChunk renders one retrieved chunk with the header the model needs to
// emit resolvable citations.
func formatChunk(chunk model.ChunkMatch) string {
	page := ""
	if chunk.PageNumber != nil {
		page = fmt.Sprintf("%d", *chunk.PageNumber)
	}
	return fmt.Sprintf("=== source filename=%q document-id=%q chunk-id=%q page-number=%q index-on-page=%q ===\n%s\n",
		chunk.DocumentName, chunk.DocumentID, chunk.ID, page, fmt.Sprintf("%d", chunk.IndexOnPage), chunk.Content)
}
