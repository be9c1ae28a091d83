package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
)

const llmSystemPrompt = `You score how well each document answers a card call-center query.
Return only a JSON object: {"results":[{"doc_idx":<int>,"score":<0..1>}]}.
Include every document index exactly once. No other text.`

type llmResponse struct {
	Results []struct {
		DocIdx int     `json:"doc_idx"`
		Score  float64 `json:"score"`
	} `json:"results"`
}

// llmRerank asks the chat model to score up to maxLLMCandidates items. Candidates beyond that
// bound, or omitted by the model, keep their fused order after the scored ones.
func (s *Service) llmRerank(ctx context.Context, query string, items []retrieval.Item) ([]retrieval.Item, error) {
	n := min(len(items), maxLLMCandidates)

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nDocuments:\n", query)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "[%d] %s\n", i, truncateRunes(pairText(items[i]), llmSnippetRunes))
	}

	raw, err := s.chat.Chat(ctx, domain.ChatRequest{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: llmSystemPrompt},
			{Role: domain.RoleUser, Content: b.String()},
		},
		Temperature: 0,
		MaxTokens:   300,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	scores, err := parseLLMScores(raw, n)
	if err != nil {
		return nil, err
	}

	out := make([]retrieval.Item, len(items))
	copy(out, items)
	for idx, v := range scores {
		out[idx].RerankScore = &v
	}
	sortByRerank(out)
	return out, nil
}

// parseLLMScores enforces the JSON contract: a results array with in-range, unique indices.
func parseLLMScores(raw string, n int) (map[int]float64, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var resp llmResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &resp); err != nil {
		return nil, fmt.Errorf("parse llm scores: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("parse llm scores: empty results")
	}
	scores := make(map[int]float64, len(resp.Results))
	for _, r := range resp.Results {
		if r.DocIdx < 0 || r.DocIdx >= n {
			return nil, fmt.Errorf("parse llm scores: doc_idx %d out of range", r.DocIdx)
		}
		if _, dup := scores[r.DocIdx]; dup {
			return nil, fmt.Errorf("parse llm scores: duplicate doc_idx %d", r.DocIdx)
		}
		scores[r.DocIdx] = r.Score
	}
	return scores, nil
}
