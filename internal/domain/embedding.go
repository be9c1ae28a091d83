package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Embedder turns text into a dense vector. Identical input yields identical output.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// BatchFallback embeds texts one by one for providers without a native batch endpoint.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	var totalPrompt, totalTokens int

	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		embeddings[i] = res.Embedding
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

// QueryEmbedder embeds user queries for vector search. It prepends the model's query
// instruction and rejects vectors whose dimension differs from the index dimension.
type QueryEmbedder struct {
	inner       Embedder
	instruction string
	dim         int
}

// NewQueryEmbedder wraps inner. dim <= 0 disables the dimension check.
func NewQueryEmbedder(inner Embedder, instruction string, dim int) *QueryEmbedder {
	return &QueryEmbedder{inner: inner, instruction: instruction, dim: dim}
}

// Embed vectorizes instruction+text. Provider failures and malformed vectors wrap
// ErrEmbeddingProviderError.
func (e *QueryEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		if errors.Is(err, ErrEmbeddingProviderError) {
			return EmbeddingResult{}, fmt.Errorf("query embed: %w", err)
		}
		return EmbeddingResult{}, fmt.Errorf("query embed: %w: %w", ErrEmbeddingProviderError, err)
	}
	switch {
	case len(result.Embedding) == 0:
		return EmbeddingResult{}, fmt.Errorf("query embed: %w: empty vector", ErrEmbeddingProviderError)
	case e.dim > 0 && len(result.Embedding) != e.dim:
		return EmbeddingResult{}, fmt.Errorf("query embed: %w: got %d dimensions, index has %d",
			ErrEmbeddingProviderError, len(result.Embedding), e.dim)
	}
	return result, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is empty,
// zero-length or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
