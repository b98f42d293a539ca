package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamma-omg/docqa/docstore"
	"github.com/gamma-omg/docqa/genai"
)

const (
	DefaultMaxChunks       = 5
	DefaultThreshold       = 0.7
	DefaultSearchResults   = 10
	DefaultSearchThreshold = 0.6
)

// Searcher retrieves scored context chunks for a question.
type Searcher interface {
	Search(ctx context.Context, ownerID, query string, k int, threshold float64, filter docstore.Filter) ([]docstore.SearchResult, error)
}

// Generator produces an answer from a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, genai.Usage, error)
}

// Request carries a question and optional retrieval parameters. Zero values
// fall back to the service defaults.
type Request struct {
	Question    string
	DocumentIDs []string
	Tags        []string
	MaxChunks   int
	Threshold   float64
}

// Response is the full answer envelope. It is always well formed: when the
// pipeline fails the category is "error", contexts are empty and the answer
// describes the failure.
type Response struct {
	Question           string
	Answer             string
	Category           Category
	Contexts           []docstore.SearchResult
	TotalContextLength int
	Metadata           map[string]any
	AnsweredAt         time.Time
}

// Service runs the retrieval augmented answering pipeline.
type Service struct {
	searcher  Searcher
	gen       Generator
	log       *slog.Logger
	maxChunks int
	threshold float64
}

type ServiceConfig struct {
	Searcher  Searcher
	Generator Generator
	Log       *slog.Logger
	MaxChunks int
	Threshold float64
}

func NewService(cfg ServiceConfig) *Service {
	maxChunks := cfg.MaxChunks
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	return &Service{
		searcher:  cfg.Searcher,
		gen:       cfg.Generator,
		log:       cfg.Log,
		maxChunks: maxChunks,
		threshold: threshold,
	}
}

// Answer runs the full pipeline for one question. It never returns an error:
// any failure inside the pipeline degrades into an error-category response.
func (s *Service) Answer(ctx context.Context, ownerID string, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("answer pipeline panicked", "question", req.Question, "panic", r)
			resp = s.degraded(req.Question, fmt.Errorf("%v", r))
		}
	}()

	category := Classify(req.Question)

	maxChunks := req.MaxChunks
	if maxChunks <= 0 {
		maxChunks = s.maxChunks
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = s.threshold
	}

	contexts, err := s.searcher.Search(ctx, ownerID, req.Question, maxChunks, threshold, docstore.Filter{
		DocumentIDs: req.DocumentIDs,
		Tags:        req.Tags,
	})
	if err != nil {
		s.log.Warn("context retrieval failed", "question", req.Question, "error", err)
		return s.degraded(req.Question, err)
	}

	prompt := userPrompt(req.Question, contextBlock(contexts))
	answer, metadata := s.generate(ctx, systemPrompt(category), prompt)

	total := 0
	for _, c := range contexts {
		total += len(c.Content)
	}

	s.log.Info("question answered",
		"owner_id", ownerID,
		"category", category,
		"contexts", len(contexts))

	return Response{
		Question:           req.Question,
		Answer:             answer,
		Category:           category,
		Contexts:           contexts,
		TotalContextLength: total,
		Metadata:           metadata,
		AnsweredAt:         time.Now().UTC(),
	}
}

func (s *Service) generate(ctx context.Context, system, user string) (string, map[string]any) {
	if s.gen == nil {
		return "AI answer generation is not configured. Set a generation API key to enable AI-powered answers.",
			map[string]any{"error": "generator not configured", "model_used": "none"}
	}

	answer, usage, err := s.gen.Generate(ctx, system, user)
	if err != nil {
		if errors.Is(err, genai.ErrUnavailable) {
			s.log.Warn("generation backend unavailable", "error", err)
			return "AI answer generation is currently unavailable. Please try again later.",
				map[string]any{"error": err.Error(), "model_used": "none"}
		}
		return fmt.Sprintf("Error generating answer: %v", err), map[string]any{"error": err.Error()}
	}

	return answer, map[string]any{
		"model_used":        usage.Model,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
		"finish_reason":     usage.FinishReason,
	}
}

func (s *Service) degraded(question string, err error) Response {
	return Response{
		Question:   question,
		Answer:     fmt.Sprintf("Failed to answer question: %v", err),
		Category:   CategoryError,
		Contexts:   []docstore.SearchResult{},
		Metadata:   map[string]any{"error": err.Error()},
		AnsweredAt: time.Now().UTC(),
	}
}

// Search exposes plain semantic search with the service's search defaults.
func (s *Service) Search(ctx context.Context, ownerID, query string, maxResults int, threshold float64, filter docstore.Filter) ([]docstore.SearchResult, error) {
	if maxResults <= 0 {
		maxResults = DefaultSearchResults
	}
	if threshold <= 0 {
		threshold = DefaultSearchThreshold
	}

	return s.searcher.Search(ctx, ownerID, query, maxResults, threshold, filter)
}
