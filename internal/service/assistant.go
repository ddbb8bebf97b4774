package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_answerer.go -package=mocks rentalsearch-ai/internal/service Answerer
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_assistant_service.go -package=mocks rentalsearch-ai/internal/service AssistantService

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"rentalsearch-ai/internal/contextutil"
	"rentalsearch-ai/internal/locations"
	"rentalsearch-ai/internal/rag"
)

// MaxQueryLength is the longest accepted query, in runes.
const MaxQueryLength = 2000

// Answerer answers a rental query with free text.
// This interface is defined from the service layer's perspective (consumer-first).
type Answerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

// AnswerRequest represents a rental search request in the domain layer.
type AnswerRequest struct {
	Query string `validate:"required"`
}

// AnswerResponse represents the assistant's reply.
type AnswerResponse struct {
	Text      string
	Addresses []string
}

// AssistantService answers rental search requests.
type AssistantService interface {
	// Answer validates the request, runs the pipeline and extracts the mentioned addresses.
	Answer(ctx context.Context, req AnswerRequest) (AnswerResponse, error)
}

// assistantService implements AssistantService.
type assistantService struct {
	answerer Answerer
}

// NewAssistantService creates a new AssistantService.
func NewAssistantService(answerer Answerer) AssistantService {
	return &assistantService{answerer: answerer}
}

// Answer processes a rental search request.
func (s *assistantService) Answer(ctx context.Context, req AnswerRequest) (AnswerResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		logger.WarnContext(ctx, "empty query in rental search request")
		return AnswerResponse{}, &ValidationError{
			Field:   "userRequirements",
			Message: "cannot be empty",
		}
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		logger.WarnContext(ctx, "query too long", "length", utf8.RuneCountInString(query))
		return AnswerResponse{}, &ValidationError{
			Field:   "userRequirements",
			Message: "is too long",
		}
	}

	text, err := s.answerer.Answer(ctx, query)
	if err != nil {
		logger.ErrorContext(ctx, "failed to answer rental query", "error", err)
		return AnswerResponse{}, mapError(err)
	}

	addresses := locations.ExtractAddresses(text)
	logger.InfoContext(ctx, "rental query answered", "query_length", len(query), "answer_length", len(text), "addresses", len(addresses))

	return AnswerResponse{
		Text:      text,
		Addresses: addresses,
	}, nil
}

func mapError(err error) error {
	var (
		notReady *rag.IndexNotReadyError
		embErr   *rag.EmbeddingError
		genErr   *rag.GenerationError
	)
	switch {
	case errors.As(err, &notReady):
		return classify(err, ErrNotReady, "failed to prepare listings")
	case errors.As(err, &embErr), errors.As(err, &genErr):
		return classify(err, ErrExternalService, "failed to get model response")
	default:
		return WrapError(err, "failed to answer rental query")
	}
}
