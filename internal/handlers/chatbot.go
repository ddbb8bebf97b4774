package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"rentalsearch-ai/internal/contextutil"
	"rentalsearch-ai/internal/service"
)

// GenericErrorMessage is the body returned for every failed query except validation errors.
const GenericErrorMessage = "An error occurred while processing your request."

// ChatbotHandler handles HTTP requests for rental search queries.
type ChatbotHandler struct {
	assistant service.AssistantService
}

// NewChatbotHandler creates a new ChatbotHandler.
func NewChatbotHandler(assistant service.AssistantService) *ChatbotHandler {
	return &ChatbotHandler{assistant: assistant}
}

// ChatbotRequest represents the HTTP request payload for a rental query.
type ChatbotRequest struct {
	UserRequirements string `json:"userRequirements"`
}

// ChatbotResponse represents the HTTP response payload for a rental query.
type ChatbotResponse struct {
	Response  string   `json:"response"`
	Addresses []string `json:"addresses"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ServeHTTP handles POST /api/chatbot.
func (h *ChatbotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
		return
	}

	var req ChatbotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	svcResp, err := h.assistant.Answer(ctx, service.AnswerRequest{Query: req.UserRequirements})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp := ChatbotResponse{
		Response:  svcResp.Text,
		Addresses: svcResp.Addresses,
	}
	if resp.Addresses == nil {
		resp.Addresses = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// handleServiceError maps service errors to HTTP status codes.
func (h *ChatbotHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		logger.WarnContext(ctx, "invalid rental query", "field", validationErr.Field, "error", err)
		writeError(w, http.StatusBadRequest, ErrorResponse{
			Error: validationErr.Error(),
			Field: validationErr.Field,
		})
		return
	}

	logger.ErrorContext(ctx, "service error", "error", err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotReady):
		status = http.StatusServiceUnavailable
	case errors.Is(err, service.ErrExternalService):
		status = http.StatusBadGateway
	}
	writeError(w, status, ErrorResponse{Error: GenericErrorMessage})
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
