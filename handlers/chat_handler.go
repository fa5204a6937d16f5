package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/upb/intent-chatbot/middleware"
	"github.com/upb/intent-chatbot/services"
	"github.com/upb/intent-chatbot/services/chat"
	"github.com/upb/intent-chatbot/utils"
	"go.uber.org/zap"
)

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Message   string   `json:"message"`
	TopK      *int     `json:"top_k,omitempty" validate:"omitempty,gte=0,lte=100"`
	Threshold *float64 `json:"threshold,omitempty" validate:"omitempty,gt=0"`
}

// ChatResponse is the body of a successful chat reply
type ChatResponse struct {
	Response string `json:"response"`
}

// IntentsResponse lists the intents the assistant knows about
type IntentsResponse struct {
	Intents []string `json:"intents"`
	Count   int      `json:"count"`
}

// ChatService answers a single user message
type ChatService interface {
	Respond(ctx context.Context, query string, opts ...chat.Option) (*chat.Result, error)
}

// IntentLister exposes the distinct intents of the knowledge base
type IntentLister interface {
	Intents() []string
}

// ChatHandler handles chat HTTP requests
type ChatHandler struct {
	service ChatService
	intents IntentLister
	logger  *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service ChatService, intents IntentLister, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		intents: intents,
		logger:  logger,
	}
}

// HandleChat handles POST /api/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req ChatRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, services.ErrEmptyQuery, h.logger)
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		HandleServiceError(w, services.ErrEmptyQuery, h.logger)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	opts := []chat.Option{chat.WithRequestID(requestID)}
	if req.TopK != nil {
		opts = append(opts, chat.WithTopK(*req.TopK))
	}
	if req.Threshold != nil {
		opts = append(opts, chat.WithThreshold(*req.Threshold))
	}

	result, err := h.service.Respond(ctx, req.Message, opts...)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, ChatResponse{Response: result.Answer}); err != nil {
		h.logger.Error("failed to write chat response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// HandleListIntents handles GET /api/intents
func (h *ChatHandler) HandleListIntents(w http.ResponseWriter, r *http.Request) {
	intents := h.intents.Intents()
	if intents == nil {
		intents = []string{}
	}
	_ = utils.WriteOK(w, IntentsResponse{Intents: intents, Count: len(intents)})
}
