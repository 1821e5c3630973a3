package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"medinotes/internal/application/dto"
	"medinotes/internal/port/inbound"
)

// ChatHandler handles conversation history endpoints.
type ChatHandler struct {
	chatService  inbound.ChatMemoryService
	errorHandler ErrorHandler
}

// NewChatHandler creates the chat history handler.
func NewChatHandler(chatService inbound.ChatMemoryService, errorHandler ErrorHandler) *ChatHandler {
	return &ChatHandler{
		chatService:  chatService,
		errorHandler: errorHandler,
	}
}

// GetSession handles GET /chat/sessions/{id}.
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		h.errorHandler.HandleValidationError(w, r, errors.New("session ID is required"))
		return
	}

	response, err := h.chatService.GetResponses(r.Context(), sessionID)
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, response)
}

// SaveExchange handles POST /chat/sessions/{id}.
func (h *ChatHandler) SaveExchange(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		h.errorHandler.HandleValidationError(w, r, errors.New("session ID is required"))
		return
	}

	var request dto.SaveResponseRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		h.errorHandler.HandleValidationError(w, r, err)
		return
	}

	if err := h.chatService.SaveResponse(r.Context(), sessionID, request); err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearSession handles DELETE /chat/sessions/{id}.
func (h *ChatHandler) ClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		h.errorHandler.HandleValidationError(w, r, errors.New("session ID is required"))
		return
	}

	if err := h.chatService.ClearSession(r.Context(), sessionID); err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshSession handles POST /chat/sessions/{id}/refresh.
func (h *ChatHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		h.errorHandler.HandleValidationError(w, r, errors.New("session ID is required"))
		return
	}

	response, err := h.chatService.ForceRefresh(r.Context(), sessionID)
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, response)
}

// CacheStats handles GET /chat/cache/stats.
func (h *ChatHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	response, err := h.chatService.CacheStats(r.Context())
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, response)
}
