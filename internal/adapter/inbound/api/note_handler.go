package api

import (
	"encoding/json"
	"net/http"

	"medinotes/internal/adapter/outbound/bedrock"
	"medinotes/internal/application/dto"
	domainerrors "medinotes/internal/domain/errors/domain"
	"medinotes/internal/port/inbound"
)

// NoteHandler handles note-processing and embeddings endpoints.
type NoteHandler struct {
	noteService       inbound.NoteProcessingService
	embeddingsService inbound.EmbeddingsService
	limiter           *bedrock.RequestLimiter
	errorHandler      ErrorHandler
}

// NewNoteHandler creates the note processing handler. The limiter may be
// nil, which disables the rate-limiter stats endpoint data.
func NewNoteHandler(
	noteService inbound.NoteProcessingService,
	embeddingsService inbound.EmbeddingsService,
	limiter *bedrock.RequestLimiter,
	errorHandler ErrorHandler,
) *NoteHandler {
	return &NoteHandler{
		noteService:       noteService,
		embeddingsService: embeddingsService,
		limiter:           limiter,
		errorHandler:      errorHandler,
	}
}

// ProcessNote handles POST /notes/{id}/process. Accepted jobs return 202;
// a full queue returns 503.
func (h *NoteHandler) ProcessNote(w http.ResponseWriter, r *http.Request) {
	noteID := r.PathValue("id")
	response, err := h.noteService.SubmitJob(r.Context(), noteID)
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusAccepted, response)
}

// GetJob handles GET /jobs/{id}.
func (h *NoteHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	response, err := h.noteService.GetJobStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, response)
}

// ListJobs handles GET /jobs.
func (h *NoteHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	response, err := h.noteService.ListJobs(r.Context())
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, response)
}

// CancelJob handles DELETE /jobs/{id}. Jobs already running or finished
// cannot be cancelled and return 409.
func (h *NoteHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	cancelled, err := h.noteService.CancelJob(r.Context(), r.PathValue("id"))
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	if !cancelled {
		response := dto.NewErrorResponse(dto.ErrorCodeInvalidRequest, "Job has already started or finished", nil)
		_ = WriteJSON(w, http.StatusConflict, response)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// JobQueueStats handles GET /jobs/stats.
func (h *NoteHandler) JobQueueStats(w http.ResponseWriter, r *http.Request) {
	response, err := h.noteService.QueueStats(r.Context())
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, response)
}

// GetGeneratedNotes handles GET /notes/{id}/generated.
func (h *NoteHandler) GetGeneratedNotes(w http.ResponseWriter, r *http.Request) {
	response, err := h.noteService.GetGeneratedNotes(r.Context(), r.PathValue("id"))
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, response)
}

// ValidateNote handles POST /notes/validate.
func (h *NoteHandler) ValidateNote(w http.ResponseWriter, r *http.Request) {
	var request dto.ValidateNoteRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		h.errorHandler.HandleValidationError(w, r, err)
		return
	}

	response, err := h.noteService.ValidateNote(r.Context(), request)
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, response)
}

// SubmitEmbeddings handles POST /notes/{id}/embeddings.
func (h *NoteHandler) SubmitEmbeddings(w http.ResponseWriter, r *http.Request) {
	response, err := h.embeddingsService.SubmitTask(r.Context(), r.PathValue("id"))
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusAccepted, response)
}

// GetEmbeddingsTask handles GET /embeddings/tasks/{id}.
func (h *NoteHandler) GetEmbeddingsTask(w http.ResponseWriter, r *http.Request) {
	response, err := h.embeddingsService.GetTaskStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, response)
}

// EmbeddingsQueueStats handles GET /embeddings/stats.
func (h *NoteHandler) EmbeddingsQueueStats(w http.ResponseWriter, r *http.Request) {
	response, err := h.embeddingsService.QueueStats(r.Context())
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, response)
}

// RateLimiterStats handles GET /stats/rate-limiter.
func (h *NoteHandler) RateLimiterStats(w http.ResponseWriter, r *http.Request) {
	if h.limiter == nil {
		h.errorHandler.HandleServiceError(w, r, domainerrors.ErrInvalidInput)
		return
	}
	stats := h.limiter.Stats()
	response := dto.RateLimiterStatsResponse{
		TotalRequests:         stats.TotalRequests,
		TotalWaitTime:         stats.TotalWaitTime.Seconds(),
		MaxWaitTime:           stats.MaxWaitTime.Seconds(),
		AvgWaitTime:           stats.AvgWaitTime.Seconds(),
		RateLimitedCount:      stats.RateLimitedCount,
		RateLimitedPercentage: stats.RateLimitedPercentage,
		CurrentAvailable:      stats.CurrentAvailable,
		ConfiguredRPS:         stats.ConfiguredRPS,
	}
	_ = WriteJSON(w, http.StatusOK, response)
}

// ResetRateLimiterStats handles POST /stats/rate-limiter/reset. Only the
// counters reset; the bucket keeps its level so throttling is unaffected.
func (h *NoteHandler) ResetRateLimiterStats(w http.ResponseWriter, r *http.Request) {
	if h.limiter == nil {
		h.errorHandler.HandleServiceError(w, r, domainerrors.ErrInvalidInput)
		return
	}
	h.limiter.ResetStats()
	w.WriteHeader(http.StatusNoContent)
}
