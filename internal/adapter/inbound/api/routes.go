package api

import "net/http"

// NewRouter builds the ServeMux with every API route registered.
func NewRouter(noteHandler *NoteHandler, chatHandler *ChatHandler, healthHandler *HealthHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.GetHealth)

	mux.HandleFunc("POST /notes/{id}/process", noteHandler.ProcessNote)
	mux.HandleFunc("GET /notes/{id}/generated", noteHandler.GetGeneratedNotes)
	mux.HandleFunc("POST /notes/validate", noteHandler.ValidateNote)
	mux.HandleFunc("GET /jobs", noteHandler.ListJobs)
	mux.HandleFunc("GET /jobs/stats", noteHandler.JobQueueStats)
	mux.HandleFunc("GET /jobs/{id}", noteHandler.GetJob)
	mux.HandleFunc("DELETE /jobs/{id}", noteHandler.CancelJob)

	mux.HandleFunc("POST /notes/{id}/embeddings", noteHandler.SubmitEmbeddings)
	mux.HandleFunc("GET /embeddings/stats", noteHandler.EmbeddingsQueueStats)
	mux.HandleFunc("GET /embeddings/tasks/{id}", noteHandler.GetEmbeddingsTask)

	mux.HandleFunc("GET /chat/sessions/{id}", chatHandler.GetSession)
	mux.HandleFunc("POST /chat/sessions/{id}", chatHandler.SaveExchange)
	mux.HandleFunc("DELETE /chat/sessions/{id}", chatHandler.ClearSession)
	mux.HandleFunc("POST /chat/sessions/{id}/refresh", chatHandler.RefreshSession)
	mux.HandleFunc("GET /chat/cache/stats", chatHandler.CacheStats)

	mux.HandleFunc("GET /stats/rate-limiter", noteHandler.RateLimiterStats)
	mux.HandleFunc("POST /stats/rate-limiter/reset", noteHandler.ResetRateLimiterStats)

	return mux
}
