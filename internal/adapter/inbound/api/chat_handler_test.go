package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medinotes/internal/application/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatService struct {
	conversation *dto.ConversationResponse
	saved        []dto.SaveResponseRequest
	cleared      []string
	saveErr      error
}

func (s *stubChatService) GetResponses(_ context.Context, sessionID string) (*dto.ConversationResponse, error) {
	if s.conversation != nil {
		return s.conversation, nil
	}
	return &dto.ConversationResponse{SessionID: sessionID, Records: []dto.ConversationRecordResponse{}}, nil
}

func (s *stubChatService) SaveResponse(_ context.Context, _ string, request dto.SaveResponseRequest) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, request)
	return nil
}

func (s *stubChatService) ClearSession(_ context.Context, sessionID string) error {
	s.cleared = append(s.cleared, sessionID)
	return nil
}

func (s *stubChatService) ForceRefresh(ctx context.Context, sessionID string) (*dto.ConversationResponse, error) {
	return s.GetResponses(ctx, sessionID)
}

func (s *stubChatService) CacheStats(context.Context) (*dto.CacheStatsResponse, error) {
	return &dto.CacheStatsResponse{Tiers: []dto.TierStats{
		{Backend: "memory", Available: true},
		{Backend: "redis", Available: false},
		{Backend: "postgres", Available: true, ReadOnly: true},
	}}, nil
}

type stubHealthService struct{}

func (s *stubHealthService) GetHealth(context.Context) (*dto.HealthResponse, error) {
	return &dto.HealthResponse{Status: "healthy", Timestamp: time.Now(), Version: "test"}, nil
}

func newChatRouter(chatService *stubChatService) http.Handler {
	errorHandler := NewDefaultErrorHandler()
	noteHandler := NewNoteHandler(&stubNoteService{}, &stubEmbeddingsService{}, nil, errorHandler)
	chatHandler := NewChatHandler(chatService, errorHandler)
	healthHandler := NewHealthHandler(&stubHealthService{}, errorHandler)
	return NewRouter(noteHandler, chatHandler, healthHandler)
}

func TestGetSession_ReturnsHistory(t *testing.T) {
	chatService := &stubChatService{
		conversation: &dto.ConversationResponse{
			SessionID: "s1",
			Records: []dto.ConversationRecordResponse{
				{Query: "q1", Response: "a1"},
			},
			Count: 1,
		},
	}
	router := newChatRouter(chatService)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/sessions/s1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var response dto.ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "s1", response.SessionID)
	assert.Equal(t, 1, response.Count)
}

func TestSaveExchange_Succeeds(t *testing.T) {
	chatService := &stubChatService{}
	router := newChatRouter(chatService)

	body := `{"query":"how is the patient","response":"stable","used_indices":["notes-2024","icu-notes"]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat/sessions/s1", strings.NewReader(body)))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, chatService.saved, 1)
	assert.Equal(t, "how is the patient", chatService.saved[0].Query)
	assert.Equal(t, []string{"notes-2024", "icu-notes"}, chatService.saved[0].UsedIndices)
}

func TestSaveExchange_RejectsUnknownFields(t *testing.T) {
	router := newChatRouter(&stubChatService{})

	body := `{"query":"q","response":"a","bogus":true}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat/sessions/s1", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveExchange_RejectsMalformedJSON(t *testing.T) {
	router := newChatRouter(&stubChatService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat/sessions/s1", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearSession(t *testing.T) {
	chatService := &stubChatService{}
	router := newChatRouter(chatService)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/chat/sessions/s1", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"s1"}, chatService.cleared)
}

func TestRefreshSession(t *testing.T) {
	router := newChatRouter(&stubChatService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat/sessions/s1/refresh", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCacheStats_ReportsTiers(t *testing.T) {
	router := newChatRouter(&stubChatService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/cache/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var response dto.CacheStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Tiers, 3)
	assert.Equal(t, "memory", response.Tiers[0].Backend)
	assert.False(t, response.Tiers[1].Available)
	assert.True(t, response.Tiers[2].ReadOnly)
}

func TestHealthEndpoint(t *testing.T) {
	router := newChatRouter(&stubChatService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var response dto.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
}
