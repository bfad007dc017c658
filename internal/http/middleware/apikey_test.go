package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasgate/internal/domain/apikey"
	"wasgate/pkg/logger"
)

type fakeKeyRepo struct {
	apikey.Repository
	record  *apikey.APIKey
	touched []uuid.UUID
}

func (f *fakeKeyRepo) GetActiveByKey(ctx context.Context, key string) (*apikey.APIKey, error) {
	if f.record != nil && f.record.Key == key {
		return f.record, nil
	}
	return nil, apikey.ErrKeyNotFound
}

func (f *fakeKeyRepo) Touch(ctx context.Context, id uuid.UUID) error {
	f.touched = append(f.touched, id)
	return nil
}

func newAuthHandler(repo apikey.Repository) (http.Handler, *map[string]string) {
	seen := map[string]string{}
	handler := NewAPIKeyAuth(repo, logger.SetupForTesting())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen["userID"] = AuthUserID(r.Context())
		seen["sessionID"] = AuthSessionID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &seen
}

func TestAPIKeyAuthAcceptsBothHeaders(t *testing.T) {
	record, err := apikey.New("user-1", "session-1")
	require.NoError(t, err)
	repo := &fakeKeyRepo{record: record}

	tests := []struct {
		name  string
		apply func(r *http.Request)
	}{
		{"X-API-Key header", func(r *http.Request) { r.Header.Set("X-API-Key", record.Key) }},
		{"Bearer token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+record.Key) }},
		{"bearer lowercase", func(r *http.Request) { r.Header.Set("Authorization", "bearer "+record.Key) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, seen := newAuthHandler(repo)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/info", nil)
			tt.apply(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "user-1", (*seen)["userID"])
			assert.Equal(t, "session-1", (*seen)["sessionID"])
		})
	}

	assert.NotEmpty(t, repo.touched)
}

func TestAPIKeyAuthRejectsMissingKey(t *testing.T) {
	handler, _ := newAuthHandler(&fakeKeyRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/info", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, apikey.ErrKeyRequired.Error(), body.Message)
}

func TestAPIKeyAuthRejectsUnknownKey(t *testing.T) {
	handler, _ := newAuthHandler(&fakeKeyRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/info", nil)
	req.Header.Set("X-API-Key", "wass_nope")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apikey.ErrKeyInvalid.Error(), body.Message)
}
