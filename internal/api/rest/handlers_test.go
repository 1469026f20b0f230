package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/voicegate/backend/internal/domain/auth"
	"github.com/voicegate/backend/internal/domain/errors"
	"github.com/voicegate/backend/internal/service/voiceauth"
)

type mockEngine struct {
	mock.Mock
	events chan auth.Event
}

func newMockEngine() *mockEngine {
	return &mockEngine{events: make(chan auth.Event, 8)}
}

func (m *mockEngine) Authenticate(ctx context.Context, req voiceauth.AuthRequest) (*auth.Result, auth.Outcome, error) {
	args := m.Called(ctx, req)
	var result *auth.Result
	if args.Get(0) != nil {
		result = args.Get(0).(*auth.Result)
	}
	return result, args.Get(1).(auth.Outcome), args.Error(2)
}

func (m *mockEngine) AuthenticateAlternative(ctx context.Context, userID string, method auth.AlternativeMethod, secret string) (*auth.Result, auth.Outcome, error) {
	args := m.Called(ctx, userID, method, secret)
	var result *auth.Result
	if args.Get(0) != nil {
		result = args.Get(0).(*auth.Result)
	}
	return result, args.Get(1).(auth.Outcome), args.Error(2)
}

func (m *mockEngine) Enroll(ctx context.Context, userID, prompt string, sample []byte) (*voiceauth.EnrollmentStatus, error) {
	args := m.Called(ctx, userID, prompt, sample)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*voiceauth.EnrollmentStatus), args.Error(1)
}

func (m *mockEngine) SetSecurityLevel(ctx context.Context, level auth.SecurityLevel) error {
	args := m.Called(ctx, level)
	return args.Error(0)
}

func (m *mockEngine) SecurityLevel() auth.SecurityLevel {
	args := m.Called()
	return args.Get(0).(auth.SecurityLevel)
}

func (m *mockEngine) ResetFailedAttempts(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockEngine) TimeSinceLastAuth(ctx context.Context, userID string) (time.Duration, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(time.Duration), args.Bool(1), args.Error(2)
}

func (m *mockEngine) AuthStillValid(ctx context.Context, userID string, window time.Duration) (bool, error) {
	args := m.Called(ctx, userID, window)
	return args.Bool(0), args.Error(1)
}

func (m *mockEngine) Events() <-chan auth.Event {
	return m.events
}

func newTestHandler(engine voiceauth.Service) *Handler {
	return NewHandler(engine, nil, 15*time.Minute, slog.Default())
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestHandleAuthenticate_OutcomeStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		outcome    auth.Outcome
		wantStatus int
	}{
		{"accepted", auth.Accepted(), http.StatusOK},
		{"rejected", auth.Rejected("combined confidence below threshold"), http.StatusUnauthorized},
		{"locked out", auth.LockedOut("too many failures", 3), http.StatusLocked},
		{"enrollment required", auth.EnrollmentRequired("say the phrase"), http.StatusPreconditionRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newMockEngine()
			engine.On("Authenticate", mock.Anything, mock.AnythingOfType("voiceauth.AuthRequest")).
				Return(&auth.Result{UserID: "alice"}, tt.outcome, nil)

			h := newTestHandler(engine)
			w := postJSON(t, h.handleAuthenticate, map[string]any{
				"user_id": "alice",
				"audio":   []byte("sample"),
			})

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp attemptResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.outcome.Kind, resp.Outcome.Kind)
		})
	}
}

func TestHandleAuthenticate_ValidationErrors(t *testing.T) {
	engine := newMockEngine()
	h := newTestHandler(engine)

	w := postJSON(t, h.handleAuthenticate, map[string]any{"audio": []byte("x")})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, h.handleAuthenticate, map[string]any{"user_id": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	engine.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
}

func TestHandleAuthenticate_EngineError(t *testing.T) {
	engine := newMockEngine()
	engine.On("Authenticate", mock.Anything, mock.Anything).
		Return(nil, auth.Outcome{}, errors.ErrAttemptInProgress)

	h := newTestHandler(engine)
	w := postJSON(t, h.handleAuthenticate, map[string]any{
		"user_id": "alice",
		"audio":   []byte("sample"),
	})

	assert.Equal(t, http.StatusConflict, w.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "CONFLICT", body.Error.Code)
}

func TestHandleAlternative(t *testing.T) {
	engine := newMockEngine()
	engine.On("AuthenticateAlternative", mock.Anything, "alice", auth.AlternativePIN, "1234").
		Return(&auth.Result{UserID: "alice", Success: true}, auth.Accepted(), nil)

	h := newTestHandler(engine)
	w := postJSON(t, h.handleAlternative, map[string]any{
		"user_id": "alice",
		"method":  "pin",
		"secret":  "1234",
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleAlternative_RejectsUnknownMethod(t *testing.T) {
	engine := newMockEngine()
	h := newTestHandler(engine)

	w := postJSON(t, h.handleAlternative, map[string]any{
		"user_id": "alice",
		"method":  "carrier_pigeon",
		"secret":  "1234",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	engine.AssertNotCalled(t, "AuthenticateAlternative", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEnroll(t *testing.T) {
	engine := newMockEngine()
	engine.On("Enroll", mock.Anything, "alice", "say the phrase", []byte("sample")).
		Return(&voiceauth.EnrollmentStatus{Attempt: 3, MaxAttempts: 3, Complete: true}, nil)

	h := newTestHandler(engine)
	w := postJSON(t, h.handleEnroll, map[string]any{
		"user_id": "alice",
		"prompt":  "say the phrase",
		"audio":   []byte("sample"),
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var status voiceauth.EnrollmentStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.Complete)
}

func TestHandleSessionStatus(t *testing.T) {
	engine := newMockEngine()
	engine.On("TimeSinceLastAuth", mock.Anything, "alice").
		Return(5*time.Minute, true, nil)

	h := newTestHandler(engine)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/sessions/alice", nil)
	req.SetPathValue("userID", "alice")
	w := httptest.NewRecorder()
	h.handleSessionStatus(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp sessionStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Authenticated)
	assert.True(t, resp.StillValid)
	assert.InDelta(t, 300, resp.ElapsedSecs, 1)
}

func TestHandleSessionStatus_NeverAuthenticated(t *testing.T) {
	engine := newMockEngine()
	engine.On("TimeSinceLastAuth", mock.Anything, "ghost").
		Return(time.Duration(0), false, nil)

	h := newTestHandler(engine)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/sessions/ghost", nil)
	req.SetPathValue("userID", "ghost")
	w := httptest.NewRecorder()
	h.handleSessionStatus(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp sessionStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Authenticated)
	assert.False(t, resp.StillValid)
}

func TestAdminRoutes_RequirePermissions(t *testing.T) {
	engine := newMockEngine()
	engine.On("SetSecurityLevel", mock.Anything, auth.LevelHigh).Return(nil)

	authMW := NewAuthMiddleware(&AuthConfig{
		JWTSecret:   []byte("test-secret"),
		TokenExpiry: time.Hour,
		Issuer:      "voicegate-test",
	})

	router := NewRouter(RouterConfig{
		Handler: newTestHandler(engine),
		Auth:    authMW,
	})

	body := bytes.NewReader([]byte(`{"level":"high"}`))

	// No token at all.
	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/security-level", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Token without the admin permission.
	token, err := authMW.IssueToken("operator", []string{"security:read"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPut, "/api/v1/admin/security-level", bytes.NewReader([]byte(`{"level":"high"}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Token with the admin permission.
	token, err = authMW.IssueToken("operator", []string{"security:admin"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPut, "/api/v1/admin/security-level", bytes.NewReader([]byte(`{"level":"high"}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	engine.AssertCalled(t, "SetSecurityLevel", mock.Anything, auth.LevelHigh)
}

func TestRouter_HealthEndpoint(t *testing.T) {
	engine := newMockEngine()
	router := NewRouter(RouterConfig{
		Handler: newTestHandler(engine),
		Auth:    NewAuthMiddleware(&AuthConfig{JWTSecret: []byte("x"), TokenExpiry: time.Hour}),
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
