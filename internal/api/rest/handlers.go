package rest

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/voicegate/backend/internal/domain/auth"
	"github.com/voicegate/backend/internal/domain/errors"
	"github.com/voicegate/backend/internal/service/voiceauth"
)

// Handler serves the authentication API.
type Handler struct {
	engine        voiceauth.Service
	attempts      voiceauth.AttemptRepository
	sessionWindow time.Duration
	logger        *slog.Logger
	validate      *validator.Validate
}

// NewHandler creates the API handler. attempts may be nil when audit
// persistence is disabled.
func NewHandler(engine voiceauth.Service, attempts voiceauth.AttemptRepository, sessionWindow time.Duration, logger *slog.Logger) *Handler {
	if sessionWindow <= 0 {
		sessionWindow = voiceauth.DefaultSessionWindow
	}
	return &Handler{
		engine:        engine,
		attempts:      attempts,
		sessionWindow: sessionWindow,
		logger:        logger,
		validate:      validator.New(),
	}
}

type authAttemptRequest struct {
	UserID           string `json:"user_id" validate:"required"`
	Audio            []byte `json:"audio" validate:"required"`
	EnrollmentPrompt string `json:"enrollment_prompt"`
	Critical         bool   `json:"critical"`
}

type alternativeAuthRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Method string `json:"method" validate:"required,oneof=passcode pin security_question"`
	Secret string `json:"secret" validate:"required"`
}

type enrollmentRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Prompt string `json:"prompt" validate:"required"`
	Audio  []byte `json:"audio" validate:"required"`
}

type securityLevelRequest struct {
	Level string `json:"level" validate:"required,oneof=low medium high"`
}

type resetFailuresRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type attemptResponse struct {
	Outcome auth.Outcome `json:"outcome"`
	Result  *auth.Result `json:"result,omitempty"`
}

type sessionStatusResponse struct {
	UserID        string  `json:"user_id"`
	Authenticated bool    `json:"authenticated"`
	ElapsedSecs   float64 `json:"elapsed_seconds,omitempty"`
	StillValid    bool    `json:"still_valid"`
}

type securityLevelResponse struct {
	Level string `json:"level"`
}

// outcomeStatus maps a decision outcome to its HTTP status.
func outcomeStatus(kind auth.OutcomeKind) int {
	switch kind {
	case auth.OutcomeAccepted:
		return http.StatusOK
	case auth.OutcomeLockedOut:
		return http.StatusLocked
	case auth.OutcomeEnrollmentRequired:
		return http.StatusPreconditionRequired
	default:
		return http.StatusUnauthorized
	}
}

func (h *Handler) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req authAttemptRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, outcome, err := h.engine.Authenticate(r.Context(), voiceauth.AuthRequest{
		UserID:           req.UserID,
		AudioSample:      req.Audio,
		EnrollmentPrompt: req.EnrollmentPrompt,
		Critical:         req.Critical,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, outcomeStatus(outcome.Kind), attemptResponse{Outcome: outcome, Result: result})
}

func (h *Handler) handleAlternative(w http.ResponseWriter, r *http.Request) {
	var req alternativeAuthRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, outcome, err := h.engine.AuthenticateAlternative(
		r.Context(), req.UserID, auth.AlternativeMethod(req.Method), req.Secret)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, outcomeStatus(outcome.Kind), attemptResponse{Outcome: outcome, Result: result})
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	status, err := h.engine.Enroll(r.Context(), req.UserID, req.Prompt, req.Audio)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	code := http.StatusAccepted
	if status.Complete {
		code = http.StatusCreated
	}
	h.writeJSON(w, code, status)
}

func (h *Handler) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if userID == "" {
		h.writeError(w, r, errors.ErrInvalidInput)
		return
	}

	window := h.sessionWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, r, errors.NewValidationError("INVALID_WINDOW", "window must be a positive duration"))
			return
		}
		window = parsed
	}

	elapsed, ok, err := h.engine.TimeSinceLastAuth(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := sessionStatusResponse{UserID: userID, Authenticated: ok}
	if ok {
		resp.ElapsedSecs = elapsed.Seconds()
		resp.StillValid = elapsed <= window
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	if h.attempts == nil {
		h.writeError(w, r, errors.NewNotFoundError("attempt audit log"))
		return
	}

	userID := r.PathValue("userID")
	if userID == "" {
		h.writeError(w, r, errors.ErrInvalidInput)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			h.writeError(w, r, errors.NewValidationError("INVALID_LIMIT", "limit must be between 1 and 500"))
			return
		}
		limit = parsed
	}

	records, err := h.attempts.ListAttempts(r.Context(), userID, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []*voiceauth.AttemptRecord{}
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleGetSecurityLevel(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, securityLevelResponse{
		Level: h.engine.SecurityLevel().String(),
	})
}

func (h *Handler) handleSetSecurityLevel(w http.ResponseWriter, r *http.Request) {
	var req securityLevelRequest
	if !h.decode(w, r, &req) {
		return
	}

	level, err := auth.ParseSecurityLevel(req.Level)
	if err != nil {
		h.writeError(w, r, errors.NewValidationError("INVALID_SECURITY_LEVEL", err.Error()))
		return
	}

	if err := h.engine.SetSecurityLevel(r.Context(), level); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, securityLevelResponse{Level: level.String()})
}

func (h *Handler) handleResetFailures(w http.ResponseWriter, r *http.Request) {
	var req resetFailuresRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.engine.ResetFailedAttempts(r.Context(), req.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// decode parses and validates the JSON request body. It writes the error
// response itself and reports whether decoding succeeded.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, r, errors.NewValidationError("MALFORMED_BODY", "request body is not valid JSON"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, r, errors.NewValidationError("INVALID_REQUEST", err.Error()))
		return false
	}
	return true
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.GetStatusCode(err)
	var body errorBody
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		body.Error.Code = appErr.Code
		body.Error.Message = appErr.Message
	} else {
		body.Error.Code = "INTERNAL_ERROR"
		body.Error.Message = "an internal error occurred"
	}

	if status >= 500 {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response encoding failed", slog.Any("error", err))
	}
}
