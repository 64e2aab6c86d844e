package httptransport

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"enrolld/internal/migration"
	"enrolld/internal/signup/models"
	"enrolld/pkg/domain"
	dErrors "enrolld/pkg/domain-errors"
)

// SignupService is the façade slice the HTTP layer calls.
type SignupService interface {
	Signup(ctx context.Context, req models.SignupRequest) (models.ProvisionResult, error)
}

// BatchRunner executes a batch of signups.
type BatchRunner interface {
	Run(ctx context.Context, batchID domain.BatchID, requests []models.SignupRequest) (migration.Summary, error)
}

type Handler struct {
	service SignupService
	runner  BatchRunner
	db      *sql.DB
	logger  *slog.Logger
}

type HandlerOption func(*Handler)

func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// WithReadinessDB adds a database ping to the readiness check.
func WithReadinessDB(db *sql.DB) HandlerOption {
	return func(h *Handler) { h.db = db }
}

func NewHandler(service SignupService, runner BatchRunner, opts ...HandlerOption) *Handler {
	h := &Handler{
		service: service,
		runner:  runner,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type signupPayload struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	Group       string `json:"group"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Country     string `json:"country,omitempty"`
	Newsletter  bool   `json:"newsletter,omitempty"`
	Password    string `json:"password,omitempty"`
	Source      string `json:"source"`

	// Migration-only fields.
	Migrated      bool   `json:"migrated,omitempty"`
	PreHashedHash string `json:"pre_hashed_hash,omitempty"`
	PreHashedSalt string `json:"pre_hashed_salt,omitempty"`
}

func (p signupPayload) toRequest() (models.SignupRequest, error) {
	group, err := domain.ParseGroup(p.Group)
	if err != nil {
		return models.SignupRequest{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "membership group is not valid")
	}
	source, err := domain.ParseSourceChannel(p.Source)
	if err != nil {
		return models.SignupRequest{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "source channel is not valid")
	}
	return models.SignupRequest{
		Email:       p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		DateOfBirth: p.DateOfBirth,
		Group:       group,
		PhoneNumber: p.PhoneNumber,
		Country:     p.Country,
		Newsletter:  p.Newsletter,
		IsMigration: p.Migrated,
		Source:      source,
		Credential: models.CredentialMaterial{
			Password:      p.Password,
			PreHashedHash: p.PreHashedHash,
			PreHashedSalt: p.PreHashedSalt,
		},
	}, nil
}

type signupResponse struct {
	MemberID string   `json:"member_id"`
	Path     string   `json:"path"`
	Partial  []string `json:"incomplete_writes,omitempty"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var payload signupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, r, dErrors.Wrap(err, dErrors.CodeInvalidInput, "request body is not valid JSON"))
		return
	}

	req, err := payload.toRequest()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.service.Signup(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := signupResponse{
		MemberID: result.MemberID.String(),
		Path:     result.Path.String(),
	}
	for _, f := range result.Partial {
		resp.Partial = append(resp.Partial, f.Subsystem+"/"+f.Operation)
	}

	status := http.StatusCreated
	if !result.Complete() {
		status = http.StatusAccepted
	}
	h.writeJSON(w, status, resp)
}

type batchRunPayload struct {
	Concurrency int             `json:"concurrency,omitempty"`
	Entries     []signupPayload `json:"entries"`
}

type batchRunResponse struct {
	BatchID   string `json:"batch_id"`
	Succeeded int    `json:"succeeded"`
	Conflicts int    `json:"conflicts"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

func (h *Handler) handleBatchRun(w http.ResponseWriter, r *http.Request) {
	batchID := domain.BatchID(chi.URLParam(r, "batchID"))
	if batchID.IsNil() {
		h.writeError(w, r, dErrors.New(dErrors.CodeInvalidInput, "batch id is required"))
		return
	}

	var payload batchRunPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, r, dErrors.Wrap(err, dErrors.CodeInvalidInput, "request body is not valid JSON"))
		return
	}
	if len(payload.Entries) == 0 {
		h.writeError(w, r, dErrors.New(dErrors.CodeInvalidInput, "batch has no entries"))
		return
	}

	requests := make([]models.SignupRequest, 0, len(payload.Entries))
	for i, entry := range payload.Entries {
		req, err := entry.toRequest()
		if err != nil {
			h.writeError(w, r, dErrors.Newf(dErrors.CodeInvalidInput, "entry %d: %s", i, dErrors.MessageOf(err)))
			return
		}
		requests = append(requests, req)
	}

	summary, err := h.runner.Run(r.Context(), batchID, requests)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, batchRunResponse{
		BatchID:   batchID.String(),
		Succeeded: summary.Succeeded,
		Conflicts: summary.Conflicts,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database unreachable"})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("write response", "error", err)
	}
}

// writeError renders the stable {code, message} envelope. Internal detail
// never crosses this boundary; it is logged server-side only.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"code", code,
			"error", err,
		)
	}
	h.writeJSON(w, status, map[string]string{
		"code":    string(code),
		"message": dErrors.MessageOf(err),
	})
}
