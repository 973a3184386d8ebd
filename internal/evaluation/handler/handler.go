package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	alertmodels "shiftguard/internal/alert/models"
	"shiftguard/internal/evaluation"
	id "shiftguard/pkg/domain"
	dErrors "shiftguard/pkg/domain-errors"
	"shiftguard/pkg/platform/httputil"
	"shiftguard/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=../mocks/handler_mock.go -package=mocks PassRunner,AlertResolver

// PassRunner triggers an evaluation pass.
type PassRunner interface {
	RunEvaluationPass(ctx context.Context, tenantID *id.TenantID) (*evaluation.PassResult, error)
}

// AlertResolver resolves alerts on behalf of an operator.
type AlertResolver interface {
	Resolve(ctx context.Context, alertID id.AlertID, resolvedBy string) (*alertmodels.Alert, error)
}

// Handler wires the ops admin endpoints to the evaluation and alert services.
type Handler struct {
	runner   PassRunner
	resolver AlertResolver
	logger   *slog.Logger
}

func New(runner PassRunner, resolver AlertResolver, logger *slog.Logger) *Handler {
	return &Handler{
		runner:   runner,
		resolver: resolver,
		logger:   logger,
	}
}

// Register mounts the admin endpoints on the router. Callers are expected to
// wrap r with the admin auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/evaluations", h.HandleRunEvaluation)
	r.Post("/admin/alerts/{alertID}/resolve", h.HandleResolveAlert)
}

// HandleRunEvaluation handles POST /admin/evaluations[?tenant_id=].
func (h *Handler) HandleRunEvaluation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var tenantID *id.TenantID
	if raw := r.URL.Query().Get("tenant_id"); raw != "" {
		parsed, err := id.ParseTenantID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid tenant_id"))
			return
		}
		tenantID = &parsed
	}

	result, err := h.runner.RunEvaluationPass(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual evaluation pass failed",
			"request_id", requestID,
			"actor", requestcontext.ActorID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "manual evaluation pass completed",
		"request_id", requestID,
		"actor", requestcontext.ActorID(ctx),
		"pass_id", result.PassID,
	)
	httputil.WriteJSON(w, http.StatusOK, FromPassResult(result))
}

// HandleResolveAlert handles POST /admin/alerts/{alertID}/resolve.
func (h *Handler) HandleResolveAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	alertID, err := id.ParseAlertID(chi.URLParam(r, "alertID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid alert id"))
		return
	}
	actor := requestcontext.ActorID(ctx)
	if actor == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	alert, err := h.resolver.Resolve(ctx, alertID, actor)
	if err != nil {
		h.logger.WarnContext(ctx, "alert resolve failed",
			"request_id", requestID,
			"alert_id", alertID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAlert(alert))
}

type PassResponse struct {
	PassID           string            `json:"pass_id"`
	StartedAt        time.Time         `json:"started_at"`
	DurationMs       int64             `json:"duration_ms"`
	TenantsEvaluated int               `json:"tenants_evaluated"`
	TenantsSkipped   int               `json:"tenants_skipped"`
	UsersEvaluated   int               `json:"users_evaluated"`
	UsersFailed      int               `json:"users_failed"`
	AlertsCreated    int               `json:"alerts_created"`
	AlertsSuppressed int               `json:"alerts_suppressed"`
	DispatchDropped  int               `json:"dispatch_dropped"`
	TenantErrors     map[string]string `json:"tenant_errors,omitempty"`
}

func FromPassResult(r *evaluation.PassResult) PassResponse {
	resp := PassResponse{
		PassID:           r.PassID,
		StartedAt:        r.StartedAt,
		DurationMs:       r.Duration.Milliseconds(),
		TenantsEvaluated: r.TenantsEvaluated,
		TenantsSkipped:   r.TenantsSkipped,
		UsersEvaluated:   r.UsersEvaluated,
		UsersFailed:      r.UsersFailed,
		AlertsCreated:    r.AlertsCreated,
		AlertsSuppressed: r.AlertsSuppressed,
		DispatchDropped:  r.DispatchDropped,
	}
	if len(r.TenantErrors) > 0 {
		resp.TenantErrors = make(map[string]string, len(r.TenantErrors))
		for tenantID, err := range r.TenantErrors {
			resp.TenantErrors[tenantID.String()] = string(dErrors.CodeOf(err))
		}
	}
	return resp
}

type AlertResponse struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	TenantID   string     `json:"tenant_id"`
	Type       string     `json:"type"`
	Severity   string     `json:"severity"`
	Title      string     `json:"title"`
	Resolved   bool       `json:"resolved"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`
}

func FromAlert(a *alertmodels.Alert) AlertResponse {
	return AlertResponse{
		ID:         a.ID.String(),
		UserID:     a.UserID.String(),
		TenantID:   a.TenantID.String(),
		Type:       a.Type.String(),
		Severity:   string(a.Severity),
		Title:      a.Title,
		Resolved:   a.Resolved,
		CreatedAt:  a.CreatedAt,
		ResolvedAt: a.ResolvedAt,
		ResolvedBy: a.ResolvedBy,
	}
}
