package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/DukeRupert/gatehouse/internal/domain"
	"github.com/DukeRupert/gatehouse/internal/service"
)

// AdmissionHandler exposes the admission facade and entitlement reporting.
type AdmissionHandler struct {
	admission    service.AdmissionService
	entitlements service.EntitlementService
	logger       *slog.Logger
}

// NewAdmissionHandler creates a new AdmissionHandler.
func NewAdmissionHandler(admission service.AdmissionService, entitlements service.EntitlementService, logger *slog.Logger) *AdmissionHandler {
	return &AdmissionHandler{
		admission:    admission,
		entitlements: entitlements,
		logger:       logger,
	}
}

// RegisterRoutes attaches the handler's routes to the router.
func (h *AdmissionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/admission/check", h.RequestAdmission)
	r.Post("/identities/ensure", h.EnsureIdentity)
	r.Get("/identities/{identityID}/status", h.Status)
	r.Put("/identities/{identityID}/plan", h.SetPlanTier)
	r.Post("/usage/record", h.RecordUsage)
	r.Get("/identities/{identityID}/usage", h.Usage)
}

type identityRequest struct {
	IdentityID uuid.UUID `json:"identity_id"`
}

// RequestAdmission decides whether one metered action may proceed.
func (h *AdmissionHandler) RequestAdmission(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.IdentityID == uuid.Nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.request_admission", "identity_id is required"))
		return
	}

	decision, err := h.admission.RequestAdmission(r.Context(), req.IdentityID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

// EnsureIdentity idempotently provisions an entitlement record.
func (h *AdmissionHandler) EnsureIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.IdentityID == uuid.Nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.ensure_identity", "identity_id is required"))
		return
	}

	ent, err := h.entitlements.Ensure(r.Context(), req.IdentityID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"identity_id": ent.IdentityID,
		"plan_tier":   ent.PlanTier,
		"free_used":   ent.FreeUsed,
		"free_limit":  ent.FreeLimit,
	})
}

// Status reports an identity's entitlement state.
func (h *AdmissionHandler) Status(w http.ResponseWriter, r *http.Request) {
	identityID, err := uuid.Parse(chi.URLParam(r, "identityID"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.status", "Invalid identity id"))
		return
	}

	status, err := h.entitlements.Status(r.Context(), identityID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

type setPlanRequest struct {
	PlanTier domain.PlanTier `json:"plan_tier"`
}

// SetPlanTier records an externally triggered plan transition.
func (h *AdmissionHandler) SetPlanTier(w http.ResponseWriter, r *http.Request) {
	identityID, err := uuid.Parse(chi.URLParam(r, "identityID"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.set_plan", "Invalid identity id"))
		return
	}

	var req setPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.entitlements.SetPlanTier(r.Context(), identityID, req.PlanTier); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"identity_id": identityID,
		"plan_tier":   req.PlanTier,
	})
}

type recordUsageRequest struct {
	IdentityID uuid.UUID `json:"identity_id"`
	ActionKind string    `json:"action_kind"`
}

// RecordUsage appends to the per-action audit counter. The surrounding layer
// calls this after the metered action has completed.
func (h *AdmissionHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	var req recordUsageRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.IdentityID == uuid.Nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.record_usage", "identity_id is required"))
		return
	}

	counter, err := h.entitlements.RecordUsage(r.Context(), req.IdentityID, req.ActionKind)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"identity_id":     counter.IdentityID,
		"action_kind":     counter.ActionKind,
		"request_count":   counter.RequestCount,
		"last_request_at": counter.LastRequestAt,
	})
}

// Usage lists an identity's audit counters.
func (h *AdmissionHandler) Usage(w http.ResponseWriter, r *http.Request) {
	identityID, err := uuid.Parse(chi.URLParam(r, "identityID"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.usage", "Invalid identity id"))
		return
	}

	counters, err := h.entitlements.Usage(r.Context(), identityID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	items := make([]map[string]any, 0, len(counters))
	for _, c := range counters {
		items = append(items, map[string]any{
			"action_kind":     c.ActionKind,
			"request_count":   c.RequestCount,
			"last_request_at": c.LastRequestAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"identity_id": identityID,
		"usage":       items,
	})
}
