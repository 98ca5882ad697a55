package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/DukeRupert/gatehouse/internal/domain"
	"github.com/DukeRupert/gatehouse/internal/service"
)

// CodeHandler exposes redemption-code endpoints: public validate/redeem and
// the administrative lifecycle.
type CodeHandler struct {
	redemption service.RedemptionService
	admin      service.CodeAdminService
	logger     *slog.Logger
}

// NewCodeHandler creates a new CodeHandler.
func NewCodeHandler(redemption service.RedemptionService, admin service.CodeAdminService, logger *slog.Logger) *CodeHandler {
	return &CodeHandler{
		redemption: redemption,
		admin:      admin,
		logger:     logger,
	}
}

// RegisterRoutes attaches the handler's routes to the router.
func (h *CodeHandler) RegisterRoutes(r chi.Router) {
	r.Post("/invite/validate", h.Validate)
	r.Post("/invite/redeem", h.Redeem)
	r.Post("/admin/codes", h.Create)
	r.Post("/admin/codes/{code}/deactivate", h.Deactivate)
}

type validateRequest struct {
	Code string `json:"code"`
}

// Validate checks a code without consuming it.
func (h *CodeHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	validation, err := h.redemption.Validate(r.Context(), req.Code)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, validation)
}

type redeemRequest struct {
	IdentityID uuid.UUID `json:"identity_id"`
	Code       string    `json:"code"`
}

// Redeem consumes one use of a code for an identity.
func (h *CodeHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.IdentityID == uuid.Nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.redeem", "identity_id is required"))
		return
	}

	result, err := h.redemption.Redeem(r.Context(), req.IdentityID, req.Code)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type createCodeRequest struct {
	Code          string           `json:"code"`
	Description   string           `json:"description"`
	MaxUses       int              `json:"max_uses"`
	ExpiresAt     *time.Time       `json:"expires_at"`
	GrantTier     *domain.PlanTier `json:"grant_tier"`
	GrantFreeUses int              `json:"grant_free_uses"`
	CreatedBy     *uuid.UUID       `json:"created_by"`
}

// Create registers a new code. Omitting "code" auto-generates one; omitting
// "max_uses" defaults to a single-use code.
func (h *CodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.MaxUses == 0 {
		req.MaxUses = 1
	}

	code, err := h.admin.CreateCode(r.Context(), domain.CreateCodeParams{
		Code:          req.Code,
		Description:   req.Description,
		MaxUses:       req.MaxUses,
		ExpiresAt:     req.ExpiresAt,
		GrantTier:     req.GrantTier,
		GrantFreeUses: req.GrantFreeUses,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":              code.ID,
		"code":            code.Code,
		"description":     code.Description,
		"max_uses":        code.MaxUses,
		"current_uses":    code.CurrentUses,
		"is_active":       code.IsActive,
		"expires_at":      code.ExpiresAt,
		"grant_tier":      code.GrantTier,
		"grant_free_uses": code.GrantFreeUses,
		"created_at":      code.CreatedAt,
	})
}

// Deactivate flips a code's kill switch.
func (h *CodeHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.admin.DeactivateCode(r.Context(), code); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code":      domain.NormalizeCode(code),
		"is_active": false,
	})
}
