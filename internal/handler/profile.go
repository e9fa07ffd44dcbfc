// This file implements the authenticated user's own profile endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fieldsight/menara/internal/auth"
	"github.com/fieldsight/menara/internal/domain"
	"github.com/fieldsight/menara/internal/service"
)

// ProfileHandler lets the authenticated user read and edit their own
// account. Email and role stay fixed; only display name and phone number
// are editable.
type ProfileHandler struct {
	userService service.UserService
	logger      *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(userService service.UserService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers the profile routes on the mux. The caller wraps
// the mux with authentication middleware.
func (h *ProfileHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/profile", h.GetProfile)
	mux.HandleFunc("PATCH /api/profile", h.UpdateProfile)
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// GetProfile handles GET /api/profile.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	// The context user comes from the token claims; re-fetch so the
	// response reflects the stored row.
	current, err := h.userService.GetByID(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(current))
}

// UpdateProfile handles PATCH /api/profile. Absent fields keep their
// current value; at least one of name and phone must be present.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	const op = "ProfileHandler.UpdateProfile"

	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid JSON body"))
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user.ID, service.UpdateProfileParams{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(updated))
}
