package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gearshed-backend/pkg/middleware"
	"gearshed-backend/pkg/models"
	"gearshed-backend/pkg/services"
	"gearshed-backend/pkg/utils"
)

// OrgHandler serves organization and membership management.
type OrgHandler struct {
	orgs  *services.OrganizationService
	authz *services.AuthorizationService
}

// NewOrgHandler creates an OrgHandler.
func NewOrgHandler(orgs *services.OrganizationService, authz *services.AuthorizationService) *OrgHandler {
	return &OrgHandler{orgs: orgs, authz: authz}
}

// Create creates an organization owned by the caller.
func (h *OrgHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	org, err := h.orgs.CreateOrganization(r.Context(), user.ID, req.Name, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, org)
}

// List lists the caller's organizations.
func (h *OrgHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	orgs, err := h.orgs.ListUserOrganizations(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, orgs)
}

// Get fetches one organization the caller belongs to.
func (h *OrgHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	org, err := h.orgs.GetOrganization(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, org)
}

// AddMember adds a user to the organization.
func (h *OrgHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	var req struct {
		UserID string               `json:"user_id"`
		Role   models.OrgMemberRole `json:"role"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.UserID == "" {
		utils.WriteValidationErrorResponse(w, "user_id is required", "")
		return
	}

	m, err := h.orgs.AddMember(r.Context(), actor, req.UserID, req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, m)
}

// ListMembers lists the organization's memberships.
func (h *OrgHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	members, err := h.orgs.ListMembers(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, members)
}

// UpdateMemberRole changes a member's role. Owner only.
func (h *OrgHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	var req struct {
		Role models.OrgMemberRole `json:"role"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := h.orgs.UpdateMemberRole(r.Context(), actor, userID, req.Role); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{
		"user_id": userID,
		"role":    string(req.Role),
	})
}
