package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gearshed-backend/pkg/services"
	"gearshed-backend/pkg/utils"
)

// CategoryHandler serves item category management.
type CategoryHandler struct {
	inventory *services.InventoryService
	authz     *services.AuthorizationService
}

// NewCategoryHandler creates a CategoryHandler.
func NewCategoryHandler(inventory *services.InventoryService, authz *services.AuthorizationService) *CategoryHandler {
	return &CategoryHandler{inventory: inventory, authz: authz}
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Create adds a category.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	var req categoryRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	c, err := h.inventory.CreateCategory(r.Context(), actor, req.Name, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, c)
}

// List lists the organization's categories.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	categories, err := h.inventory.ListCategories(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, categories)
}

// Update renames a category.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	var req categoryRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	c, err := h.inventory.UpdateCategory(r.Context(), actor, chi.URLParam(r, "categoryID"), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, c)
}

// Delete removes a category.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	categoryID := chi.URLParam(r, "categoryID")
	if err := h.inventory.DeleteCategory(r.Context(), actor, categoryID); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"id": categoryID})
}
