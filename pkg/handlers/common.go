package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gearshed-backend/pkg/middleware"
	"gearshed-backend/pkg/services"
	"gearshed-backend/pkg/utils"
)

// writeServiceError maps a domain error to the HTTP error envelope.
// Unknown errors are reported as opaque 500s.
func writeServiceError(w http.ResponseWriter, err error) {
	code := services.CodeOf(err)
	switch services.KindOf(err) {
	case services.KindNotFound:
		utils.WriteErrorResponseWithCode(w, http.StatusNotFound, code, err.Error(), "")
	case services.KindValidation, services.KindStateTransition:
		utils.WriteErrorResponseWithCode(w, http.StatusBadRequest, code, err.Error(), "")
	case services.KindForbidden:
		utils.WriteErrorResponseWithCode(w, http.StatusForbidden, code, err.Error(), "")
	case services.KindConflict:
		utils.WriteErrorResponseWithCode(w, http.StatusConflict, code, err.Error(), "")
	default:
		utils.WriteInternalServerErrorResponse(w, "Internal server error")
	}
}

// resolveAuthContext combines the authenticated user from the request
// context with the organization from the URL into the caller's resolved
// role. Handlers call it once and pass the result to every use case, so
// the membership is looked up a single time per request.
func resolveAuthContext(w http.ResponseWriter, r *http.Request, authz *services.AuthorizationService) (*services.AuthContext, bool) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return nil, false
	}

	orgID := chi.URLParam(r, "orgID")
	if orgID == "" {
		utils.WriteBadRequestResponse(w, "Organization ID is required")
		return nil, false
	}

	actor, err := authz.Resolve(r.Context(), user.ID, orgID)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return actor, true
}
