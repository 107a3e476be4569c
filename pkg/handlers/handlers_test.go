package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearshed-backend/pkg/database/databasetest"
	"gearshed-backend/pkg/middleware"
	"gearshed-backend/pkg/services"
	"gearshed-backend/pkg/utils"
)

// envelope mirrors utils.APIResponse for decoding test responses.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *utils.APIError `json:"error"`
}

type testServer struct {
	router *chi.Mux
	store  *databasetest.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := databasetest.New()
	jwtService := utils.NewJWTService("handler-test-secret")

	authz := services.NewAuthorizationService(store)
	orgService := services.NewOrganizationService(store)
	inventoryService := services.NewInventoryService(store)
	transformationService := services.NewTransformationService(store)
	reservationService := services.NewReservationService(store)

	authHandler := NewAuthHandler(store, jwtService)
	orgHandler := NewOrgHandler(orgService, authz)
	itemHandler := NewItemHandler(inventoryService, authz)
	categoryHandler := NewCategoryHandler(inventoryService, authz)
	transformationHandler := NewTransformationHandler(transformationService, authz)
	reservationHandler := NewReservationHandler(reservationService, authz)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.With(middleware.Auth(jwtService)).Get("/me", authHandler.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(jwtService))

			r.Route("/orgs", func(r chi.Router) {
				r.Post("/", orgHandler.Create)
				r.Get("/", orgHandler.List)

				r.Route("/{orgID}", func(r chi.Router) {
					r.Get("/", orgHandler.Get)
					r.Post("/members", orgHandler.AddMember)
					r.Get("/members", orgHandler.ListMembers)

					r.Post("/categories", categoryHandler.Create)
					r.Get("/categories", categoryHandler.List)

					r.Route("/items", func(r chi.Router) {
						r.Post("/", itemHandler.Create)
						r.Get("/", itemHandler.List)
						r.Get("/{itemID}", itemHandler.Get)
						r.Delete("/{itemID}", itemHandler.Delete)
					})

					r.Route("/transformations", func(r chi.Router) {
						r.Post("/subdivide", transformationHandler.Subdivide)
						r.Post("/donate", transformationHandler.Donate)
						r.Get("/", transformationHandler.List)
					})

					r.Route("/reservations", func(r chi.Router) {
						r.Post("/", reservationHandler.Create)
						r.Post("/{reservationID}/deliver", reservationHandler.Deliver)
						r.Post("/{reservationID}/cancel", reservationHandler.Cancel)
					})
				})
			})
		})
	})

	return &testServer{router: router, store: store}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

// register creates an account and returns its access token and user id.
func (ts *testServer) register(t *testing.T, email string) (token, userID string) {
	t.Helper()
	rec, env := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "long-enough-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var data struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.AccessToken, data.User.ID
}

// createOrg creates an organization and returns its id.
func (ts *testServer) createOrg(t *testing.T, token, name string) string {
	t.Helper()
	rec, env := ts.do(t, http.MethodPost, "/api/orgs/", token, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code)

	var org struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &org))
	return org.ID
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "climber@club.test", "password": "long-enough-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)

	// Duplicate email.
	rec, env = ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "climber@club.test", "password": "long-enough-password",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Success)

	// Short password.
	rec, _ = ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "short@club.test", "password": "tiny",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Wrong password gives the same 401 as a missing account.
	rec, _ = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "climber@club.test", "password": "wrong-password-here",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ghost@club.test", "password": "wrong-password-here",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "climber@club.test", "password": "long-enough-password",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/api/orgs/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	rec, _ = ts.do(t, http.MethodGet, "/api/orgs/", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTransformationEndpointErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	ownerToken, _ := ts.register(t, "owner@club.test")
	orgID := ts.createOrg(t, ownerToken, "Alpine Club")

	// Seed an item through the API.
	rec, env := ts.do(t, http.MethodPost, "/api/orgs/"+orgID+"/items/", ownerToken, map[string]any{
		"identifier": "rope-001", "name": "Rope", "unit": "m", "value": 100,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var item struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &item))

	subdividePath := "/api/orgs/" + orgID + "/transformations/subdivide"

	t.Run("success", func(t *testing.T) {
		rec, env := ts.do(t, http.MethodPost, subdividePath, ownerToken, map[string]any{
			"item_id": item.ID,
			"subdivisions": []map[string]any{
				{"identifier": "rope-001a", "value": 40},
			},
		})
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, env.Success)
	})

	t.Run("insufficient value is a 400 with a stable code", func(t *testing.T) {
		rec, env := ts.do(t, http.MethodPost, subdividePath, ownerToken, map[string]any{
			"item_id": item.ID,
			"subdivisions": []map[string]any{
				{"identifier": "rope-001b", "value": 9999},
			},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INSUFFICIENT_VALUE", env.Error.Code)
	})

	t.Run("unknown item is a 404", func(t *testing.T) {
		rec, env := ts.do(t, http.MethodPost, subdividePath, ownerToken, map[string]any{
			"item_id": "ghost",
			"subdivisions": []map[string]any{
				{"identifier": "x", "value": 1},
			},
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "ITEM_NOT_FOUND", env.Error.Code)
	})

	t.Run("members are forbidden", func(t *testing.T) {
		memberToken, memberID := ts.register(t, "member@club.test")
		rec, _ := ts.do(t, http.MethodPost, "/api/orgs/"+orgID+"/members", ownerToken, map[string]string{
			"user_id": memberID, "role": "member",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec, env := ts.do(t, http.MethodPost, subdividePath, memberToken, map[string]any{
			"item_id": item.ID,
			"subdivisions": []map[string]any{
				{"identifier": "x", "value": 1},
			},
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "FORBIDDEN", env.Error.Code)
	})

	t.Run("outsiders cannot touch the organization", func(t *testing.T) {
		strangerToken, _ := ts.register(t, "stranger@club.test")
		rec, _ := ts.do(t, http.MethodGet, "/api/orgs/"+orgID+"/items/", strangerToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestReservationFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ownerToken, _ := ts.register(t, "owner@club.test")
	orgID := ts.createOrg(t, ownerToken, "Alpine Club")

	rec, env := ts.do(t, http.MethodPost, "/api/orgs/"+orgID+"/items/", ownerToken, map[string]any{
		"identifier": "tent-001", "name": "Tent", "value": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var item struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &item))

	base := "/api/orgs/" + orgID + "/reservations"
	rec, env = ts.do(t, http.MethodPost, base+"/", ownerToken, map[string]any{
		"item_ids":   []string{item.ID},
		"start_date": "2026-09-01T00:00:00Z",
		"due_date":   "2026-09-14T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var res struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "pending", res.Status)

	rec, env = ts.do(t, http.MethodPost, fmt.Sprintf("%s/%s/deliver", base, res.ID), ownerToken, map[string]any{
		"item_ids": []string{item.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "delivered", res.Status)

	// Delivered reservations cannot be cancelled.
	rec, env = ts.do(t, http.MethodPost, fmt.Sprintf("%s/%s/cancel", base, res.ID), ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_STATE_TRANSITION", env.Error.Code)
}
