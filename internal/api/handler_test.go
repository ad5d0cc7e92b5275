package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"putik-service/internal/auth"
	"putik-service/internal/models"
	"putik-service/internal/service"
	"putik-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type stubProfiles map[string]*models.UserProfile

func (p stubProfiles) GetUserProfile(_ context.Context, id string) (*models.UserProfile, error) {
	if profile, ok := p[id]; ok {
		return profile, nil
	}
	return nil, store.ErrNotFound
}

// stubCatalog serves a fixed vehicle list; the rest of the catalog is empty
type stubCatalog struct {
	vehicles []models.Vehicle
}

func (s *stubCatalog) ListVehicles(context.Context) ([]models.Vehicle, error) { return s.vehicles, nil }

func (s *stubCatalog) GetVehicle(_ context.Context, id int64) (*models.Vehicle, error) {
	for i := range s.vehicles {
		if s.vehicles[i].ID == id {
			return &s.vehicles[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *stubCatalog) ListTypes(context.Context) ([]models.Type, error) { return nil, nil }
func (s *stubCatalog) ListParts(context.Context, int64, models.CatalogFilter) ([]models.Part, error) {
	return nil, nil
}
func (s *stubCatalog) GetPart(context.Context, int64) (*models.Part, error) { return nil, store.ErrNotFound }
func (s *stubCatalog) GetPartsByIDs(context.Context, []int64) ([]models.Part, error) {
	return nil, nil
}
func (s *stubCatalog) ListMechanics(context.Context) ([]models.Mechanic, error) { return nil, nil }
func (s *stubCatalog) ListActiveBookingsForVehicle(context.Context, int64) ([]models.Booking, error) {
	return nil, nil
}
func (s *stubCatalog) ListActiveBookingsForParts(context.Context, []int64) ([]models.Booking, error) {
	return nil, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	router   *gin.Engine
	verifier *auth.Verifier
	users    map[models.Role]string
}

func newTestServer(t *testing.T, checks map[string]Pinger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := map[models.Role]string{}
	profiles := stubProfiles{}
	for _, role := range []models.Role{models.RoleUser, models.RoleMechanic, models.RoleAdmin} {
		id := uuid.New().String()
		users[role] = id
		profiles[id] = &models.UserProfile{ID: id, Role: role}
	}

	catalog := service.NewCatalogService(&stubCatalog{vehicles: []models.Vehicle{
		{ID: 1, Name: "Hilux", Make: "Toyota", Model: "Hilux", Year: 2020},
	}}, nil, time.Minute)

	verifier := auth.NewVerifier(testSecret, "")
	router := gin.New()
	NewHandler(Services{
		Catalog: catalog,
		Admin:   service.NewAdminService(nil, nil),
	}, verifier, profiles, checks).SetupRoutes(router)

	return &testServer{router: router, verifier: verifier, users: users}
}

func (s *testServer) token(t *testing.T, role models.Role) string {
	t.Helper()
	token, err := s.verifier.Sign(s.users[role], time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestReadinessCheck(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("all dependencies up", func(t *testing.T) {
		s := newTestServer(t, map[string]Pinger{"postgres": ok, "redis": ok})
		w := s.do(http.MethodGet, "/ready", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("redis down", func(t *testing.T) {
		s := newTestServer(t, map[string]Pinger{"postgres": ok, "redis": down})
		w := s.do(http.MethodGet, "/ready", "", "")

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		failures := decode(t, w)["failures"].(map[string]interface{})
		assert.Equal(t, "connection refused", failures["redis"])
		assert.NotContains(t, failures, "postgres")
	})
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-42")
	w := httptest.NewRecorder()

	s.router.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))
}

func TestPublicCatalogRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/v1/vehicles", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["vehicles"], 1)

	w = s.do(http.MethodGet, "/api/v1/vehicles/1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hilux", decode(t, w)["name"])

	w = s.do(http.MethodGet, "/api/v1/vehicles/9", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/vehicles/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireAuth(t *testing.T) {
	s := newTestServer(t, nil)

	other := auth.NewVerifier("another-secret", "")
	forged, err := other.Sign(s.users[models.RoleUser], time.Hour)
	require.NoError(t, err)

	stranger, err := s.verifier.Sign(uuid.New().String(), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"wrong signing key", forged, http.StatusUnauthorized},
		{"no profile", stranger, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodGet, "/api/v1/cart", tt.token, "")
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		role   models.Role
		path   string
		status int
	}{
		{models.RoleUser, "/api/v1/admin/bookings", http.StatusForbidden},
		{models.RoleMechanic, "/api/v1/admin/bookings", http.StatusForbidden},
		{models.RoleUser, "/api/v1/mechanic/bookings", http.StatusForbidden},
		{models.RoleAdmin, "/api/v1/mechanic/leaves", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.role, tt.path), func(t *testing.T) {
			w := s.do(http.MethodGet, tt.path, s.token(t, tt.role), "")
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAdminCreateVehicleValidation(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(t, models.RoleAdmin)

	w := s.do(http.MethodPost, "/api/v1/admin/vehicles", token, `{"name":"  "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["details"], "name is required")

	w = s.do(http.MethodPost, "/api/v1/admin/vehicles", token, `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&service.StockError{}, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", &service.StockError{}), http.StatusConflict},
		{service.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("group 7: %w", service.ErrNotFound), http.StatusNotFound},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrAlreadyExists, http.StatusConflict},
		{service.ErrInUse, http.StatusConflict},
		{service.ErrInvalidTransition, http.StatusConflict},
		{service.ErrNotEditable, http.StatusConflict},
		{service.ErrVehicleMismatch, http.StatusConflict},
		{service.ErrMechanicUnavailable, http.StatusConflict},
		{service.ErrBusy, http.StatusConflict},
		{service.ErrEmptyCart, http.StatusBadRequest},
		{service.ErrPastDate, http.StatusBadRequest},
		{service.ErrInvalidStep, http.StatusBadRequest},
		{service.ErrInvalidInput, http.StatusBadRequest},
		{service.ErrUnknownAction, http.StatusBadRequest},
		{service.ErrNoVehicle, http.StatusBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, _ := classify(tt.err)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestRespondErrorShortagesAndHiddenDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	respondError(c, &service.StockError{Shortages: []store.Shortage{{PartID: 2, Requested: 2, Available: 1}}})

	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Insufficient stock", body["error"])
	assert.Len(t, body["shortages"], 1)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respondError(c, errors.New("pq: password authentication failed"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decode(t, w)["details"])
}
