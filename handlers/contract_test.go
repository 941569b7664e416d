package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phonginreallife/contracthub/authz"
	"github.com/phonginreallife/contracthub/db"
)

// MockContractService
type MockContractService struct {
	mock.Mock
}

func (m *MockContractService) ListContracts(ctx context.Context, userID string) ([]db.ContractDetail, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]db.ContractDetail), args.Error(1)
}

func (m *MockContractService) GetContract(ctx context.Context, userID, contractID string) (*db.ContractDetail, error) {
	args := m.Called(ctx, userID, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.ContractDetail), args.Error(1)
}

func (m *MockContractService) GetContractDetail(ctx context.Context, contractID string) (*db.ContractDetail, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.ContractDetail), args.Error(1)
}

func (m *MockContractService) ListEligibleUsers(ctx context.Context, actorID, contractID string) ([]db.User, error) {
	args := m.Called(ctx, actorID, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]db.User), args.Error(1)
}

func (m *MockContractService) AddRole(ctx context.Context, actorID, contractID, username string, role db.Role) (*db.ContractRole, error) {
	args := m.Called(ctx, actorID, contractID, username, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.ContractRole), args.Error(1)
}

func (m *MockContractService) RemoveRole(ctx context.Context, actorID, contractID, username string, role db.Role) error {
	args := m.Called(ctx, actorID, contractID, username, role)
	return args.Error(0)
}

// withUser stands in for the bearer middleware
func withUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}
}

func newContractRouter(svc ContractService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewContractHandler(svc)

	r := gin.New()
	r.Use(withUser("u1"))
	r.GET("/api/contracts/", h.ListContracts)
	r.GET("/api/contracts/:id/", h.GetContract)
	r.GET("/api/contracts/:id/manage-users/", h.ListEligibleUsers)
	r.POST("/api/contracts/:id/manage-users/", h.AddRole)
	r.DELETE("/api/contracts/:id/manage-users/", h.RemoveRole)
	return r
}

// decodeEnvelope returns the data member of an enveloped response
func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var raw struct {
		Data       json.RawMessage `json:"data"`
		AppVersion string          `json:"app_version"`
		StatusCode int             `json:"status_code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	if data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return envelope{AppVersion: raw.AppVersion, StatusCode: raw.StatusCode}
}

func TestContractHandler_ListContracts(t *testing.T) {
	svc := new(MockContractService)
	svc.On("ListContracts", mock.Anything, "u1").Return([]db.ContractDetail{
		{ID: "k1", Title: "North bridge repair", Status: db.StatusUnpaid},
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/contracts/", nil)
	newContractRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var contracts []db.ContractDetail
	env := decodeEnvelope(t, w, &contracts)
	assert.Equal(t, AppVersion, env.AppVersion)
	require.Len(t, contracts, 1)
	assert.Equal(t, "k1", contracts[0].ID)
	svc.AssertExpectations(t)
}

func TestContractHandler_GetContractAfterViewCheck(t *testing.T) {
	svc := new(MockContractService)
	svc.On("GetContractDetail", mock.Anything, "k1").Return(&db.ContractDetail{ID: "k1", Title: "North bridge repair"}, nil)

	gin.SetMode(gin.TestMode)
	h := NewContractHandler(svc)
	r := gin.New()
	r.Use(withUser("u1"))
	r.GET("/api/contracts/:id/", func(c *gin.Context) {
		c.Set(string(authz.ContextKeyContractID), c.Param("id"))
		c.Next()
	}, h.GetContract)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/contracts/k1/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var contract db.ContractDetail
	decodeEnvelope(t, w, &contract)
	assert.Equal(t, "k1", contract.ID)
	svc.AssertExpectations(t)
	svc.AssertNotCalled(t, "GetContract", mock.Anything, mock.Anything, mock.Anything)
}

func TestContractHandler_GetContractNotFound(t *testing.T) {
	svc := new(MockContractService)
	svc.On("GetContract", mock.Anything, "u1", "k9").Return(nil, authz.ErrContractNotFound)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/contracts/k9/", nil)
	newContractRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body errorBody
	env := decodeEnvelope(t, w, &body)
	assert.Equal(t, "Not found.", body.Detail)
	assert.Equal(t, http.StatusNotFound, env.StatusCode)
}

func TestContractHandler_ListEligibleUsers(t *testing.T) {
	svc := new(MockContractService)
	svc.On("ListEligibleUsers", mock.Anything, "u1", "k1").Return([]db.User{
		{ID: "u2", Username: "alice", FirstName: "Alice", LastName: "Smith", Email: "alice@example.com", PasswordHash: "secret"},
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/contracts/k1/manage-users/", nil)
	newContractRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var users []map[string]string
	decodeEnvelope(t, w, &users)
	require.Len(t, users, 1)
	assert.Equal(t, map[string]string{
		"id":        "u2",
		"username":  "alice",
		"email":     "alice@example.com",
		"full_name": "Alice Smith",
	}, users[0])
}

func TestContractHandler_AddRole(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"added", `{"username":"alice","role":"MN"}`, nil, http.StatusCreated, "User added successfully."},
		{"actor may not manage", `{"username":"alice","role":"MN"}`, authz.ErrForbidden, http.StatusForbidden, "You do not have permission to manage this contract."},
		{"candidate outside the parties", `{"username":"alice","role":"MN"}`, authz.ErrIneligibleUser, http.StatusForbidden, "User must be a member of an organization part of this contract."},
		{"invalid role", `{"username":"alice","role":"MN"}`, authz.ErrInvalidRole, http.StatusBadRequest, "Invalid data passed."},
		{"duplicate", `{"username":"alice","role":"MN"}`, authz.ErrDuplicateRoleAssignment, http.StatusConflict, authz.ErrDuplicateRoleAssignment.Error()},
		{"unknown user", `{"username":"alice","role":"MN"}`, authz.ErrUserNotFound, http.StatusNotFound, "Not found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockContractService)
			if tt.err != nil {
				svc.On("AddRole", mock.Anything, "u1", "k1", "alice", db.Manager).Return(nil, tt.err)
			} else {
				svc.On("AddRole", mock.Anything, "u1", "k1", "alice", db.Manager).Return(&db.ContractRole{ID: "r1"}, nil)
			}

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/contracts/k1/manage-users/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			newContractRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body detailBody
			decodeEnvelope(t, w, &body)
			assert.Equal(t, tt.wantDetail, body.Detail)
			svc.AssertExpectations(t)
		})
	}
}

func TestContractHandler_AddRoleMissingUsername(t *testing.T) {
	svc := new(MockContractService)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/contracts/k1/manage-users/", strings.NewReader(`{"role":"MN"}`))
	req.Header.Set("Content-Type", "application/json")
	newContractRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "AddRole")
}

func TestContractHandler_RemoveRole(t *testing.T) {
	svc := new(MockContractService)
	svc.On("RemoveRole", mock.Anything, "u1", "k1", "alice", db.GeneralDirector).Return(nil).Once()
	svc.On("RemoveRole", mock.Anything, "u1", "k1", "alice", db.GeneralDirector).Return(authz.ErrRoleNotFound).Once()
	r := newContractRouter(svc)

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/contracts/k1/manage-users/", strings.NewReader(`{"username":"alice","role":"GD"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := send()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = send()
	assert.Equal(t, http.StatusNotFound, w.Code)
	svc.AssertExpectations(t)
}
