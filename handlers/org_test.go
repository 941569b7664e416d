package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phonginreallife/contracthub/db"
)

// MockOrganizationUsers
type MockOrganizationUsers struct {
	mock.Mock
}

func (m *MockOrganizationUsers) ListOrganizationUsers(ctx context.Context, subsidiaryID, contractorID string) ([]db.User, error) {
	args := m.Called(ctx, subsidiaryID, contractorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]db.User), args.Error(1)
}

func TestOrgHandler_FetchUsers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := new(MockOrganizationUsers)
	svc.On("ListOrganizationUsers", mock.Anything, "s1", "c1").Return([]db.User{
		{ID: "u1", Username: "alice"},
		{ID: "u2", Username: "bob"},
	}, nil)

	r := gin.New()
	r.GET("/fetch_users/", NewOrgHandler(svc).FetchUsers)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fetch_users/?org_do_id=s1&org_po_id=c1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var options []userOption
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &options))
	assert.Equal(t, []userOption{{ID: "u1", Text: "alice"}, {ID: "u2", Text: "bob"}}, options)

	for _, query := range []string{"", "?org_do_id=s1", "?org_po_id=c1", "?org_do_id=&org_po_id=c1"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fetch_users/"+query, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
	svc.AssertNumberOfCalls(t, "ListOrganizationUsers", 1)
}
