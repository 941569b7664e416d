package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phonginreallife/contracthub/services"
)

// MockAuthenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, req services.LoginRequest) (*services.TokenPair, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenPair), args.Error(1)
}

func (m *MockAuthenticator) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) Authenticate(accessToken string) (*services.TokenClaims, error) {
	args := m.Called(accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenClaims), args.Error(1)
}

func newAuthRouter(svc Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(svc)

	r := gin.New()
	r.POST("/api/token/", h.ObtainToken)
	r.POST("/api/token/refresh/", h.RefreshToken)
	r.GET("/api/me", h.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id")+"/"+c.GetString("username"))
	})
	return r
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_ObtainToken(t *testing.T) {
	svc := new(MockAuthenticator)
	good := services.LoginRequest{Username: "alice", Password: "correct horse"}
	bad := services.LoginRequest{Username: "alice", Password: "wrong"}
	svc.On("Login", mock.Anything, good).Return(&services.TokenPair{Access: "a.b.c", Refresh: "d.e.f"}, nil)
	svc.On("Login", mock.Anything, bad).Return(nil, services.ErrInvalidCredentials)
	r := newAuthRouter(svc)

	w := postJSON(r, "/api/token/", `{"username":"alice","password":"correct horse"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	var pair services.TokenPair
	decodeEnvelope(t, w, &pair)
	assert.Equal(t, "a.b.c", pair.Access)
	assert.Equal(t, "d.e.f", pair.Refresh)

	w = postJSON(r, "/api/token/", `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(r, "/api/token/", `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	svc := new(MockAuthenticator)
	svc.On("Refresh", mock.Anything, "good").Return("new-access", nil)
	svc.On("Refresh", mock.Anything, "stale").Return("", services.ErrInvalidToken)
	r := newAuthRouter(svc)

	w := postJSON(r, "/api/token/refresh/", `{"refresh":"good"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	decodeEnvelope(t, w, &body)
	assert.Equal(t, "new-access", body["access"])

	w = postJSON(r, "/api/token/refresh/", `{"refresh":"stale"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_RequireAuth(t *testing.T) {
	svc := new(MockAuthenticator)
	svc.On("Authenticate", "valid").Return(&services.TokenClaims{
		Username:         "alice",
		TokenType:        services.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}, nil)
	svc.On("Authenticate", "expired").Return(nil, services.ErrInvalidToken)
	r := newAuthRouter(svc)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer valid", http.StatusOK},
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"rejected token", "Bearer expired", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "u1/alice", w.Body.String())
			}
		})
	}
}
