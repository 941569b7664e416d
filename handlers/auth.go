package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/phonginreallife/contracthub/services"
)

const detailInvalidToken = "Given token not valid for any token type"

// Authenticator issues and checks bearer tokens
type Authenticator interface {
	Login(ctx context.Context, req services.LoginRequest) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Authenticate(accessToken string) (*services.TokenClaims, error)
}

type AuthHandler struct {
	Service Authenticator
}

func NewAuthHandler(service Authenticator) *AuthHandler {
	return &AuthHandler{Service: service}
}

// ObtainToken handles POST /api/token/
func (h *AuthHandler) ObtainToken(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, detailInvalidData, nil)
		return
	}

	pair, err := h.Service.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			abortWithError(c, http.StatusUnauthorized, "No active account found with the given credentials", nil)
			return
		}
		respondError(c, err, "")
		return
	}
	respond(c, http.StatusOK, pair)
}

// RefreshToken handles POST /api/token/refresh/
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req services.RefreshRequest
	if err := c.ShouldBind(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, detailInvalidData, nil)
		return
	}

	access, err := h.Service.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			abortWithError(c, http.StatusUnauthorized, "Token is invalid or expired", nil)
			return
		}
		respondError(c, err, "")
		return
	}
	respond(c, http.StatusOK, gin.H{"access": access})
}

// RequireAuth validates the bearer access token and stores the user in the context
func (h *AuthHandler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, detailNotAuthenticated, nil)
			return
		}

		token, err := services.ExtractTokenFromHeader(authHeader)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, detailInvalidToken, nil)
			return
		}

		claims, err := h.Service.Authenticate(token)
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Debug().Err(err).Msg("rejected access token")
			abortWithError(c, http.StatusUnauthorized, detailInvalidToken, nil)
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set("username", claims.Username)
		c.Next()
	}
}
