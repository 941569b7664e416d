package authz

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyContractID holds the contract id checked by the middleware
	ContextKeyContractID ContextKey = "contract_id"
)

// DeniedFunc writes the response for a failed authorization check
type DeniedFunc func(c *gin.Context, status int, err error)

// AuthzMiddleware creates Gin middleware guarding contract routes.
// The contract id is read from the :id URL param.
type AuthzMiddleware struct {
	Authorizer Authorizer
	OnDenied   DeniedFunc
}

// NewAuthzMiddleware creates a new authorization middleware
func NewAuthzMiddleware(az Authorizer) *AuthzMiddleware {
	return &AuthzMiddleware{Authorizer: az, OnDenied: abortJSON}
}

// RequireContractView ensures the user may view the contract
// Usage: contractRoutes.GET("/:id/", authzMiddleware.RequireContractView(), handler)
func (m *AuthzMiddleware) RequireContractView() gin.HandlerFunc {
	return m.require("view", m.Authorizer.CanViewContract)
}

// RequireContractManage ensures the user may manage the contract's roles
func (m *AuthzMiddleware) RequireContractManage() gin.HandlerFunc {
	return m.require("manage", m.Authorizer.CanManageContractRoles)
}

// contractCheck is the signature shared by the contract decisions of Authorizer
type contractCheck func(ctx context.Context, userID, contractID string) (bool, error)

func (m *AuthzMiddleware) require(action string, check contractCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			m.OnDenied(c, http.StatusUnauthorized, errors.New("user not authenticated"))
			return
		}

		contractID := c.Param("id")
		if contractID == "" {
			m.OnDenied(c, http.StatusBadRequest, errors.New("contract ID is required"))
			return
		}

		ctx := c.Request.Context()
		allowed, err := check(ctx, userID, contractID)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				m.OnDenied(c, http.StatusNotFound, err)
			case errors.Is(err, ErrForbidden):
				m.OnDenied(c, http.StatusForbidden, err)
			default:
				zerolog.Ctx(ctx).Error().Err(err).Str("contract_id", contractID).Msg("authorization check failed")
				m.OnDenied(c, http.StatusInternalServerError, err)
			}
			return
		}

		if !allowed {
			zerolog.Ctx(ctx).Info().
				Str("user_id", userID).
				Str("contract_id", contractID).
				Str("action", action).
				Msg("AUTHZ DENIED")
			m.OnDenied(c, http.StatusForbidden, ErrForbidden)
			return
		}

		c.Set(string(ContextKeyContractID), contractID)
		c.Next()
	}
}

func abortJSON(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   http.StatusText(status),
		"message": err.Error(),
	})
}
