package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/phonginreallife/contracthub/authz"
	"github.com/phonginreallife/contracthub/db"
)

const AppVersion = "1.0.0"

// Detail messages shared with API clients
const (
	detailNotFound         = "Not found."
	detailForbidden        = "You do not have permission to perform this action."
	detailManageForbidden  = "You do not have permission to manage this contract."
	detailIneligibleUser   = "User must be a member of an organization part of this contract."
	detailInvalidData      = "Invalid data passed."
	detailNotAuthenticated = "Authentication credentials were not provided."
	detailServerError      = "A server error occurred."
)

// envelope wraps every response body
type envelope struct {
	Data       interface{} `json:"data"`
	AppVersion string      `json:"app_version"`
	StatusCode int         `json:"status_code,omitempty"`
}

type errorBody struct {
	Detail string       `json:"detail"`
	Errors []fieldError `json:"errors,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type detailBody struct {
	Detail string `json:"detail"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Data: data, AppVersion: AppVersion})
}

func respondDetail(c *gin.Context, status int, detail string) {
	respond(c, status, detailBody{Detail: detail})
}

func abortWithError(c *gin.Context, status int, detail string, fields []fieldError) {
	c.AbortWithStatusJSON(status, envelope{
		Data:       errorBody{Detail: detail, Errors: fields},
		AppVersion: AppVersion,
		StatusCode: status,
	})
}

// statusFor maps the error taxonomy to an HTTP status
func statusFor(err error) int {
	var verr *db.ValidationError
	switch {
	case errors.Is(err, authz.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, authz.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, authz.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &verr), errors.Is(err, authz.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err using the envelope. forbidden replaces the generic
// permission message for handlers that have a more specific one.
func respondError(c *gin.Context, err error, forbidden string) {
	status := statusFor(err)
	detail := err.Error()
	var fields []fieldError

	switch status {
	case http.StatusNotFound:
		detail = detailNotFound
	case http.StatusForbidden:
		switch {
		case errors.Is(err, authz.ErrIneligibleUser):
			detail = detailIneligibleUser
		case forbidden != "":
			detail = forbidden
		default:
			detail = detailForbidden
		}
	case http.StatusBadRequest:
		var verr *db.ValidationError
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				fields = append(fields, fieldError{Field: f.Field, Message: f.Err.Error()})
			}
		}
		detail = detailInvalidData
	case http.StatusInternalServerError:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		detail = detailServerError
	}

	abortWithError(c, status, detail, fields)
}

// DeniedEnvelope is an authz.DeniedFunc writing the response envelope
func DeniedEnvelope(c *gin.Context, status int, err error) {
	switch status {
	case http.StatusUnauthorized:
		abortWithError(c, status, detailNotAuthenticated, nil)
	case http.StatusForbidden:
		abortWithError(c, status, detailForbidden, nil)
	case http.StatusNotFound:
		abortWithError(c, status, detailNotFound, nil)
	case http.StatusInternalServerError:
		abortWithError(c, status, detailServerError, nil)
	default:
		abortWithError(c, status, err.Error(), nil)
	}
}

var _ authz.DeniedFunc = DeniedEnvelope
