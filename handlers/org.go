package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phonginreallife/contracthub/db"
)

// OrganizationUsers lists the members of a subsidiary/contractor pair
type OrganizationUsers interface {
	ListOrganizationUsers(ctx context.Context, subsidiaryID, contractorID string) ([]db.User, error)
}

// OrgHandler handles organization-related HTTP requests
type OrgHandler struct {
	orgService OrganizationUsers
}

// NewOrgHandler creates a new OrgHandler
func NewOrgHandler(orgService OrganizationUsers) *OrgHandler {
	return &OrgHandler{orgService: orgService}
}

// userOption is the shape consumed by the contract form's user picker
type userOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// FetchUsers handles GET /fetch_users/?org_do_id=&org_po_id=
func (h *OrgHandler) FetchUsers(c *gin.Context) {
	doID := c.Query("org_do_id")
	poID := c.Query("org_po_id")
	if doID == "" || poID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Both org_do_id and org_po_id must be provided and not empty."})
		return
	}

	users, err := h.orgService.ListOrganizationUsers(c.Request.Context(), doID, poID)
	if err != nil {
		respondError(c, err, "")
		return
	}

	options := make([]userOption, len(users))
	for i, u := range users {
		options[i] = userOption{ID: u.ID, Text: u.Username}
	}
	c.JSON(http.StatusOK, options)
}
