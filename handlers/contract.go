package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phonginreallife/contracthub/authz"
	"github.com/phonginreallife/contracthub/db"
)

// ContractService is the part of authz.ContractService the API exposes
type ContractService interface {
	ListContracts(ctx context.Context, userID string) ([]db.ContractDetail, error)
	GetContract(ctx context.Context, userID, contractID string) (*db.ContractDetail, error)
	GetContractDetail(ctx context.Context, contractID string) (*db.ContractDetail, error)
	ListEligibleUsers(ctx context.Context, actorID, contractID string) ([]db.User, error)
	AddRole(ctx context.Context, actorID, contractID, username string, role db.Role) (*db.ContractRole, error)
	RemoveRole(ctx context.Context, actorID, contractID, username string, role db.Role) error
}

type ContractHandler struct {
	Service ContractService
}

func NewContractHandler(service ContractService) *ContractHandler {
	return &ContractHandler{Service: service}
}

// ListContracts handles GET /api/contracts/
func (h *ContractHandler) ListContracts(c *gin.Context) {
	userID := c.GetString("user_id")

	contracts, err := h.Service.ListContracts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "")
		return
	}
	respond(c, http.StatusOK, contracts)
}

// GetContract handles GET /api/contracts/:id/. The view check is skipped when
// RequireContractView already passed for this contract.
func (h *ContractHandler) GetContract(c *gin.Context) {
	userID := c.GetString("user_id")
	contractID := c.Param("id")

	var contract *db.ContractDetail
	var err error
	if checked := c.GetString(string(authz.ContextKeyContractID)); checked != "" && checked == contractID {
		contract, err = h.Service.GetContractDetail(c.Request.Context(), contractID)
	} else {
		contract, err = h.Service.GetContract(c.Request.Context(), userID, contractID)
	}
	if err != nil {
		respondError(c, err, "")
		return
	}
	respond(c, http.StatusOK, contract)
}

// ListEligibleUsers handles GET /api/contracts/:id/manage-users/
func (h *ContractHandler) ListEligibleUsers(c *gin.Context) {
	userID := c.GetString("user_id")

	users, err := h.Service.ListEligibleUsers(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, detailManageForbidden)
		return
	}

	summaries := make([]db.UserSummary, len(users))
	for i, u := range users {
		summaries[i] = u.Summary()
	}
	respond(c, http.StatusOK, summaries)
}

// AddRole handles POST /api/contracts/:id/manage-users/
func (h *ContractHandler) AddRole(c *gin.Context) {
	userID := c.GetString("user_id")

	var req db.ManageRoleRequest
	if err := c.ShouldBind(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, detailInvalidData, nil)
		return
	}

	if _, err := h.Service.AddRole(c.Request.Context(), userID, c.Param("id"), req.Username, req.Role); err != nil {
		respondError(c, err, detailManageForbidden)
		return
	}
	respondDetail(c, http.StatusCreated, "User added successfully.")
}

// RemoveRole handles DELETE /api/contracts/:id/manage-users/
func (h *ContractHandler) RemoveRole(c *gin.Context) {
	userID := c.GetString("user_id")

	var req db.ManageRoleRequest
	if err := c.ShouldBind(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, detailInvalidData, nil)
		return
	}

	if err := h.Service.RemoveRole(c.Request.Context(), userID, c.Param("id"), req.Username, req.Role); err != nil {
		respondError(c, err, detailManageForbidden)
		return
	}
	// no body is written for 204
	respondDetail(c, http.StatusNoContent, "User removed successfully.")
}
