package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phonginreallife/contracthub/db"
	"github.com/phonginreallife/contracthub/services"
)

// Exporter queues CSV exports and serves their results
type Exporter interface {
	Enqueue(ctx context.Context, actorID string, contractIDs []string) (*services.ExportJob, error)
	Status(ctx context.Context, actorID, jobID string) (*services.ExportJob, error)
	Download(ctx context.Context, actorID, jobID string) (*services.ExportJob, []byte, error)
}

type ExportHandler struct {
	Service Exporter
}

func NewExportHandler(service Exporter) *ExportHandler {
	return &ExportHandler{Service: service}
}

// CreateExport handles POST /api/contracts/export/
func (h *ExportHandler) CreateExport(c *gin.Context) {
	var req db.ExportRequest
	// an empty body exports everything listable
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, detailInvalidData, nil)
			return
		}
	}

	job, err := h.Service.Enqueue(c.Request.Context(), c.GetString("user_id"), req.ContractIDs)
	if err != nil {
		respondError(c, err, "")
		return
	}
	respond(c, http.StatusAccepted, job)
}

// GetExport handles GET /api/exports/:id/
func (h *ExportHandler) GetExport(c *gin.Context) {
	job, err := h.Service.Status(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, err, "")
		return
	}
	respond(c, http.StatusOK, job)
}

// DownloadExport handles GET /api/exports/:id/download/
func (h *ExportHandler) DownloadExport(c *gin.Context) {
	job, data, err := h.Service.Download(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+job.FileName()+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}
