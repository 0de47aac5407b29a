package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/topfive-api/internal/dto"
	"github.com/noah-isme/topfive-api/internal/models"
	appErrors "github.com/noah-isme/topfive-api/pkg/errors"
	"github.com/noah-isme/topfive-api/pkg/export"
	"github.com/noah-isme/topfive-api/pkg/response"
)

type activityService interface {
	List(ctx context.Context, actor models.Actor, query dto.ActivityQuery) ([]models.AuditLog, *models.Pagination, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.AuditLog, error)
	ByTarget(ctx context.Context, actor models.Actor, targetType, targetID string, page, pageSize int) ([]models.AuditLog, *models.Pagination, error)
	ByActor(ctx context.Context, actor models.Actor, actorID string, page, pageSize int) ([]models.AuditLog, *models.Pagination, error)
	Export(ctx context.Context, actor models.Actor, query dto.ActivityQuery, format export.Format) ([]byte, string, error)
}

// ActivityHandler exposes the audit trail to admins.
type ActivityHandler struct {
	service activityService
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(svc activityService) *ActivityHandler {
	return &ActivityHandler{service: svc}
}

// List godoc
// @Summary List activity log entries
// @Tags Activity
// @Produce json
// @Param actor_id query string false "Actor"
// @Param action query string false "Action"
// @Param target_type query string false "Target type"
// @Param target_id query string false "Target ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /activity-logs [get]
func (h *ActivityHandler) List(c *gin.Context) {
	var query dto.ActivityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity filters"))
		return
	}
	entries, pagination, err := h.service.List(c.Request.Context(), actorFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get an activity log entry
// @Tags Activity
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activity-logs/{id} [get]
func (h *ActivityHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// ByTarget godoc
// @Summary History of one entity
// @Tags Activity
// @Produce json
// @Param type path string true "Target type"
// @Param id path string true "Target ID"
// @Success 200 {object} response.Envelope
// @Router /activity-logs/target/{type}/{id} [get]
func (h *ActivityHandler) ByTarget(c *gin.Context) {
	entries, pagination, err := h.service.ByTarget(c.Request.Context(), actorFromContext(c), c.Param("type"), c.Param("id"),
		queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// ByActor godoc
// @Summary Everything one user did
// @Tags Activity
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /activity-logs/actor/{id} [get]
func (h *ActivityHandler) ByActor(c *gin.Context) {
	entries, pagination, err := h.service.ByActor(c.Request.Context(), actorFromContext(c), c.Param("id"),
		queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Export godoc
// @Summary Export the activity log
// @Tags Activity
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /activity-logs/export [get]
func (h *ActivityHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf"))
		return
	}
	var query dto.ActivityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity filters"))
		return
	}

	body, filename, err := h.service.Export(c.Request.Context(), actorFromContext(c), query, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, format.ContentType(), body)
}
