package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/topfive-api/internal/dto"
	"github.com/noah-isme/topfive-api/internal/models"
	appErrors "github.com/noah-isme/topfive-api/pkg/errors"
	"github.com/noah-isme/topfive-api/pkg/response"
)

type suggestionService interface {
	Submit(ctx context.Context, actor models.Actor, req dto.CreateSuggestionRequest) (*models.Suggestion, error)
	Contribute(ctx context.Context, actor models.Actor, id string) (*dto.ContributionResult, error)
	Review(ctx context.Context, actor models.Actor, id string, req dto.ReviewSuggestionRequest) (*dto.ReviewResult, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateSuggestionRequest) (*models.Suggestion, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Get(ctx context.Context, actor models.Actor, id string) (*models.Suggestion, error)
	TopFive(ctx context.Context) ([]models.Suggestion, error)
	Others(ctx context.Context, page, pageSize int) ([]models.Suggestion, *models.Pagination, error)
	Ranking(ctx context.Context, page, pageSize int) (*dto.RankingResponse, *models.Pagination, error)
	Pending(ctx context.Context, actor models.Actor, page, pageSize int) ([]models.Suggestion, *models.Pagination, error)
}

// CatalogSyncer pulls the external catalog into the approved list.
type CatalogSyncer interface {
	Sync(ctx context.Context, actor models.Actor) (*dto.ImportResult, error)
}

// SuggestionHandler exposes the ranking and the approval workflow.
type SuggestionHandler struct {
	service suggestionService
	sync    CatalogSyncer
}

// NewSuggestionHandler constructs the handler. syncer may be nil when the
// catalog is not configured.
func NewSuggestionHandler(svc suggestionService, syncer CatalogSyncer) *SuggestionHandler {
	return &SuggestionHandler{service: svc, sync: syncer}
}

// Ranking godoc
// @Summary Public ranking
// @Description Top five approved suggestions plus one page of the remaining approved ones
// @Tags Suggestions
// @Produce json
// @Param page query int false "Page of the remaining suggestions"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /suggestions [get]
func (h *SuggestionHandler) Ranking(c *gin.Context) {
	ranking, pagination, err := h.service.Ranking(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "page_size", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranking, pagination)
}

// TopFive godoc
// @Summary Top five
// @Tags Suggestions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /suggestions/top-five [get]
func (h *SuggestionHandler) TopFive(c *gin.Context) {
	items, err := h.service.TopFive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Others godoc
// @Summary Approved suggestions outside the top five
// @Tags Suggestions
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /suggestions/others [get]
func (h *SuggestionHandler) Others(c *gin.Context) {
	items, pagination, err := h.service.Others(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "page_size", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get suggestion
// @Tags Suggestions
// @Produce json
// @Param id path string true "Suggestion ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /suggestions/{id} [get]
func (h *SuggestionHandler) Get(c *gin.Context) {
	suggestion, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, suggestion, nil)
}

// Pending godoc
// @Summary Moderation queue
// @Tags Suggestions
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /suggestions/pending [get]
func (h *SuggestionHandler) Pending(c *gin.Context) {
	items, pagination, err := h.service.Pending(c.Request.Context(), actorFromContext(c), queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Create godoc
// @Summary Suggest a video
// @Description Resolve a YouTube URL and store it as a pending suggestion
// @Tags Suggestions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSuggestionRequest true "Suggestion"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /suggestions [post]
func (h *SuggestionHandler) Create(c *gin.Context) {
	var req dto.CreateSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid suggestion payload"))
		return
	}

	suggestion, err := h.service.Submit(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, suggestion)
}

// Contribute godoc
// @Summary Vote for a pending suggestion
// @Description The fifth distinct vote approves the suggestion
// @Tags Suggestions
// @Produce json
// @Param id path string true "Suggestion ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /suggestions/{id}/contribute [post]
func (h *SuggestionHandler) Contribute(c *gin.Context) {
	result, err := h.service.Contribute(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Review godoc
// @Summary Approve or reject a suggestion
// @Tags Suggestions
// @Accept json
// @Produce json
// @Param id path string true "Suggestion ID"
// @Param payload body dto.ReviewSuggestionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /suggestions/{id}/review [post]
func (h *SuggestionHandler) Review(c *gin.Context) {
	var req dto.ReviewSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	result, err := h.service.Review(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Update godoc
// @Summary Edit suggestion metadata
// @Tags Suggestions
// @Accept json
// @Produce json
// @Param id path string true "Suggestion ID"
// @Param payload body dto.UpdateSuggestionRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /suggestions/{id} [put]
func (h *SuggestionHandler) Update(c *gin.Context) {
	var req dto.UpdateSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid suggestion update"))
		return
	}

	suggestion, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, suggestion, nil)
}

// Delete godoc
// @Summary Delete suggestion
// @Tags Suggestions
// @Param id path string true "Suggestion ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /suggestions/{id} [delete]
func (h *SuggestionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Sync godoc
// @Summary Import the catalog search as approved suggestions
// @Tags Suggestions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /suggestions/sync [post]
func (h *SuggestionHandler) Sync(c *gin.Context) {
	if h.sync == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrSourceResolution, "video catalog is not configured"))
		return
	}
	result, err := h.sync.Sync(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
