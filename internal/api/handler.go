package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storefront-labs/catalog-projections/internal/catalog"
	httperr "github.com/storefront-labs/catalog-projections/internal/core/errors"
	"github.com/storefront-labs/catalog-projections/internal/notification"
	"github.com/storefront-labs/catalog-projections/internal/store"
)

// Handler exposes the projection store over HTTP.
type Handler struct {
	store        *store.Store
	defaultLimit int
	maxLimit     int
}

// NewHandler creates an API handler. defaultLimit is used when a read request
// carries no limit; maxLimit rejects oversized pages.
func NewHandler(projectionStore *store.Store, defaultLimit, maxLimit int) *Handler {
	return &Handler{
		store:        projectionStore,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// RegisterRoutes registers all projection API routes on the given router.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	// Per-store catalog surface.
	r.GET("/v1/catalog/:store/:type", h.HandleReadAll)
	r.GET("/v1/catalog/:store/:type/:code", h.HandleGet)
	r.PUT("/v1/catalog/:store/:type/:code", h.HandleSaveOrUpdate)
	r.DELETE("/v1/catalog/:store/:type/:code", h.HandleDeleteInStore)

	// Cross-store ingestion and administration surface.
	r.POST("/v1/projections", h.HandleSaveOrUpdateAll)
	r.DELETE("/v1/projections/:type", h.HandleRemoveAll)
	r.DELETE("/v1/projections/:type/:code", h.HandleDelete)
}

// HandleReadAll handles GET /v1/catalog/:store/:type
// Query parameters: limit, start_after, modified_since, modified_since_offset
func (h *Handler) HandleReadAll(c *gin.Context) {
	var query readAllQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	if err := query.validate(h.maxLimit); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	limit := query.Limit
	if limit == 0 {
		limit = h.defaultLimit
	}

	page, err := h.store.ReadAll(c.Request.Context(),
		c.Param("type"), c.Param("store"),
		store.PaginationRequest{Limit: limit, StartAfter: query.StartAfter},
		store.ModifiedSince{ModifiedSince: query.ModifiedSince, OffsetMinutes: query.ModifiedSinceOffset})
	if err != nil {
		h.internalError(c, "Failed to read projections", err)
		return
	}

	c.JSON(http.StatusOK, readAllResponse{
		Results: toProjectionResponses(page.Projections),
		Pagination: paginationResponse{
			Limit:          page.Pagination.Limit,
			Next:           page.Pagination.NextCursor,
			HasMoreResults: page.Pagination.HasNext,
		},
		CurrentDateTime: page.CurrentDateTime,
	})
}

// HandleGet handles GET /v1/catalog/:store/:type/:code
func (h *Handler) HandleGet(c *gin.Context) {
	projection, err := h.store.Get(c.Request.Context(), c.Param("type"), c.Param("code"), c.Param("store"))
	if err != nil {
		h.internalError(c, "Failed to read projection", err)
		return
	}
	if projection == nil {
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "Projection not found",
		})
		return
	}

	c.JSON(http.StatusOK, toProjectionResponse(*projection))
}

// HandleSaveOrUpdate handles PUT /v1/catalog/:store/:type/:code
func (h *Handler) HandleSaveOrUpdate(c *gin.Context) {
	var body projectionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid request body",
			Details:   err.Error(),
		})
		return
	}

	// Path parameters are authoritative for the identity.
	body.Store = c.Param("store")
	body.Type = c.Param("type")
	body.Code = c.Param("code")

	if err := body.validate(); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid projection",
			Details:   err.Error(),
		})
		return
	}

	changed, err := h.store.SaveOrUpdate(c.Request.Context(), body.toProjection())
	if err != nil {
		h.writeError(c, "Failed to save projection", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

// HandleSaveOrUpdateAll handles POST /v1/projections
func (h *Handler) HandleSaveOrUpdateAll(c *gin.Context) {
	var bodies []projectionBody
	if err := c.ShouldBindJSON(&bodies); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid request body",
			Details:   err.Error(),
		})
		return
	}
	if len(bodies) == 0 {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Request body must contain at least one projection",
		})
		return
	}

	projections := make([]catalog.Projection, 0, len(bodies))
	for i, body := range bodies {
		if err := body.validate(); err != nil {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidRequestError,
				Message:   "Invalid projection in batch",
				Details:   gin.H{"index": i, "error": err.Error()},
			})
			return
		}
		projections = append(projections, body.toProjection())
	}

	_, changed, err := h.store.SaveOrUpdateAll(c.Request.Context(), projections)
	if err != nil {
		h.writeError(c, "Failed to save projections", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": len(projections), "changed": changed})
}

// HandleDeleteInStore handles DELETE /v1/catalog/:store/:type/:code
func (h *Handler) HandleDeleteInStore(c *gin.Context) {
	err := h.store.DeleteInStore(c.Request.Context(), c.Param("type"), c.Param("store"), c.Param("code"))
	if err != nil {
		h.writeError(c, "Failed to delete projection", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// HandleDelete handles DELETE /v1/projections/:type/:code and tombstones the
// projection in every store that carries it.
func (h *Handler) HandleDelete(c *gin.Context) {
	err := h.store.Delete(c.Request.Context(), c.Param("type"), c.Param("code"))
	if err != nil {
		h.writeError(c, "Failed to delete projection", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// HandleRemoveAll handles DELETE /v1/projections/:type and physically removes
// every row of the type. Unlike tombstoning this leaves no history.
func (h *Handler) HandleRemoveAll(c *gin.Context) {
	removed, err := h.store.RemoveAll(c.Request.Context(), c.Param("type"))
	if err != nil {
		h.internalError(c, "Failed to remove projections", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *Handler) writeError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, store.ErrWriteContentionExceeded):
		c.JSON(http.StatusConflict, httperr.ErrorResponse{
			ErrorType: httperr.HttpWriteContentionError,
			Message:   "Projection was modified concurrently, retry the request",
			Details:   err.Error(),
		})
	case errors.Is(err, notification.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpUnsupportedTypeError,
			Message:   "Projection type has no notification mapping",
			Details:   err.Error(),
		})
	default:
		h.internalError(c, message, err)
	}
}

func (h *Handler) internalError(c *gin.Context, message string, err error) {
	slog.Error("[API] "+message, "error", err)
	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   message,
		Details:   err.Error(),
	})
}
