package certification

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/caregiver-api/internal/handler"
	"github.com/jwalitptl/caregiver-api/internal/model"
	"github.com/jwalitptl/caregiver-api/internal/service/certification"
)

type Handler struct {
	service *certification.Service
}

func NewHandler(service *certification.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/certifications/types", h.ListTypes)
	r.POST("/certifications", h.Create)
	r.GET("/certifications", h.List)
	r.GET("/certifications/:id", h.Get)
	r.PUT("/certifications/:id", h.Update)
	r.DELETE("/certifications/:id", h.Delete)
}

func (h *Handler) ListTypes(c *gin.Context) {
	types, err := h.service.ListTypes(c.Request.Context())
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"types": types}))
}

func (h *Handler) Create(c *gin.Context) {
	providerID, ok := providerIDFrom(c)
	if !ok {
		return
	}

	var req model.CreateCertificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	cert, err := h.service.Create(c.Request.Context(), providerID, &req)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{"certification": cert}))
}

func (h *Handler) List(c *gin.Context) {
	providerID, ok := providerIDFrom(c)
	if !ok {
		return
	}

	var status *model.CertificationStatus
	if s := c.Query("status"); s != "" {
		cs := model.CertificationStatus(s)
		status = &cs
	}

	certs, summary, err := h.service.List(c.Request.Context(), providerID, status)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"certifications": certs,
		"summary":        summary,
	}))
}

func (h *Handler) Get(c *gin.Context) {
	providerID, ok := providerIDFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid certification ID"))
		return
	}

	cert, events, err := h.service.GetWithEvents(c.Request.Context(), providerID, id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"certification":   cert,
		"reminder_events": events,
	}))
}

func (h *Handler) Update(c *gin.Context) {
	providerID, ok := providerIDFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid certification ID"))
		return
	}

	var req model.UpdateCertificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	cert, err := h.service.Update(c.Request.Context(), providerID, id, &req)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"certification": cert}))
}

func (h *Handler) Delete(c *gin.Context) {
	providerID, ok := providerIDFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid certification ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), providerID, id); err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": true}))
}

func providerIDFrom(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString("providerID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid provider ID"))
		return uuid.Nil, false
	}
	return id, true
}
