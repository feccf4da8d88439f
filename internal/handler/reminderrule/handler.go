package reminderrule

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/caregiver-api/internal/handler"
	"github.com/jwalitptl/caregiver-api/internal/model"
	"github.com/jwalitptl/caregiver-api/internal/service/reminder"
)

type Handler struct {
	service *reminder.RuleService
}

func NewHandler(service *reminder.RuleService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/reminders/rules", h.List)
	r.POST("/reminders/rules", h.Create)
	r.PUT("/reminders/rules/:id", h.Update)
	r.DELETE("/reminders/rules/:id", h.Delete)
}

func (h *Handler) List(c *gin.Context) {
	providerID, ok := providerIDFrom(c)
	if !ok {
		return
	}

	rules, err := h.service.ListRules(c.Request.Context(), providerID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"rules": rules}))
}

func (h *Handler) Create(c *gin.Context) {
	providerID, ok := providerIDFrom(c)
	if !ok {
		return
	}

	var req model.CreateReminderRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	rule, err := h.service.CreateRule(c.Request.Context(), providerID, &req)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{"rule": rule}))
}

func (h *Handler) Update(c *gin.Context) {
	providerID, ok := providerIDFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid rule ID"))
		return
	}

	var req model.UpdateReminderRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	rule, err := h.service.UpdateRule(c.Request.Context(), providerID, id, &req)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"rule": rule}))
}

func (h *Handler) Delete(c *gin.Context) {
	providerID, ok := providerIDFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid rule ID"))
		return
	}

	if err := h.service.DeleteRule(c.Request.Context(), providerID, id); err != nil {
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
