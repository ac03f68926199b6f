package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visitrack.net/visitrack/core"
	"visitrack.net/visitrack/web/common"
	"visitrack.net/visitrack/web/middlewares"
)

type AlarmEndpoint struct {
	alarms *core.AlarmService
}

func RegisterAlarmRoutes(r *gin.RouterGroup, alarms *core.AlarmService) {
	endpoint := &AlarmEndpoint{alarms: alarms}

	r.GET("/alarms/:id", endpoint.Get)
	r.POST("/alarms/search", endpoint.Search)

	admin := r.Group("")
	admin.Use(middlewares.RequireAdmin())
	{
		admin.POST("/alarms", endpoint.Trigger)
		admin.PUT("/alarms/:id/acknowledge", endpoint.Acknowledge)
	}
}

type AlarmTriggerDTO struct {
	BuildingID int32 `json:"buildingId" binding:"required"`
	Code       int   `json:"code"`
}

func (ep *AlarmEndpoint) Trigger(c *gin.Context) {
	claims := middlewares.UserClaims(c)

	var dto AlarmTriggerDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	alarm, err := ep.alarms.Trigger(c.Request.Context(), claims.CompanyID, dto.BuildingID, dto.Code)
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(alarm))
}

func (ep *AlarmEndpoint) Acknowledge(c *gin.Context) {
	claims := middlewares.UserClaims(c)
	id, ok := idParam(c)
	if !ok {
		return
	}

	alarm, err := ep.alarms.Acknowledge(c.Request.Context(), claims.CompanyID, id, claims.UserID)
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(alarm))
}

func (ep *AlarmEndpoint) Get(c *gin.Context) {
	claims := middlewares.UserClaims(c)
	id, ok := idParam(c)
	if !ok {
		return
	}

	alarm, err := ep.alarms.Get(c.Request.Context(), claims.CompanyID, id)
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(alarm))
}

type AlarmSearchDTO struct {
	Page     int `json:"page" binding:"min=0"`
	PageSize int `json:"pageSize" binding:"min=0,max=200"`
}

func (ep *AlarmEndpoint) Search(c *gin.Context) {
	claims := middlewares.UserClaims(c)

	var dto AlarmSearchDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}
	if dto.PageSize == 0 {
		dto.PageSize = 20
	}

	alarms, total, err := ep.alarms.List(c.Request.Context(), claims.CompanyID, dto.Page*dto.PageSize, dto.PageSize)
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSearchResponse(alarms, total))
}
