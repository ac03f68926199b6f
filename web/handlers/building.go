package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visitrack.net/visitrack/core"
	"visitrack.net/visitrack/web/common"
	"visitrack.net/visitrack/web/middlewares"
)

type BuildingEndpoint struct {
	buildings *core.BuildingService
}

func RegisterBuildingRoutes(r *gin.RouterGroup, buildings *core.BuildingService) {
	endpoint := &BuildingEndpoint{buildings: buildings}

	r.GET("/buildings", endpoint.List)

	admin := r.Group("")
	admin.Use(middlewares.RequireAdmin())
	{
		admin.POST("/buildings", endpoint.Create)
		admin.DELETE("/buildings/:id", endpoint.Delete)
	}
}

func (ep *BuildingEndpoint) List(c *gin.Context) {
	claims := middlewares.UserClaims(c)

	buildings, err := ep.buildings.List(c.Request.Context(), claims.CompanyID)
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(buildings))
}

type BuildingCreateDTO struct {
	Name    string `json:"name" binding:"required,max=100"`
	Address string `json:"address" binding:"max=200"`
}

func (ep *BuildingEndpoint) Create(c *gin.Context) {
	claims := middlewares.UserClaims(c)

	var dto BuildingCreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	building, err := ep.buildings.Create(c.Request.Context(), claims.CompanyID, dto.Name, dto.Address)
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(building))
}

func (ep *BuildingEndpoint) Delete(c *gin.Context) {
	claims := middlewares.UserClaims(c)
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := ep.buildings.Delete(c.Request.Context(), claims.CompanyID, id); err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}
