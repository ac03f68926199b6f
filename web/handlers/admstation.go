package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"visitrack.net/visitrack/core"
	"visitrack.net/visitrack/web/common"
	"visitrack.net/visitrack/web/middlewares"
)

// AdminStationEndpoint manages station identities: creation, approval,
// building assignment, forced logout and deletion.
type AdminStationEndpoint struct {
	stations *core.StationService
	sessions *core.SessionService
}

func RegisterAdminStationRoutes(r *gin.RouterGroup, stations *core.StationService, sessions *core.SessionService) {
	endpoint := &AdminStationEndpoint{stations: stations, sessions: sessions}

	r.GET("/stations", endpoint.List)

	admin := r.Group("")
	admin.Use(middlewares.RequireAdmin())
	{
		admin.POST("/stations", endpoint.Create)
		admin.DELETE("/stations/:id", endpoint.Delete)
		admin.PUT("/stations/:id/approval", endpoint.SetApproval)
		admin.PUT("/stations/:id/building", endpoint.AssignBuilding)
		admin.POST("/stations/:id/force-logout", endpoint.ForceLogout)
	}
}

func idParam(c *gin.Context) (int32, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid id"))
		return 0, false
	}
	return int32(id), true
}

func (ep *AdminStationEndpoint) List(c *gin.Context) {
	claims := middlewares.UserClaims(c)

	stations, err := ep.stations.List(c.Request.Context(), claims.CompanyID)
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(stations))
}

type StationCreateDTO struct {
	Name string `json:"name" binding:"required,max=100"`
}

func (ep *AdminStationEndpoint) Create(c *gin.Context) {
	claims := middlewares.UserClaims(c)

	var dto StationCreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	station, err := ep.stations.Create(c.Request.Context(), claims.CompanyID, dto.Name)
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(station))
}

func (ep *AdminStationEndpoint) Delete(c *gin.Context) {
	claims := middlewares.UserClaims(c)
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := ep.stations.Delete(c.Request.Context(), claims.CompanyID, id); err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}

type ApprovalDTO struct {
	Approved *bool `json:"approved" binding:"required"`
}

func (ep *AdminStationEndpoint) SetApproval(c *gin.Context) {
	claims := middlewares.UserClaims(c)
	id, ok := idParam(c)
	if !ok {
		return
	}

	var dto ApprovalDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	if err := ep.stations.SetApproval(c.Request.Context(), claims.CompanyID, id, *dto.Approved); err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}

type AssignBuildingDTO struct {
	BuildingID *int32 `json:"buildingId"`
}

func (ep *AdminStationEndpoint) AssignBuilding(c *gin.Context) {
	claims := middlewares.UserClaims(c)
	id, ok := idParam(c)
	if !ok {
		return
	}

	var dto AssignBuildingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	if err := ep.stations.AssignBuilding(c.Request.Context(), claims.CompanyID, id, dto.BuildingID); err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}

func (ep *AdminStationEndpoint) ForceLogout(c *gin.Context) {
	claims := middlewares.UserClaims(c)
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := ep.sessions.ForceLogout(c.Request.Context(), claims.CompanyID, id); err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}
