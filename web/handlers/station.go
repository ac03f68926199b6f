package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visitrack.net/visitrack/core"
	"visitrack.net/visitrack/web/common"
	"visitrack.net/visitrack/web/middlewares"
)

// StationEndpoint is the surface a physical station talks to: first-time
// registration, heartbeats, scans and logout.
type StationEndpoint struct {
	sessions   *core.SessionService
	liveness   *core.LivenessService
	attendance *core.AttendanceService
}

func RegisterStationRoutes(r *gin.RouterGroup, sessions *core.SessionService, liveness *core.LivenessService, attendance *core.AttendanceService) {
	endpoint := &StationEndpoint{sessions: sessions, liveness: liveness, attendance: attendance}

	r.POST("/register", endpoint.Register)

	authed := r.Group("")
	authed.Use(middlewares.StationAuthentication(sessions))
	{
		authed.POST("/heartbeat", endpoint.Heartbeat)
		authed.POST("/scan", endpoint.Scan)
		authed.POST("/logout", endpoint.Logout)
	}
}

type RegisterDTO struct {
	StationID int32  `json:"stationId" binding:"required"`
	Secret    string `json:"secret" binding:"required"`
}

func (ep *StationEndpoint) Register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	token, station, err := ep.sessions.RegisterFirstTime(c.Request.Context(), dto.StationID, dto.Secret)
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"token":      token,
		"stationId":  station.ID,
		"name":       station.Name,
		"buildingId": station.BuildingID,
	}))
}

func (ep *StationEndpoint) Heartbeat(c *gin.Context) {
	station := middlewares.Station(c)

	if err := ep.liveness.RecordHeartbeat(c.Request.Context(), station.ID, station.CompanyID); err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}

type ScanDTO struct {
	UID string `json:"uid" binding:"required"`
	// Enrollment data, sent on retry after an unknown-visitor response.
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (ep *StationEndpoint) Scan(c *gin.Context) {
	station := middlewares.Station(c)

	var dto ScanDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	var enrich *core.Enrichment
	if dto.Name != "" {
		enrich = &core.Enrichment{Name: dto.Name, Phone: dto.Phone}
	}

	result, err := ep.attendance.RecordScan(c.Request.Context(), station, dto.UID, enrich)
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"direction":   result.Direction,
		"visitorName": result.Record.VisitorName,
		"recordId":    result.Record.ID,
	}))
}

func (ep *StationEndpoint) Logout(c *gin.Context) {
	token := c.GetString("stationToken")

	if err := ep.sessions.Logout(c.Request.Context(), token); err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}
