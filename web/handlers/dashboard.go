package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"visitrack.net/visitrack/core"
	"visitrack.net/visitrack/model"
	"visitrack.net/visitrack/web/common"
	"visitrack.net/visitrack/web/middlewares"
)

type DashboardEndpoint struct {
	attendance *core.AttendanceService
}

func RegisterDashboardRoutes(r *gin.RouterGroup, attendance *core.AttendanceService) {
	endpoint := &DashboardEndpoint{attendance: attendance}
	r.GET("/dashboard/stats", endpoint.Stats)
	r.GET("/attendance/present", endpoint.Present)
	r.GET("/attendance/history", endpoint.History)
}

func (ep *DashboardEndpoint) Stats(c *gin.Context) {
	claims := middlewares.UserClaims(c)

	stats, err := ep.attendance.Stats(c.Request.Context(), claims.CompanyID)
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(stats))
}

// Present lists the open attendance records: company-wide by default, or
// narrowed to one building or one station's building.
func (ep *DashboardEndpoint) Present(c *gin.Context) {
	claims := middlewares.UserClaims(c)

	var records []model.AttendanceRecord
	var err error
	switch {
	case c.Query("buildingId") != "":
		var buildingID int
		buildingID, err = strconv.Atoi(c.Query("buildingId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid buildingId"))
			return
		}
		records, err = ep.attendance.CurrentlyPresentByBuilding(c.Request.Context(), int32(buildingID))
	case c.Query("stationId") != "":
		var stationID int
		stationID, err = strconv.Atoi(c.Query("stationId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid stationId"))
			return
		}
		records, err = ep.attendance.CurrentlyPresentByStation(c.Request.Context(), int32(stationID))
	default:
		records, err = ep.attendance.CurrentlyPresentByCompany(c.Request.Context(), claims.CompanyID)
	}
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(records))
}

func (ep *DashboardEndpoint) History(c *gin.Context) {
	claims := middlewares.UserClaims(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}

	var buildingID *int32
	if buildingParam := c.Query("buildingId"); buildingParam != "" {
		id, err := strconv.Atoi(buildingParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid buildingId"))
			return
		}
		v := int32(id)
		buildingID = &v
	}

	records, total, err := ep.attendance.History(c.Request.Context(), claims.CompanyID, buildingID, page*pageSize, pageSize)
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSearchResponse(records, total))
}
