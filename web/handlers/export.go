package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"visitrack.net/visitrack/core"
	"visitrack.net/visitrack/infrastructure/filesystem"
	"visitrack.net/visitrack/utils"
	"visitrack.net/visitrack/web/common"
	"visitrack.net/visitrack/web/middlewares"
)

const exportPageSize = 10000

// ExportEndpoint renders the attendance ledger as an xlsx download and,
// when a report bucket is configured, archives a copy to S3.
type ExportEndpoint struct {
	attendance   *core.AttendanceService
	reportBucket string
}

func RegisterExportRoutes(r *gin.RouterGroup, attendance *core.AttendanceService, reportBucket string) {
	endpoint := &ExportEndpoint{attendance: attendance, reportBucket: reportBucket}
	r.GET("/attendance/export", endpoint.Export)
}

func (ep *ExportEndpoint) Export(c *gin.Context) {
	claims := middlewares.UserClaims(c)

	records, _, err := ep.attendance.History(c.Request.Context(), claims.CompanyID, nil, 0, exportPageSize)
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	file := excelize.NewFile()
	sheet := file.GetSheetName(0)

	headers := []string{"Record", "Visitor", "Building", "Station", "Check In", "Check Out", "Present"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = file.SetCellValue(sheet, cell, header)
	}

	for i, record := range records {
		row := i + 2
		values := []interface{}{
			record.ID,
			record.VisitorName,
			record.BuildingID,
			record.StationID,
			record.CheckIn.Format(time.RFC3339),
			utils.FormatTime(record.CheckOut, time.RFC3339),
			utils.FormatBoolean(record.CheckOut == nil, "yes", "no"),
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			_ = file.SetCellValue(sheet, cell, value)
		}
	}

	buffer, err := file.WriteToBuffer()
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse("failed to render report"))
		return
	}

	if ep.reportBucket != "" {
		key := fmt.Sprintf("attendance/%d/%s.xlsx", claims.CompanyID, time.Now().UTC().Format("20060102-150405"))
		// Archiving is best-effort; the download proceeds either way.
		_ = filesystem.SaveReport(c.Request.Context(), ep.reportBucket, key, buffer.Bytes())
	}

	c.Header("Content-Disposition", `attachment; filename="attendance.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buffer.Bytes())
}
