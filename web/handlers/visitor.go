package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visitrack.net/visitrack/core"
	"visitrack.net/visitrack/web/common"
	"visitrack.net/visitrack/web/middlewares"
)

type VisitorEndpoint struct {
	visitors *core.VisitorService
}

func RegisterVisitorRoutes(r *gin.RouterGroup, visitors *core.VisitorService) {
	endpoint := &VisitorEndpoint{visitors: visitors}

	r.GET("/visitors", endpoint.List)

	admin := r.Group("")
	admin.Use(middlewares.RequireAdmin())
	{
		admin.POST("/visitors", endpoint.Create)
	}
}

func (ep *VisitorEndpoint) List(c *gin.Context) {
	claims := middlewares.UserClaims(c)

	visitors, err := ep.visitors.List(c.Request.Context(), claims.CompanyID)
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(visitors))
}

type VisitorCreateDTO struct {
	UID   string `json:"uid" binding:"required,max=64"`
	Name  string `json:"name" binding:"required,max=100"`
	Phone string `json:"phone" binding:"max=30"`
}

func (ep *VisitorEndpoint) Create(c *gin.Context) {
	claims := middlewares.UserClaims(c)

	var dto VisitorCreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	visitor, err := ep.visitors.Create(c.Request.Context(), claims.CompanyID, dto.UID, dto.Name, dto.Phone)
	if err != nil {
		c.JSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(visitor))
}
