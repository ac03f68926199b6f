package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visitrack.net/visitrack/core"
	"visitrack.net/visitrack/model"
	"visitrack.net/visitrack/web/common"
)

const ContextStation = "station"

// StationAuthentication validates the device credential against the
// station's current session slot. A superseded or revoked credential gets
// a 401 so the station falls back to re-registration.
func StationAuthentication(sessions *core.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		station, err := sessions.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(common.StatusFor(err), common.NewErrorResponse(common.MessageFor(err)))
			return
		}

		c.Set(ContextStation, station)
		c.Set("stationToken", tokenStr)
		c.Next()
	}
}

func Station(c *gin.Context) *model.Station {
	value, ok := c.Get(ContextStation)
	if !ok {
		return nil
	}
	station, _ := value.(*model.Station)
	return station
}
