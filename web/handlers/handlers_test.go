package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"visitrack.net/visitrack/core"
	"visitrack.net/visitrack/model"
	"visitrack.net/visitrack/security"
	"visitrack.net/visitrack/web/middlewares"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type nopNotifier struct{}

func (nopNotifier) NotifyAlarm(model.AlarmPerson, string) {}

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	company  model.Company
	building model.Building
	station  model.Station
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, core.CreateTables(db))

	env := &testEnv{db: db}
	env.company = model.Company{Name: "Acme Facilities"}
	require.NoError(t, db.Create(&env.company).Error)
	env.building = model.Building{CompanyID: env.company.ID, Name: "Head Office"}
	require.NoError(t, db.Create(&env.building).Error)
	env.station = model.Station{
		CompanyID:  env.company.ID,
		Name:       "Lobby Reader",
		Secret:     "station-secret",
		Approved:   true,
		BuildingID: &env.building.ID,
	}
	require.NoError(t, db.Create(&env.station).Error)
	require.NoError(t, db.Create(&model.Visitor{
		CompanyID: env.company.ID, UID: "AB12", Name: "Visitor One", Phone: "+61400000001",
	}).Error)

	log := slog.New(slog.DiscardHandler)
	broadcaster := core.NopBroadcaster{}

	sessions := core.NewSessionService(db, testSecret, time.Hour, broadcaster, log)
	liveness := core.NewLivenessService(db, broadcaster, log)
	attendance := core.NewAttendanceService(db, broadcaster, log)
	alarms := core.NewAlarmService(db, attendance, broadcaster, nopNotifier{}, nil, log)
	stations := core.NewStationService(db, broadcaster, log)
	buildings := core.NewBuildingService(db, broadcaster, log)
	visitors := core.NewVisitorService(db)

	r := gin.New()
	station := r.Group("/api/station")
	RegisterStationRoutes(station, sessions, liveness, attendance)

	admin := r.Group("/api/admin")
	admin.Use(middlewares.Authentication(testSecret))
	{
		RegisterAdminStationRoutes(admin, stations, sessions)
		RegisterBuildingRoutes(admin, buildings)
		RegisterAlarmRoutes(admin, alarms)
		RegisterDashboardRoutes(admin, attendance)
		RegisterExportRoutes(admin, attendance, "")
		RegisterVisitorRoutes(admin, visitors)
	}

	env.router = r
	return env
}

func (env *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

func adminToken(t *testing.T, env *testEnv, role string) string {
	t.Helper()
	token, err := security.CreateUserToken(1, env.company.ID, role, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func registerStation(t *testing.T, env *testEnv) string {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/station/register", "", gin.H{
		"stationId": env.station.ID,
		"secret":    "station-secret",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decodeData(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestStationFlow(t *testing.T) {
	env := newTestEnv(t)
	token := registerStation(t, env)

	// The slot is taken: a second registration conflicts.
	w := env.do(t, http.MethodPost, "/api/station/register", "", gin.H{
		"stationId": env.station.ID,
		"secret":    "station-secret",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/station/heartbeat", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/station/scan", token, gin.H{"uid": "AB12"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "in", decodeData(t, w)["direction"])

	w = env.do(t, http.MethodPost, "/api/station/scan", token, gin.H{"uid": "AB12"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "out", decodeData(t, w)["direction"])

	// Unknown card: 404 so the station starts the enrollment prompt.
	w = env.do(t, http.MethodPost, "/api/station/scan", token, gin.H{"uid": "ZZ99"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/station/scan", token, gin.H{
		"uid": "ZZ99", "name": "New Visitor", "phone": "+61400000009",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "in", decodeData(t, w)["direction"])

	w = env.do(t, http.MethodPost, "/api/station/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// The credential died with the session.
	w = env.do(t, http.MethodPost, "/api/station/heartbeat", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/station/register", "", gin.H{"stationId": env.station.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "secret")

	w = env.do(t, http.MethodPost, "/api/station/register", "", gin.H{
		"stationId": env.station.ID,
		"secret":    "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthorization(t *testing.T) {
	env := newTestEnv(t)

	// No token at all.
	w := env.do(t, http.MethodGet, "/api/admin/stations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A viewer can read but not mutate.
	viewer := adminToken(t, env, "viewer")
	w = env.do(t, http.MethodGet, "/api/admin/stations", viewer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/admin/stations", viewer, gin.H{"name": "New Reader"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := adminToken(t, env, "admin")
	w = env.do(t, http.MethodPost, "/api/admin/stations", admin, gin.H{"name": "New Reader"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAlarmEndpoints(t *testing.T) {
	env := newTestEnv(t)
	admin := adminToken(t, env, "admin")

	stationToken := registerStation(t, env)
	w := env.do(t, http.MethodPost, "/api/station/scan", stationToken, gin.H{"uid": "AB12"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/admin/alarms", admin, gin.H{
		"buildingId": env.building.ID,
		"code":       1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.EqualValues(t, 1, data["AffectedCount"])
	alarmID := int(data["ID"].(float64))

	ackPath := fmt.Sprintf("/api/admin/alarms/%d/acknowledge", alarmID)
	w = env.do(t, http.MethodPut, ackPath, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Second acknowledgement of the same alarm finds nothing to flip.
	w = env.do(t, http.MethodPut, ackPath, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/admin/alarms/search", admin, gin.H{"page": 0, "pageSize": 10})
	require.Equal(t, http.StatusOK, w.Code)
	var search struct {
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &search))
	assert.EqualValues(t, 1, search.Pagination.Total)
}

func TestDashboardAndExport(t *testing.T) {
	env := newTestEnv(t)
	admin := adminToken(t, env, "admin")

	stationToken := registerStation(t, env)
	w := env.do(t, http.MethodPost, "/api/station/scan", stationToken, gin.H{"uid": "AB12"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/dashboard/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeData(t, w)
	assert.EqualValues(t, 1, stats["checkedIn"])
	assert.EqualValues(t, 1, stats["activeStations"])

	w = env.do(t, http.MethodGet, "/api/admin/attendance/present", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/attendance/export", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attendance.xlsx")
	assert.NotEmpty(t, w.Body.Bytes())
}
