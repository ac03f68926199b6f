package core

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"visitrack.net/visitrack/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps every query on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, CreateTables(db))
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type broadcastEvent struct {
	CompanyID int32
	Event     string
	Payload   interface{}
}

// fakeBroadcaster records emissions for assertions.
type fakeBroadcaster struct {
	mu      sync.Mutex
	events  []broadcastEvent
	evicted []int32
}

func (f *fakeBroadcaster) BroadcastToCompany(companyID int32, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastEvent{CompanyID: companyID, Event: event, Payload: payload})
}

func (f *fakeBroadcaster) EvictStation(stationID int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted = append(f.evicted, stationID)
}

func (f *fakeBroadcaster) named(event string) []broadcastEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []broadcastEvent
	for _, e := range f.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	db          *gorm.DB
	broadcaster *fakeBroadcaster

	company  model.Company
	building model.Building
	station  model.Station
	visitor  model.Visitor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: newTestDB(t), broadcaster: &fakeBroadcaster{}}

	f.company = model.Company{Name: "Acme Facilities"}
	require.NoError(t, f.db.Create(&f.company).Error)

	f.building = model.Building{CompanyID: f.company.ID, Name: "Head Office"}
	require.NoError(t, f.db.Create(&f.building).Error)

	f.station = model.Station{
		CompanyID:  f.company.ID,
		Name:       "Lobby Reader",
		Secret:     "station-secret",
		Approved:   true,
		BuildingID: &f.building.ID,
	}
	require.NoError(t, f.db.Create(&f.station).Error)

	f.visitor = model.Visitor{CompanyID: f.company.ID, UID: "AB12", Name: "Visitor One", Phone: "+61400000001"}
	require.NoError(t, f.db.Create(&f.visitor).Error)

	return f
}

func (f *fixture) reloadStation(t *testing.T) model.Station {
	t.Helper()
	var station model.Station
	require.NoError(t, f.db.First(&station, f.station.ID).Error)
	return station
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newSessions(f *fixture, ttl time.Duration) *SessionService {
	return NewSessionService(f.db, testSecret, ttl, f.broadcaster, testLogger())
}

func ctx() context.Context {
	return context.Background()
}
