package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitrack.net/visitrack/model"
)

func newAttendance(f *fixture) *AttendanceService {
	return NewAttendanceService(f.db, f.broadcaster, testLogger())
}

func TestRecordScanToggle(t *testing.T) {
	f := newFixture(t)
	attendance := newAttendance(f)

	// First scan checks in.
	first, err := attendance.RecordScan(ctx(), &f.station, "AB12", nil)
	require.NoError(t, err)
	assert.Equal(t, DirectionIn, first.Direction)
	assert.Nil(t, first.Record.CheckOut)
	assert.Equal(t, f.visitor.ID, first.Record.VisitorID)

	// Second scan checks out the same record, never opens a duplicate.
	second, err := attendance.RecordScan(ctx(), &f.station, "AB12", nil)
	require.NoError(t, err)
	assert.Equal(t, DirectionOut, second.Direction)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.NotNil(t, second.Record.CheckOut)

	// Third scan opens a fresh dwell: toggle has period two.
	third, err := attendance.RecordScan(ctx(), &f.station, "AB12", nil)
	require.NoError(t, err)
	assert.Equal(t, DirectionIn, third.Direction)
	assert.NotEqual(t, first.Record.ID, third.Record.ID)

	var count int64
	require.NoError(t, f.db.Model(&model.AttendanceRecord{}).
		Where("visitor_id = ? AND check_out IS NULL", f.visitor.ID).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRecordScanUnknownVisitor(t *testing.T) {
	f := newFixture(t)
	attendance := newAttendance(f)

	_, err := attendance.RecordScan(ctx(), &f.station, "ZZ99", nil)
	assert.ErrorIs(t, err, ErrVisitorUnknown)

	// Nothing was written for the rejected scan.
	var count int64
	require.NoError(t, f.db.Model(&model.AttendanceRecord{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// Retrying with enrollment data creates the visitor and checks in.
	result, err := attendance.RecordScan(ctx(), &f.station, "ZZ99", &Enrichment{Name: "New Visitor", Phone: "+61400000009"})
	require.NoError(t, err)
	assert.Equal(t, DirectionIn, result.Direction)
	assert.Equal(t, "New Visitor", result.Record.VisitorName)

	var visitor model.Visitor
	require.NoError(t, f.db.Where("uid = ?", "ZZ99").First(&visitor).Error)
	assert.Equal(t, "+61400000009", visitor.Phone)
}

func TestRecordScanWithoutBuilding(t *testing.T) {
	f := newFixture(t)
	attendance := newAttendance(f)

	station := f.station
	station.BuildingID = nil

	_, err := attendance.RecordScan(ctx(), &station, "AB12", nil)
	assert.ErrorIs(t, err, ErrNoBuilding)
}

func TestCurrentlyPresentConsistency(t *testing.T) {
	f := newFixture(t)
	attendance := newAttendance(f)

	_, err := attendance.RecordScan(ctx(), &f.station, "AB12", nil)
	require.NoError(t, err)

	present, err := attendance.CurrentlyPresentByBuilding(ctx(), f.building.ID)
	require.NoError(t, err)
	require.Len(t, present, 1)

	// The station view resolves to the same building.
	byStation, err := attendance.CurrentlyPresentByStation(ctx(), f.station.ID)
	require.NoError(t, err)
	assert.Len(t, byStation, 1)

	// Immediately after the check-out write the set is empty, no staleness.
	_, err = attendance.RecordScan(ctx(), &f.station, "AB12", nil)
	require.NoError(t, err)

	present, err = attendance.CurrentlyPresentByBuilding(ctx(), f.building.ID)
	require.NoError(t, err)
	assert.Empty(t, present)
}

func TestStatsAreIndependent(t *testing.T) {
	f := newFixture(t)
	attendance := newAttendance(f)

	// A second station: approved and online but unassigned, so it counts
	// as online without counting as active.
	online := model.Station{CompanyID: f.company.ID, Name: "Spare Reader", Secret: "x", Approved: true, IsOnline: true}
	require.NoError(t, f.db.Create(&online).Error)

	_, err := attendance.RecordScan(ctx(), &f.station, "AB12", nil)
	require.NoError(t, err)

	stats, err := attendance.Stats(ctx(), f.company.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.ActiveStations, "building-assigned stations")
	assert.EqualValues(t, 1, stats.OnlineStations, "stations with the liveness flag")
	assert.EqualValues(t, 1, stats.CheckedIn, "open attendance records")
}

func TestScanBroadcastsAfterCommit(t *testing.T) {
	f := newFixture(t)
	attendance := newAttendance(f)

	result, err := attendance.RecordScan(ctx(), &f.station, "AB12", nil)
	require.NoError(t, err)

	updates := f.broadcaster.named(EventAttendanceUpdated)
	require.Len(t, updates, 1)
	assert.Equal(t, f.company.ID, updates[0].CompanyID)
	payload := updates[0].Payload.(AttendancePayload)
	assert.Equal(t, result.Record.ID, payload.RecordID)
	assert.Equal(t, DirectionIn, payload.Direction)

	require.Len(t, f.broadcaster.named(EventDashboardStatsUpdated), 1)

	// A rejected scan must not emit anything new.
	_, err = attendance.RecordScan(ctx(), &f.station, "ZZ99", nil)
	require.ErrorIs(t, err, ErrVisitorUnknown)
	assert.Len(t, f.broadcaster.named(EventAttendanceUpdated), 1)
}

func TestHistoryPagination(t *testing.T) {
	f := newFixture(t)
	attendance := newAttendance(f)

	for i := 0; i < 3; i++ {
		_, err := attendance.RecordScan(ctx(), &f.station, "AB12", nil)
		require.NoError(t, err)
	}

	records, total, err := attendance.History(ctx(), f.company.ID, nil, 0, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total, "two dwells: in/out then in")
	assert.Len(t, records, 1)

	records, _, err = attendance.History(ctx(), f.company.ID, &f.building.ID, 0, 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
