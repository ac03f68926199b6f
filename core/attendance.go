package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"visitrack.net/visitrack/model"
)

const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

type ScanResult struct {
	Record    model.AttendanceRecord
	Direction string
}

// Enrichment carries the name/phone captured for a previously unknown
// visitor. When present, the visitor is enrolled before the scan is
// applied.
type Enrichment struct {
	Name  string
	Phone string
}

// Stats are the three independent dashboard numbers. Active counts
// building-assigned stations, online counts the liveness flag, and checked
// in counts open attendance records; none of them is derived from another.
type Stats struct {
	ActiveStations int64 `json:"activeStations"`
	OnlineStations int64 `json:"onlineStations"`
	CheckedIn      int64 `json:"checkedIn"`
}

// AttendanceService is the ledger of check-ins and check-outs.
type AttendanceService struct {
	db          *gorm.DB
	broadcaster Broadcaster
	log         *slog.Logger
}

func NewAttendanceService(db *gorm.DB, b Broadcaster, log *slog.Logger) *AttendanceService {
	return &AttendanceService{db: db, broadcaster: b, log: log}
}

// RecordScan toggles the visitor's presence in the station's building:
// close the open record if one exists, otherwise open a new one. Exactly
// one of the two happens per call.
func (s *AttendanceService) RecordScan(ctx context.Context, station *model.Station, uid string, enrich *Enrichment) (*ScanResult, error) {
	if station.BuildingID == nil {
		return nil, ErrNoBuilding
	}
	buildingID := *station.BuildingID

	var result ScanResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		visitorQuery := tx.Where("company_id = ? AND uid = ?", station.CompanyID, uid)
		if tx.Dialector.Name() == "mysql" {
			// The row lock serialises two near-simultaneous scans of the
			// same uid; sqlite (tests only) has no FOR UPDATE and
			// serialises writers on its own.
			visitorQuery = visitorQuery.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var visitor model.Visitor
		if err := visitorQuery.First(&visitor).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("load visitor: %w", err)
			}
			if enrich == nil {
				return ErrVisitorUnknown
			}
			visitor = model.Visitor{
				CompanyID: station.CompanyID,
				UID:       uid,
				Name:      enrich.Name,
				Phone:     enrich.Phone,
			}
			if err := tx.Create(&visitor).Error; err != nil {
				return fmt.Errorf("enroll visitor: %w", err)
			}
		}

		now := time.Now().UTC()

		var open model.AttendanceRecord
		err := tx.Where("visitor_id = ? AND building_id = ? AND check_out IS NULL", visitor.ID, buildingID).
			First(&open).Error
		switch {
		case err == nil:
			// Single conditional mutation: if another scan closed the record
			// first, fall through to a fresh check-in instead of closing
			// nothing.
			res := tx.Model(&model.AttendanceRecord{}).
				Where("id = ? AND check_out IS NULL", open.ID).
				Update("check_out", now)
			if res.Error != nil {
				return fmt.Errorf("close record: %w", res.Error)
			}
			if res.RowsAffected > 0 {
				open.CheckOut = &now
				result = ScanResult{Record: open, Direction: DirectionOut}
				return nil
			}
			fallthrough
		case errors.Is(err, gorm.ErrRecordNotFound):
			record := model.AttendanceRecord{
				CompanyID:   station.CompanyID,
				BuildingID:  buildingID,
				StationID:   station.ID,
				VisitorID:   visitor.ID,
				VisitorName: visitor.Name,
				CheckIn:     now,
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("open record: %w", err)
			}
			result = ScanResult{Record: record, Direction: DirectionIn}
			return nil
		default:
			return fmt.Errorf("find open record: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}

	// Broadcast strictly after commit.
	s.broadcaster.BroadcastToCompany(station.CompanyID, EventAttendanceUpdated, AttendancePayload{
		RecordID:    result.Record.ID,
		BuildingID:  result.Record.BuildingID,
		StationID:   result.Record.StationID,
		VisitorID:   result.Record.VisitorID,
		VisitorName: result.Record.VisitorName,
		Direction:   result.Direction,
		CheckIn:     result.Record.CheckIn,
		CheckOut:    result.Record.CheckOut,
	})
	s.EmitStats(ctx, station.CompanyID)

	return &result, nil
}

// CurrentlyPresentByBuilding returns the open records of a building. Reads
// go straight to the store so a just-committed check-out is never reported
// as present.
func (s *AttendanceService) CurrentlyPresentByBuilding(ctx context.Context, buildingID int32) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("building_id = ? AND check_out IS NULL", buildingID).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list present: %w", err)
	}
	return records, nil
}

// CurrentlyPresentByStation resolves the station's building and lists its
// open records. An unassigned station has nobody present.
func (s *AttendanceService) CurrentlyPresentByStation(ctx context.Context, stationID int32) ([]model.AttendanceRecord, error) {
	var station model.Station
	if err := s.db.WithContext(ctx).First(&station, stationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStationNotFound
		}
		return nil, fmt.Errorf("load station: %w", err)
	}
	if station.BuildingID == nil {
		return []model.AttendanceRecord{}, nil
	}
	return s.CurrentlyPresentByBuilding(ctx, *station.BuildingID)
}

func (s *AttendanceService) CurrentlyPresentByCompany(ctx context.Context, companyID int32) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND check_out IS NULL", companyID).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list present: %w", err)
	}
	return records, nil
}

func (s *AttendanceService) Stats(ctx context.Context, companyID int32) (*Stats, error) {
	var stats Stats
	db := s.db.WithContext(ctx)

	err := db.Model(&model.Station{}).
		Where("company_id = ? AND building_id IS NOT NULL", companyID).
		Count(&stats.ActiveStations).Error
	if err != nil {
		return nil, fmt.Errorf("count active stations: %w", err)
	}

	err = db.Model(&model.Station{}).
		Where("company_id = ? AND is_online = ?", companyID, true).
		Count(&stats.OnlineStations).Error
	if err != nil {
		return nil, fmt.Errorf("count online stations: %w", err)
	}

	err = db.Model(&model.AttendanceRecord{}).
		Where("company_id = ? AND check_out IS NULL", companyID).
		Count(&stats.CheckedIn).Error
	if err != nil {
		return nil, fmt.Errorf("count checked in: %w", err)
	}

	return &stats, nil
}

// EmitStats pushes a fresh dashboard snapshot to the company room. Failures
// only cost timeliness, so they are logged and swallowed.
func (s *AttendanceService) EmitStats(ctx context.Context, companyID int32) {
	stats, err := s.Stats(ctx, companyID)
	if err != nil {
		s.log.Error("failed to compute dashboard stats", "companyId", companyID, "error", err)
		return
	}
	s.broadcaster.BroadcastToCompany(companyID, EventDashboardStatsUpdated, stats)
}

// History returns the company's attendance ledger, newest first.
func (s *AttendanceService) History(ctx context.Context, companyID int32, buildingID *int32, offset, limit int) ([]model.AttendanceRecord, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.AttendanceRecord{}).
		Where("company_id = ?", companyID)
	if buildingID != nil {
		query = query.Where("building_id = ?", *buildingID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	var records []model.AttendanceRecord
	err := query.Order("check_in DESC").Offset(offset).Limit(limit).Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	return records, total, nil
}
