package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"visitrack.net/visitrack/model"
)

// StationService covers the admin side of station lifecycle: creation with
// a generated secret, approval, building assignment and deletion. Every
// admin-visible change is broadcast to the company room after commit.
type StationService struct {
	db          *gorm.DB
	broadcaster Broadcaster
	log         *slog.Logger
}

func NewStationService(db *gorm.DB, b Broadcaster, log *slog.Logger) *StationService {
	return &StationService{db: db, broadcaster: b, log: log}
}

// Create registers a new station identity. The shared secret is generated
// here and never rotated automatically; the station stays unapproved and
// unassigned until an admin says otherwise.
func (s *StationService) Create(ctx context.Context, companyID int32, name string) (*model.Station, error) {
	station := model.Station{
		CompanyID: companyID,
		Name:      name,
		Secret:    uuid.NewString(),
	}
	if err := s.db.WithContext(ctx).Create(&station).Error; err != nil {
		return nil, fmt.Errorf("create station: %w", err)
	}
	s.log.Info("station created", "stationId", station.ID, "companyId", companyID)
	return &station, nil
}

// Delete removes a station: the live session is dropped, the real-time
// connection evicted, and the building association goes with the row.
func (s *StationService) Delete(ctx context.Context, companyID, stationID int32) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", stationID, companyID).
		Delete(&model.Station{})
	if res.Error != nil {
		return fmt.Errorf("delete station: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStationNotFound
	}

	s.broadcaster.EvictStation(stationID)
	s.log.Info("station deleted", "stationId", stationID, "companyId", companyID)
	return nil
}

// SetApproval flips the approval flag. Revoking approval does not clear a
// live session by itself; the station is rejected on its next authenticate
// and falls back to local logout.
func (s *StationService) SetApproval(ctx context.Context, companyID, stationID int32, approved bool) error {
	res := s.db.WithContext(ctx).Model(&model.Station{}).
		Where("id = ? AND company_id = ?", stationID, companyID).
		Update("approved", approved)
	if res.Error != nil {
		return fmt.Errorf("update approval: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStationNotFound
	}

	s.broadcaster.BroadcastToCompany(companyID, EventStationApprovalUpdated, StationApprovalPayload{
		StationID: stationID,
		Approved:  approved,
	})
	return nil
}

// AssignBuilding moves the station to a building, or unassigns it when
// buildingID is nil. An unassigned station keeps its session but its scans
// are rejected.
func (s *StationService) AssignBuilding(ctx context.Context, companyID, stationID int32, buildingID *int32) error {
	if buildingID != nil {
		var building model.Building
		err := s.db.WithContext(ctx).
			Where("id = ? AND company_id = ?", *buildingID, companyID).
			First(&building).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBuildingNotFound
			}
			return fmt.Errorf("load building: %w", err)
		}
	}

	res := s.db.WithContext(ctx).Model(&model.Station{}).
		Where("id = ? AND company_id = ?", stationID, companyID).
		Update("building_id", buildingID)
	if res.Error != nil {
		return fmt.Errorf("update building: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStationNotFound
	}

	s.broadcaster.BroadcastToCompany(companyID, EventStationMoved, StationMovedPayload{
		StationID:  stationID,
		BuildingID: buildingID,
	})
	return nil
}

func (s *StationService) List(ctx context.Context, companyID int32) ([]model.Station, error) {
	var stations []model.Station
	err := s.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("id").
		Find(&stations).Error
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	return stations, nil
}

func (s *StationService) Get(ctx context.Context, companyID, stationID int32) (*model.Station, error) {
	var station model.Station
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", stationID, companyID).
		First(&station).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStationNotFound
		}
		return nil, fmt.Errorf("load station: %w", err)
	}
	return &station, nil
}
