package core

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"visitrack.net/visitrack/model"
)

type BuildingService struct {
	db          *gorm.DB
	broadcaster Broadcaster
	log         *slog.Logger
}

func NewBuildingService(db *gorm.DB, b Broadcaster, log *slog.Logger) *BuildingService {
	return &BuildingService{db: db, broadcaster: b, log: log}
}

func (s *BuildingService) Create(ctx context.Context, companyID int32, name, address string) (*model.Building, error) {
	building := model.Building{
		CompanyID: companyID,
		Name:      name,
		Address:   address,
	}
	if err := s.db.WithContext(ctx).Create(&building).Error; err != nil {
		return nil, fmt.Errorf("create building: %w", err)
	}

	s.broadcaster.BroadcastToCompany(companyID, EventBuildingCreated, BuildingPayload{
		BuildingID: building.ID,
		Name:       building.Name,
	})
	return &building, nil
}

// Delete removes the building and unassigns its stations, which keeps
// their sessions but stops their scans until reassigned.
func (s *BuildingService) Delete(ctx context.Context, companyID, buildingID int32) error {
	var building model.Building
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", buildingID, companyID).
		First(&building).Error
	if err != nil {
		return ErrBuildingNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.Station{}).
			Where("building_id = ?", building.ID).
			Update("building_id", nil).Error
		if err != nil {
			return fmt.Errorf("unassign stations: %w", err)
		}
		if err := tx.Delete(&model.Building{}, building.ID).Error; err != nil {
			return fmt.Errorf("delete building: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.broadcaster.BroadcastToCompany(companyID, EventBuildingDeleted, BuildingPayload{
		BuildingID: building.ID,
		Name:       building.Name,
	})
	s.log.Info("building deleted", "buildingId", building.ID, "companyId", companyID)
	return nil
}

func (s *BuildingService) List(ctx context.Context, companyID int32) ([]model.Building, error) {
	var buildings []model.Building
	err := s.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("id").
		Find(&buildings).Error
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	return buildings, nil
}
