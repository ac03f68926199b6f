package core

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"visitrack.net/visitrack/model"
)

// VisitorService is the enrollment surface the scan flow hands unknown
// uids to.
type VisitorService struct {
	db *gorm.DB
}

func NewVisitorService(db *gorm.DB) *VisitorService {
	return &VisitorService{db: db}
}

func (s *VisitorService) Create(ctx context.Context, companyID int32, uid, name, phone string) (*model.Visitor, error) {
	visitor := model.Visitor{
		CompanyID: companyID,
		UID:       uid,
		Name:      name,
		Phone:     phone,
	}
	if err := s.db.WithContext(ctx).Create(&visitor).Error; err != nil {
		return nil, fmt.Errorf("create visitor: %w", err)
	}
	return &visitor, nil
}

func (s *VisitorService) FindByUID(ctx context.Context, companyID int32, uid string) (*model.Visitor, error) {
	var visitor model.Visitor
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND uid = ?", companyID, uid).
		First(&visitor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVisitorUnknown
		}
		return nil, fmt.Errorf("load visitor: %w", err)
	}
	return &visitor, nil
}

func (s *VisitorService) List(ctx context.Context, companyID int32) ([]model.Visitor, error) {
	var visitors []model.Visitor
	err := s.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("id").
		Find(&visitors).Error
	if err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}
	return visitors, nil
}
