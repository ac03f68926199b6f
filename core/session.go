package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"visitrack.net/visitrack/model"
	"visitrack.net/visitrack/security"
)

// SessionService issues and validates station session credentials and
// enforces at most one live session per station.
type SessionService struct {
	db          *gorm.DB
	secret      []byte
	tokenTTL    time.Duration
	broadcaster Broadcaster
	log         *slog.Logger
}

func NewSessionService(db *gorm.DB, secret []byte, tokenTTL time.Duration, b Broadcaster, log *slog.Logger) *SessionService {
	return &SessionService{db: db, secret: secret, tokenTTL: tokenTTL, broadcaster: b, log: log}
}

// RegisterFirstTime mints a session credential for a station that holds
// none. A second call while a session is live fails with ErrAlreadyActive;
// freeing the slot takes an explicit logout or an admin forced logout, not
// a silent takeover.
func (s *SessionService) RegisterFirstTime(ctx context.Context, stationID int32, secret string) (string, *model.Station, error) {
	var station model.Station
	if err := s.db.WithContext(ctx).First(&station, stationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrStationNotFound
		}
		return "", nil, fmt.Errorf("load station: %w", err)
	}

	if station.Secret != secret {
		return "", nil, ErrSecretMismatch
	}
	if !station.Approved {
		return "", nil, ErrNotApproved
	}
	if station.BuildingID == nil {
		return "", nil, ErrNoBuilding
	}
	if station.ActiveToken != nil {
		return "", nil, ErrAlreadyActive
	}

	token, err := security.CreateDeviceToken(station.ID, station.CompanyID, s.secret, s.tokenTTL)
	if err != nil {
		return "", nil, fmt.Errorf("mint credential: %w", err)
	}

	// Conditional write on the empty slot: of two concurrent registrations
	// exactly one lands.
	res := s.db.WithContext(ctx).Model(&model.Station{}).
		Where("id = ? AND active_token IS NULL", station.ID).
		Update("active_token", token)
	if res.Error != nil {
		return "", nil, fmt.Errorf("store credential: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return "", nil, ErrAlreadyActive
	}

	s.log.Info("station registered", "stationId", station.ID, "companyId", station.CompanyID)
	station.ActiveToken = &token
	return token, &station, nil
}

// Authenticate validates a presented credential against the station's
// current session slot and returns the station record for the request.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*model.Station, error) {
	claims, err := security.ParseDeviceToken(token, s.secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	var station model.Station
	if err := s.db.WithContext(ctx).First(&station, claims.StationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStationNotFound
		}
		return nil, fmt.Errorf("load station: %w", err)
	}

	if station.CompanyID != claims.CompanyID {
		return nil, ErrTokenMalformed
	}
	// A token that no longer matches the slot has been superseded or
	// revoked, even if its expiry is still in the future.
	if station.ActiveToken == nil || *station.ActiveToken != token {
		return nil, ErrTokenSuperseded
	}
	if !station.Approved {
		return nil, ErrApprovalRevoked
	}

	return &station, nil
}

// Logout clears the session slot held by the presented credential.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	station, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Model(&model.Station{}).
		Where("id = ? AND active_token = ?", station.ID, token).
		Update("active_token", nil)
	if res.Error != nil {
		return fmt.Errorf("clear credential: %w", res.Error)
	}
	s.log.Info("station logged out", "stationId", station.ID)
	return nil
}

// ForceLogout is the admin-mediated reset: it empties the slot regardless
// of its value and evicts any live real-time connection so the physical
// station falls back to re-registration.
func (s *SessionService) ForceLogout(ctx context.Context, companyID, stationID int32) error {
	var station model.Station
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", stationID, companyID).
		First(&station).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStationNotFound
		}
		return fmt.Errorf("load station: %w", err)
	}

	res := s.db.WithContext(ctx).Model(&model.Station{}).
		Where("id = ?", station.ID).
		Update("active_token", nil)
	if res.Error != nil {
		return fmt.Errorf("clear credential: %w", res.Error)
	}

	s.broadcaster.EvictStation(station.ID)
	s.log.Info("station session reset", "stationId", station.ID, "companyId", companyID)
	return nil
}
