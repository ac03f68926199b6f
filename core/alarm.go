package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"visitrack.net/visitrack/model"
)

// Fixed alarm class table. An unrecognised code renders the generic
// warning; triggering never hard-fails on the code alone.
var alarmMessages = map[int]string{
	1: "Fire alarm: evacuate the building immediately",
	2: "Evacuation drill: proceed calmly to the assembly point",
	3: "Security incident: await instructions from staff",
	4: "Medical emergency: keep escape routes clear",
}

const alarmGenericMessage = "Emergency warning: follow staff instructions"

// AlarmMessage renders the human message for an alarm class.
func AlarmMessage(code int) string {
	if msg, ok := alarmMessages[code]; ok {
		return msg
	}
	return alarmGenericMessage
}

// AlarmService creates and acknowledges emergency broadcasts.
type AlarmService struct {
	db          *gorm.DB
	attendance  *AttendanceService
	broadcaster Broadcaster
	notifier    VisitorNotifier
	ops         OpsNotifier
	log         *slog.Logger
}

// ops may be nil when no operations channel is configured.
func NewAlarmService(db *gorm.DB, attendance *AttendanceService, b Broadcaster, notifier VisitorNotifier, ops OpsNotifier, log *slog.Logger) *AlarmService {
	return &AlarmService{db: db, attendance: attendance, broadcaster: b, notifier: notifier, ops: ops, log: log}
}

// Trigger persists an alarm for the building with a snapshot of everyone
// present at this instant, then fans it out to the company room. Zero
// people present is a valid alarm, not an error.
func (s *AlarmService) Trigger(ctx context.Context, companyID, buildingID int32, code int) (*model.Alarm, error) {
	var building model.Building
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", buildingID, companyID).
		First(&building).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBuildingNotFound
		}
		return nil, fmt.Errorf("load building: %w", err)
	}

	present, err := s.attendance.CurrentlyPresentByBuilding(ctx, building.ID)
	if err != nil {
		return nil, err
	}

	people, err := s.snapshotPeople(ctx, present)
	if err != nil {
		return nil, err
	}

	alarm := model.Alarm{
		CompanyID:     building.CompanyID,
		BuildingID:    building.ID,
		BuildingName:  building.Name,
		Code:          code,
		Message:       AlarmMessage(code),
		AffectedCount: len(people),
		People:        people,
	}
	if err := s.db.WithContext(ctx).Create(&alarm).Error; err != nil {
		return nil, fmt.Errorf("persist alarm: %w", err)
	}

	s.log.Info("alarm triggered",
		"alarmId", alarm.ID, "buildingId", building.ID, "code", code, "affected", alarm.AffectedCount)

	// The broadcast carries message and count only; the people list is
	// fetched on demand via Get.
	s.broadcaster.BroadcastToCompany(alarm.CompanyID, EventAlarmTriggered, AlarmTriggeredPayload{
		AlarmID:       alarm.ID,
		BuildingID:    alarm.BuildingID,
		BuildingName:  alarm.BuildingName,
		Code:          alarm.Code,
		Message:       alarm.Message,
		AffectedCount: alarm.AffectedCount,
		CreatedAt:     alarm.CreatedAt,
	})

	for _, person := range alarm.People {
		s.notifier.NotifyAlarm(person, alarm.Message)
	}

	if s.ops != nil {
		note := fmt.Sprintf("alarm #%d at %s: %s (%d affected)",
			alarm.ID, alarm.BuildingName, alarm.Message, alarm.AffectedCount)
		if err := s.ops.Info(note); err != nil {
			s.log.Warn("failed to notify operations channel", "error", err)
		}
	}

	return &alarm, nil
}

// snapshotPeople freezes name and phone of every open record's visitor.
func (s *AlarmService) snapshotPeople(ctx context.Context, present []model.AttendanceRecord) (model.AlarmPeople, error) {
	people := model.AlarmPeople{}
	if len(present) == 0 {
		return people, nil
	}

	ids := make([]int32, 0, len(present))
	for _, record := range present {
		ids = append(ids, record.VisitorID)
	}

	var visitors []model.Visitor
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&visitors).Error; err != nil {
		return nil, fmt.Errorf("load affected visitors: %w", err)
	}
	phones := make(map[int32]string, len(visitors))
	for _, v := range visitors {
		phones[v.ID] = v.Phone
	}

	for _, record := range present {
		people = append(people, model.AlarmPerson{
			VisitorID: record.VisitorID,
			Name:      record.VisitorName,
			Phone:     phones[record.VisitorID],
		})
	}
	return people, nil
}

// Acknowledge flips the acknowledged flag exactly once. The predicate on
// the update is the whole race guard: a second caller sees zero affected
// rows and gets ErrAlarmNotFound, whether the alarm was already
// acknowledged or never existed.
func (s *AlarmService) Acknowledge(ctx context.Context, companyID, alarmID, userID int32) (*model.Alarm, error) {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&model.Alarm{}).
		Where("id = ? AND company_id = ? AND acknowledged = ?", alarmID, companyID, false).
		Updates(map[string]interface{}{
			"acknowledged":     true,
			"acked_by_user_id": userID,
			"acked_at":         now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("acknowledge alarm: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlarmNotFound
	}

	s.broadcaster.BroadcastToCompany(companyID, EventAlarmAcknowledged, AlarmAckedPayload{
		AlarmID: alarmID,
		UserID:  userID,
		AckedAt: now,
	})

	return s.Get(ctx, companyID, alarmID)
}

func (s *AlarmService) Get(ctx context.Context, companyID, alarmID int32) (*model.Alarm, error) {
	var alarm model.Alarm
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", alarmID, companyID).
		First(&alarm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlarmNotFound
		}
		return nil, fmt.Errorf("load alarm: %w", err)
	}
	return &alarm, nil
}

// List returns the company's alarms, newest first.
func (s *AlarmService) List(ctx context.Context, companyID int32, offset, limit int) ([]model.Alarm, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Alarm{}).Where("company_id = ?", companyID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count alarms: %w", err)
	}

	var alarms []model.Alarm
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&alarms).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list alarms: %w", err)
	}
	return alarms, total, nil
}
