package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AlarmPerson is one entry of the affected-people snapshot taken when the
// alarm fires. The snapshot is frozen: later check-outs do not change it.
type AlarmPerson struct {
	VisitorID int32  `json:"visitorId"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
}

type AlarmPeople []AlarmPerson

func (p AlarmPeople) Value() (driver.Value, error) {
	if p == nil {
		p = AlarmPeople{}
	}
	return json.Marshal(p)
}

func (p *AlarmPeople) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		*p = AlarmPeople{}
		return nil
	}
	return fmt.Errorf("unsupported alarm people column type %T", value)
}

type Alarm struct {
	ID            int32       `gorm:"primaryKey;column:id"`
	CompanyID     int32       `gorm:"column:company_id;not null;index"`
	BuildingID    int32       `gorm:"column:building_id;not null"`
	BuildingName  string      `gorm:"column:building_name;type:varchar(100);not null"`
	Code          int         `gorm:"column:code;not null"`
	Message       string      `gorm:"column:message;type:varchar(200);not null"`
	AffectedCount int         `gorm:"column:affected_count;not null"`
	People        AlarmPeople `gorm:"column:people;type:json"`
	Acknowledged  bool        `gorm:"column:acknowledged;not null;default:false"`
	AckedByUserID *int32      `gorm:"column:acked_by_user_id"`
	AckedAt       *time.Time  `gorm:"column:acked_at"`
	CreatedAt     time.Time   `gorm:"column:created_at"`
}

func (Alarm) TableName() string {
	return "alarms"
}
