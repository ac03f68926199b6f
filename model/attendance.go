package model

import "time"

// AttendanceRecord is one dwell of a visitor in a building. An open record
// (CheckOut nil) means the visitor is currently present; at most one open
// record exists per visitor per building.
type AttendanceRecord struct {
	ID          int32      `gorm:"primaryKey;column:id"`
	CompanyID   int32      `gorm:"column:company_id;not null;index"`
	BuildingID  int32      `gorm:"column:building_id;not null;index"`
	StationID   int32      `gorm:"column:station_id;not null"`
	VisitorID   int32      `gorm:"column:visitor_id;not null;index"`
	VisitorName string     `gorm:"column:visitor_name;type:varchar(100);not null"`
	CheckIn     time.Time  `gorm:"column:check_in;not null"`
	CheckOut    *time.Time `gorm:"column:check_out"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}
