package model

import "time"

// Station is a physical card reader. ActiveToken is the single session
// slot: a station holds at most one valid credential at a time and issuing
// a new one overwrites, never appends.
type Station struct {
	ID          int32      `gorm:"primaryKey;column:id"`
	CompanyID   int32      `gorm:"column:company_id;not null;index"`
	Name        string     `gorm:"column:name;type:varchar(100);not null"`
	Secret      string     `gorm:"column:secret;type:varchar(64);not null"`
	Approved    bool       `gorm:"column:approved;not null;default:false"`
	BuildingID  *int32     `gorm:"column:building_id"`
	IsOnline    bool       `gorm:"column:is_online;not null;default:false"`
	LastPing    *time.Time `gorm:"column:last_ping"`
	ActiveToken *string    `gorm:"column:active_token;type:varchar(512)"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (Station) TableName() string {
	return "stations"
}
