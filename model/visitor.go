package model

import "time"

type Visitor struct {
	ID        int32     `gorm:"primaryKey;column:id"`
	CompanyID int32     `gorm:"column:company_id;not null;uniqueIndex:idx_visitors_company_uid"`
	UID       string    `gorm:"column:uid;type:varchar(64);not null;uniqueIndex:idx_visitors_company_uid"`
	Name      string    `gorm:"column:name;type:varchar(100);not null"`
	Phone     string    `gorm:"column:phone;type:varchar(30)"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Visitor) TableName() string {
	return "visitors"
}
