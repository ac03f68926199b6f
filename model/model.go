package model

import "time"

type Company struct {
	ID        int32     `gorm:"primaryKey;column:id"`
	Name      string    `gorm:"column:name;type:varchar(100);not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Company) TableName() string {
	return "companies"
}

type Building struct {
	ID        int32     `gorm:"primaryKey;column:id"`
	CompanyID int32     `gorm:"column:company_id;not null;index"`
	Name      string    `gorm:"column:name;type:varchar(100);not null"`
	Address   string    `gorm:"column:address;type:varchar(200)"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Building) TableName() string {
	return "buildings"
}

type User struct {
	ID        int32     `gorm:"primaryKey;column:id"`
	CompanyID int32     `gorm:"column:company_id;not null;index"`
	Name      string    `gorm:"column:name;type:varchar(100);not null"`
	Email     string    `gorm:"column:email;type:varchar(200)"`
	Role      string    `gorm:"column:role;type:varchar(20);not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (User) TableName() string {
	return "users"
}

// All lists every table-backed type, in creation order.
func All() []interface{} {
	return []interface{}{
		&Company{},
		&Building{},
		&User{},
		&Station{},
		&Visitor{},
		&AttendanceRecord{},
		&Alarm{},
	}
}
