package main

import (
	"log"
	"os"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"visitrack.net/visitrack/core"
	"visitrack.net/visitrack/model"
)

func main() {
	dsn := os.Getenv("DSN")
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	if err := core.CreateTables(db); err != nil {
		log.Fatalf("failed to create tables: %v", err)
	}

	company := model.Company{Name: "Acme Facilities"}
	if err := db.Create(&company).Error; err != nil {
		log.Fatalf("failed to seed company: %v", err)
	}

	building := model.Building{CompanyID: company.ID, Name: "Head Office", Address: "1 Example Street"}
	if err := db.Create(&building).Error; err != nil {
		log.Fatalf("failed to seed building: %v", err)
	}

	admin := model.User{CompanyID: company.ID, Name: "Admin", Email: "admin@example.com", Role: "admin"}
	if err := db.Create(&admin).Error; err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}

	station := model.Station{
		CompanyID:  company.ID,
		Name:       "Lobby Reader",
		Secret:     uuid.NewString(),
		Approved:   true,
		BuildingID: &building.ID,
	}
	if err := db.Create(&station).Error; err != nil {
		log.Fatalf("failed to seed station: %v", err)
	}

	visitors := []model.Visitor{
		{CompanyID: company.ID, UID: "AB12", Name: "Visitor One", Phone: "+61400000001"},
		{CompanyID: company.ID, UID: "CD34", Name: "Visitor Two", Phone: "+61400000002"},
	}
	for _, visitor := range visitors {
		if err := db.Create(&visitor).Error; err != nil {
			log.Fatalf("failed to seed visitor: %v", err)
		}
	}

	log.Printf("seeded company=%d building=%d station=%d secret=%s",
		company.ID, building.ID, station.ID, station.Secret)
}
