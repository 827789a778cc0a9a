package database

import (
	"booking_manager/config"
	"booking_manager/model"
	"fmt"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDB() {
	var err error
	p := config.ConfigOr("DB_PORT", "5432")
	port, err := strconv.ParseUint(p, 10, 32)
	if err != nil {
		panic("failed to parse database port")
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		config.Config("DB_HOST"), port, config.Config("DB_USER"), config.Config("DB_PASSWORD"), config.Config("DB_NAME"))
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	fmt.Println("Connection Opened to Database")
	// Conflict safety comes from the resource-row lock taken by the
	// availability re-check inside each booking transaction. A tstzrange
	// exclusion constraint cannot carry the HOLD expiry predicate
	// (expires_at > now is not immutable), so none is declared here.
	DB.AutoMigrate(
		&model.Resource{},
		&model.BusinessHour{},
		&model.DayOff{},
		&model.BookingSettings{},
		&model.Order{},
		&model.OrderItem{},
		&model.ReservedSlot{},
		&model.PaymentTransaction{},
		&model.MarketingConsent{},
	)
	fmt.Println("Database Migrated")

	SeedData(DB)
}
