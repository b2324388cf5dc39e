package main

import (
	"fmt"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"

	"github.com/umeshror/calendar-analytics/config"
)

var db *gorm.DB

func InitDB(cfg config.Config) {
	var err error
	dbURI := fmt.Sprintf("host=%s user=%s dbname=%s password=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBName, cfg.DBPassword, cfg.DBPort,
	)
	db, err = gorm.Open("postgres", dbURI)
	if err != nil {
		panic("failed to connect to database")
	}
	migrate(db)
}

func migrate(db *gorm.DB) {
	db.AutoMigrate(&User{}, &Calendar{}, &Account{}, &Event{}, &Attendee{})
}
