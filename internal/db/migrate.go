package db

import (
	"tokenarena/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Token{},
		&models.PricePoint{},
		&models.Round{},
		&models.Play{},
		&models.LivePnL{},
		&models.RoundResult{},
	)
}
