package testutil

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fumio65/tick/internal/model"
)

// NewInMemoryDB creates an in-memory SQLite DB and runs migrations.
// The glebarez driver is pure Go, so tests need no CGO.
func NewInMemoryDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.Task{}, &model.Subtask{}); err != nil {
		return nil, err
	}
	return db, nil
}
