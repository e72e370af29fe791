package db

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/edusys/activityhub/internal/models"
)

// Open opens (or creates) the sqlite database at path, runs migrations, and
// returns the handle. WAL keeps readers off the single writer's back.
func Open(path string) (*gorm.DB, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// SQLite works best with a single writer; cap the pool accordingly. This
	// also serializes every transaction, which is what the capacity
	// check-and-increment relies on.
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := Migrate(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Migrate runs AutoMigrate plus the composite indexes GORM doesn't create
// from struct tags. Exposed separately so tests can migrate throwaway
// databases.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.User{},
		&models.StaffTeacher{},
		&models.Activity{},
		&models.Registration{},
		&models.Interaction{},
		&models.CartItem{},
		&models.Payment{},
		&models.Message{},
	); err != nil {
		return err
	}

	conn.Exec("CREATE INDEX IF NOT EXISTS idx_reg_activity_status ON registrations(activity_id, status)")
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_reg_student_status  ON registrations(student_id, status)")
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_inter_act_user_type ON interactions(activity_id, user_id, type)")
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_cart_user_unpaid    ON cart_items(user_id, activity_id, is_paid)")
	return nil
}
