package services

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/edusys/activityhub/internal/auth"
	"github.com/edusys/activityhub/internal/db"
	"github.com/edusys/activityhub/internal/models"
)

// openTestDB returns an isolated in-file SQLite database in a temp directory,
// capped to one connection like production so transactions serialize.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") +
		"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	gdb := openTestDB(t)
	return New(gdb, zap.NewNop(), 9), gdb
}

func mkUser(t *testing.T, gdb *gorm.DB, username, role string, birth *time.Time, parentID *uint) models.User {
	t.Helper()
	u := models.User{
		Username:     username,
		PasswordHash: "x",
		Role:         role,
		BirthDate:    birth,
		ParentID:     parentID,
	}
	if err := gdb.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func asPrincipal(u models.User) auth.Principal {
	return auth.Principal{UserID: u.ID, Role: u.Role}
}

// mkActivity publishes an activity running daysAhead days from now for two
// days, 09:00-11:00.
func mkActivity(t *testing.T, gdb *gorm.DB, title, typ string, price int64, maxParticipants, daysAhead int) models.Activity {
	t.Helper()
	start := DateOnly(time.Now().UTC()).AddDate(0, 0, daysAhead)
	a := models.Activity{
		Title:           title,
		Description:     "test activity",
		Type:            typ,
		Price:           price,
		Location:        "Hall A",
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, 1),
		StartTime:       9 * 60,
		EndTime:         11 * 60,
		MinAge:          3,
		MaxAge:          18,
		MaxParticipants: maxParticipants,
		IsActive:        true,
		Status:          models.StatusPublished,
		CreatorID:       1,
	}
	if err := gdb.Create(&a).Error; err != nil {
		t.Fatalf("create activity %s: %v", title, err)
	}
	return a
}

func birthYearsAgo(years int) *time.Time {
	d := DateOnly(time.Now().UTC()).AddDate(-years, 0, -30)
	return &d
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %v, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected error kind %v, got %v (%v)", kind, got, err)
	}
}
