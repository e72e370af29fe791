package db

import (
	"path/filepath"
	"testing"

	"github.com/edusys/activityhub/internal/models"
)

func TestOpenMigratesAndIndexes(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// All tables present: a write against each must succeed.
	if err := conn.Create(&models.User{Username: "u1", PasswordHash: "x", Role: models.RoleStudent}).Error; err != nil {
		t.Errorf("users table: %v", err)
	}
	if err := conn.Create(&models.StaffTeacher{FullName: "T"}).Error; err != nil {
		t.Errorf("staff_teachers table: %v", err)
	}

	var mode string
	if err := conn.Raw("PRAGMA journal_mode").Scan(&mode).Error; err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	for _, idx := range []string{
		"idx_reg_activity_status",
		"idx_reg_student_status",
		"idx_inter_act_user_type",
		"idx_cart_user_unpaid",
	} {
		var n int64
		if err := conn.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?", idx).
			Scan(&n).Error; err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("index %s missing", idx)
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	if _, err := Open(path); err != nil {
		t.Fatal(err)
	}
	// Reopening an already-migrated database must not fail.
	if _, err := Open(path); err != nil {
		t.Fatalf("second Open: %v", err)
	}
}

func TestUniqueRegistrationCode(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	a := models.Activity{Title: "A", Type: models.ActivityFree, Status: models.StatusPublished, MaxParticipants: 5}
	if err := conn.Create(&a).Error; err != nil {
		t.Fatal(err)
	}

	first := models.Registration{ActivityID: a.ID, StudentID: 1, Status: models.RegApproved, PaymentStatus: models.PayNA, Code: "REG-000001"}
	if err := conn.Create(&first).Error; err != nil {
		t.Fatal(err)
	}
	dup := models.Registration{ActivityID: a.ID, StudentID: 2, Status: models.RegApproved, PaymentStatus: models.PayNA, Code: "REG-000001"}
	if err := conn.Create(&dup).Error; err == nil {
		t.Error("duplicate registration code accepted")
	}
}
