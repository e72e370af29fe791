package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edusys/activityhub/internal/auth"
	"github.com/edusys/activityhub/internal/models"
)

// ApproveRegistration moves a Pending registration to Approved, taking a seat.
// The tentative increment and the status change commit together; when the
// activity is out of seats nothing changes and the registration stays Pending.
func (s *Service) ApproveRegistration(ctx context.Context, pr auth.Principal, regID uint) error {
	if !pr.IsAdmin() {
		return forbiddenf("only administrators can approve registrations")
	}
	return s.withBusyRetry(func(tx *gorm.DB) error {
		var reg models.Registration
		if err := tx.First(&reg, regID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("registration not found")
			}
			return internal(err)
		}
		if reg.Status != models.RegPending {
			return conflictf("this registration was already processed")
		}

		var activity models.Activity
		if err := tx.First(&activity, reg.ActivityID).Error; err != nil {
			return internal(err)
		}
		if err := bumpParticipants(tx, &activity); err != nil {
			return err // Capacity error aborts the tx, increment rolls back
		}

		reg.Status = models.RegApproved
		if err := tx.Save(&reg).Error; err != nil {
			return internal(err)
		}

		s.notifyTx(tx, pr.UserID, reg.StudentID, reg.ParentID, reg.ActivityID,
			"Registration approved",
			"Your registration "+reg.Code+" has been approved.")

		s.log.Info("registration approved",
			zap.Uint("registration_id", regID), zap.Uint("admin_id", pr.UserID))
		return nil
	})
}

// DeclineRegistration moves a Pending registration to Rejected. Seats are
// untouched because a Pending registration never held one.
func (s *Service) DeclineRegistration(ctx context.Context, pr auth.Principal, regID uint) error {
	if !pr.IsAdmin() {
		return forbiddenf("only administrators can decline registrations")
	}
	return s.withBusyRetry(func(tx *gorm.DB) error {
		var reg models.Registration
		if err := tx.First(&reg, regID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("registration not found")
			}
			return internal(err)
		}
		if reg.Status != models.RegPending {
			return conflictf("this registration was already processed")
		}

		reg.Status = models.RegRejected
		reg.Notes = "declined by administrator"
		if err := tx.Save(&reg).Error; err != nil {
			return internal(err)
		}

		s.notifyTx(tx, pr.UserID, reg.StudentID, reg.ParentID, reg.ActivityID,
			"Registration declined",
			"Your registration "+reg.Code+" was declined.")

		s.log.Info("registration declined",
			zap.Uint("registration_id", regID), zap.Uint("admin_id", pr.UserID))
		return nil
	})
}

// AllRegistrations lists every registration for the moderation screen.
func (s *Service) AllRegistrations(ctx context.Context, pr auth.Principal) ([]RegistrationView, error) {
	if !pr.IsAdmin() {
		return nil, forbiddenf("administrators only")
	}
	var regs []models.Registration
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&regs).Error; err != nil {
		return nil, internal(err)
	}
	return s.attachActivities(ctx, regs)
}

// Checkin marks an Approved registration's attendance Present by ticket code.
// Check-in opens on the activity's start date.
func (s *Service) Checkin(ctx context.Context, pr auth.Principal, code string) (*models.Registration, error) {
	if !pr.IsAdmin() {
		return nil, forbiddenf("administrators only")
	}
	var reg models.Registration
	err := s.withBusyRetry(func(tx *gorm.DB) error {
		if err := tx.Where("code = ?", code).First(&reg).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("no registration with code %s", code)
			}
			return internal(err)
		}
		if reg.Status != models.RegApproved {
			return conflictf("registration %s is %s, not approved", code, strings.ToLower(reg.Status))
		}
		if reg.AttendanceStatus == models.AttendancePresent {
			return conflictf("registration %s is already checked in", code)
		}

		var activity models.Activity
		if err := tx.First(&activity, reg.ActivityID).Error; err != nil {
			return internal(err)
		}
		if DateOnly(s.now()).Before(activity.StartDate) {
			return conflictf("the activity has not started yet")
		}

		reg.AttendanceStatus = models.AttendancePresent
		if err := tx.Save(&reg).Error; err != nil {
			return internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("registration checked in", zap.String("code", code))
	return &reg, nil
}

// DashboardStats is the admin landing-page summary.
type DashboardStats struct {
	TotalActivities      int64 `json:"total_activities"`
	PublishedActivities  int64 `json:"published_activities"`
	TotalUsers           int64 `json:"total_users"`
	TotalRegistrations   int64 `json:"total_registrations"`
	PendingRegistrations int64 `json:"pending_registrations"`
	TotalTeachers        int64 `json:"total_teachers"`
	TotalRevenue         int64 `json:"total_revenue"`
}

func (s *Service) Dashboard(ctx context.Context, pr auth.Principal) (*DashboardStats, error) {
	if !pr.IsAdmin() {
		return nil, forbiddenf("administrators only")
	}
	db := s.db.WithContext(ctx)

	var stats DashboardStats
	db.Model(&models.Activity{}).Count(&stats.TotalActivities)
	db.Model(&models.Activity{}).
		Where("status IN ?", []string{models.StatusPublished, models.StatusFull}).
		Count(&stats.PublishedActivities)
	db.Model(&models.User{}).Count(&stats.TotalUsers)
	db.Model(&models.Registration{}).Count(&stats.TotalRegistrations)
	db.Model(&models.Registration{}).Where("status = ?", models.RegPending).
		Count(&stats.PendingRegistrations)
	db.Model(&models.StaffTeacher{}).Count(&stats.TotalTeachers)

	var revenue struct{ Total int64 }
	db.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", "Completed").
		Scan(&revenue)
	stats.TotalRevenue = revenue.Total
	return &stats, nil
}

// ListUsers returns every account, admin-only.
func (s *Service) ListUsers(ctx context.Context, pr auth.Principal) ([]models.User, error) {
	if !pr.IsAdmin() {
		return nil, forbiddenf("administrators only")
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, internal(err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

// TeacherDraft is the admin's add-teacher payload.
type TeacherDraft struct {
	FullName       string `json:"full_name" validate:"required,max=255"`
	Email          string `json:"email" validate:"omitempty,email"`
	Phone          string `json:"phone" validate:"max=20"`
	Specialization string `json:"specialization" validate:"max=255"`
	Experience     int    `json:"experience" validate:"min=0,max=50"`
	Bio            string `json:"bio" validate:"max=2000"`
}

func (s *Service) ListTeachers(ctx context.Context, pr auth.Principal) ([]models.StaffTeacher, error) {
	if !pr.IsAdmin() {
		return nil, forbiddenf("administrators only")
	}
	var teachers []models.StaffTeacher
	if err := s.db.WithContext(ctx).Order("full_name ASC").Find(&teachers).Error; err != nil {
		return nil, internal(err)
	}
	return teachers, nil
}

func (s *Service) AddTeacher(ctx context.Context, pr auth.Principal, draft TeacherDraft) (*models.StaffTeacher, error) {
	if !pr.IsAdmin() {
		return nil, forbiddenf("administrators only")
	}
	if err := s.validate.Struct(draft); err != nil {
		return nil, validationf("%s", firstValidationMessage(err))
	}
	teacher := models.StaffTeacher{
		FullName:       strings.TrimSpace(draft.FullName),
		Email:          strings.TrimSpace(draft.Email),
		Phone:          strings.TrimSpace(draft.Phone),
		Specialization: draft.Specialization,
		Experience:     draft.Experience,
		Bio:            draft.Bio,
		IsActive:       true,
	}
	if err := s.db.WithContext(ctx).Create(&teacher).Error; err != nil {
		return nil, internal(err)
	}
	s.log.Info("teacher added", zap.Uint("teacher_id", teacher.ID), zap.String("name", teacher.FullName))
	return &teacher, nil
}

func (s *Service) DeleteTeacher(ctx context.Context, pr auth.Principal, id uint) error {
	if !pr.IsAdmin() {
		return forbiddenf("administrators only")
	}
	res := s.db.WithContext(ctx).Delete(&models.StaffTeacher{}, id)
	if res.Error != nil {
		return internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundf("teacher not found")
	}
	s.log.Info("teacher deleted", zap.Uint("teacher_id", id))
	return nil
}
