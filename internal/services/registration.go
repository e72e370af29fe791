package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edusys/activityhub/internal/auth"
	"github.com/edusys/activityhub/internal/models"
)

// RegisterFree signs the calling student up for a free activity. The whole
// check-and-increment runs in one transaction: on a single-writer store two
// racing callers cannot both see a free seat.
func (s *Service) RegisterFree(ctx context.Context, pr auth.Principal, activityID uint) (*models.Registration, error) {
	if !pr.IsStudent() {
		return nil, forbiddenf("only students can register directly")
	}

	var reg models.Registration
	err := s.withBusyRetry(func(tx *gorm.DB) error {
		var student models.User
		if err := tx.First(&student, pr.UserID).Error; err != nil {
			return internal(err)
		}

		var activity models.Activity
		if err := tx.First(&activity, activityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("activity not found")
			}
			return internal(err)
		}

		switch {
		case activity.Type != models.ActivityFree:
			return validationf("this activity is not free; add it to your cart instead")
		case !activity.IsActive:
			return conflictf("registration for this activity is closed")
		case activity.IsFull:
			return capacityf("this activity is full")
		}

		var dup int64
		if err := tx.Model(&models.Registration{}).
			Where("activity_id = ? AND student_id = ? AND status <> ?",
				activityID, pr.UserID, models.RegCancelled).
			Count(&dup).Error; err != nil {
			return internal(err)
		}
		if dup > 0 {
			return conflictf("you are already registered for this activity")
		}

		if student.BirthDate != nil {
			age := AgeOn(*student.BirthDate, s.now())
			if age < activity.MinAge || age > activity.MaxAge {
				return validationf("your age does not meet the requirement (%d-%d years)",
					activity.MinAge, activity.MaxAge)
			}
		}

		// No double-booking: the new schedule must not collide with any of
		// the student's Approved activities.
		var approved []models.Activity
		if err := tx.
			Joins("JOIN registrations r ON r.activity_id = activities.id").
			Where("r.student_id = ? AND r.status = ?", pr.UserID, models.RegApproved).
			Find(&approved).Error; err != nil {
			return internal(err)
		}
		for i := range approved {
			if activitiesOverlap(&activity, &approved[i]) {
				return conflictf("schedule collides with your activity %q", approved[i].Title)
			}
		}

		code, err := newRegistrationCode(tx)
		if err != nil {
			return internal(err)
		}
		reg = models.Registration{
			ActivityID:       activityID,
			StudentID:        pr.UserID,
			ParentID:         student.ParentID,
			Status:           models.RegApproved,
			PaymentStatus:    models.PayNA,
			AttendanceStatus: models.AttendanceNotStarted,
			Notes:            "free activity registration",
			Code:             code,
		}
		if err := tx.Create(&reg).Error; err != nil {
			return internal(err)
		}
		return bumpParticipants(tx, &activity)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("free registration created",
		zap.Uint("registration_id", reg.ID),
		zap.Uint("activity_id", activityID),
		zap.Uint("student_id", pr.UserID))
	return &reg, nil
}

// CancelRegistration cancels the caller's registration while the activity has
// not started. Approved free registrations hand their seat back; paid ones
// keep their payment state untouched (refunds are out of scope and flagged).
func (s *Service) CancelRegistration(ctx context.Context, pr auth.Principal, regID uint) error {
	return s.withBusyRetry(func(tx *gorm.DB) error {
		var reg models.Registration
		if err := tx.First(&reg, regID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("registration not found")
			}
			return internal(err)
		}

		owner := reg.StudentID == pr.UserID || (reg.ParentID != nil && *reg.ParentID == pr.UserID)
		if !owner {
			return forbiddenf("you cannot cancel this registration")
		}
		if reg.Status == models.RegCancelled || reg.Status == models.RegRejected {
			return conflictf("this registration was already cancelled or rejected")
		}

		var activity models.Activity
		if err := tx.First(&activity, reg.ActivityID).Error; err != nil {
			return internal(err)
		}
		if !activity.StartDate.After(DateOnly(s.now())) {
			return conflictf("the activity has already started and can no longer be cancelled")
		}

		wasApprovedFree := reg.Status == models.RegApproved && activity.Type == models.ActivityFree

		reg.Status = models.RegCancelled
		reg.Notes = "cancelled by user"
		if err := tx.Save(&reg).Error; err != nil {
			return internal(err)
		}

		if wasApprovedFree {
			if err := releaseSeat(tx, &activity); err != nil {
				return err
			}
		} else if reg.PaymentStatus == models.PayPaid {
			// Known gap: no refund bookkeeping, counters stay as-is.
			s.log.Warn("paid registration cancelled without refund handling",
				zap.Uint("registration_id", reg.ID))
		}

		s.log.Info("registration cancelled",
			zap.Uint("registration_id", reg.ID), zap.Uint("user_id", pr.UserID))
		return nil
	})
}

// RegistrationView joins a registration with its activity for listings.
type RegistrationView struct {
	Registration models.Registration `json:"registration"`
	Activity     models.Activity     `json:"activity"`
}

// MyRegistrations lists registrations where the caller is the student or the
// linked parent, newest first.
func (s *Service) MyRegistrations(ctx context.Context, pr auth.Principal) ([]RegistrationView, error) {
	var regs []models.Registration
	err := s.db.WithContext(ctx).
		Where("student_id = ? OR parent_id = ?", pr.UserID, pr.UserID).
		Order("created_at DESC").
		Find(&regs).Error
	if err != nil {
		return nil, internal(err)
	}
	return s.attachActivities(ctx, regs)
}

func (s *Service) attachActivities(ctx context.Context, regs []models.Registration) ([]RegistrationView, error) {
	ids := make([]uint, 0, len(regs))
	for _, r := range regs {
		ids = append(ids, r.ActivityID)
	}
	byID := make(map[uint]models.Activity, len(ids))
	if len(ids) > 0 {
		var acts []models.Activity
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&acts).Error; err != nil {
			return nil, internal(err)
		}
		for _, a := range acts {
			byID[a.ID] = a
		}
	}
	views := make([]RegistrationView, 0, len(regs))
	for _, r := range regs {
		views = append(views, RegistrationView{Registration: r, Activity: byID[r.ActivityID]})
	}
	return views, nil
}

// TicketRegistration resolves a registration code for the QR ticket. Only
// the registered student, the linked parent, or an admin may fetch it.
func (s *Service) TicketRegistration(ctx context.Context, pr auth.Principal, code string) (*models.Registration, error) {
	var reg models.Registration
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&reg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("no registration with code %s", code)
		}
		return nil, internal(err)
	}
	owner := reg.StudentID == pr.UserID || (reg.ParentID != nil && *reg.ParentID == pr.UserID)
	if !owner && !pr.IsAdmin() {
		return nil, forbiddenf("this ticket is not yours")
	}
	return &reg, nil
}

// bumpParticipants increments the seat counter and flips the full markers when
// the last seat goes. Callers must hold the row inside a transaction.
func bumpParticipants(tx *gorm.DB, activity *models.Activity) error {
	if activity.CurrentParticipants >= activity.MaxParticipants {
		return capacityf("this activity is full")
	}
	activity.CurrentParticipants++
	if activity.CurrentParticipants >= activity.MaxParticipants {
		activity.IsFull = true
		activity.Status = models.StatusFull
	}
	if err := tx.Save(activity).Error; err != nil {
		return internal(err)
	}
	return nil
}

// releaseSeat decrements the counter (floored at zero) and clears the full
// markers.
func releaseSeat(tx *gorm.DB, activity *models.Activity) error {
	if activity.CurrentParticipants > 0 {
		activity.CurrentParticipants--
	}
	activity.IsFull = false
	if activity.Status == models.StatusFull {
		activity.Status = models.StatusPublished
	}
	if err := tx.Save(activity).Error; err != nil {
		return internal(err)
	}
	return nil
}

// newRegistrationCode draws REG-xxxxxx codes until one is unused.
func newRegistrationCode(tx *gorm.DB) (string, error) {
	for i := 0; i < 20; i++ {
		code := fmt.Sprintf("REG-%06d", rand.Intn(1000000))
		var n int64
		if err := tx.Model(&models.Registration{}).Where("code = ?", code).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique registration code")
}
