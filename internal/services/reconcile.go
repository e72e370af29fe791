package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edusys/activityhub/internal/auth"
	"github.com/edusys/activityhub/internal/models"
)

// ReconcileReport compares the denormalized counters with a recount from the
// ledger tables.
type ReconcileReport struct {
	ActivityID uint `json:"activity_id"`
	Drifted    bool `json:"drifted"`

	StoredParticipants int `json:"stored_participants"`
	ActualParticipants int `json:"actual_participants"`
	StoredLikes        int `json:"stored_likes"`
	ActualLikes        int `json:"actual_likes"`
	StoredComments     int `json:"stored_comments"`
	ActualComments     int `json:"actual_comments"`
}

// ReconcileActivityCounters recomputes CurrentParticipants, LikesCount,
// CommentsCount (and the IsFull/Status markers) from the registration and
// interaction rows, repairing any drift in place. It reports what it found so
// drift shows up in monitoring and tests.
func (s *Service) ReconcileActivityCounters(ctx context.Context, pr auth.Principal, activityID uint) (*ReconcileReport, error) {
	if !pr.IsAdmin() {
		return nil, forbiddenf("administrators only")
	}

	var report ReconcileReport
	err := s.withBusyRetry(func(tx *gorm.DB) error {
		var activity models.Activity
		if err := tx.First(&activity, activityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("activity not found")
			}
			return internal(err)
		}

		var participants, likes, comments int64
		if err := tx.Model(&models.Registration{}).
			Where("activity_id = ? AND status = ?", activityID, models.RegApproved).
			Count(&participants).Error; err != nil {
			return internal(err)
		}
		if err := tx.Model(&models.Interaction{}).
			Where("activity_id = ? AND type = ?", activityID, models.InteractionLike).
			Count(&likes).Error; err != nil {
			return internal(err)
		}
		if err := tx.Model(&models.Interaction{}).
			Where("activity_id = ? AND type = ?", activityID, models.InteractionComment).
			Count(&comments).Error; err != nil {
			return internal(err)
		}

		report = ReconcileReport{
			ActivityID:         activityID,
			StoredParticipants: activity.CurrentParticipants,
			ActualParticipants: int(participants),
			StoredLikes:        activity.LikesCount,
			ActualLikes:        int(likes),
			StoredComments:     activity.CommentsCount,
			ActualComments:     int(comments),
		}
		report.Drifted = report.StoredParticipants != report.ActualParticipants ||
			report.StoredLikes != report.ActualLikes ||
			report.StoredComments != report.ActualComments

		if !report.Drifted {
			return nil
		}

		activity.CurrentParticipants = int(participants)
		activity.LikesCount = int(likes)
		activity.CommentsCount = int(comments)
		if activity.CurrentParticipants >= activity.MaxParticipants {
			activity.IsFull = true
			if activity.Status == models.StatusPublished {
				activity.Status = models.StatusFull
			}
		} else {
			activity.IsFull = false
			if activity.Status == models.StatusFull {
				activity.Status = models.StatusPublished
			}
		}
		if err := tx.Save(&activity).Error; err != nil {
			return internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if report.Drifted {
		s.log.Warn("counter drift repaired",
			zap.Uint("activity_id", activityID),
			zap.Int("stored_participants", report.StoredParticipants),
			zap.Int("actual_participants", report.ActualParticipants))
	}
	return &report, nil
}
