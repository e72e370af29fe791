package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edusys/activityhub/internal/auth"
	"github.com/edusys/activityhub/internal/models"
)

// notifyTx drops an in-app message to the student and, when linked, the
// parent. Notification failures must not sink the surrounding business write,
// so errors are swallowed after logging.
func (s *Service) notifyTx(tx *gorm.DB, senderID, studentID uint, parentID *uint, activityID uint, subject, content string) {
	aid := activityID
	receivers := []uint{studentID}
	if parentID != nil && *parentID != studentID {
		receivers = append(receivers, *parentID)
	}
	for _, rid := range receivers {
		if rid == senderID {
			continue
		}
		msg := models.Message{
			SenderID:   senderID,
			ReceiverID: rid,
			ActivityID: &aid,
			Subject:    subject,
			Content:    content,
		}
		if err := tx.Create(&msg).Error; err != nil {
			s.log.Error("notification write failed", zap.Error(err))
		}
	}
}

// Messages lists the caller's notifications, unread first, newest within.
func (s *Service) Messages(ctx context.Context, pr auth.Principal) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("receiver_id = ?", pr.UserID).
		Order("is_read ASC, created_at DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, internal(err)
	}
	return msgs, nil
}

// MarkMessageRead flags one of the caller's messages as read.
func (s *Service) MarkMessageRead(ctx context.Context, pr auth.Principal, msgID uint) error {
	return s.withBusyRetry(func(tx *gorm.DB) error {
		var msg models.Message
		if err := tx.First(&msg, msgID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("message not found")
			}
			return internal(err)
		}
		if msg.ReceiverID != pr.UserID {
			return forbiddenf("this message is not yours")
		}
		if msg.IsRead {
			return nil
		}
		now := s.now()
		msg.IsRead = true
		msg.ReadAt = &now
		if err := tx.Save(&msg).Error; err != nil {
			return internal(err)
		}
		return nil
	})
}
