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

const maxCommentLen = 1000

// LikeResult is the AJAX payload for the like button.
type LikeResult struct {
	HasLiked   bool `json:"has_liked"`
	LikesCount int  `json:"likes_count"`
}

// ToggleLike flips the caller's like on an activity. Two calls in a row are a
// net no-op: the like row and the counter return to where they started.
func (s *Service) ToggleLike(ctx context.Context, pr auth.Principal, activityID uint) (*LikeResult, error) {
	var result LikeResult
	err := s.withBusyRetry(func(tx *gorm.DB) error {
		var activity models.Activity
		if err := tx.First(&activity, activityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("activity not found")
			}
			return internal(err)
		}
		if activity.Status != models.StatusPublished && activity.Status != models.StatusFull {
			return conflictf("this activity is not open for interactions")
		}

		var like models.Interaction
		err := tx.Where("activity_id = ? AND user_id = ? AND type = ?",
			activityID, pr.UserID, models.InteractionLike).
			First(&like).Error
		switch {
		case err == nil:
			if err := tx.Delete(&like).Error; err != nil {
				return internal(err)
			}
			if activity.LikesCount > 0 {
				activity.LikesCount--
			}
			result.HasLiked = false
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.Interaction{
				ActivityID: activityID,
				UserID:     pr.UserID,
				Type:       models.InteractionLike,
			}).Error; err != nil {
				return internal(err)
			}
			activity.LikesCount++
			result.HasLiked = true
		default:
			return internal(err)
		}

		if err := tx.Save(&activity).Error; err != nil {
			return internal(err)
		}
		result.LikesCount = activity.LikesCount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CommentResult is the created comment plus the fresh counter.
type CommentResult struct {
	Comment       CommentView `json:"comment"`
	CommentsCount int         `json:"comments_count"`
}

// AddComment attaches a sanitized comment to a published activity.
func (s *Service) AddComment(ctx context.Context, pr auth.Principal, activityID uint, content string) (*CommentResult, error) {
	content = strings.TrimSpace(s.sanitize.Sanitize(content))
	if content == "" {
		return nil, validationf("comment content must not be empty")
	}
	if len(content) > maxCommentLen {
		return nil, validationf("comments cannot exceed %d characters", maxCommentLen)
	}

	var result CommentResult
	err := s.withBusyRetry(func(tx *gorm.DB) error {
		var activity models.Activity
		if err := tx.First(&activity, activityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("activity not found")
			}
			return internal(err)
		}
		if activity.Status != models.StatusPublished && activity.Status != models.StatusFull {
			return conflictf("this activity is not open for interactions")
		}

		comment := models.Interaction{
			ActivityID: activityID,
			UserID:     pr.UserID,
			Type:       models.InteractionComment,
			Content:    content,
		}
		if err := tx.Create(&comment).Error; err != nil {
			return internal(err)
		}

		activity.CommentsCount++
		if err := tx.Save(&activity).Error; err != nil {
			return internal(err)
		}

		var user models.User
		if err := tx.First(&user, pr.UserID).Error; err != nil {
			return internal(err)
		}
		name := user.FullName
		if name == "" {
			name = user.Username
		}
		result = CommentResult{
			Comment: CommentView{
				ID:        comment.ID,
				Content:   comment.Content,
				UserID:    pr.UserID,
				UserName:  name,
				CreatedAt: comment.CreatedAt,
			},
			CommentsCount: activity.CommentsCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("comment added",
		zap.Uint("activity_id", activityID), zap.Uint("user_id", pr.UserID))
	return &result, nil
}

// DeleteComment removes a comment. Only its author or an admin may, and the
// counter never drops below zero.
func (s *Service) DeleteComment(ctx context.Context, pr auth.Principal, commentID uint) (int, error) {
	var remaining int
	err := s.withBusyRetry(func(tx *gorm.DB) error {
		var comment models.Interaction
		err := tx.Where("id = ? AND type = ?", commentID, models.InteractionComment).
			First(&comment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("comment not found")
			}
			return internal(err)
		}
		if comment.UserID != pr.UserID && !pr.IsAdmin() {
			return forbiddenf("you cannot delete this comment")
		}

		var activity models.Activity
		if err := tx.First(&activity, comment.ActivityID).Error; err != nil {
			return internal(err)
		}

		if err := tx.Delete(&comment).Error; err != nil {
			return internal(err)
		}
		if activity.CommentsCount > 0 {
			activity.CommentsCount--
		}
		if err := tx.Save(&activity).Error; err != nil {
			return internal(err)
		}
		remaining = activity.CommentsCount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}
