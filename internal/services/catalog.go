package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edusys/activityhub/internal/auth"
	"github.com/edusys/activityhub/internal/models"
)

// ActivityDraft is the admin's create payload. Dates are "2006-01-02",
// times "15:04".
type ActivityDraft struct {
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description" validate:"required"`
	Type            string `json:"type" validate:"required,oneof=free paid"`
	Price           int64  `json:"price" validate:"gte=0"`
	ImageURL        string `json:"image_url"`
	Location        string `json:"location" validate:"required"`
	Skills          string `json:"skills"`
	Requirements    string `json:"requirements"`
	StartDate       string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string `json:"end_date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" validate:"required"`
	EndTime         string `json:"end_time" validate:"required"`
	MinAge          int    `json:"min_age" validate:"min=3,max=18"`
	MaxAge          int    `json:"max_age" validate:"min=3,max=18"`
	MaxParticipants int    `json:"max_participants" validate:"min=1,max=1000"`
	TeacherID       *uint  `json:"teacher_id"`
}

// CreateActivity validates the draft, normalizes its schedule, rejects any
// collision with an existing Published activity, and publishes it with zeroed
// counters. The overlap scan and the insert share one transaction so a
// concurrent create cannot slip a colliding row in between.
func (s *Service) CreateActivity(ctx context.Context, pr auth.Principal, draft ActivityDraft) (*models.Activity, error) {
	if !pr.IsAdmin() {
		return nil, forbiddenf("only administrators can create activities")
	}
	if err := s.validate.Struct(draft); err != nil {
		return nil, validationf("%s", firstValidationMessage(err))
	}

	startDate, _ := parseDate(draft.StartDate)
	endDate, _ := parseDate(draft.EndDate)
	startMin, err := ParseTimeOfDay(draft.StartTime)
	if err != nil {
		return nil, validationf("start_time must be HH:MM")
	}
	endMin, err := ParseTimeOfDay(draft.EndTime)
	if err != nil {
		return nil, validationf("end_time must be HH:MM")
	}

	switch {
	case endDate.Before(startDate):
		return nil, validationf("end_date must not be before start_date")
	case endMin <= startMin:
		return nil, validationf("end_time must be after start_time")
	case draft.MaxAge < draft.MinAge:
		return nil, validationf("max_age must not be below min_age")
	case draft.Type == models.ActivityPaid && draft.Price <= 0:
		return nil, validationf("paid activities need a positive price")
	case draft.Type == models.ActivityFree && draft.Price != 0:
		return nil, validationf("free activities cannot carry a price")
	}

	activity := models.Activity{
		Title:           strings.TrimSpace(draft.Title),
		Description:     strings.TrimSpace(draft.Description),
		Type:            draft.Type,
		Price:           draft.Price,
		ImageURL:        draft.ImageURL,
		Location:        strings.TrimSpace(draft.Location),
		Skills:          draft.Skills,
		Requirements:    draft.Requirements,
		StartDate:       startDate,
		EndDate:         endDate,
		StartTime:       startMin,
		EndTime:         endMin,
		MinAge:          draft.MinAge,
		MaxAge:          draft.MaxAge,
		MaxParticipants: draft.MaxParticipants,
		IsActive:        true,
		Status:          models.StatusPublished,
		CreatorID:       pr.UserID,
		TeacherID:       draft.TeacherID,
	}

	err = s.withBusyRetry(func(tx *gorm.DB) error {
		if draft.TeacherID != nil {
			var teacher models.StaffTeacher
			if err := tx.First(&teacher, *draft.TeacherID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFoundf("teacher not found")
				}
				return internal(err)
			}
			if !teacher.IsActive {
				return validationf("the selected teacher is not active")
			}
		}

		var published []models.Activity
		if err := tx.Where("status = ?", models.StatusPublished).Find(&published).Error; err != nil {
			return internal(err)
		}
		for i := range published {
			if activitiesOverlap(&activity, &published[i]) {
				return conflictf("schedule collides with %q (%s %s-%s)",
					published[i].Title,
					published[i].StartDate.Format("2006-01-02"),
					FormatTimeOfDay(published[i].StartTime),
					FormatTimeOfDay(published[i].EndTime))
			}
		}
		if err := tx.Create(&activity).Error; err != nil {
			return internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("activity created",
		zap.Uint("activity_id", activity.ID),
		zap.String("title", activity.Title),
		zap.Uint("creator_id", pr.UserID))
	return &activity, nil
}

// ListQuery selects a catalog page.
type ListQuery struct {
	Filter string // all | free | paid | available | registered
	Search string
	Sort   string // newest | oldest | price_low | price_high | start_date | popular
	Page   int
}

type ListResult struct {
	Activities []models.Activity `json:"activities"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	TotalCount int64             `json:"total_count"`
}

// ListActivities returns one page of Published activities. pr may be nil for
// anonymous callers; the "registered" filter then yields an empty page rather
// than an error.
func (s *Service) ListActivities(ctx context.Context, pr *auth.Principal, q ListQuery) (*ListResult, error) {
	if q.Page < 1 {
		q.Page = 1
	}

	if q.Filter == "registered" && pr == nil {
		return &ListResult{Activities: []models.Activity{}, Page: q.Page}, nil
	}

	query := s.db.WithContext(ctx).Model(&models.Activity{}).
		Where("status IN ?", []string{models.StatusPublished, models.StatusFull})

	if search := strings.TrimSpace(q.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR description LIKE ? OR skills LIKE ?", like, like, like)
	}

	switch q.Filter {
	case "free":
		query = query.Where("type = ?", models.ActivityFree)
	case "paid":
		query = query.Where("type = ?", models.ActivityPaid)
	case "available":
		query = query.Where("current_participants < max_participants")
	case "registered":
		query = query.Where(
			"id IN (SELECT activity_id FROM registrations WHERE (student_id = ? OR parent_id = ?) AND status = ?)",
			pr.UserID, pr.UserID, models.RegApproved)
	}

	switch q.Sort {
	case "oldest":
		query = query.Order("created_at ASC")
	case "price_low":
		query = query.Order("price ASC")
	case "price_high":
		query = query.Order("price DESC")
	case "start_date":
		query = query.Order("start_date ASC")
	case "popular":
		query = query.Order("likes_count DESC")
	default:
		query = query.Order("created_at DESC")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, internal(err)
	}

	var items []models.Activity
	if err := query.Offset((q.Page - 1) * s.pageSize).Limit(s.pageSize).Find(&items).Error; err != nil {
		return nil, internal(err)
	}

	totalPages := int((total + int64(s.pageSize) - 1) / int64(s.pageSize))
	return &ListResult{Activities: items, Page: q.Page, TotalPages: totalPages, TotalCount: total}, nil
}

// CommentView is one comment with its author's display name.
type CommentView struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	UserID    uint      `json:"user_id"`
	UserName  string    `json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityDetails is the detail page payload: the activity, its comments,
// and the caller-specific flags the detail view renders.
type ActivityDetails struct {
	Activity        models.Activity `json:"activity"`
	Comments        []CommentView   `json:"comments"`
	IsRegistered    bool            `json:"is_registered"`
	HasLiked        bool            `json:"has_liked"`
	CanRegisterFree bool            `json:"can_register_free"`
}

// GetActivity loads one activity with its comment thread. pr may be nil.
func (s *Service) GetActivity(ctx context.Context, pr *auth.Principal, id uint) (*ActivityDetails, error) {
	var activity models.Activity
	if err := s.db.WithContext(ctx).First(&activity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("activity not found")
		}
		return nil, internal(err)
	}

	var comments []CommentView
	err := s.db.WithContext(ctx).
		Table("interactions AS i").
		Select("i.id, i.content, i.user_id, COALESCE(NULLIF(u.full_name, ''), u.username) AS user_name, i.created_at").
		Joins("JOIN users u ON u.id = i.user_id").
		Where("i.activity_id = ? AND i.type = ?", id, models.InteractionComment).
		Order("i.created_at ASC").
		Scan(&comments).Error
	if err != nil {
		return nil, internal(err)
	}

	details := ActivityDetails{Activity: activity, Comments: comments}
	if pr != nil {
		var n int64
		s.db.WithContext(ctx).Model(&models.Registration{}).
			Where("activity_id = ? AND (student_id = ? OR parent_id = ?) AND status <> ?",
				id, pr.UserID, pr.UserID, models.RegCancelled).
			Count(&n)
		details.IsRegistered = n > 0

		s.db.WithContext(ctx).Model(&models.Interaction{}).
			Where("activity_id = ? AND user_id = ? AND type = ?", id, pr.UserID, models.InteractionLike).
			Count(&n)
		details.HasLiked = n > 0

		details.CanRegisterFree = !details.IsRegistered &&
			activity.IsActive && !activity.IsFull &&
			pr.IsStudent() && activity.Type == models.ActivityFree
	}
	return &details, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(t), nil
}

func firstValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return strings.ToLower(f.Field()) + " failed " + f.Tag() + " validation"
	}
	return "invalid input"
}
