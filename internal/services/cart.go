package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edusys/activityhub/internal/auth"
	"github.com/edusys/activityhub/internal/models"
)

// CartView is one unpaid cart entry with its activity.
type CartView struct {
	Item     models.CartItem `json:"item"`
	Activity models.Activity `json:"activity"`
}

// Cart lists the caller's unpaid items, newest first.
func (s *Service) Cart(ctx context.Context, pr auth.Principal) ([]CartView, error) {
	var items []models.CartItem
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_paid = ?", pr.UserID, false).
		Order("added_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, internal(err)
	}

	views := make([]CartView, 0, len(items))
	for _, item := range items {
		var activity models.Activity
		if err := s.db.WithContext(ctx).First(&activity, item.ActivityID).Error; err != nil {
			continue // activity deleted underneath the cart row
		}
		views = append(views, CartView{Item: item, Activity: activity})
	}
	return views, nil
}

// AddToCart stages a paid activity for checkout. A student with a linked
// parent mirrors the entry into the parent's cart so the parent can pay.
func (s *Service) AddToCart(ctx context.Context, pr auth.Principal, activityID uint) error {
	return s.withBusyRetry(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, pr.UserID).Error; err != nil {
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
		case activity.Type == models.ActivityFree:
			return validationf("free activities are registered directly, not through the cart")
		case activity.IsFull || !activity.IsActive:
			return conflictf("this activity is full or no longer open")
		}

		var n int64
		if err := tx.Model(&models.CartItem{}).
			Where("user_id = ? AND activity_id = ? AND is_paid = ?", pr.UserID, activityID, false).
			Count(&n).Error; err != nil {
			return internal(err)
		}
		if n > 0 {
			return conflictf("this activity is already in your cart")
		}

		if err := tx.Model(&models.Registration{}).
			Where("activity_id = ? AND student_id = ? AND status <> ?",
				activityID, pr.UserID, models.RegCancelled).
			Count(&n).Error; err != nil {
			return internal(err)
		}
		if n > 0 {
			return conflictf("you are already registered for this activity")
		}

		now := s.now()
		if err := tx.Create(&models.CartItem{
			UserID: pr.UserID, ActivityID: activityID, AddedAt: now,
		}).Error; err != nil {
			return internal(err)
		}

		// Mirror into the parent's cart, skipping when one is already there.
		if pr.IsStudent() && user.ParentID != nil {
			if err := tx.Model(&models.CartItem{}).
				Where("user_id = ? AND activity_id = ? AND is_paid = ?", *user.ParentID, activityID, false).
				Count(&n).Error; err != nil {
				return internal(err)
			}
			if n == 0 {
				if err := tx.Create(&models.CartItem{
					UserID: *user.ParentID, ActivityID: activityID, AddedAt: now,
				}).Error; err != nil {
					return internal(err)
				}
				s.log.Info("cart item mirrored to parent",
					zap.Uint("activity_id", activityID),
					zap.Uint("student_id", pr.UserID),
					zap.Uintp("parent_id", user.ParentID))
			}
		}
		return nil
	})
}

// RemoveFromCart deletes one of the caller's own cart rows.
func (s *Service) RemoveFromCart(ctx context.Context, pr auth.Principal, itemID uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, pr.UserID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundf("cart item not found")
	}
	return nil
}

// CheckoutResult reports what the checkout settled.
type CheckoutResult struct {
	Payment      *models.Payment      `json:"payment,omitempty"`
	Registration *models.Registration `json:"registration,omitempty"`
	AlreadyPaid  bool                 `json:"already_paid"`
}

// Checkout settles one cart item: it records the Payment, creates or approves
// the Registration, takes the seat, and purges both sides of a mirrored cart
// entry — all in a single transaction. Only parents and admins can pay.
func (s *Service) Checkout(ctx context.Context, pr auth.Principal, itemID uint) (*CheckoutResult, error) {
	if pr.IsStudent() {
		return nil, forbiddenf("only a parent or administrator can check out")
	}

	var result CheckoutResult
	err := s.withBusyRetry(func(tx *gorm.DB) error {
		var item models.CartItem
		if err := tx.Where("id = ? AND user_id = ? AND is_paid = ?", itemID, pr.UserID, false).
			First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("cart item not found")
			}
			return internal(err)
		}

		var activity models.Activity
		if err := tx.First(&activity, item.ActivityID).Error; err != nil {
			return internal(err)
		}
		if activity.Type == models.ActivityFree {
			return validationf("free activities are not paid for")
		}

		// The cart row the payer sees may be the mirror of a student's entry;
		// the registration always belongs to the student who wants the seat.
		studentID, parentID := resolveCartStudent(tx, pr, item)

		var existing models.Registration
		err := tx.Where("activity_id = ? AND student_id = ? AND status <> ?",
			item.ActivityID, studentID, models.RegCancelled).
			First(&existing).Error
		switch {
		case err == nil && existing.PaymentStatus == models.PayPaid:
			// Already settled elsewhere: just tidy the cart, idempotently.
			if err := purgeCartRows(tx, item.ActivityID, studentID, parentID); err != nil {
				return err
			}
			result = CheckoutResult{AlreadyPaid: true, Registration: &existing}
			return nil
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return internal(err)
		}

		payment := models.Payment{
			UserID:        pr.UserID,
			Amount:        activity.Price,
			Method:        "Online Transfer",
			Status:        "Completed",
			TransactionID: uuid.NewString(),
			Notes:         "payment for activity: " + activity.Title,
			PaymentDate:   s.now(),
		}

		var reg models.Registration
		if existing.ID != 0 {
			existing.Status = models.RegApproved
			existing.PaymentStatus = models.PayPaid
			existing.AmountPaid = payment.Amount
			if err := tx.Save(&existing).Error; err != nil {
				return internal(err)
			}
			if err := bumpParticipants(tx, &activity); err != nil {
				return err
			}
			reg = existing
		} else {
			code, err := newRegistrationCode(tx)
			if err != nil {
				return internal(err)
			}
			reg = models.Registration{
				ActivityID:       item.ActivityID,
				StudentID:        studentID,
				ParentID:         parentID,
				Status:           models.RegApproved,
				PaymentStatus:    models.PayPaid,
				AmountPaid:       payment.Amount,
				AttendanceStatus: models.AttendanceNotStarted,
				Code:             code,
			}
			if err := tx.Create(&reg).Error; err != nil {
				return internal(err)
			}
			if err := bumpParticipants(tx, &activity); err != nil {
				return err
			}
		}

		payment.RegistrationID = reg.ID
		if err := tx.Create(&payment).Error; err != nil {
			return internal(err)
		}

		if err := purgeCartRows(tx, item.ActivityID, studentID, parentID); err != nil {
			return err
		}

		s.notifyTx(tx, pr.UserID, studentID, parentID, item.ActivityID,
			"Payment received",
			"Payment for "+activity.Title+" was completed; registration "+reg.Code+" is approved.")

		result = CheckoutResult{Payment: &payment, Registration: &reg}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyPaid {
		s.log.Info("checkout found settled registration, cart purged",
			zap.Uint("cart_item_id", itemID), zap.Uint("payer_id", pr.UserID))
	} else {
		s.log.Info("checkout completed",
			zap.Uint("cart_item_id", itemID),
			zap.Uint("payer_id", pr.UserID),
			zap.String("transaction_id", result.Payment.TransactionID))
	}
	return &result, nil
}

// resolveCartStudent determines which student the cart row enrolls and which
// parent id the registration should carry. A parent paying a mirrored row
// enrolls their linked student; an admin paying their own row enrolls the row
// owner directly.
func resolveCartStudent(tx *gorm.DB, pr auth.Principal, item models.CartItem) (studentID uint, parentID *uint) {
	studentID = item.UserID
	if pr.IsParent() {
		pid := pr.UserID
		parentID = &pid
		var student models.User
		err := tx.Where("parent_id = ? AND role = ?", pr.UserID, models.RoleStudent).
			Joins("JOIN cart_items ci ON ci.user_id = users.id AND ci.activity_id = ? AND ci.is_paid = ?",
				item.ActivityID, false).
			First(&student).Error
		if err == nil {
			studentID = student.ID
		}
	}
	return studentID, parentID
}

// purgeCartRows clears every unpaid cart row for the activity held by the
// student or their parent, so a mirrored pair disappears in one sweep.
func purgeCartRows(tx *gorm.DB, activityID, studentID uint, parentID *uint) error {
	owners := []uint{studentID}
	if parentID != nil {
		owners = append(owners, *parentID)
	}
	var student models.User
	if err := tx.First(&student, studentID).Error; err == nil && student.ParentID != nil {
		owners = append(owners, *student.ParentID)
	}
	if err := tx.Where("activity_id = ? AND user_id IN ? AND is_paid = ?", activityID, owners, false).
		Delete(&models.CartItem{}).Error; err != nil {
		return internal(err)
	}
	return nil
}
