package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/edusys/activityhub/internal/auth"
	"github.com/edusys/activityhub/internal/models"
)

// SignUpInput is the public registration payload. Role is whitelisted; admin
// accounts are never self-service.
type SignUpInput struct {
	Username       string `json:"username" validate:"required,min=3,max=64,alphanum"`
	Email          string `json:"email" validate:"omitempty,email"`
	Password       string `json:"password" validate:"required,min=8,max=128"`
	FullName       string `json:"full_name" validate:"max=255"`
	Role           string `json:"role" validate:"required,oneof=student parent teacher"`
	BirthDate      string `json:"birth_date"` // 2006-01-02, optional
	Address        string `json:"address" validate:"max=500"`
	ParentUsername string `json:"parent_username"` // students only
}

// SignUp creates an account. A student naming a parent is linked to that
// account, rejected when the named user does not hold the parent role.
func (s *Service) SignUp(ctx context.Context, in SignUpInput, bcryptCost int) (*models.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationf("%s", firstValidationMessage(err))
	}

	email, ok := normEmail(in.Email)
	if !ok {
		return nil, validationf("invalid email address")
	}

	var birth *time.Time
	if strings.TrimSpace(in.BirthDate) != "" {
		d, err := parseDate(in.BirthDate)
		if err != nil {
			return nil, validationf("birth_date must be YYYY-MM-DD")
		}
		birth = &d
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, internal(err)
	}

	user := models.User{
		Username:     strings.ToLower(strings.TrimSpace(in.Username)),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(in.FullName),
		Role:         in.Role,
		BirthDate:    birth,
		Address:      strings.TrimSpace(in.Address),
	}

	err = s.withBusyRetry(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&n).Error; err != nil {
			return internal(err)
		}
		if n > 0 {
			return conflictf("username %q is already taken", user.Username)
		}

		if in.Role == models.RoleStudent && strings.TrimSpace(in.ParentUsername) != "" {
			needle := strings.ToLower(strings.TrimSpace(in.ParentUsername))
			var parent models.User
			err := tx.Where("username = ? OR email = ?", needle, needle).First(&parent).Error
			if err != nil || parent.Role != models.RoleParent {
				return validationf("parent account %q was not found or is not a parent", in.ParentUsername)
			}
			user.ParentID = &parent.ID
		}

		if err := tx.Create(&user).Error; err != nil {
			return internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account created",
		zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	user.PasswordHash = ""
	return &user, nil
}

// Authenticate checks username (or email) and password and returns the
// principal to put in the session. Failures are deliberately uniform.
func (s *Service) Authenticate(ctx context.Context, login, password string) (auth.Principal, error) {
	login = strings.ToLower(strings.TrimSpace(login))

	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, login).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auth.Principal{}, forbiddenf("invalid username or password")
		}
		return auth.Principal{}, internal(err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return auth.Principal{}, forbiddenf("invalid username or password")
	}

	s.log.Info("user signed in", zap.Uint("user_id", user.ID))
	return auth.Principal{UserID: user.ID, Role: user.Role}, nil
}

// GetUser loads one account without its password hash.
func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("user not found")
		}
		return nil, internal(err)
	}
	user.PasswordHash = ""
	return &user, nil
}

// normEmail lowercases and validates; empty is allowed.
func normEmail(s string) (string, bool) {
	e := strings.TrimSpace(strings.ToLower(s))
	if e == "" {
		return "", true
	}
	_, err := mail.ParseAddress(e)
	return e, err == nil
}
