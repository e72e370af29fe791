// Package services holds the enrollment rule engine: activity catalog and
// scheduling-overlap checks, the registration state machine, cart/checkout,
// interaction counters, and admin moderation. Handlers stay thin; every rule
// lives here and runs against an injected *gorm.DB.
package services

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	validate *validator.Validate
	sanitize *bluemonday.Policy
	pageSize int

	now func() time.Time // swapped out by tests
}

func New(db *gorm.DB, log *zap.Logger, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = 9
	}
	return &Service{
		db:       db,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		sanitize: bluemonday.StrictPolicy(),
		pageSize: pageSize,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

const busyRetries = 3

// withBusyRetry runs fn in a transaction, retrying only when sqlite reports
// the database busy/locked. Business errors pass through untouched.
func (s *Service) withBusyRetry(fn func(tx *gorm.DB) error) error {
	var err error
	for i := 0; i < busyRetries; i++ {
		err = s.db.Transaction(fn)
		if err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(time.Duration(i+1) * 25 * time.Millisecond)
	}
	return err
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database is busy")
}
