// Package enrollment commits verified purchases: it records the payment
// ledger, creates at most one enrollment per user and course, and seeds one
// progress row per lesson.
package enrollment

import (
	"academy/models"
	courseModels "academy/models/course"
	"academy/services/intake"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCourseNotFound     = errors.New("course not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrLessonNotFound     = errors.New("lesson not found in course")
	// ErrStorage wraps database failures that survived the retry budget
	ErrStorage = errors.New("storage failure")
)

// IsFatal reports errors that redelivery cannot fix
func IsFatal(err error) bool {
	return errors.Is(err, ErrCourseNotFound) || errors.Is(err, ErrUserNotFound)
}

// Mailer sends notifications without blocking the caller
type Mailer interface {
	SendEnrollmentEmail(email, name, courseTitle string)
	SendCertificateEmail(email, name, courseTitle, certificateNumber string)
}

type Options struct {
	CommitRetryAttempts int
	SeedRetryAttempts   int
	Mailer              Mailer
}

type Service struct {
	db             *gorm.DB
	mailer         Mailer
	commitAttempts int
	seedAttempts   int
	retryInterval  time.Duration
	now            func() time.Time
}

func NewService(db *gorm.DB, opts Options) *Service {
	if opts.CommitRetryAttempts < 1 {
		opts.CommitRetryAttempts = 1
	}
	if opts.SeedRetryAttempts < 1 {
		opts.SeedRetryAttempts = 1
	}
	return &Service{
		db:             db,
		mailer:         opts.Mailer,
		commitAttempts: opts.CommitRetryAttempts,
		seedAttempts:   opts.SeedRetryAttempts,
		retryInterval:  100 * time.Millisecond,
		now:            time.Now,
	}
}

// Outcome describes what Complete or Enroll did
type Outcome struct {
	Payment    *models.Payment
	Enrollment *courseModels.Enrollment
	// Created is false when the enrollment already existed
	Created bool
	Seeded  int
	// SeedFailed means the enrollment was kept without progress rows
	SeedFailed bool

	user   models.User
	course courseModels.Course
}

// Complete records a verified purchase and, when it succeeded, provisions the
// enrollment. Storage errors retry the whole transaction a bounded number of
// times; fatal errors return at once.
func (s *Service) Complete(ctx context.Context, p intake.Purchase) (Outcome, error) {
	var out Outcome
	err := s.withRetry(ctx, s.commitAttempts, "commit "+p.Reference, func() error {
		out = Outcome{}
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			payment, err := s.recordPayment(tx, p)
			if err != nil {
				return err
			}
			out.Payment = &payment

			if payment.Status != models.PaymentStatusSucceeded {
				log.Printf("[ENROLLMENT] Payment %s is %s, no enrollment", payment.ExternalReference, payment.Status)
				return nil
			}
			return s.provision(tx, &out, p.UserID, p.CourseID, &payment.ID)
		})
	})
	if err != nil {
		return Outcome{}, err
	}

	s.afterCommit(&out)
	return out, nil
}

// Enroll provisions an enrollment without a payment, e.g. for free courses
func (s *Service) Enroll(ctx context.Context, userID, courseID uint) (Outcome, error) {
	var out Outcome
	err := s.withRetry(ctx, s.commitAttempts, fmt.Sprintf("enroll user %d course %d", userID, courseID), func() error {
		out = Outcome{}
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.provision(tx, &out, userID, courseID, nil)
		})
	})
	if err != nil {
		return Outcome{}, err
	}

	s.afterCommit(&out)
	return out, nil
}

func (s *Service) afterCommit(out *Outcome) {
	if !out.Created {
		return
	}
	log.Printf("[ENROLLMENT] User %d enrolled in course %d (enrollment %d, %d progress rows)",
		out.Enrollment.UserID, out.Enrollment.CourseID, out.Enrollment.ID, out.Seeded)
	if s.mailer != nil {
		s.mailer.SendEnrollmentEmail(out.user.Email, out.user.Name, out.course.Title)
	}
}

// provision creates the enrollment if absent and seeds progress for a new one
func (s *Service) provision(tx *gorm.DB, out *Outcome, userID, courseID uint, paymentID *uint) error {
	if err := tx.Where("id = ? AND is_deleted = ?", courseID, false).First(&out.course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %d", ErrCourseNotFound, courseID)
		}
		return err
	}
	if err := tx.Where("id = ? AND is_deleted = ?", userID, false).First(&out.user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %d", ErrUserNotFound, userID)
		}
		return err
	}

	enrollment := courseModels.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		PaymentID:  paymentID,
		Status:     courseModels.EnrollmentStatusEnrolled,
		EnrolledAt: s.now(),
	}
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&enrollment)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var existing courseModels.Enrollment
		if err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).First(&existing).Error; err != nil {
			return err
		}
		log.Printf("[ENROLLMENT] User %d already enrolled in course %d, nothing to do", userID, courseID)
		out.Enrollment = &existing
		return nil
	}

	out.Enrollment = &enrollment
	out.Created = true

	n, err := s.seedInSavepoint(tx, &enrollment)
	if err != nil {
		log.Printf("[ENROLLMENT] PartialSeedFailure for enrollment %d, will reseed later: %v", enrollment.ID, err)
		out.SeedFailed = true
		return nil
	}
	out.Seeded = n
	return nil
}

// recordPayment upserts the ledger row for the purchase and applies the
// status transition if it is allowed
func (s *Service) recordPayment(tx *gorm.DB, p intake.Purchase) (models.Payment, error) {
	metadata := make(map[string]interface{}, len(p.Metadata))
	for k, v := range p.Metadata {
		metadata[k] = v
	}

	payment := models.Payment{
		UserID:            p.UserID,
		CourseID:          p.CourseID,
		ExternalReference: p.Reference,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            models.PaymentStatusPending,
		Metadata:          metadata,
		LastEventID:       p.EventID,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_reference"}},
		DoNothing: true,
	}).Create(&payment).Error
	if err != nil {
		return models.Payment{}, err
	}

	var current models.Payment
	if err := tx.Where("external_reference = ?", p.Reference).First(&current).Error; err != nil {
		return models.Payment{}, err
	}

	if current.Status == p.Status {
		return current, nil
	}
	if !current.Status.CanTransition(p.Status) {
		log.Printf("[ENROLLMENT] Ignoring %s for payment %s already %s", p.Status, current.ExternalReference, current.Status)
		return current, nil
	}

	updates := map[string]interface{}{
		"status":        p.Status,
		"last_event_id": p.EventID,
	}
	if p.Amount > 0 {
		updates["amount"] = p.Amount
		current.Amount = p.Amount
	}
	if p.Currency != "" {
		updates["currency"] = p.Currency
		current.Currency = p.Currency
	}
	if p.Status == models.PaymentStatusSucceeded {
		confirmedAt := s.now()
		updates["confirmed_at"] = confirmedAt
		current.ConfirmedAt = &confirmedAt
	}
	if err := tx.Model(&current).Updates(updates).Error; err != nil {
		return models.Payment{}, err
	}
	current.Status = p.Status
	current.LastEventID = p.EventID
	return current, nil
}

// ExpireStalePayments fails pending payments created before cutoff. The
// provider expires checkout sessions on its side so these never complete.
func (s *Service) ExpireStalePayments(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("status = ? AND created_at < ?", models.PaymentStatusPending, cutoff).
		Update("status", models.PaymentStatusFailed)
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, result.Error)
	}
	return result.RowsAffected, nil
}

// withRetry runs op up to attempts times with exponential backoff. Fatal and
// context errors are not retried.
func (s *Service) withRetry(ctx context.Context, attempts int, what string, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryInterval
	policy.MaxInterval = 2 * time.Second
	bounded := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(attempts-1)), ctx)

	err := backoff.RetryNotify(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if IsFatal(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}, bounded, func(err error, wait time.Duration) {
		log.Printf("[ENROLLMENT] %s failed, retrying in %s: %v", what, wait, err)
	})
	if err == nil {
		return nil
	}
	if IsFatal(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, what, err)
}
