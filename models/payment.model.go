package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentStatus moves pending -> succeeded | failed
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// CanTransition reports whether the ledger may move from s to next.
// A succeeded payment is final.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	switch s {
	case "", PaymentStatusPending:
		return true
	case PaymentStatusFailed:
		return next == PaymentStatusSucceeded || next == PaymentStatusFailed
	default:
		return s == next
	}
}

// Payment is the purchase ledger entry for one provider checkout session
type Payment struct {
	gorm.Model
	UserID            uint              `gorm:"not null;index" json:"userId"`
	CourseID          uint              `gorm:"not null;index" json:"courseId"`
	Provider          string            `gorm:"type:varchar(50);default:'checkout'" json:"provider"`
	ExternalReference string            `gorm:"type:varchar(191);uniqueIndex;not null" json:"externalReference"` // checkout session id
	Amount            int64             `gorm:"default:0" json:"amount"`
	Currency          string            `gorm:"type:varchar(10)" json:"currency"`
	Status            PaymentStatus     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Metadata          datatypes.JSONMap `json:"metadata"`
	LastEventID       string            `gorm:"type:varchar(191)" json:"lastEventId"`
	ConfirmedAt       *time.Time        `json:"confirmedAt"`
}

func (Payment) TableName() string {
	return "payments"
}
