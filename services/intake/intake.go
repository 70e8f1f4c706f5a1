// Package intake authenticates payment notifications and turns them into
// purchases. It never writes to storage.
package intake

import (
	"academy/models"
	"academy/services/gateway"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"
)

var (
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrSessionNotFound   = errors.New("checkout session not found")
	ErrOwnershipMismatch = errors.New("checkout session belongs to another user")
	// ErrUnhandledEvent marks an authentic event this service does not act on
	ErrUnhandledEvent = errors.New("unhandled event type")
)

// Provider event types
const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	EventCheckoutExpired       = "checkout.session.expired"
)

// Purchase is the normalized result of intake
type Purchase struct {
	UserID    uint
	CourseID  uint
	Reference string // checkout session id
	Status    models.PaymentStatus
	Amount    int64
	Currency  string
	EventID   string
	EventType string
	Metadata  map[string]string
}

// SessionFetcher retrieves authoritative session state from the provider
type SessionFetcher interface {
	RetrieveSession(ctx context.Context, id string) (*gateway.Session, error)
}

type Intake struct {
	secret    string
	tolerance time.Duration
	sessions  SessionFetcher
	now       func() time.Time
}

func New(webhookSecret string, tolerance time.Duration, sessions SessionFetcher) *Intake {
	return &Intake{
		secret:    webhookSecret,
		tolerance: tolerance,
		sessions:  sessions,
		now:       time.Now,
	}
}

// ParseWebhook verifies the signature header over the raw body and decodes
// the event into a Purchase.
func (in *Intake) ParseWebhook(body []byte, signatureHeader string) (Purchase, error) {
	if err := verifySignature(signatureHeader, body, in.secret, in.tolerance, in.now()); err != nil {
		log.Printf("[SECURITY] Rejected webhook: %v", err)
		return Purchase{}, err
	}

	var event gateway.Event
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("[WEBHOOK] Rejected webhook with undecodable body: %v", err)
		return Purchase{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if event.ID == "" || event.Type == "" {
		return Purchase{}, fmt.Errorf("%w: event id or type missing", ErrMalformedPayload)
	}

	var status models.PaymentStatus
	switch event.Type {
	case EventCheckoutCompleted:
		status = sessionStatus(&event.Data.Object)
	case EventAsyncPaymentSucceeded:
		status = models.PaymentStatusSucceeded
	case EventAsyncPaymentFailed, EventCheckoutExpired:
		status = models.PaymentStatusFailed
	default:
		return Purchase{}, fmt.Errorf("%w: %s", ErrUnhandledEvent, event.Type)
	}

	purchase, err := purchaseFromSession(&event.Data.Object, status)
	if err != nil {
		log.Printf("[WEBHOOK] Rejected event %s: %v", event.ID, err)
		return Purchase{}, err
	}
	purchase.EventID = event.ID
	purchase.EventType = event.Type
	return purchase, nil
}

// VerifySession fetches the session from the provider and checks it was
// created for callerID. Client supplied status is never consulted.
func (in *Intake) VerifySession(ctx context.Context, sessionID string, callerID uint) (Purchase, error) {
	session, err := in.sessions.RetrieveSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return Purchase{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return Purchase{}, err
	}

	purchase, err := purchaseFromSession(session, sessionStatus(session))
	if err != nil {
		return Purchase{}, err
	}
	if purchase.UserID != callerID {
		log.Printf("[SECURITY] User %d tried to verify session %s owned by user %d", callerID, sessionID, purchase.UserID)
		return Purchase{}, ErrOwnershipMismatch
	}

	purchase.EventType = "checkout.session.verified"
	return purchase, nil
}

func sessionStatus(s *gateway.Session) models.PaymentStatus {
	switch {
	case s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required":
		return models.PaymentStatusSucceeded
	case s.Status == "expired":
		return models.PaymentStatusFailed
	default:
		return models.PaymentStatusPending
	}
}

func purchaseFromSession(s *gateway.Session, status models.PaymentStatus) (Purchase, error) {
	if s.ID == "" {
		return Purchase{}, fmt.Errorf("%w: session id missing", ErrMalformedPayload)
	}
	userID, err := parseID(s.Metadata, "userId")
	if err != nil {
		return Purchase{}, err
	}
	courseID, err := parseID(s.Metadata, "courseId")
	if err != nil {
		return Purchase{}, err
	}

	return Purchase{
		UserID:    userID,
		CourseID:  courseID,
		Reference: s.ID,
		Status:    status,
		Amount:    s.AmountTotal,
		Currency:  s.Currency,
		Metadata:  s.Metadata,
	}, nil
}

func parseID(metadata map[string]string, key string) (uint, error) {
	raw, ok := metadata[key]
	if !ok || raw == "" {
		return 0, fmt.Errorf("%w: metadata %s missing", ErrMalformedPayload, key)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: metadata %s=%q is not an id", ErrMalformedPayload, key, raw)
	}
	return uint(id), nil
}
