package checkoutController

import (
	"academy/database/dbtest"
	"academy/middleware"
	"academy/models"
	courseModels "academy/models/course"
	"academy/services/enrollment"
	"academy/services/gateway"
	"academy/services/intake"
	courseValidator "academy/validators/course"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const jwtSecret = "jwt_test"

type fakeProvider struct {
	requests []gateway.CheckoutRequest
	err      error
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, req gateway.CheckoutRequest) (*gateway.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	id := fmt.Sprintf("cs_%d", len(f.requests))
	return &gateway.Session{ID: id, URL: "https://pay.example.com/" + id, Status: "open", PaymentStatus: "unpaid"}, nil
}

func (f *fakeProvider) RetrieveSession(_ context.Context, id string) (*gateway.Session, error) {
	return nil, gateway.ErrNotFound
}

func newApp(t *testing.T) (*fiber.App, *gorm.DB, *fakeProvider) {
	t.Helper()
	db := dbtest.New(t)
	provider := &fakeProvider{}
	in := intake.New("whsec_test", 5*time.Minute, provider)
	svc := enrollment.NewService(db, enrollment.Options{CommitRetryAttempts: 2, SeedRetryAttempts: 2})

	app := fiber.New()
	cc := New(db, provider, in, svc, "http://localhost/ok?session_id={CHECKOUT_SESSION_ID}", "http://localhost/cancel")
	app.Post("/course/:id/checkout", middleware.JWTMiddleware(jwtSecret), courseValidator.CourseID("id"), cc.CreateCheckout)
	return app, db, provider
}

func checkout(t *testing.T, app *fiber.App, user models.User, courseID string) (int, map[string]interface{}) {
	t.Helper()
	token, err := middleware.GenerateJWT(jwtSecret, user.ID, user.Name, user.Role, user.Email)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/course/"+courseID+"/checkout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out.Data
}

func TestCreateCheckoutForPaidCourse(t *testing.T) {
	app, db, provider := newApp(t)
	user := dbtest.CreateUser(t, db, "buyer@example.com")
	course := dbtest.CreateCourse(t, db, "paid", 4900, 2)

	status, data := checkout(t, app, user, fmt.Sprint(course.ID))
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "cs_1", data["sessionId"])
	assert.Equal(t, "https://pay.example.com/cs_1", data["url"])

	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.Equal(t, fmt.Sprint(user.ID), req.Metadata["userId"])
	assert.Equal(t, fmt.Sprint(course.ID), req.Metadata["courseId"])
	assert.Equal(t, int64(4900), req.LineItems[0].Amount)

	var payment models.Payment
	require.NoError(t, db.Where("external_reference = ?", "cs_1").First(&payment).Error)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, user.ID, payment.UserID)
	assert.Equal(t, int64(0), dbtest.Count(t, db, &courseModels.Enrollment{}))
}

func TestCreateCheckoutForFreeCourseEnrolls(t *testing.T) {
	app, db, provider := newApp(t)
	user := dbtest.CreateUser(t, db, "free@example.com")
	course := dbtest.CreateCourse(t, db, "free", 0, 1, 2)

	status, data := checkout(t, app, user, fmt.Sprint(course.ID))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, data["enrolled"])
	assert.Empty(t, provider.requests)
	assert.Equal(t, int64(3), dbtest.Count(t, db, &courseModels.Progress{}))

	status, _ = checkout(t, app, user, fmt.Sprint(course.ID))
	assert.Equal(t, http.StatusConflict, status)
}

func TestCreateCheckoutErrors(t *testing.T) {
	app, db, provider := newApp(t)
	user := dbtest.CreateUser(t, db, "err@example.com")
	course := dbtest.CreateCourse(t, db, "err", 4900, 1)

	status, _ := checkout(t, app, user, "abc")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = checkout(t, app, user, fmt.Sprint(course.ID+50))
	assert.Equal(t, http.StatusNotFound, status)

	provider.err = errors.New("provider down")
	status, _ = checkout(t, app, user, fmt.Sprint(course.ID))
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, int64(0), dbtest.Count(t, db, &models.Payment{}))
}
