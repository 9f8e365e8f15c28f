package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/soko/apps/api/echo"
	"github.com/trezcool/soko/core/course"
	"github.com/trezcool/soko/core/purchase"
	"github.com/trezcool/soko/core/user"
	emailsvc "github.com/trezcool/soko/services/email"
)

func identityEventPayload(evtType, id, email string) []byte {
	return []byte(fmt.Sprintf(
		`{"type":%q,"data":{"id":%q,"first_name":"Awa","last_name":"Diop","image_url":"https://img.test/awa.png","email_addresses":[{"email_address":%q}]}}`,
		evtType, id, email,
	))
}

func Test_webhookApi_identityEvent(t *testing.T) {
	f := setup(t)
	path := "/api/webhooks/clerk"

	payload := identityEventPayload("user.created", "user_1", "awa@test.cd")

	t.Run("missing signature", func(t *testing.T) {
		req, rec := newWebhookRequest(path, payload, nil)
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid webhook signature"}),
		}, rec)

		_, err := f.users.GetUser(context.Background(), "user_1")
		assert.ErrorIs(t, err, user.ErrNotFound, "nothing may be applied before the signature checks out")
	})

	t.Run("tampered payload", func(t *testing.T) {
		header := signIdentityEvent(payload)
		tampered := identityEventPayload("user.created", "user_evil", "evil@test.cd")

		req, rec := newWebhookRequest(path, tampered, header)
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid webhook signature"}),
		}, rec)
	})

	t.Run("created", func(t *testing.T) {
		req, rec := newWebhookRequest(path, payload, signIdentityEvent(payload))
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, IdentityEventResponse{Success: true, Message: "applied"}),
		}, rec)

		usr, err := f.users.GetUser(context.Background(), "user_1")
		assert.NoError(t, err)
		assert.Equal(t, "Awa Diop", usr.Name)
		assert.Equal(t, "awa@test.cd", usr.Email)
	})

	t.Run("duplicate created", func(t *testing.T) {
		req, rec := newWebhookRequest(path, payload, signIdentityEvent(payload))
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, IdentityEventResponse{Success: true, Message: "noop"}),
		}, rec)
	})

	t.Run("updated unknown user", func(t *testing.T) {
		body := identityEventPayload("user.updated", "user_drift", "drift@test.cd")
		req, rec := newWebhookRequest(path, body, signIdentityEvent(body))
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "user not found"}),
		}, rec)
	})

	t.Run("deleted unknown user", func(t *testing.T) {
		body := []byte(`{"type":"user.deleted","data":{"id":"user_drift"}}`)
		req, rec := newWebhookRequest(path, body, signIdentityEvent(body))
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "user not found"}),
		}, rec)
	})

	t.Run("unknown event type", func(t *testing.T) {
		body := []byte(`{"type":"session.created","data":{"id":"sess_1"}}`)
		req, rec := newWebhookRequest(path, body, signIdentityEvent(body))
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, IdentityEventResponse{Success: true, Message: "noop"}),
		}, rec)
	})

	t.Run("malformed payload with valid signature", func(t *testing.T) {
		body := []byte(`{"type":`)
		req, rec := newWebhookRequest(path, body, signIdentityEvent(body))
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "malformed event payload"}),
		}, rec)
	})

	t.Run("created without email", func(t *testing.T) {
		body := []byte(`{"type":"user.created","data":{"id":"user_2"}}`)
		req, rec := newWebhookRequest(path, body, signIdentityEvent(body))
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "missing required user data"}),
		}, rec)
	})
}

func paymentEventPayload(evtType, intentID string) []byte {
	return []byte(fmt.Sprintf(`{"type":%q,"data":{"object":{"id":%q}}}`, evtType, intentID))
}

func seedPendingPurchase(t *testing.T, f fixture, intentID string) purchase.Purchase {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := f.users.CreateUser(ctx, user.User{ID: "user_1", Name: "Awa Diop", Email: "awa@test.cd", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seedPendingPurchase() failed: %v", err)
	}
	if _, err := f.courses.CreateCourse(ctx, course.Course{ID: "crs_go", Title: "Go from Scratch", Price: 100, Discount: 20, Published: true, Educator: "edu_1"}); err != nil {
		t.Fatalf("seedPendingPurchase() failed: %v", err)
	}
	if _, err := f.purchaseSvc.Initiate(ctx, "user_1", "crs_go", "http://localhost:5173"); err != nil {
		t.Fatalf("seedPendingPurchase() failed: %v", err)
	}

	purchaseID := f.payments.sessions[len(f.payments.sessions)-1].PurchaseID
	f.payments.intents[intentID] = purchaseID

	p, err := f.purchases.GetPurchase(ctx, purchaseID)
	if err != nil {
		t.Fatalf("seedPendingPurchase() failed: %v", err)
	}
	return p
}

func Test_webhookApi_paymentEvent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	path := "/api/webhooks/stripe"
	p := seedPendingPurchase(t, f, "pi_1")

	payload := paymentEventPayload("payment_intent.succeeded", "pi_1")

	t.Run("missing signature", func(t *testing.T) {
		req, rec := newWebhookRequest(path, payload, nil)
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid webhook payload"}),
		}, rec)

		got, err := f.purchases.GetPurchase(ctx, p.ID)
		assert.NoError(t, err)
		assert.Equal(t, purchase.StatusPending, got.Status)
	})

	t.Run("succeeded", func(t *testing.T) {
		req, rec := newWebhookRequest(path, payload, signPaymentEvent(payload))
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, PaymentEventResponse{Received: true}),
		}, rec)

		got, _ := f.purchases.GetPurchase(ctx, p.ID)
		crs, _ := f.courses.GetCourse(ctx, "crs_go")
		usr, _ := f.users.GetUser(ctx, "user_1")
		assert.Equal(t, purchase.StatusCompleted, got.Status)
		assert.Equal(t, []string{"user_1"}, crs.EnrolledStudents)
		assert.Equal(t, []string{"crs_go"}, usr.EnrolledCourses)
		assert.Len(t, emailsvc.SentMessages, 1)
	})

	t.Run("duplicate delivery", func(t *testing.T) {
		req, rec := newWebhookRequest(path, payload, signPaymentEvent(payload))
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, PaymentEventResponse{Received: true}),
		}, rec)

		crs, _ := f.courses.GetCourse(ctx, "crs_go")
		assert.Equal(t, []string{"user_1"}, crs.EnrolledStudents)
		assert.Len(t, emailsvc.SentMessages, 1)
	})

	t.Run("unrelated intent", func(t *testing.T) {
		body := paymentEventPayload("payment_intent.succeeded", "pi_other")
		req, rec := newWebhookRequest(path, body, signPaymentEvent(body))
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, PaymentEventResponse{Received: true}),
		}, rec)
	})
}
