package echoapi_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v76/webhook"

	. "github.com/trezcool/soko/apps/api/echo"
	"github.com/trezcool/soko/core"
	"github.com/trezcool/soko/core/course"
	"github.com/trezcool/soko/core/progress"
	"github.com/trezcool/soko/core/purchase"
	"github.com/trezcool/soko/core/user"
	emailsvc "github.com/trezcool/soko/services/email"
	identitysvc "github.com/trezcool/soko/services/identity"
	logsvc "github.com/trezcool/soko/services/logger"
	paymentsvc "github.com/trezcool/soko/services/payment"
	"github.com/trezcool/soko/storage/inmem"
)

// webhook signing secrets; the svix scheme wants a base64 payload after the prefix
var (
	svixSecretKey = []byte("soko-test-webhook-secret")
	svixSecret    = "whsec_" + base64.StdEncoding.EncodeToString(svixSecretKey)

	stripeSecret = "whsec_stripe_test_secret"

	errNotAuthenticated = httpErr{Error: "user not authenticated"}
)

type fixture struct {
	app Server

	users     *inmem.UserRepository
	courses   *inmem.CourseRepository
	purchases *inmem.PurchaseRepository

	purchaseSvc *purchase.Service
	identity    *identityMock
	payments    *paymentMock
}

func setup(t *testing.T) fixture {
	t.Helper()
	emailsvc.ResetSentMessages()

	conf := &core.Config{
		AppName:          "Soko",
		TestMode:         true,
		Currency:         "usd",
		FrontendBaseURL:  "http://localhost:5173",
		DefaultFromEmail: "noreply@localhost",
		Clerk:            core.ClerkConfig{WebhookSecret: svixSecret},
		Stripe:           core.StripeConfig{WebhookSecret: stripeSecret},
	}
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))

	f := fixture{
		users:     inmem.NewUserRepository(),
		courses:   inmem.NewCourseRepository(),
		purchases: inmem.NewPurchaseRepository(),
		identity:  newIdentityMock(),
		payments:  newPaymentMock(),
	}
	progressRepo := inmem.NewProgressRepository()

	// real parsers so the signature path is exercised end to end
	identityEvents, err := identitysvc.NewService(conf)
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	paymentEvents := paymentsvc.NewService(conf)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	userSvc := user.NewService(f.users, f.identity, logger)
	courseSvc := course.NewService(f.courses, new(mediaMock))
	f.purchaseSvc = purchase.NewService(f.purchases, f.courses, f.users, f.payments, mailSvc, logger, conf)
	progressSvc := progress.NewService(progressRepo, f.courses)

	f.app = NewServer(&Options{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,
		UserSvc:        userSvc,
		CourseSvc:      courseSvc,
		PurchaseSvc:    f.purchaseSvc,
		ProgressSvc:    progressSvc,
		Identity:       f.identity,
		IdentityEvents: identityEvents,
		PaymentEvents:  paymentEvents,
	})
	return f
}

// Provider mocks

// identityMock treats any non-empty bearer token as the subject's user id.
type identityMock struct {
	roles map[string]string
}

var _ core.IdentityService = (*identityMock)(nil)

func newIdentityMock() *identityMock {
	return &identityMock{roles: make(map[string]string)}
}

func (m *identityMock) VerifySession(_ context.Context, token string) (core.Session, error) {
	if token == "" {
		return core.Session{}, errors.New("invalid session token")
	}
	return core.Session{UserID: token}, nil
}

func (m *identityMock) Role(_ context.Context, userID string) (string, error) {
	return m.roles[userID], nil
}

func (m *identityMock) SetEducatorRole(_ context.Context, userID string) error {
	m.roles[userID] = user.RoleEducator
	return nil
}

type paymentMock struct {
	intents  map[string]string
	sessions []core.CheckoutParams
}

var _ core.PaymentService = (*paymentMock)(nil)

func newPaymentMock() *paymentMock {
	return &paymentMock{intents: make(map[string]string)}
}

func (m *paymentMock) CreateCheckoutSession(_ context.Context, p core.CheckoutParams) (core.CheckoutSession, error) {
	m.sessions = append(m.sessions, p)
	return core.CheckoutSession{ID: "cs_" + p.PurchaseID, URL: "https://checkout.test/" + p.PurchaseID}, nil
}

func (m *paymentMock) ResolvePurchaseID(_ context.Context, intentID string) (string, error) {
	return m.intents[intentID], nil
}

type mediaMock struct{}

var _ core.MediaService = (*mediaMock)(nil)

func (mediaMock) Upload(_ context.Context, _ io.Reader, name string) (string, error) {
	return "https://media.test/" + name, nil
}

// Request plumbing

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newWebhookRequest attaches provider signature headers to a raw payload.
func newWebhookRequest(path string, payload []byte, header http.Header) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, httptest.NewRecorder()
}

// signIdentityEvent produces the svix signature headers for payload:
// HMAC-SHA256 over "{id}.{timestamp}.{payload}" with the decoded secret.
func signIdentityEvent(payload []byte) http.Header {
	id := "msg_2y4xTest"
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	mac := hmac.New(sha256.New, svixSecretKey)
	mac.Write([]byte(id + "." + ts + "."))
	mac.Write(payload)

	h := make(http.Header)
	h.Set("svix-id", id)
	h.Set("svix-timestamp", ts)
	h.Set("svix-signature", "v1,"+base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	return h
}

// signPaymentEvent produces the Stripe-Signature header for payload.
func signPaymentEvent(payload []byte) http.Header {
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, stripeSecret)

	h := make(http.Header)
	h.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig)))
	return h
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
