package purchase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/soko/core"
	"github.com/trezcool/soko/core/course"
	"github.com/trezcool/soko/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("purchase not found")
)

type (
	Repository interface {
		CreatePurchase(ctx context.Context, p Purchase) (Purchase, error)
		GetPurchase(ctx context.Context, id string) (Purchase, error)
		// SetPurchaseStatusIf transitions status from -> to and reports
		// whether the transition applied. It must be atomic (compare-and-set)
		// so concurrent duplicate deliveries race safely.
		SetPurchaseStatusIf(ctx context.Context, id string, from, to Status) (bool, error)
		QueryCompletedByCourse(ctx context.Context, courseIDs []string) ([]Purchase, error)
	}

	// EventParser verifies a raw webhook payload against the provider secret
	// and decodes it into an Event. A bad signature fails with
	// core.ErrEventSignature before anything is processed.
	EventParser interface {
		ParseEvent(payload []byte, sigHeader string) (Event, error)
	}

	Service struct {
		repo     Repository
		courses  course.Repository
		users    user.Repository
		payments core.PaymentService
		mail     core.EmailService
		logger   core.Logger
		conf     *core.Config
	}
)

func NewService(
	repo Repository,
	courses course.Repository,
	users user.Repository,
	payments core.PaymentService,
	mail core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		courses:  courses,
		users:    users,
		payments: payments,
		mail:     mail,
		logger:   logger,
		conf:     conf,
	}
}

// Initiate creates a pending Purchase and opens a provider checkout session.
// The purchase record exists before the session does, and its id travels in
// the session metadata as the correlation token the reconciler joins on.
func (svc *Service) Initiate(ctx context.Context, userID, courseID, origin string) (core.CheckoutSession, error) {
	usr, err := svc.users.GetUser(ctx, userID)
	if err != nil {
		return core.CheckoutSession{}, err
	}
	crs, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return core.CheckoutSession{}, err
	}

	now := time.Now().UTC()
	p := Purchase{
		ID:        uuid.New().String(),
		CourseID:  crs.ID,
		UserID:    usr.ID,
		Amount:    crs.DiscountedPrice(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p, err = svc.repo.CreatePurchase(ctx, p); err != nil {
		return core.CheckoutSession{}, pkgerrors.Wrap(err, "creating purchase")
	}

	sess, err := svc.payments.CreateCheckoutSession(ctx, core.CheckoutParams{
		AmountMinor: p.Amount.Shift(2).IntPart(),
		Currency:    svc.conf.Currency,
		ProductName: crs.Title,
		SuccessURL:  origin + "/loading/my-enrollments",
		CancelURL:   origin,
		PurchaseID:  p.ID,
	})
	if err != nil {
		return core.CheckoutSession{}, pkgerrors.Wrap(err, "creating checkout session")
	}
	return sess, nil
}

// ReconcileEvent drives the purchase referenced by evt to a terminal state
// and, on success, fans out the enrollment effect exactly once.
//
// Ordering inside the succeeded path matters: both enrollment appends are
// idempotent set-adds and run first; the status compare-and-set runs last as
// the commit point. An interrupted triad leaves status pending, so provider
// redelivery retries the whole triad and the set-adds absorb what already
// applied.
func (svc *Service) ReconcileEvent(ctx context.Context, evt Event) (core.Outcome, error) {
	switch evt.Type {
	case EventSucceeded, EventFailed:
	default:
		svc.logger.Debug("payment event: unhandled type", map[string]interface{}{"type": string(evt.Type)})
		return core.OutcomeNoOp, nil
	}

	purchaseID, err := svc.payments.ResolvePurchaseID(ctx, evt.IntentID)
	if err != nil {
		return core.OutcomeNoOp, pkgerrors.Wrap(err, "resolving checkout session")
	}
	if purchaseID == "" {
		// the event may belong to an unrelated integration
		svc.logger.Warn("payment event: no purchase correlation token", map[string]interface{}{"intentId": evt.IntentID})
		return core.OutcomeNoOp, nil
	}

	p, err := svc.repo.GetPurchase(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// never fabricate a record for an unknown token
			svc.logger.Warn("payment event: purchase not found", map[string]interface{}{"purchaseId": purchaseID})
			return core.OutcomeNoOp, nil
		}
		return core.OutcomeNoOp, pkgerrors.Wrap(err, "loading purchase")
	}
	if p.Status.Terminal() {
		return core.OutcomeNoOp, nil
	}

	if evt.Type == EventFailed {
		applied, err := svc.repo.SetPurchaseStatusIf(ctx, p.ID, StatusPending, StatusFailed)
		if err != nil {
			return core.OutcomeNoOp, pkgerrors.Wrap(err, "failing purchase")
		}
		if !applied {
			return core.OutcomeNoOp, nil
		}
		return core.OutcomeApplied, nil
	}

	return svc.completePurchase(ctx, p)
}

func (svc *Service) completePurchase(ctx context.Context, p Purchase) (core.Outcome, error) {
	usr, err := svc.users.GetUser(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			svc.logger.Warn("payment event: purchase user missing", map[string]interface{}{"purchaseId": p.ID})
			return core.OutcomeNoOp, nil
		}
		return core.OutcomeNoOp, pkgerrors.Wrap(err, "loading purchase user")
	}
	crs, err := svc.courses.GetCourse(ctx, p.CourseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			svc.logger.Warn("payment event: purchase course missing", map[string]interface{}{"purchaseId": p.ID})
			return core.OutcomeNoOp, nil
		}
		return core.OutcomeNoOp, pkgerrors.Wrap(err, "loading purchase course")
	}

	// idempotent appends first, commit point last
	if err = svc.courses.AddEnrolledStudent(ctx, crs.ID, usr.ID); err != nil {
		return core.OutcomeNoOp, pkgerrors.Wrap(err, "enrolling student on course")
	}
	if err = svc.users.AddEnrolledCourse(ctx, usr.ID, crs.ID); err != nil {
		return core.OutcomeNoOp, pkgerrors.Wrap(err, "enrolling course on user")
	}
	applied, err := svc.repo.SetPurchaseStatusIf(ctx, p.ID, StatusPending, StatusCompleted)
	if err != nil {
		return core.OutcomeNoOp, pkgerrors.Wrap(err, "completing purchase")
	}
	if !applied {
		// a concurrent delivery won the CAS; its effects are ours too
		return core.OutcomeNoOp, nil
	}

	svc.sendConfirmation(usr, crs)
	return core.OutcomeApplied, nil
}

func (svc *Service) sendConfirmation(usr user.User, crs course.Course) {
	if usr.Email == "" {
		return
	}
	svc.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Enrollment confirmed",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour enrollment in %q is confirmed. Head over to %s/my-enrollments to start learning.\n",
			usr.Name, crs.Title, svc.conf.FrontendBaseURL,
		),
	})
}

// Dashboard aggregates an educator's marketplace numbers.
type Dashboard struct {
	TotalCourses     int               `json:"totalCourses"`
	TotalEarnings    float64           `json:"totalEarnings"`
	EnrolledStudents []EnrolledStudent `json:"enrolledStudentsData"`
}

type EnrolledStudent struct {
	CourseTitle  string    `json:"courseTitle"`
	Student      Student   `json:"student"`
	PurchaseDate time.Time `json:"purchaseDate,omitempty"`
}

type Student struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

// EducatorDashboard joins the educator's courses with their completed purchases.
func (svc *Service) EducatorDashboard(ctx context.Context, educatorID string) (Dashboard, error) {
	courses, err := svc.courses.QueryCoursesByEducator(ctx, educatorID)
	if err != nil {
		return Dashboard{}, pkgerrors.Wrap(err, "querying educator courses")
	}

	courseIDs := make([]string, 0, len(courses))
	for _, crs := range courses {
		courseIDs = append(courseIDs, crs.ID)
	}

	purchases, err := svc.repo.QueryCompletedByCourse(ctx, courseIDs)
	if err != nil {
		return Dashboard{}, pkgerrors.Wrap(err, "querying completed purchases")
	}
	earnings := decimal.Zero
	for _, p := range purchases {
		earnings = earnings.Add(p.Amount)
	}

	enrolled := make([]EnrolledStudent, 0)
	for _, crs := range courses {
		students, err := svc.users.GetUsersByID(ctx, crs.EnrolledStudents)
		if err != nil {
			return Dashboard{}, pkgerrors.Wrap(err, "querying enrolled students")
		}
		for _, s := range students {
			enrolled = append(enrolled, EnrolledStudent{
				CourseTitle: crs.Title,
				Student:     Student{ID: s.ID, Name: s.Name, ImageURL: s.ImageURL},
			})
		}
	}

	return Dashboard{
		TotalCourses:     len(courses),
		TotalEarnings:    earnings.InexactFloat64(),
		EnrolledStudents: enrolled,
	}, nil
}

// EducatorEnrollments lists completed purchases of the educator's courses,
// newest first as stored.
func (svc *Service) EducatorEnrollments(ctx context.Context, educatorID string) ([]EnrolledStudent, error) {
	courses, err := svc.courses.QueryCoursesByEducator(ctx, educatorID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying educator courses")
	}
	courseIDs := make([]string, 0, len(courses))
	titles := make(map[string]string, len(courses))
	for _, crs := range courses {
		courseIDs = append(courseIDs, crs.ID)
		titles[crs.ID] = crs.Title
	}

	purchases, err := svc.repo.QueryCompletedByCourse(ctx, courseIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying completed purchases")
	}

	enrolled := make([]EnrolledStudent, 0, len(purchases))
	for _, p := range purchases {
		usr, err := svc.users.GetUser(ctx, p.UserID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				continue // user deleted since purchase
			}
			return nil, pkgerrors.Wrap(err, "querying purchase user")
		}
		enrolled = append(enrolled, EnrolledStudent{
			CourseTitle:  titles[p.CourseID],
			Student:      Student{ID: usr.ID, Name: usr.Name, ImageURL: usr.ImageURL},
			PurchaseDate: p.CreatedAt,
		})
	}
	return enrolled, nil
}
