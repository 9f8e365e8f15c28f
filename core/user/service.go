package user

import (
	"context"
	"errors"
	"net/http"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/soko/core"
)

var (
	// errors
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("a user with this id already exists")

	errMissingEventData = errors.New("missing required user data")
)

type (
	Repository interface {
		// CreateUser inserts usr keyed by its provider id.
		// ErrAlreadyExists is returned when that id is already present.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, id string) (User, error)
		GetUsersByID(ctx context.Context, ids []string) ([]User, error)
		// UpdateUserProfile overwrites name/email/imageURL only;
		// role and enrollment fields are untouched.
		UpdateUserProfile(ctx context.Context, id, name, email, imageURL string) (User, error)
		DeleteUser(ctx context.Context, id string) error
		SetUserRole(ctx context.Context, id, role string) error
		// AddEnrolledCourse appends courseID to the user's enrolled-course
		// list with set semantics; duplicate application is a no-op.
		AddEnrolledCourse(ctx context.Context, userID, courseID string) error
	}

	// EventParser verifies a raw webhook payload against the provider secret
	// and decodes it into an Event. Verification precedes any parsing; a bad
	// signature fails with core.ErrEventSignature.
	EventParser interface {
		ParseEvent(payload []byte, header http.Header) (Event, error)
	}

	Service struct {
		repo     Repository
		identity core.IdentityService
		logger   core.Logger
	}
)

func NewService(repo Repository, identity core.IdentityService, logger core.Logger) *Service {
	return &Service{repo: repo, identity: identity, logger: logger}
}

// ReconcileEvent applies one identity lifecycle event to the store.
// It is safe under at-least-once delivery: a duplicate create is a no-op,
// while update/delete-before-create surface ErrNotFound so operators can
// detect provider/store drift.
func (svc *Service) ReconcileEvent(ctx context.Context, evt Event) (core.Outcome, error) {
	switch evt.Type {
	case EventCreated:
		if evt.ID == "" || evt.Email == "" {
			return core.OutcomeNoOp, core.NewValidationError(errMissingEventData)
		}
		now := time.Now().UTC()
		usr := User{
			ID:        evt.ID,
			Name:      evt.DisplayName(),
			Email:     core.CleanString(evt.Email, true /* lower */),
			ImageURL:  evt.ImageURL,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := svc.repo.CreateUser(ctx, usr); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				// duplicate delivery
				svc.logger.Debug("identity event: duplicate create", map[string]interface{}{"userId": evt.ID})
				return core.OutcomeNoOp, nil
			}
			return core.OutcomeNoOp, pkgerrors.Wrap(err, "creating user")
		}
		return core.OutcomeApplied, nil

	case EventUpdated:
		if evt.ID == "" || evt.Email == "" {
			return core.OutcomeNoOp, core.NewValidationError(errMissingEventData)
		}
		email := core.CleanString(evt.Email, true /* lower */)
		if _, err := svc.repo.UpdateUserProfile(ctx, evt.ID, evt.DisplayName(), email, evt.ImageURL); err != nil {
			if errors.Is(err, ErrNotFound) {
				return core.OutcomeNoOp, err
			}
			return core.OutcomeNoOp, pkgerrors.Wrap(err, "updating user")
		}
		return core.OutcomeApplied, nil

	case EventDeleted:
		if evt.ID == "" {
			return core.OutcomeNoOp, core.NewValidationError(errMissingEventData)
		}
		if err := svc.repo.DeleteUser(ctx, evt.ID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return core.OutcomeNoOp, err
			}
			return core.OutcomeNoOp, pkgerrors.Wrap(err, "deleting user")
		}
		return core.OutcomeApplied, nil

	default:
		svc.logger.Debug("identity event: unhandled type", map[string]interface{}{"type": string(evt.Type)})
		return core.OutcomeNoOp, nil
	}
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, id)
}

func (svc *Service) GetByIDs(ctx context.Context, ids []string) ([]User, error) {
	return svc.repo.GetUsersByID(ctx, ids)
}

// BecomeEducator promotes the user at the identity provider (the source of
// truth for role claims) and mirrors the role locally.
func (svc *Service) BecomeEducator(ctx context.Context, id string) error {
	if _, err := svc.repo.GetUser(ctx, id); err != nil {
		return err
	}
	if err := svc.identity.SetEducatorRole(ctx, id); err != nil {
		return pkgerrors.Wrap(err, "updating provider role metadata")
	}
	if err := svc.repo.SetUserRole(ctx, id, RoleEducator); err != nil {
		return pkgerrors.Wrap(err, "mirroring educator role")
	}
	return nil
}
