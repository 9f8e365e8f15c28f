package user_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/soko/core"
	"github.com/trezcool/soko/core/user"
	logsvc "github.com/trezcool/soko/services/logger"
	"github.com/trezcool/soko/storage/inmem"
)

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

func setup() (*user.Service, *inmem.UserRepository, *identityMock) {
	repo := inmem.NewUserRepository()
	identity := newIdentityMock()
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	return user.NewService(repo, identity, logger), repo, identity
}

func Test_Service_ReconcileEvent_create(t *testing.T) {
	svc, _, _ := setup()
	ctx := context.Background()

	evt := user.Event{
		Type:      user.EventCreated,
		ID:        "user_1",
		FirstName: "Awa",
		LastName:  "Diop",
		Email:     "  Awa.Diop@Test.CD ",
		ImageURL:  "https://img.test/awa.png",
	}

	outcome, err := svc.ReconcileEvent(ctx, evt)
	assert.NoError(t, err)
	assert.Equal(t, core.OutcomeApplied, outcome)

	usr, err := svc.GetByID(ctx, "user_1")
	assert.NoError(t, err)
	assert.Equal(t, "Awa Diop", usr.Name)
	assert.Equal(t, "awa.diop@test.cd", usr.Email)
	assert.Equal(t, "https://img.test/awa.png", usr.ImageURL)
	assert.Empty(t, usr.EnrolledCourses)

	// duplicate delivery is a benign no-op and does not clobber the record
	evt.FirstName = "Changed"
	outcome, err = svc.ReconcileEvent(ctx, evt)
	assert.NoError(t, err)
	assert.Equal(t, core.OutcomeNoOp, outcome)

	usr, err = svc.GetByID(ctx, "user_1")
	assert.NoError(t, err)
	assert.Equal(t, "Awa Diop", usr.Name)
}

func Test_Service_ReconcileEvent_update(t *testing.T) {
	svc, _, _ := setup()
	ctx := context.Background()

	// update before create surfaces drift
	evt := user.Event{Type: user.EventUpdated, ID: "user_1", FirstName: "Awa", Email: "awa@test.cd"}
	outcome, err := svc.ReconcileEvent(ctx, evt)
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.Equal(t, core.OutcomeNoOp, outcome)

	_, err = svc.ReconcileEvent(ctx, user.Event{Type: user.EventCreated, ID: "user_1", FirstName: "Awa", Email: "awa@test.cd"})
	assert.NoError(t, err)

	evt = user.Event{Type: user.EventUpdated, ID: "user_1", FirstName: "Adja", LastName: "Diop", Email: "Adja@Test.CD"}
	outcome, err = svc.ReconcileEvent(ctx, evt)
	assert.NoError(t, err)
	assert.Equal(t, core.OutcomeApplied, outcome)

	usr, err := svc.GetByID(ctx, "user_1")
	assert.NoError(t, err)
	assert.Equal(t, "Adja Diop", usr.Name)
	assert.Equal(t, "adja@test.cd", usr.Email)
}

func Test_Service_ReconcileEvent_delete(t *testing.T) {
	svc, _, _ := setup()
	ctx := context.Background()

	outcome, err := svc.ReconcileEvent(ctx, user.Event{Type: user.EventDeleted, ID: "user_1"})
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.Equal(t, core.OutcomeNoOp, outcome)

	_, err = svc.ReconcileEvent(ctx, user.Event{Type: user.EventCreated, ID: "user_1", Email: "awa@test.cd"})
	assert.NoError(t, err)

	outcome, err = svc.ReconcileEvent(ctx, user.Event{Type: user.EventDeleted, ID: "user_1"})
	assert.NoError(t, err)
	assert.Equal(t, core.OutcomeApplied, outcome)

	_, err = svc.GetByID(ctx, "user_1")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func Test_Service_ReconcileEvent_unknownType(t *testing.T) {
	svc, _, _ := setup()

	outcome, err := svc.ReconcileEvent(context.Background(), user.Event{Type: "session.created", ID: "user_1"})
	assert.NoError(t, err)
	assert.Equal(t, core.OutcomeNoOp, outcome)
}

func Test_Service_ReconcileEvent_missingData(t *testing.T) {
	svc, _, _ := setup()
	ctx := context.Background()

	tests := []struct {
		name string
		evt  user.Event
	}{
		{"create without id", user.Event{Type: user.EventCreated, Email: "awa@test.cd"}},
		{"create without email", user.Event{Type: user.EventCreated, ID: "user_1"}},
		{"update without email", user.Event{Type: user.EventUpdated, ID: "user_1"}},
		{"delete without id", user.Event{Type: user.EventDeleted}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := svc.ReconcileEvent(ctx, tt.evt)
			var vErr *core.ValidationError
			assert.ErrorAs(t, err, &vErr)
			assert.Equal(t, core.OutcomeNoOp, outcome)
		})
	}
}

func Test_Event_DisplayName(t *testing.T) {
	assert.Equal(t, "Awa Diop", user.Event{FirstName: " Awa ", LastName: " Diop "}.DisplayName())
	assert.Equal(t, "Awa", user.Event{FirstName: "Awa"}.DisplayName())
	assert.Equal(t, "Unknown User", user.Event{}.DisplayName())
}

func Test_Service_BecomeEducator(t *testing.T) {
	svc, _, identity := setup()
	ctx := context.Background()

	err := svc.BecomeEducator(ctx, "user_1")
	assert.ErrorIs(t, err, user.ErrNotFound)

	_, err = svc.ReconcileEvent(ctx, user.Event{Type: user.EventCreated, ID: "user_1", Email: "awa@test.cd"})
	assert.NoError(t, err)

	assert.NoError(t, svc.BecomeEducator(ctx, "user_1"))
	assert.Equal(t, user.RoleEducator, identity.roles["user_1"])

	usr, err := svc.GetByID(ctx, "user_1")
	assert.NoError(t, err)
	assert.True(t, usr.IsEducator())
}
