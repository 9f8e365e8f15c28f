package progress

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/soko/core"
	"github.com/trezcool/soko/core/course"
)

var (
	// errors
	ErrNotFound = errors.New("course progress not found")

	errUnknownLecture = errors.New("lecture does not belong to this course")
)

type (
	Repository interface {
		GetProgress(ctx context.Context, userID, courseID string) (Progress, error)
		// AddCompletedLecture upserts the (user, course) record and appends
		// lectureID with set semantics; a lecture already present is a no-op.
		AddCompletedLecture(ctx context.Context, userID, courseID, lectureID string) (Progress, error)
		MarkProgressDone(ctx context.Context, userID, courseID string) error
	}

	Service struct {
		repo    Repository
		courses course.Repository
	}
)

func NewService(repo Repository, courses course.Repository) *Service {
	return &Service{repo: repo, courses: courses}
}

// CompleteLecture marks lectureID as completed for the user. Duplicates are
// no-ops, and the completion flag is set once every lecture is done.
func (svc *Service) CompleteLecture(ctx context.Context, userID, courseID, lectureID string) (Progress, error) {
	crs, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return Progress{}, err
	}
	if !crs.HasLecture(lectureID) {
		return Progress{}, core.NewValidationError(errUnknownLecture)
	}

	prog, err := svc.repo.AddCompletedLecture(ctx, userID, courseID, lectureID)
	if err != nil {
		return Progress{}, pkgerrors.Wrap(err, "recording completed lecture")
	}

	if !prog.Done && len(prog.Completed) >= crs.LectureCount() {
		if err = svc.repo.MarkProgressDone(ctx, userID, courseID); err != nil {
			return Progress{}, pkgerrors.Wrap(err, "marking course progress done")
		}
		prog.Done = true
	}
	return prog, nil
}

// Get returns the user's progress for a course; a course never started yields
// an empty record rather than an error.
func (svc *Service) Get(ctx context.Context, userID, courseID string) (Progress, error) {
	prog, err := svc.repo.GetProgress(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Progress{UserID: userID, CourseID: courseID, Completed: []string{}}, nil
		}
		return Progress{}, pkgerrors.Wrap(err, "loading course progress")
	}
	return prog, nil
}
