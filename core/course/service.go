package course

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/soko/core"
)

var (
	// errors
	ErrNotFound = errors.New("course not found")

	errNotEnrolled = errors.New("course not purchased")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		GetCoursesByID(ctx context.Context, ids []string) ([]Course, error)
		QueryPublishedCourses(ctx context.Context) ([]Course, error)
		QueryCoursesByEducator(ctx context.Context, educatorID string) ([]Course, error)
		// AddEnrolledStudent appends userID to the course's enrolled-student
		// list with set semantics; duplicate application is a no-op.
		AddEnrolledStudent(ctx context.Context, courseID, userID string) error
		// SetCourseRating stores r, replacing any previous rating by the same
		// user; a course holds at most one rating per user.
		SetCourseRating(ctx context.Context, courseID string, r Rating) error
	}

	Service struct {
		repo  Repository
		media core.MediaService
	}
)

func NewService(repo Repository, media core.MediaService) *Service {
	return &Service{repo: repo, media: media}
}

// Create validates and stores a new course owned by educatorID. The thumbnail
// is uploaded to the media host first so the stored record is complete.
func (svc *Service) Create(ctx context.Context, educatorID string, nc NewCourse, thumbnail io.Reader, filename string) (Course, error) {
	if err := nc.Validate(); err != nil {
		return Course{}, err
	}

	thumbURL, err := svc.media.Upload(ctx, thumbnail, filename)
	if err != nil {
		return Course{}, pkgerrors.Wrap(err, "uploading course thumbnail")
	}

	now := time.Now().UTC()
	crs := Course{
		ID:               uuid.New().String(),
		Title:            nc.Title,
		Description:      nc.Description,
		Price:            nc.Price,
		Discount:         nc.Discount,
		Thumbnail:        thumbURL,
		Published:        nc.Published,
		Educator:         educatorID,
		Content:          buildContent(nc.Content),
		EnrolledStudents: []string{},
		Ratings:          []Rating{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func buildContent(chapters []NewChapter) []Chapter {
	content := make([]Chapter, 0, len(chapters))
	for _, nch := range chapters {
		ch := Chapter{
			ID:       uuid.New().String(),
			Order:    nch.Order,
			Title:    nch.Title,
			Lectures: make([]Lecture, 0, len(nch.Lectures)),
		}
		for _, nl := range nch.Lectures {
			ch.Lectures = append(ch.Lectures, Lecture{
				ID:          uuid.New().String(),
				Title:       nl.Title,
				Duration:    nl.Duration,
				URL:         nl.URL,
				FreePreview: nl.FreePreview,
				Order:       nl.Order,
			})
		}
		content = append(content, ch)
	}
	return content
}

// QueryPublished returns the catalog: published courses with their content
// tree and enrollment list stripped.
func (svc *Service) QueryPublished(ctx context.Context) ([]Course, error) {
	courses, err := svc.repo.QueryPublishedCourses(ctx)
	if err != nil {
		return nil, err
	}
	for i := range courses {
		courses[i].Content = nil
		courses[i].EnrolledStudents = nil
	}
	return courses, nil
}

// GetByID returns the course with non-free-preview lecture URLs blanked.
func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	crs.StripPaidLectureURLs()
	return crs, nil
}

func (svc *Service) GetByIDs(ctx context.Context, ids []string) ([]Course, error) {
	return svc.repo.GetCoursesByID(ctx, ids)
}

func (svc *Service) ForEducator(ctx context.Context, educatorID string) ([]Course, error) {
	return svc.repo.QueryCoursesByEducator(ctx, educatorID)
}

// Rate records userID's rating of a course they are enrolled in. A repeat
// rating by the same user replaces the previous one instead of accumulating.
func (svc *Service) Rate(ctx context.Context, userID, courseID string, value int) error {
	if value < 1 || value > 5 {
		return core.NewValidationError(nil, core.FieldError{Field: "rating", Error: "rating must be between 1 and 5"})
	}

	crs, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if !crs.IsEnrolled(userID) {
		return core.NewValidationError(errNotEnrolled)
	}
	return svc.repo.SetCourseRating(ctx, courseID, Rating{UserID: userID, Value: value})
}
