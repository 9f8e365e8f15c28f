package progress_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/soko/core"
	"github.com/trezcool/soko/core/course"
	"github.com/trezcool/soko/core/progress"
	"github.com/trezcool/soko/storage/inmem"
)

func setup(t *testing.T) (*progress.Service, *inmem.CourseRepository) {
	t.Helper()
	courses := inmem.NewCourseRepository()
	_, err := courses.CreateCourse(context.Background(), course.Course{
		ID:        "crs_go",
		Title:     "Go from Scratch",
		Published: true,
		Educator:  "edu_1",
		Content: []course.Chapter{{
			ID: "ch_1",
			Lectures: []course.Lecture{
				{ID: "lec_1", Title: "Intro"},
				{ID: "lec_2", Title: "Types"},
			},
		}},
	})
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	return progress.NewService(inmem.NewProgressRepository(), courses), courses
}

func Test_Service_CompleteLecture(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CompleteLecture(ctx, "user_1", "crs_unknown", "lec_1")
	assert.ErrorIs(t, err, course.ErrNotFound)

	var vErr *core.ValidationError
	_, err = svc.CompleteLecture(ctx, "user_1", "crs_go", "lec_other")
	assert.ErrorAs(t, err, &vErr, "a lecture from another course must be rejected")

	prog, err := svc.CompleteLecture(ctx, "user_1", "crs_go", "lec_1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"lec_1"}, prog.Completed)
	assert.False(t, prog.Done)

	// duplicate completion is a no-op
	prog, err = svc.CompleteLecture(ctx, "user_1", "crs_go", "lec_1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"lec_1"}, prog.Completed)
	assert.False(t, prog.Done)

	// completing the last lecture flips the course flag
	prog, err = svc.CompleteLecture(ctx, "user_1", "crs_go", "lec_2")
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"lec_1", "lec_2"}, prog.Completed)
	assert.True(t, prog.Done)
}

func Test_Service_Get(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	// a course never started yields an empty record, not an error
	prog, err := svc.Get(ctx, "user_1", "crs_go")
	assert.NoError(t, err)
	assert.Equal(t, "user_1", prog.UserID)
	assert.Equal(t, "crs_go", prog.CourseID)
	assert.Empty(t, prog.Completed)
	assert.False(t, prog.Done)

	_, err = svc.CompleteLecture(ctx, "user_1", "crs_go", "lec_1")
	assert.NoError(t, err)

	prog, err = svc.Get(ctx, "user_1", "crs_go")
	assert.NoError(t, err)
	assert.Equal(t, []string{"lec_1"}, prog.Completed)

	// progress is per (user, course)
	prog, err = svc.Get(ctx, "user_2", "crs_go")
	assert.NoError(t, err)
	assert.Empty(t, prog.Completed)
}
