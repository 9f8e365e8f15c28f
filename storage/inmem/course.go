package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/soko/core/course"
)

type CourseRepository struct {
	mu      sync.RWMutex
	courses map[string]course.Course
}

var _ course.Repository = (*CourseRepository)(nil)

func NewCourseRepository() *CourseRepository {
	return &CourseRepository{courses: make(map[string]course.Course)}
}

func (repo *CourseRepository) Clear() {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.courses = make(map[string]course.Course)
}

func (repo *CourseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if crs.EnrolledStudents == nil {
		crs.EnrolledStudents = []string{}
	}
	if crs.Ratings == nil {
		crs.Ratings = []course.Rating{}
	}
	repo.courses[crs.ID] = crs
	return crs, nil
}

func (repo *CourseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	crs, ok := repo.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return copyCourse(crs), nil
}

func (repo *CourseRepository) GetCoursesByID(_ context.Context, ids []string) ([]course.Course, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	courses := make([]course.Course, 0, len(ids))
	for _, id := range ids {
		if crs, ok := repo.courses[id]; ok {
			courses = append(courses, copyCourse(crs))
		}
	}
	return courses, nil
}

func (repo *CourseRepository) QueryPublishedCourses(_ context.Context) ([]course.Course, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.courses {
		if crs.Published {
			courses = append(courses, copyCourse(crs))
		}
	}
	return courses, nil
}

func (repo *CourseRepository) QueryCoursesByEducator(_ context.Context, educatorID string) ([]course.Course, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.courses {
		if crs.Educator == educatorID {
			courses = append(courses, copyCourse(crs))
		}
	}
	return courses, nil
}

func (repo *CourseRepository) AddEnrolledStudent(_ context.Context, courseID, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	crs, ok := repo.courses[courseID]
	if !ok {
		return course.ErrNotFound
	}
	for _, id := range crs.EnrolledStudents {
		if id == userID {
			return nil // set semantics
		}
	}
	crs.EnrolledStudents = append(crs.EnrolledStudents, userID)
	crs.UpdatedAt = time.Now().UTC()
	repo.courses[courseID] = crs
	return nil
}

func (repo *CourseRepository) SetCourseRating(_ context.Context, courseID string, r course.Rating) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	crs, ok := repo.courses[courseID]
	if !ok {
		return course.ErrNotFound
	}
	for i, existing := range crs.Ratings {
		if existing.UserID == r.UserID {
			crs.Ratings[i] = r
			crs.UpdatedAt = time.Now().UTC()
			repo.courses[courseID] = crs
			return nil
		}
	}
	crs.Ratings = append(crs.Ratings, r)
	crs.UpdatedAt = time.Now().UTC()
	repo.courses[courseID] = crs
	return nil
}

func copyCourse(crs course.Course) course.Course {
	content := make([]course.Chapter, len(crs.Content))
	for i, ch := range crs.Content {
		lectures := make([]course.Lecture, len(ch.Lectures))
		copy(lectures, ch.Lectures)
		ch.Lectures = lectures
		content[i] = ch
	}
	crs.Content = content

	enrolled := make([]string, len(crs.EnrolledStudents))
	copy(enrolled, crs.EnrolledStudents)
	crs.EnrolledStudents = enrolled

	ratings := make([]course.Rating, len(crs.Ratings))
	copy(ratings, crs.Ratings)
	crs.Ratings = ratings
	return crs
}
