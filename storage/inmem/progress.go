package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/soko/core/progress"
)

type ProgressRepository struct {
	mu      sync.RWMutex
	records map[progressKey]progress.Progress
}

type progressKey struct {
	userID   string
	courseID string
}

var _ progress.Repository = (*ProgressRepository)(nil)

func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{records: make(map[progressKey]progress.Progress)}
}

func (repo *ProgressRepository) Clear() {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.records = make(map[progressKey]progress.Progress)
}

func (repo *ProgressRepository) GetProgress(_ context.Context, userID, courseID string) (progress.Progress, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	prog, ok := repo.records[progressKey{userID, courseID}]
	if !ok {
		return progress.Progress{}, progress.ErrNotFound
	}
	return copyProgress(prog), nil
}

func (repo *ProgressRepository) AddCompletedLecture(_ context.Context, userID, courseID, lectureID string) (progress.Progress, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	key := progressKey{userID, courseID}
	prog, ok := repo.records[key]
	if !ok {
		prog = progress.Progress{UserID: userID, CourseID: courseID, Completed: []string{}}
	}
	if !prog.HasLecture(lectureID) {
		prog.Completed = append(prog.Completed, lectureID)
	}
	prog.UpdatedAt = time.Now().UTC()
	repo.records[key] = prog
	return copyProgress(prog), nil
}

func (repo *ProgressRepository) MarkProgressDone(_ context.Context, userID, courseID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	key := progressKey{userID, courseID}
	prog, ok := repo.records[key]
	if !ok {
		return progress.ErrNotFound
	}
	prog.Done = true
	prog.UpdatedAt = time.Now().UTC()
	repo.records[key] = prog
	return nil
}

func copyProgress(prog progress.Progress) progress.Progress {
	completed := make([]string, len(prog.Completed))
	copy(completed, prog.Completed)
	prog.Completed = completed
	return prog
}
