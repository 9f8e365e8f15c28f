// Package inmem provides in-memory repository implementations for tests and
// local development without a running document store.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/soko/core/user"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]user.User
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]user.User)}
}

func (repo *UserRepository) Clear() {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.users = make(map[string]user.User)
}

func (repo *UserRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.users[usr.ID]; ok {
		return user.User{}, user.ErrAlreadyExists
	}
	if usr.EnrolledCourses == nil {
		usr.EnrolledCourses = []string{}
	}
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *UserRepository) GetUser(_ context.Context, id string) (user.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	usr, ok := repo.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return copyUser(usr), nil
}

func (repo *UserRepository) GetUsersByID(_ context.Context, ids []string) ([]user.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.users[id]; ok {
			users = append(users, copyUser(usr))
		}
	}
	return users, nil
}

func (repo *UserRepository) UpdateUserProfile(_ context.Context, id, name, email, imageURL string) (user.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	usr, ok := repo.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.Name = name
	usr.Email = email
	usr.ImageURL = imageURL
	usr.UpdatedAt = time.Now().UTC()
	repo.users[id] = usr
	return copyUser(usr), nil
}

func (repo *UserRepository) DeleteUser(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(repo.users, id)
	return nil
}

func (repo *UserRepository) SetUserRole(_ context.Context, id, role string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	usr, ok := repo.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.Role = role
	usr.UpdatedAt = time.Now().UTC()
	repo.users[id] = usr
	return nil
}

func (repo *UserRepository) AddEnrolledCourse(_ context.Context, userID, courseID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	usr, ok := repo.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	for _, id := range usr.EnrolledCourses {
		if id == courseID {
			return nil // set semantics
		}
	}
	usr.EnrolledCourses = append(usr.EnrolledCourses, courseID)
	usr.UpdatedAt = time.Now().UTC()
	repo.users[userID] = usr
	return nil
}

func copyUser(usr user.User) user.User {
	enrolled := make([]string, len(usr.EnrolledCourses))
	copy(enrolled, usr.EnrolledCourses)
	usr.EnrolledCourses = enrolled
	return usr
}
