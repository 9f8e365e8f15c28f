package user

import (
	"strings"
	"time"
)

// Roles mirrored from the identity provider's public metadata.
const (
	RoleStudent  = "student"
	RoleEducator = "educator"
)

// User is keyed by the identity provider's user id; we never generate one.
type User struct {
	ID              string    `json:"_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	ImageURL        string    `json:"imageUrl"`
	Role            string    `json:"role,omitempty"`
	EnrolledCourses []string  `json:"enrolledCourses"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (u *User) IsEducator() bool {
	return u.Role == RoleEducator
}

// Identity provider lifecycle event types. Anything else is acknowledged
// as a no-op for forward compatibility with provider schema evolution.
type EventType string

const (
	EventCreated EventType = "user.created"
	EventUpdated EventType = "user.updated"
	EventDeleted EventType = "user.deleted"
)

// Event is a decoded identity lifecycle event.
type Event struct {
	Type      EventType
	ID        string
	FirstName string
	LastName  string
	Email     string
	ImageURL  string
}

// DisplayName assembles "First Last", falling back to a placeholder when the
// provider sent no name parts.
func (e Event) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(e.FirstName) + " " + strings.TrimSpace(e.LastName))
	if name == "" {
		return "Unknown User"
	}
	return name
}
