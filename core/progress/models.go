package progress

import "time"

// Progress tracks a user's completed lectures for one course; it is keyed by
// the (user, course) pair. Completed grows monotonically with set semantics.
type Progress struct {
	UserID    string    `json:"userId"`
	CourseID  string    `json:"courseId"`
	Completed []string  `json:"lectureCompleted"` // lecture ids
	Done      bool      `json:"completed"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Progress) HasLecture(lectureID string) bool {
	for _, id := range p.Completed {
		if id == lectureID {
			return true
		}
	}
	return false
}
