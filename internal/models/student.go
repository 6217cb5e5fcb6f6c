package models

import (
	"time"

	"github.com/lib/pq"
)

// Student represents a learner registered at the institution. EnrolledCourses
// holds course IDs in insertion order with no duplicates; it is written only
// by the enrollment service.
type Student struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Email           string         `db:"email" json:"email"`
	Age             *int           `db:"age" json:"age,omitempty"`
	Department      string         `db:"department" json:"department"`
	AdmissionDate   time.Time      `db:"admission_date" json:"admission_date"`
	Phone           string         `db:"phone" json:"phone,omitempty"`
	Address         string         `db:"address" json:"address,omitempty"`
	ProfilePicture  *string        `db:"profile_picture" json:"profile_picture,omitempty"`
	EnrolledCourses pq.StringArray `db:"enrolled_courses" json:"enrolled_courses"`
	Active          bool           `db:"active" json:"active"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// IsEnrolledIn reports whether the student's course list references courseID.
func (s *Student) IsEnrolledIn(courseID string) bool {
	for _, id := range s.EnrolledCourses {
		if id == courseID {
			return true
		}
	}
	return false
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	Department string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// StudentDetail enriches a student with the populated course summaries
// referenced by the roster.
type StudentDetail struct {
	Student
	Courses []CourseSummary `json:"courses,omitempty"`
}

// CourseSummary is the trimmed course shape embedded in student responses.
type CourseSummary struct {
	ID         string `json:"id"`
	CourseCode string `json:"course_code"`
	Title      string `json:"title"`
	Credits    int    `json:"credits"`
	Department string `json:"department"`
}
