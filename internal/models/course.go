package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Course lifecycle states derived from the schedule, never stored.
const (
	CourseStatusUpcoming  = "Upcoming"
	CourseStatusOngoing   = "Ongoing"
	CourseStatusCompleted = "Completed"
)

// Course difficulty levels.
const (
	DifficultyBeginner     = "Beginner"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
)

// Instructor is the structured form of the course instructor. Email is
// optional so records migrated from the plain-string shape stay valid.
type Instructor struct {
	Name  string `db:"instructor_name" json:"instructor_name"`
	Email string `db:"instructor_email" json:"instructor_email,omitempty"`
}

// SyllabusItem is one planned week of course content.
type SyllabusItem struct {
	Week        int    `json:"week"`
	Topic       string `json:"topic"`
	Description string `json:"description,omitempty"`
}

// Syllabus stores the weekly plan as a jsonb column.
type Syllabus []SyllabusItem

// Value implements driver.Valuer.
func (s Syllabus) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *Syllabus) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported syllabus source type %T", src)
	}
	return json.Unmarshal(raw, s)
}

// Course represents an offered course. EnrolledStudents holds student IDs in
// insertion order, bounded by MaxStudents; only the enrollment service may
// write it.
type Course struct {
	ID          string `db:"id" json:"id"`
	CourseCode  string `db:"course_code" json:"course_code"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
	Credits     int    `db:"credits" json:"credits"`
	Department  string `db:"department" json:"department"`
	Instructor
	Duration         string         `db:"duration" json:"duration"`
	Difficulty       string         `db:"difficulty" json:"difficulty"`
	Prerequisites    pq.StringArray `db:"prerequisites" json:"prerequisites"`
	Syllabus         Syllabus       `db:"syllabus" json:"syllabus,omitempty"`
	MaxStudents      int            `db:"max_students" json:"max_students"`
	EnrolledStudents pq.StringArray `db:"enrolled_students" json:"enrolled_students"`
	StartDate        time.Time      `db:"start_date" json:"start_date"`
	EndDate          time.Time      `db:"end_date" json:"end_date"`
	Active           bool           `db:"active" json:"active"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// StatusAt derives the lifecycle state for the given instant. The boundaries
// are inclusive: a course starting or ending exactly now is Ongoing.
func (c *Course) StatusAt(now time.Time) string {
	if now.Before(c.StartDate) {
		return CourseStatusUpcoming
	}
	if now.After(c.EndDate) {
		return CourseStatusCompleted
	}
	return CourseStatusOngoing
}

// EnrolledCount returns the current roster length.
func (c *Course) EnrolledCount() int {
	return len(c.EnrolledStudents)
}

// AvailableSpots returns the remaining capacity.
func (c *Course) AvailableSpots() int {
	return c.MaxStudents - len(c.EnrolledStudents)
}

// IsFull reports whether the roster reached the capacity boundary.
func (c *Course) IsFull() bool {
	return len(c.EnrolledStudents) >= c.MaxStudents
}

// HasStudent reports whether the roster references studentID.
func (c *Course) HasStudent(studentID string) bool {
	for _, id := range c.EnrolledStudents {
		if id == studentID {
			return true
		}
	}
	return false
}

// CourseDetail is the response shape for a course with its derived fields.
type CourseDetail struct {
	Course
	Status         string `json:"status"`
	EnrolledCount  int    `json:"enrolled_count"`
	AvailableSpots int    `json:"available_spots"`
}

// NewCourseDetail annotates a course with state derived at the given instant.
func NewCourseDetail(course Course, now time.Time) CourseDetail {
	return CourseDetail{
		Course:         course,
		Status:         course.StatusAt(now),
		EnrolledCount:  course.EnrolledCount(),
		AvailableSpots: course.AvailableSpots(),
	}
}

// CourseFilter encapsulates allowed search parameters for listing courses.
type CourseFilter struct {
	Title      string
	Department string
	Credits    *int
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// DepartmentStat aggregates course figures for one department.
type DepartmentStat struct {
	Department      string  `db:"department" json:"department"`
	TotalCourses    int     `db:"total_courses" json:"total_courses"`
	TotalCredits    int     `db:"total_credits" json:"total_credits"`
	AvgCredits      float64 `db:"avg_credits" json:"avg_credits"`
	EnrollmentCount int     `db:"enrollment_count" json:"enrollment_count"`
}

// CourseStats is the aggregate payload for the statistics endpoint.
type CourseStats struct {
	DepartmentStats  []DepartmentStat `json:"department_stats"`
	TotalCourses     int              `json:"total_courses"`
	TotalEnrollments int              `json:"total_enrollments"`
}
