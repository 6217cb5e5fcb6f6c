package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campusdesk/campus-api/internal/models"
)

const courseColumns = "id, course_code, title, description, credits, department, instructor_name, instructor_email, duration, difficulty, prerequisites, syllabus, max_students, enrolled_students, start_date, end_date, active, created_at, updated_at"

// CourseRepository handles persistence of courses. The roster column
// enrolled_students is mutated only through the guarded helpers below.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns active courses filtered by the provided criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	conditions := []string{"active = true"}
	var args []interface{}

	if filter.Title != "" {
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Title+"%")
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Credits != nil {
		conditions = append(conditions, fmt.Sprintf("credits = $%d", len(args)+1))
		args = append(args, *filter.Credits)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d OR instructor_name ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"title":       "title",
		"course_code": "course_code",
		"credits":     "credits",
		"start_date":  "start_date",
		"created_at":  "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 10
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM courses%s ORDER BY %s %s LIMIT %d OFFSET %d",
		courseColumns, clause, column, order, size, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM courses" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID fetches a course by ID regardless of active state.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListByIDs returns the courses referenced by ids.
func (r *CourseRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = ANY($1)", courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list courses by ids: %w", err)
	}
	return courses, nil
}

// ExistsByCode checks course code uniqueness optionally excluding an ID.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM courses WHERE course_code = $1"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// ExistsByTitle checks active-course title uniqueness (case-insensitive)
// optionally excluding an ID.
func (r *CourseRepository) ExistsByTitle(ctx context.Context, title string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM courses WHERE LOWER(title) = LOWER($1) AND active = true"
	args := []interface{}{title}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course title: %w", err)
	}
	return true, nil
}

// Create persists a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.Prerequisites == nil {
		course.Prerequisites = pq.StringArray{}
	}
	if course.EnrolledStudents == nil {
		course.EnrolledStudents = pq.StringArray{}
	}
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, course_code, title, description, credits, department, instructor_name, instructor_email, duration, difficulty, prerequisites, syllabus, max_students, enrolled_students, start_date, end_date, active, created_at, updated_at)
        VALUES (:id, :course_code, :title, :description, :credits, :department, :instructor_name, :instructor_email, :duration, :difficulty, :prerequisites, :syllabus, :max_students, :enrolled_students, :start_date, :end_date, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies the mutable fields of an existing course. The roster column
// is deliberately absent from the statement.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET course_code = :course_code, title = :title, description = :description, credits = :credits, department = :department, instructor_name = :instructor_name, instructor_email = :instructor_email, duration = :duration, difficulty = :difficulty, prerequisites = :prerequisites, syllabus = :syllabus, max_students = :max_students, start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Deactivate marks a course as inactive.
func (r *CourseRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE courses SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate course: %w", err)
	}
	return nil
}

// EnrollStudent appends studentID to the roster under the guard "active, not
// already present, below capacity". The conditional update is what serializes
// concurrent enrollments at the capacity boundary; it reports whether the row
// was updated so the caller can classify a lost race.
func (r *CourseRepository) EnrollStudent(ctx context.Context, courseID, studentID string) (bool, error) {
	const query = `UPDATE courses
        SET enrolled_students = array_append(enrolled_students, $2), updated_at = $3
        WHERE id = $1 AND active = true
          AND NOT ($2 = ANY(enrolled_students))
          AND cardinality(enrolled_students) < max_students`
	res, err := r.db.ExecContext(ctx, query, courseID, studentID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("enroll student in course: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enroll student rows affected: %w", err)
	}
	return affected == 1, nil
}

// UnenrollStudent removes studentID from the roster, guarded on membership.
// No active guard: unenrolling from a soft-deleted course is legal cleanup.
func (r *CourseRepository) UnenrollStudent(ctx context.Context, courseID, studentID string) (bool, error) {
	const query = `UPDATE courses
        SET enrolled_students = array_remove(enrolled_students, $2), updated_at = $3
        WHERE id = $1 AND $2 = ANY(enrolled_students)`
	res, err := r.db.ExecContext(ctx, query, courseID, studentID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("unenroll student from course: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unenroll student rows affected: %w", err)
	}
	return affected == 1, nil
}

// RestoreStudent re-appends studentID without the capacity or active guards.
// Used only as the compensating write when the second half of an unenroll
// fails; it restores exactly the pre-operation roster state.
func (r *CourseRepository) RestoreStudent(ctx context.Context, courseID, studentID string) error {
	const query = `UPDATE courses
        SET enrolled_students = array_append(enrolled_students, $2), updated_at = $3
        WHERE id = $1 AND NOT ($2 = ANY(enrolled_students))`
	if _, err := r.db.ExecContext(ctx, query, courseID, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("restore student on course: %w", err)
	}
	return nil
}

// Stats aggregates active-course figures per department plus overall totals.
func (r *CourseRepository) Stats(ctx context.Context) (*models.CourseStats, error) {
	const deptQuery = `SELECT department,
        COUNT(*) AS total_courses,
        COALESCE(SUM(credits), 0) AS total_credits,
        COALESCE(AVG(credits), 0) AS avg_credits,
        COALESCE(SUM(cardinality(enrolled_students)), 0) AS enrollment_count
        FROM courses WHERE active = true
        GROUP BY department ORDER BY total_courses DESC`
	var deptStats []models.DepartmentStat
	if err := r.db.SelectContext(ctx, &deptStats, deptQuery); err != nil {
		return nil, fmt.Errorf("department stats: %w", err)
	}

	const totalsQuery = `SELECT COUNT(*) AS total_courses,
        COALESCE(SUM(cardinality(enrolled_students)), 0) AS total_enrollments
        FROM courses WHERE active = true`
	var totals struct {
		TotalCourses     int `db:"total_courses"`
		TotalEnrollments int `db:"total_enrollments"`
	}
	if err := r.db.GetContext(ctx, &totals, totalsQuery); err != nil {
		return nil, fmt.Errorf("course totals: %w", err)
	}

	return &models.CourseStats{
		DepartmentStats:  deptStats,
		TotalCourses:     totals.TotalCourses,
		TotalEnrollments: totals.TotalEnrollments,
	}, nil
}
