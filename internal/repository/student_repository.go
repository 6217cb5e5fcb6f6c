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

const studentColumns = "id, name, email, age, department, admission_date, phone, address, profile_picture, enrolled_courses, active, created_at, updated_at"

// StudentRepository manages persistence for student records. The roster
// column enrolled_courses is mutated only through the guarded Enroll/Unenroll
// helpers below.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns active students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	conditions := []string{"active = true"}
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"name":           "name",
		"email":          "email",
		"department":     "department",
		"admission_date": "admission_date",
		"created_at":     "created_at",
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

	query := fmt.Sprintf("SELECT %s FROM students%s ORDER BY %s %s LIMIT %d OFFSET %d",
		studentColumns, clause, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM students" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID regardless of active state; callers decide
// how to treat inactive records.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListByIDs returns the students referenced by ids preserving no particular
// order. Missing ids are skipped.
func (r *StudentRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = ANY($1)", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list students by ids: %w", err)
	}
	return students, nil
}

// ExistsByEmail checks email uniqueness optionally excluding an ID.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE email = $1"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student email: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.AdmissionDate.IsZero() {
		student.AdmissionDate = now
	}
	if student.EnrolledCourses == nil {
		student.EnrolledCourses = pq.StringArray{}
	}
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, name, email, age, department, admission_date, phone, address, profile_picture, enrolled_courses, active, created_at, updated_at)
        VALUES (:id, :name, :email, :age, :department, :admission_date, :phone, :address, :profile_picture, :enrolled_courses, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies the mutable profile fields of an existing student. The
// roster column is deliberately absent from the statement.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, email = :email, age = :age, department = :department, admission_date = :admission_date, phone = :phone, address = :address, profile_picture = :profile_picture, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Deactivate marks a student as inactive.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE students SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}

// EnrollCourse appends courseID to the student's list under the guard
// "active, not already present". It reports whether the row was updated, so
// the caller can distinguish a lost race from success.
func (r *StudentRepository) EnrollCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `UPDATE students
        SET enrolled_courses = array_append(enrolled_courses, $2), updated_at = $3
        WHERE id = $1 AND active = true AND NOT ($2 = ANY(enrolled_courses))`
	res, err := r.db.ExecContext(ctx, query, studentID, courseID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("enroll course for student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enroll course rows affected: %w", err)
	}
	return affected == 1, nil
}

// UnenrollCourse removes courseID from the student's list, guarded on
// membership. No active guard: cascade cleanup must reach inactive records.
func (r *StudentRepository) UnenrollCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `UPDATE students
        SET enrolled_courses = array_remove(enrolled_courses, $2), updated_at = $3
        WHERE id = $1 AND $2 = ANY(enrolled_courses)`
	res, err := r.db.ExecContext(ctx, query, studentID, courseID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("unenroll course for student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unenroll course rows affected: %w", err)
	}
	return affected == 1, nil
}
