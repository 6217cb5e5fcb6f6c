package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/campusdesk/campus-api/internal/models"
	appErrors "github.com/campusdesk/campus-api/pkg/errors"
)

type studentRosterRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	EnrollCourse(ctx context.Context, studentID, courseID string) (bool, error)
	UnenrollCourse(ctx context.Context, studentID, courseID string) (bool, error)
	Deactivate(ctx context.Context, id string) error
}

type courseRosterRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	EnrollStudent(ctx context.Context, courseID, studentID string) (bool, error)
	UnenrollStudent(ctx context.Context, courseID, studentID string) (bool, error)
	RestoreStudent(ctx context.Context, courseID, studentID string) error
	Deactivate(ctx context.Context, id string) error
}

// EnrollmentService owns the bidirectional relationship between student and
// course rosters. It is the only component allowed to write either roster
// column, and it keeps them consistent without multi-record transactions:
// each side is mutated through a single guarded UPDATE, the course side goes
// first because its guard carries the capacity check, and a failure on the
// student side triggers a compensating write on the course side. If the
// compensation itself fails the operation surfaces INCONSISTENT_STATE and
// logs the pair for manual reconciliation.
type EnrollmentService struct {
	students studentRosterRepository
	courses  courseRosterRepository
	logger   *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(students studentRosterRepository, courses courseRosterRepository, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{students: students, courses: courses, logger: logger}
}

// Enroll registers a student to a course. Both rosters are updated or
// neither; no side effect is left behind on any error.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID string) error {
	student, err := s.loadActiveStudent(ctx, studentID)
	if err != nil {
		return err
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Active {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if student.IsEnrolledIn(courseID) || course.HasStudent(studentID) {
		return appErrors.ErrAlreadyEnrolled
	}
	if course.IsFull() {
		return appErrors.ErrCourseFull
	}

	ok, err := s.courses.EnrollStudent(ctx, courseID, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course roster")
	}
	if !ok {
		// The guarded write lost a race; re-read to report the real cause.
		return s.classifyCourseGuardFailure(ctx, studentID, courseID)
	}

	ok, err = s.students.EnrollCourse(ctx, studentID, courseID)
	if err == nil && ok {
		return nil
	}

	if _, compErr := s.courses.UnenrollStudent(ctx, courseID, studentID); compErr != nil {
		s.logger.Error("enroll compensation failed, rosters diverged",
			zap.String("student_id", studentID),
			zap.String("course_id", courseID),
			zap.Error(compErr))
		return appErrors.Wrap(compErr, appErrors.ErrInconsistent.Code, appErrors.ErrInconsistent.Status, appErrors.ErrInconsistent.Message)
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student roster")
	}
	return s.classifyStudentGuardFailure(ctx, studentID, courseID)
}

// Unenroll removes a student from a course. The course may already be
// soft-deleted; unenrolling from it is legal cleanup.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID, courseID string) error {
	student, err := s.loadActiveStudent(ctx, studentID)
	if err != nil {
		return err
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !student.IsEnrolledIn(courseID) && !course.HasStudent(studentID) {
		return appErrors.ErrNotEnrolled
	}

	removedFromCourse, err := s.courses.UnenrollStudent(ctx, courseID, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course roster")
	}

	removedFromStudent, err := s.students.UnenrollCourse(ctx, studentID, courseID)
	if err != nil {
		if removedFromCourse {
			if compErr := s.courses.RestoreStudent(ctx, courseID, studentID); compErr != nil {
				s.logger.Error("unenroll compensation failed, rosters diverged",
					zap.String("student_id", studentID),
					zap.String("course_id", courseID),
					zap.Error(compErr))
				return appErrors.Wrap(compErr, appErrors.ErrInconsistent.Code, appErrors.ErrInconsistent.Status, appErrors.ErrInconsistent.Message)
			}
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student roster")
	}

	if !removedFromCourse && !removedFromStudent {
		// Another request finished the removal first.
		return appErrors.ErrNotEnrolled
	}
	return nil
}

// DeleteStudent soft-deletes a student: the active flag flips first, then the
// student is pulled from every referenced course roster. The student's own
// course list is retained as historical reference.
func (s *EnrollmentService) DeleteStudent(ctx context.Context, studentID string) error {
	student, err := s.loadActiveStudent(ctx, studentID)
	if err != nil {
		return err
	}

	if err := s.students.Deactivate(ctx, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}

	for _, courseID := range student.EnrolledCourses {
		if _, err := s.courses.UnenrollStudent(ctx, courseID, studentID); err != nil {
			s.logger.Error("cascade cleanup failed after student delete",
				zap.String("student_id", studentID),
				zap.String("course_id", courseID),
				zap.Error(err))
			return appErrors.Wrap(err, appErrors.ErrInconsistent.Code, appErrors.ErrInconsistent.Status, appErrors.ErrInconsistent.Message)
		}
	}
	return nil
}

// DeleteCourse soft-deletes a course: flag first, then the course is pulled
// from every enrolled student's list. The course roster is retained.
func (s *EnrollmentService) DeleteCourse(ctx context.Context, courseID string) error {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Active {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	if err := s.courses.Deactivate(ctx, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate course")
	}

	for _, studentID := range course.EnrolledStudents {
		if _, err := s.students.UnenrollCourse(ctx, studentID, courseID); err != nil {
			s.logger.Error("cascade cleanup failed after course delete",
				zap.String("course_id", courseID),
				zap.String("student_id", studentID),
				zap.Error(err))
			return appErrors.Wrap(err, appErrors.ErrInconsistent.Code, appErrors.ErrInconsistent.Status, appErrors.ErrInconsistent.Message)
		}
	}
	return nil
}

func (s *EnrollmentService) loadActiveStudent(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		// Inactive reads as absent so soft-delete state does not leak.
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

func (s *EnrollmentService) classifyCourseGuardFailure(ctx context.Context, studentID, courseID string) error {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	switch {
	case !course.Active:
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	case course.HasStudent(studentID):
		return appErrors.ErrAlreadyEnrolled
	case course.IsFull():
		return appErrors.ErrCourseFull
	default:
		return appErrors.Clone(appErrors.ErrInternal, "course roster update rejected")
	}
}

func (s *EnrollmentService) classifyStudentGuardFailure(ctx context.Context, studentID, courseID string) error {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	switch {
	case !student.Active:
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	case student.IsEnrolledIn(courseID):
		return appErrors.ErrAlreadyEnrolled
	default:
		return appErrors.Clone(appErrors.ErrInternal, "student roster update rejected")
	}
}
