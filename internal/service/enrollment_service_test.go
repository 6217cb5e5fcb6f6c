package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/campus-api/internal/models"
	appErrors "github.com/campusdesk/campus-api/pkg/errors"
)

// fakeStudentRoster mirrors the guarded-update semantics of the real
// repository against an in-memory map.
type fakeStudentRoster struct {
	students      map[string]*models.Student
	enrollErr     error
	unenrollErr   error
	deactivateErr error
}

func (f *fakeStudentRoster) FindByID(_ context.Context, id string) (*models.Student, error) {
	st, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *st
	clone.EnrolledCourses = pq.StringArray(append([]string(nil), st.EnrolledCourses...))
	return &clone, nil
}

func (f *fakeStudentRoster) EnrollCourse(_ context.Context, studentID, courseID string) (bool, error) {
	if f.enrollErr != nil {
		return false, f.enrollErr
	}
	st, ok := f.students[studentID]
	if !ok || !st.Active || st.IsEnrolledIn(courseID) {
		return false, nil
	}
	st.EnrolledCourses = append(st.EnrolledCourses, courseID)
	return true, nil
}

func (f *fakeStudentRoster) UnenrollCourse(_ context.Context, studentID, courseID string) (bool, error) {
	if f.unenrollErr != nil {
		return false, f.unenrollErr
	}
	st, ok := f.students[studentID]
	if !ok || !st.IsEnrolledIn(courseID) {
		return false, nil
	}
	next := st.EnrolledCourses[:0]
	for _, id := range st.EnrolledCourses {
		if id != courseID {
			next = append(next, id)
		}
	}
	st.EnrolledCourses = next
	return true, nil
}

func (f *fakeStudentRoster) Deactivate(_ context.Context, id string) error {
	if f.deactivateErr != nil {
		return f.deactivateErr
	}
	if st, ok := f.students[id]; ok {
		st.Active = false
	}
	return nil
}

type fakeCourseRoster struct {
	courses       map[string]*models.Course
	enrollHook    func()
	enrollErr     error
	unenrollErr   error
	restoreErr    error
	deactivateErr error
}

func (f *fakeCourseRoster) FindByID(_ context.Context, id string) (*models.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *c
	clone.EnrolledStudents = pq.StringArray(append([]string(nil), c.EnrolledStudents...))
	return &clone, nil
}

func (f *fakeCourseRoster) EnrollStudent(_ context.Context, courseID, studentID string) (bool, error) {
	if f.enrollHook != nil {
		f.enrollHook()
	}
	if f.enrollErr != nil {
		return false, f.enrollErr
	}
	c, ok := f.courses[courseID]
	if !ok || !c.Active || c.HasStudent(studentID) || c.IsFull() {
		return false, nil
	}
	c.EnrolledStudents = append(c.EnrolledStudents, studentID)
	return true, nil
}

func (f *fakeCourseRoster) UnenrollStudent(_ context.Context, courseID, studentID string) (bool, error) {
	if f.unenrollErr != nil {
		return false, f.unenrollErr
	}
	c, ok := f.courses[courseID]
	if !ok || !c.HasStudent(studentID) {
		return false, nil
	}
	next := c.EnrolledStudents[:0]
	for _, id := range c.EnrolledStudents {
		if id != studentID {
			next = append(next, id)
		}
	}
	c.EnrolledStudents = next
	return true, nil
}

func (f *fakeCourseRoster) RestoreStudent(_ context.Context, courseID, studentID string) error {
	if f.restoreErr != nil {
		return f.restoreErr
	}
	c, ok := f.courses[courseID]
	if ok && !c.HasStudent(studentID) {
		c.EnrolledStudents = append(c.EnrolledStudents, studentID)
	}
	return nil
}

func (f *fakeCourseRoster) Deactivate(_ context.Context, id string) error {
	if f.deactivateErr != nil {
		return f.deactivateErr
	}
	if c, ok := f.courses[id]; ok {
		c.Active = false
	}
	return nil
}

func newFixture() (*fakeStudentRoster, *fakeCourseRoster, *EnrollmentService) {
	students := &fakeStudentRoster{students: map[string]*models.Student{
		"s1": {ID: "s1", Name: "Ada", Active: true},
		"s2": {ID: "s2", Name: "Grace", Active: true},
	}}
	courses := &fakeCourseRoster{courses: map[string]*models.Course{
		"c1": {ID: "c1", Title: "Databases", MaxStudents: 2, Active: true},
		"c2": {ID: "c2", Title: "Networks", MaxStudents: 1, Active: true},
	}}
	return students, courses, NewEnrollmentService(students, courses, nil)
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return appErrors.FromError(err).Code
}

func TestEnrollUpdatesBothRosters(t *testing.T) {
	students, courses, svc := newFixture()

	err := svc.Enroll(context.Background(), "s1", "c1")
	require.NoError(t, err)

	assert.Equal(t, []string{"c1"}, []string(students.students["s1"].EnrolledCourses))
	assert.Equal(t, []string{"s1"}, []string(courses.courses["c1"].EnrolledStudents))
}

func TestEnrollIsRejectedWhenAlreadyEnrolled(t *testing.T) {
	students, courses, svc := newFixture()
	require.NoError(t, svc.Enroll(context.Background(), "s1", "c1"))

	err := svc.Enroll(context.Background(), "s1", "c1")
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, errorCode(t, err))

	assert.Len(t, students.students["s1"].EnrolledCourses, 1)
	assert.Len(t, courses.courses["c1"].EnrolledStudents, 1)
}

func TestEnrollRespectsCapacityBoundary(t *testing.T) {
	students, courses, svc := newFixture()
	require.NoError(t, svc.Enroll(context.Background(), "s1", "c2"))

	err := svc.Enroll(context.Background(), "s2", "c2")
	assert.Equal(t, appErrors.ErrCourseFull.Code, errorCode(t, err))

	assert.Empty(t, students.students["s2"].EnrolledCourses)
	assert.Equal(t, []string{"s1"}, []string(courses.courses["c2"].EnrolledStudents))
}

func TestEnrollUnknownTargetsReadAsNotFound(t *testing.T) {
	_, _, svc := newFixture()

	err := svc.Enroll(context.Background(), "missing", "c1")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))

	err = svc.Enroll(context.Background(), "s1", "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestEnrollInactiveCourseReadsAsNotFound(t *testing.T) {
	_, courses, svc := newFixture()
	courses.courses["c1"].Active = false

	err := svc.Enroll(context.Background(), "s1", "c1")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestEnrollClassifiesLostCapacityRace(t *testing.T) {
	students, courses, svc := newFixture()

	// Another request fills the last seat between the precheck and the
	// guarded write.
	courses.enrollHook = func() {
		courses.enrollHook = nil
		c := courses.courses["c2"]
		c.EnrolledStudents = append(c.EnrolledStudents, "s2")
	}

	err := svc.Enroll(context.Background(), "s1", "c2")
	assert.Equal(t, appErrors.ErrCourseFull.Code, errorCode(t, err))
	assert.Empty(t, students.students["s1"].EnrolledCourses)
}

func TestEnrollCompensatesWhenStudentWriteFails(t *testing.T) {
	students, courses, svc := newFixture()
	students.enrollErr = errors.New("connection reset")

	err := svc.Enroll(context.Background(), "s1", "c1")
	require.Error(t, err)
	assert.NotEqual(t, appErrors.ErrInconsistent.Code, appErrors.FromError(err).Code)

	// The compensating write removed the half-applied course entry.
	assert.Empty(t, courses.courses["c1"].EnrolledStudents)
	assert.Empty(t, students.students["s1"].EnrolledCourses)
}

func TestEnrollSurfacesInconsistentStateWhenCompensationFails(t *testing.T) {
	students, courses, svc := newFixture()
	students.enrollErr = errors.New("connection reset")
	courses.unenrollErr = errors.New("connection reset")

	err := svc.Enroll(context.Background(), "s1", "c1")
	assert.Equal(t, appErrors.ErrInconsistent.Code, errorCode(t, err))
}

func TestUnenrollUpdatesBothRosters(t *testing.T) {
	students, courses, svc := newFixture()
	require.NoError(t, svc.Enroll(context.Background(), "s1", "c1"))

	err := svc.Unenroll(context.Background(), "s1", "c1")
	require.NoError(t, err)

	assert.Empty(t, students.students["s1"].EnrolledCourses)
	assert.Empty(t, courses.courses["c1"].EnrolledStudents)
}

func TestUnenrollWithoutEnrollmentIsRejected(t *testing.T) {
	_, _, svc := newFixture()

	err := svc.Unenroll(context.Background(), "s1", "c1")
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, errorCode(t, err))
}

func TestUnenrollFromInactiveCourseIsLegalCleanup(t *testing.T) {
	students, courses, svc := newFixture()
	require.NoError(t, svc.Enroll(context.Background(), "s1", "c1"))

	// Deactivate directly, leaving the student's reference behind.
	courses.courses["c1"].Active = false

	err := svc.Unenroll(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.Empty(t, students.students["s1"].EnrolledCourses)
}

func TestUnenrollRestoresCourseRosterWhenStudentWriteFails(t *testing.T) {
	students, courses, svc := newFixture()
	require.NoError(t, svc.Enroll(context.Background(), "s1", "c1"))
	students.unenrollErr = errors.New("connection reset")

	err := svc.Unenroll(context.Background(), "s1", "c1")
	require.Error(t, err)
	assert.NotEqual(t, appErrors.ErrInconsistent.Code, appErrors.FromError(err).Code)

	assert.Equal(t, []string{"s1"}, []string(courses.courses["c1"].EnrolledStudents))
	assert.Equal(t, []string{"c1"}, []string(students.students["s1"].EnrolledCourses))
}

func TestUnenrollSurfacesInconsistentStateWhenRestoreFails(t *testing.T) {
	students, courses, svc := newFixture()
	require.NoError(t, svc.Enroll(context.Background(), "s1", "c1"))
	students.unenrollErr = errors.New("connection reset")
	courses.restoreErr = errors.New("connection reset")

	err := svc.Unenroll(context.Background(), "s1", "c1")
	assert.Equal(t, appErrors.ErrInconsistent.Code, errorCode(t, err))
}

func TestDeleteStudentCascadesAcrossCourseRosters(t *testing.T) {
	students, courses, svc := newFixture()
	require.NoError(t, svc.Enroll(context.Background(), "s1", "c1"))
	require.NoError(t, svc.Enroll(context.Background(), "s1", "c2"))

	err := svc.DeleteStudent(context.Background(), "s1")
	require.NoError(t, err)

	assert.False(t, students.students["s1"].Active)
	assert.Empty(t, courses.courses["c1"].EnrolledStudents)
	assert.Empty(t, courses.courses["c2"].EnrolledStudents)
	// The student's own list is kept as historical reference.
	assert.ElementsMatch(t, []string{"c1", "c2"}, []string(students.students["s1"].EnrolledCourses))
}

func TestDeleteStudentTwiceReadsAsNotFound(t *testing.T) {
	_, _, svc := newFixture()
	require.NoError(t, svc.DeleteStudent(context.Background(), "s1"))

	err := svc.DeleteStudent(context.Background(), "s1")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestDeleteStudentCascadeFailureSurfacesInconsistentState(t *testing.T) {
	_, courses, svc := newFixture()
	require.NoError(t, svc.Enroll(context.Background(), "s1", "c1"))
	courses.unenrollErr = errors.New("connection reset")

	err := svc.DeleteStudent(context.Background(), "s1")
	assert.Equal(t, appErrors.ErrInconsistent.Code, errorCode(t, err))
}

func TestDeleteCourseCascadesAcrossStudentLists(t *testing.T) {
	students, courses, svc := newFixture()
	require.NoError(t, svc.Enroll(context.Background(), "s1", "c1"))
	require.NoError(t, svc.Enroll(context.Background(), "s2", "c1"))

	err := svc.DeleteCourse(context.Background(), "c1")
	require.NoError(t, err)

	assert.False(t, courses.courses["c1"].Active)
	assert.Empty(t, students.students["s1"].EnrolledCourses)
	assert.Empty(t, students.students["s2"].EnrolledCourses)
	// The course roster is kept as historical reference.
	assert.ElementsMatch(t, []string{"s1", "s2"}, []string(courses.courses["c1"].EnrolledStudents))
}

func TestDeleteCourseTwiceReadsAsNotFound(t *testing.T) {
	_, _, svc := newFixture()
	require.NoError(t, svc.DeleteCourse(context.Background(), "c1"))

	err := svc.DeleteCourse(context.Background(), "c1")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}
