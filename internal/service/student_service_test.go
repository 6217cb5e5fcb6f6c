package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/campus-api/internal/models"
	appErrors "github.com/campusdesk/campus-api/pkg/errors"
)

type fakeStudentRepo struct {
	students map[string]*models.Student
	emails   map[string]bool
}

func (f *fakeStudentRepo) List(_ context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var out []models.Student
	for _, st := range f.students {
		if !st.Active {
			continue
		}
		if filter.Department != "" && st.Department != filter.Department {
			continue
		}
		out = append(out, *st)
	}
	return out, len(out), nil
}

func (f *fakeStudentRepo) FindByID(_ context.Context, id string) (*models.Student, error) {
	st, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *st
	return &clone, nil
}

func (f *fakeStudentRepo) ExistsByEmail(_ context.Context, email string, _ string) (bool, error) {
	return f.emails[email], nil
}

func (f *fakeStudentRepo) Create(_ context.Context, student *models.Student) error {
	student.ID = "generated"
	f.students[student.ID] = student
	f.emails[student.Email] = true
	return nil
}

func (f *fakeStudentRepo) Update(_ context.Context, student *models.Student) error {
	f.students[student.ID] = student
	return nil
}

type fakeCourseReader struct {
	courses map[string]models.Course
}

func (f *fakeCourseReader) ListByIDs(_ context.Context, ids []string) ([]models.Course, error) {
	var out []models.Course
	for _, id := range ids {
		if c, ok := f.courses[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// fakeEnroller records enroll calls and mirrors them onto the student record
// so a follow-up read sees the enrollment.
type fakeEnroller struct {
	repo  *fakeStudentRepo
	calls [][2]string
	err   error
}

func (f *fakeEnroller) Enroll(_ context.Context, studentID, courseID string) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, [2]string{studentID, courseID})
	if st, ok := f.repo.students[studentID]; ok {
		st.EnrolledCourses = append(st.EnrolledCourses, courseID)
	}
	return nil
}

func newStudentServiceFixture() (*fakeStudentRepo, *fakeCourseReader, *fakeEnroller, *StudentService) {
	repo := &fakeStudentRepo{
		students: map[string]*models.Student{},
		emails:   map[string]bool{},
	}
	courses := &fakeCourseReader{courses: map[string]models.Course{
		"c1": {ID: "c1", CourseCode: "CS101", Title: "Databases", Credits: 3, Department: "Computer Science", Active: true},
	}}
	enroller := &fakeEnroller{repo: repo}
	svc := NewStudentService(repo, courses, enroller, testCatalog(), nil, nil)
	return repo, courses, enroller, svc
}

func validCreateStudentRequest() CreateStudentRequest {
	return CreateStudentRequest{
		Name:       "Ada Lovelace",
		Email:      "Ada@Example.com",
		Department: "IT",
	}
}

func TestStudentCreateNormalizesEmail(t *testing.T) {
	repo, _, _, svc := newStudentServiceFixture()

	detail, err := svc.Create(context.Background(), validCreateStudentRequest())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", detail.Email)
	assert.True(t, repo.students["generated"].Active)
}

func TestStudentCreateRejectsDuplicateEmail(t *testing.T) {
	repo, _, _, svc := newStudentServiceFixture()
	repo.emails["ada@example.com"] = true

	_, err := svc.Create(context.Background(), validCreateStudentRequest())
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestStudentCreateRejectsUnknownDepartment(t *testing.T) {
	_, _, _, svc := newStudentServiceFixture()

	req := validCreateStudentRequest()
	req.Department = "Astrology"

	_, err := svc.Create(context.Background(), req)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
	// The rejection names the accepted values.
	assert.Contains(t, appErrors.FromError(err).Message, "IT")
}

func TestStudentCreateEnrollsInitialCourses(t *testing.T) {
	_, _, enroller, svc := newStudentServiceFixture()

	req := validCreateStudentRequest()
	req.EnrolledCourses = []string{"c1"}

	detail, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, enroller.calls, 1)
	assert.Equal(t, [2]string{"generated", "c1"}, enroller.calls[0])
	require.Len(t, detail.Courses, 1)
	assert.Equal(t, "CS101", detail.Courses[0].CourseCode)
}

func TestStudentCreateRejectsUnknownInitialCourse(t *testing.T) {
	_, _, enroller, svc := newStudentServiceFixture()

	req := validCreateStudentRequest()
	req.EnrolledCourses = []string{"c1", "missing"}

	_, err := svc.Create(context.Background(), req)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
	assert.Empty(t, enroller.calls)
}

func TestStudentGetPopulatesCourses(t *testing.T) {
	repo, _, _, svc := newStudentServiceFixture()
	repo.students["s1"] = &models.Student{
		ID: "s1", Name: "Ada", Active: true,
		EnrolledCourses: pq.StringArray{"c1"},
	}

	detail, err := svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, detail.Courses, 1)
	assert.Equal(t, "Databases", detail.Courses[0].Title)
}

func TestStudentGetInactiveReadsAsNotFound(t *testing.T) {
	repo, _, _, svc := newStudentServiceFixture()
	repo.students["s1"] = &models.Student{ID: "s1", Active: false}

	_, err := svc.Get(context.Background(), "s1")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestStudentUpdatePatchesOnlyProvidedFields(t *testing.T) {
	repo, _, _, svc := newStudentServiceFixture()
	repo.students["s1"] = &models.Student{
		ID: "s1", Name: "Ada", Email: "ada@example.com",
		Department: "IT", Phone: "123", Active: true,
	}

	name := "Ada Lovelace"
	detail, err := svc.Update(context.Background(), "s1", UpdateStudentRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", detail.Name)
	assert.Equal(t, "ada@example.com", detail.Email)
	assert.Equal(t, "123", detail.Phone)
}

func TestStudentUpdateRejectsUnknownDepartment(t *testing.T) {
	repo, _, _, svc := newStudentServiceFixture()
	repo.students["s1"] = &models.Student{ID: "s1", Name: "Ada", Active: true}

	dept := "Astrology"
	_, err := svc.Update(context.Background(), "s1", UpdateStudentRequest{Department: &dept})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestStudentListRejectsUnknownDepartmentFilter(t *testing.T) {
	_, _, _, svc := newStudentServiceFixture()

	_, _, err := svc.List(context.Background(), models.StudentFilter{Department: "Astrology"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}
