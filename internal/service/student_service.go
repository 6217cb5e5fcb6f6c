package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusdesk/campus-api/internal/models"
	appErrors "github.com/campusdesk/campus-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

type courseReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Course, error)
}

type enroller interface {
	Enroll(ctx context.Context, studentID, courseID string) error
}

// CreateStudentRequest describes the student creation payload. Initial
// enrollments go through the enrollment service one by one.
type CreateStudentRequest struct {
	Name            string   `json:"name" validate:"required,min=2,max=50"`
	Email           string   `json:"email" validate:"required,email"`
	Age             *int     `json:"age" validate:"omitempty,min=16,max=100"`
	Department      string   `json:"department" validate:"required"`
	Phone           string   `json:"phone" validate:"omitempty,max=20"`
	Address         string   `json:"address" validate:"omitempty,max=200"`
	ProfilePicture  *string  `json:"profile_picture"`
	EnrolledCourses []string `json:"enrolled_courses" validate:"omitempty,dive,required"`
}

// UpdateStudentRequest is the explicit patch structure for a student. Roster
// fields are deliberately not part of it; unknown JSON fields are rejected at
// the binding layer.
type UpdateStudentRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=2,max=50"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Age            *int    `json:"age" validate:"omitempty,min=16,max=100"`
	Department     *string `json:"department"`
	Phone          *string `json:"phone" validate:"omitempty,max=20"`
	Address        *string `json:"address" validate:"omitempty,max=200"`
	ProfilePicture *string `json:"profile_picture"`
}

// StudentService orchestrates student CRUD and listing.
type StudentService struct {
	repo        studentRepository
	courses     courseReader
	enrollments enroller
	catalog     *Catalog
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, courses courseReader, enrollments enroller, catalog *Catalog, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, courses: courses, enrollments: enrollments, catalog: catalog, validator: validate, logger: logger}
}

// List returns students with pagination metadata and populated course
// summaries.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	if filter.Department != "" && !s.catalog.HasDepartment(filter.Department) {
		return nil, nil, s.unknownDepartment()
	}

	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	details, err := s.populate(ctx, students)
	if err != nil {
		return nil, nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 10
	}
	return details, models.NewPagination(page, size, total), nil
}

// Get returns a single active student with populated courses. Inactive
// records read as absent.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	details, err := s.populate(ctx, []models.Student{*student})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// Create registers a new student and performs any initial enrollments through
// the enrollment service.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if !s.catalog.HasDepartment(req.Department) {
		return nil, s.unknownDepartment()
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.repo.ExistsByEmail(ctx, email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student with this email already exists")
	}

	if len(req.EnrolledCourses) > 0 {
		valid, err := s.courses.ListByIDs(ctx, req.EnrolledCourses)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate courses")
		}
		active := 0
		for _, c := range valid {
			if c.Active {
				active++
			}
		}
		if active != len(req.EnrolledCourses) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "one or more courses are invalid")
		}
	}

	student := &models.Student{
		Name:           strings.TrimSpace(req.Name),
		Email:          email,
		Age:            req.Age,
		Department:     req.Department,
		Phone:          req.Phone,
		Address:        req.Address,
		ProfilePicture: req.ProfilePicture,
		Active:         true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	for _, courseID := range req.EnrolledCourses {
		if err := s.enrollments.Enroll(ctx, student.ID, courseID); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, student.ID)
}

// Update applies the patch to an active student.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != student.Email {
			exists, err := s.repo.ExistsByEmail(ctx, email, id)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
			}
			if exists {
				return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
			}
		}
		student.Email = email
	}
	if req.Name != nil {
		student.Name = strings.TrimSpace(*req.Name)
	}
	if req.Age != nil {
		student.Age = req.Age
	}
	if req.Department != nil {
		if !s.catalog.HasDepartment(*req.Department) {
			return nil, s.unknownDepartment()
		}
		student.Department = *req.Department
	}
	if req.Phone != nil {
		student.Phone = *req.Phone
	}
	if req.Address != nil {
		student.Address = *req.Address
	}
	if req.ProfilePicture != nil {
		student.ProfilePicture = req.ProfilePicture
	}

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, id)
}

func (s *StudentService) unknownDepartment() error {
	return appErrors.Clone(appErrors.ErrValidation,
		"department must be one of: "+strings.Join(s.catalog.Departments(), ", "))
}

func (s *StudentService) populate(ctx context.Context, students []models.Student) ([]models.StudentDetail, error) {
	idSet := make(map[string]struct{})
	for _, st := range students {
		for _, courseID := range st.EnrolledCourses {
			idSet[courseID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	var byID map[string]models.Course
	if len(ids) > 0 {
		courses, err := s.courses.ListByIDs(ctx, ids)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolled courses")
		}
		byID = make(map[string]models.Course, len(courses))
		for _, c := range courses {
			byID[c.ID] = c
		}
	}

	details := make([]models.StudentDetail, 0, len(students))
	for _, st := range students {
		detail := models.StudentDetail{Student: st}
		for _, courseID := range st.EnrolledCourses {
			if c, ok := byID[courseID]; ok {
				detail.Courses = append(detail.Courses, models.CourseSummary{
					ID:         c.ID,
					CourseCode: c.CourseCode,
					Title:      c.Title,
					Credits:    c.Credits,
					Department: c.Department,
				})
			}
		}
		details = append(details, detail)
	}
	return details, nil
}
