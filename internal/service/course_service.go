package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/campusdesk/campus-api/internal/models"
	appErrors "github.com/campusdesk/campus-api/pkg/errors"
	"github.com/campusdesk/campus-api/pkg/export"
)

const (
	statsCacheKey      = "courses:stats"
	defaultMaxStudents = 50
)

var courseCodePattern = regexp.MustCompile(`^[A-Z]{2,4}\d{3,4}$`)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	ExistsByTitle(ctx context.Context, title string, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Stats(ctx context.Context) (*models.CourseStats, error)
}

type studentReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Student, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CreateCourseRequest describes the course creation payload.
type CreateCourseRequest struct {
	CourseCode    string                `json:"course_code" validate:"required"`
	Title         string                `json:"title" validate:"required,min=3,max=100"`
	Description   string                `json:"description" validate:"required,min=10,max=500"`
	Credits       int                   `json:"credits" validate:"required,min=1,max=6"`
	Department    string                `json:"department" validate:"required"`
	Instructor    models.Instructor     `json:"instructor" validate:"required"`
	Duration      string                `json:"duration" validate:"required"`
	Difficulty    string                `json:"difficulty" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Prerequisites []string              `json:"prerequisites"`
	Syllabus      []models.SyllabusItem `json:"syllabus"`
	MaxStudents   int                   `json:"max_students" validate:"omitempty,min=1,max=200"`
	StartDate     time.Time             `json:"start_date" validate:"required"`
	EndDate       time.Time             `json:"end_date" validate:"required"`
}

// UpdateCourseRequest is the explicit patch structure for a course. Roster and
// course code are immutable after creation.
type UpdateCourseRequest struct {
	Title         *string                `json:"title" validate:"omitempty,min=3,max=100"`
	Description   *string                `json:"description" validate:"omitempty,min=10,max=500"`
	Credits       *int                   `json:"credits" validate:"omitempty,min=1,max=6"`
	Department    *string                `json:"department"`
	Instructor    *models.Instructor     `json:"instructor"`
	Duration      *string                `json:"duration"`
	Difficulty    *string                `json:"difficulty" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Prerequisites *[]string              `json:"prerequisites"`
	Syllabus      *[]models.SyllabusItem `json:"syllabus"`
	MaxStudents   *int                   `json:"max_students" validate:"omitempty,min=1,max=200"`
	StartDate     *time.Time             `json:"start_date"`
	EndDate       *time.Time             `json:"end_date"`
}

// RosterStudent is the trimmed student shape embedded in course responses.
type RosterStudent struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

// CourseView is a course detail enriched with its populated roster and the
// per-department breakdown of enrolled students.
type CourseView struct {
	models.CourseDetail
	Students            []RosterStudent `json:"students,omitempty"`
	DepartmentBreakdown map[string]int  `json:"department_breakdown,omitempty"`
}

// RosterExport carries rendered roster bytes plus the response metadata.
type RosterExport struct {
	Content     []byte
	ContentType string
	Filename    string
}

// CourseService orchestrates course CRUD, statistics and roster export.
type CourseService struct {
	repo      courseRepository
	students  studentReader
	cache     statsCache
	catalog   *Catalog
	validator *validator.Validate
	logger    *zap.Logger
	statsTTL  time.Duration
	now       func() time.Time
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, students studentReader, cache statsCache, catalog *Catalog, validate *validator.Validate, logger *zap.Logger, statsTTL time.Duration) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if statsTTL <= 0 {
		statsTTL = 5 * time.Minute
	}
	return &CourseService{
		repo:      repo,
		students:  students,
		cache:     cache,
		catalog:   catalog,
		validator: validate,
		logger:    logger,
		statsTTL:  statsTTL,
		now:       time.Now,
	}
}

// List returns active courses with derived status fields and pagination.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	if filter.Department != "" && !s.catalog.HasDepartment(filter.Department) {
		return nil, nil, s.unknownDepartment()
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	now := s.now()
	details := make([]models.CourseDetail, 0, len(courses))
	for _, c := range courses {
		details = append(details, models.NewCourseDetail(c, now))
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

// Get returns a single active course with its populated roster and the
// department breakdown of enrolled students.
func (s *CourseService) Get(ctx context.Context, id string) (*CourseView, error) {
	course, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &CourseView{CourseDetail: models.NewCourseDetail(*course, s.now())}
	if len(course.EnrolledStudents) == 0 {
		return view, nil
	}

	enrolled, err := s.students.ListByIDs(ctx, course.EnrolledStudents)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course roster")
	}
	byID := make(map[string]models.Student, len(enrolled))
	for _, st := range enrolled {
		byID[st.ID] = st
	}

	view.DepartmentBreakdown = make(map[string]int)
	for _, studentID := range course.EnrolledStudents {
		st, ok := byID[studentID]
		if !ok {
			continue
		}
		view.Students = append(view.Students, RosterStudent{
			ID:         st.ID,
			Name:       st.Name,
			Email:      st.Email,
			Department: st.Department,
		})
		view.DepartmentBreakdown[st.Department]++
	}
	return view, nil
}

// Create registers a new course.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*CourseView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	code := strings.ToUpper(strings.TrimSpace(req.CourseCode))
	if !courseCodePattern.MatchString(code) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course code must be 2-4 letters followed by 3-4 digits")
	}
	if !s.catalog.HasDepartment(req.Department) {
		return nil, s.unknownDepartment()
	}
	if !s.catalog.HasDuration(req.Duration) {
		return nil, s.unknownDuration()
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}

	exists, err := s.repo.ExistsByCode(ctx, code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course with this code already exists")
	}
	exists, err = s.repo.ExistsByTitle(ctx, req.Title, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course title")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course with this title already exists")
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyBeginner
	}
	maxStudents := req.MaxStudents
	if maxStudents == 0 {
		maxStudents = defaultMaxStudents
	}
	course := &models.Course{
		CourseCode:    code,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Credits:       req.Credits,
		Department:    req.Department,
		Instructor:    req.Instructor,
		Duration:      req.Duration,
		Difficulty:    difficulty,
		Prerequisites: pq.StringArray(req.Prerequisites),
		Syllabus:      models.Syllabus(req.Syllabus),
		MaxStudents:   maxStudents,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Active:        true,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.invalidateStats(ctx)
	return s.Get(ctx, course.ID)
}

// Update applies the patch to an active course.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*CourseView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if !strings.EqualFold(title, course.Title) {
			exists, err := s.repo.ExistsByTitle(ctx, title, id)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course title")
			}
			if exists {
				return nil, appErrors.Clone(appErrors.ErrConflict, "course with this title already exists")
			}
		}
		course.Title = title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Credits != nil {
		course.Credits = *req.Credits
	}
	if req.Department != nil {
		if !s.catalog.HasDepartment(*req.Department) {
			return nil, s.unknownDepartment()
		}
		course.Department = *req.Department
	}
	if req.Instructor != nil {
		course.Instructor = *req.Instructor
	}
	if req.Duration != nil {
		if !s.catalog.HasDuration(*req.Duration) {
			return nil, s.unknownDuration()
		}
		course.Duration = *req.Duration
	}
	if req.Difficulty != nil {
		course.Difficulty = *req.Difficulty
	}
	if req.Prerequisites != nil {
		course.Prerequisites = pq.StringArray(*req.Prerequisites)
	}
	if req.Syllabus != nil {
		course.Syllabus = models.Syllabus(*req.Syllabus)
	}
	if req.MaxStudents != nil {
		if *req.MaxStudents < course.EnrolledCount() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "max students cannot be below current enrollment")
		}
		course.MaxStudents = *req.MaxStudents
	}
	if req.StartDate != nil {
		course.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		course.EndDate = *req.EndDate
	}
	if !course.EndDate.After(course.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.invalidateStats(ctx)
	return s.Get(ctx, id)
}

// Stats returns aggregated course figures, served from Redis when fresh.
func (s *CourseService) Stats(ctx context.Context) (*models.CourseStats, error) {
	var cached models.CourseStats
	if err := s.cache.Get(ctx, statsCacheKey, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("stats cache read failed", zap.Error(err))
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute course statistics")
	}

	if err := s.cache.Set(ctx, statsCacheKey, stats, s.statsTTL); err != nil {
		s.logger.Warn("stats cache write failed", zap.Error(err))
	}
	return stats, nil
}

// ExportRoster renders the course roster in the requested format, csv or pdf.
func (s *CourseService) ExportRoster(ctx context.Context, id, format string) (*RosterExport, error) {
	course, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}

	var enrolled []models.Student
	if len(course.EnrolledStudents) > 0 {
		enrolled, err = s.students.ListByIDs(ctx, course.EnrolledStudents)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course roster")
		}
	}
	byID := make(map[string]models.Student, len(enrolled))
	for _, st := range enrolled {
		byID[st.ID] = st
	}
	rows := make([]export.RosterRow, 0, len(course.EnrolledStudents))
	for _, studentID := range course.EnrolledStudents {
		st, ok := byID[studentID]
		if !ok {
			continue
		}
		rows = append(rows, export.RosterRow{
			Name:          st.Name,
			Email:         st.Email,
			Department:    st.Department,
			AdmissionDate: st.AdmissionDate.Format("2006-01-02"),
		})
	}

	switch strings.ToLower(format) {
	case "csv", "":
		content, err := export.RosterCSV(rows)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
		}
		return &RosterExport{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("roster_%s.csv", course.CourseCode),
		}, nil
	case "pdf":
		title := fmt.Sprintf("%s - %s", course.CourseCode, course.Title)
		content, err := export.RosterPDF(title, course.MaxStudents, rows)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster pdf")
		}
		return &RosterExport{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("roster_%s.pdf", course.CourseCode),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// InvalidateStats drops the cached statistics aggregate. Called after roster
// mutations so the next read recomputes.
func (s *CourseService) InvalidateStats(ctx context.Context) {
	s.invalidateStats(ctx)
}

func (s *CourseService) invalidateStats(ctx context.Context) {
	if err := s.cache.Delete(ctx, statsCacheKey); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

func (s *CourseService) unknownDepartment() error {
	return appErrors.Clone(appErrors.ErrValidation,
		"department must be one of: "+strings.Join(s.catalog.Departments(), ", "))
}

func (s *CourseService) unknownDuration() error {
	return appErrors.Clone(appErrors.ErrValidation,
		"duration must be one of: "+strings.Join(s.catalog.Durations(), ", "))
}

func (s *CourseService) loadActive(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return course, nil
}
