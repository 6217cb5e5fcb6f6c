package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/campus-api/internal/models"
	"github.com/campusdesk/campus-api/internal/service"
	appErrors "github.com/campusdesk/campus-api/pkg/errors"
	"github.com/campusdesk/campus-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, req service.CreateStudentRequest) (*models.StudentDetail, error)
	Update(ctx context.Context, id string, req service.UpdateStudentRequest) (*models.StudentDetail, error)
}

type enrollmentService interface {
	Enroll(ctx context.Context, studentID, courseID string) error
	Unenroll(ctx context.Context, studentID, courseID string) error
	DeleteStudent(ctx context.Context, studentID string) error
	DeleteCourse(ctx context.Context, courseID string) error
}

// StudentHandler exposes student CRUD and the enrollment operations.
type StudentHandler struct {
	students    studentService
	enrollments enrollmentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService, enrollments enrollmentService) *StudentHandler {
	return &StudentHandler{students: students, enrollments: enrollments}
}

// List handles GET /students.
func (h *StudentHandler) List(c *gin.Context) {
	filter := models.StudentFilter{
		Search:     c.Query("search"),
		Department: c.Query("department"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "limit", 10),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "", gin.H{"students": students, "pagination": pagination})
}

// Get handles GET /students/:id.
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "", student)
}

// ListByDepartment handles GET /students/department/:department.
func (h *StudentHandler) ListByDepartment(c *gin.Context) {
	filter := models.StudentFilter{
		Department: c.Param("department"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "limit", 10),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "", gin.H{"students": students, "pagination": pagination})
}

// Create handles POST /students.
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, "student created successfully", student)
}

// Update handles PUT /students/:id.
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "student updated successfully", student)
}

// Delete handles DELETE /students/:id. The removal is a soft delete that also
// pulls the student from every course roster.
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.enrollments.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "student deleted successfully", nil)
}

// EnrollmentRequest is the body-based form of the enrollment operations.
type EnrollmentRequest struct {
	CourseID string `json:"courseId"`
}

// Enroll handles POST /students/:id/enroll/:courseId.
func (h *StudentHandler) Enroll(c *gin.Context) {
	h.enroll(c, c.Param("id"), c.Param("courseId"))
}

// EnrollByBody handles POST /students/:id/enroll with {"courseId": ...}.
func (h *StudentHandler) EnrollByBody(c *gin.Context) {
	var req EnrollmentRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.CourseID == "" {
		respondError(c, appErrors.Clone(appErrors.ErrValidation, "courseId is required"))
		return
	}
	h.enroll(c, c.Param("id"), req.CourseID)
}

// Unenroll handles DELETE /students/:id/enroll/:courseId.
func (h *StudentHandler) Unenroll(c *gin.Context) {
	h.unenroll(c, c.Param("id"), c.Param("courseId"))
}

// UnenrollByBody handles POST /students/:id/unenroll with {"courseId": ...}.
func (h *StudentHandler) UnenrollByBody(c *gin.Context) {
	var req EnrollmentRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.CourseID == "" {
		respondError(c, appErrors.Clone(appErrors.ErrValidation, "courseId is required"))
		return
	}
	h.unenroll(c, c.Param("id"), req.CourseID)
}

func (h *StudentHandler) enroll(c *gin.Context, studentID, courseID string) {
	if err := h.enrollments.Enroll(c.Request.Context(), studentID, courseID); err != nil {
		respondError(c, err)
		return
	}
	student, err := h.students.Get(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "student enrolled successfully", student)
}

func (h *StudentHandler) unenroll(c *gin.Context, studentID, courseID string) {
	if err := h.enrollments.Unenroll(c.Request.Context(), studentID, courseID); err != nil {
		respondError(c, err)
		return
	}
	student, err := h.students.Get(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "student unenrolled successfully", student)
}
