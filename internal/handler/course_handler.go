package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/campus-api/internal/models"
	"github.com/campusdesk/campus-api/internal/service"
	"github.com/campusdesk/campus-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*service.CourseView, error)
	Create(ctx context.Context, req service.CreateCourseRequest) (*service.CourseView, error)
	Update(ctx context.Context, id string, req service.UpdateCourseRequest) (*service.CourseView, error)
	Stats(ctx context.Context) (*models.CourseStats, error)
	ExportRoster(ctx context.Context, id, format string) (*service.RosterExport, error)
	InvalidateStats(ctx context.Context)
}

// CourseHandler exposes course CRUD, statistics and roster export.
type CourseHandler struct {
	courses     courseService
	enrollments enrollmentService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService, enrollments enrollmentService) *CourseHandler {
	return &CourseHandler{courses: courses, enrollments: enrollments}
}

// List handles GET /courses.
func (h *CourseHandler) List(c *gin.Context) {
	filter := models.CourseFilter{
		Title:      c.Query("title"),
		Department: c.Query("department"),
		Search:     c.Query("search"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "limit", 10),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	if raw := c.Query("credits"); raw != "" {
		credits := queryInt(c, "credits", 0)
		filter.Credits = &credits
	}
	courses, pagination, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "", gin.H{"courses": courses, "pagination": pagination})
}

// Get handles GET /courses/:id.
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "", course)
}

// ListByDepartment handles GET /courses/department/:department.
func (h *CourseHandler) ListByDepartment(c *gin.Context) {
	filter := models.CourseFilter{
		Department: c.Param("department"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "limit", 10),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	courses, pagination, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "", gin.H{"courses": courses, "pagination": pagination})
}

// Stats handles GET /courses/stats.
func (h *CourseHandler) Stats(c *gin.Context) {
	stats, err := h.courses.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "", stats)
}

// Create handles POST /courses.
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, "course created successfully", course)
}

// Update handles PUT /courses/:id.
func (h *CourseHandler) Update(c *gin.Context) {
	var req service.UpdateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "course updated successfully", course)
}

// Delete handles DELETE /courses/:id. The removal is a soft delete that also
// pulls the course from every student's list.
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.enrollments.DeleteCourse(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	h.courses.InvalidateStats(c.Request.Context())
	response.OK(c, "course deleted successfully", nil)
}

// ExportRoster handles GET /courses/:id/roster/export?format=csv|pdf.
func (h *CourseHandler) ExportRoster(c *gin.Context) {
	result, err := h.courses.ExportRoster(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
