package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/campus-backend/internal/http/response"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/selectors"
	"github.com/yungbote/campus-backend/internal/services"
)

type CourseHandler struct {
	log         *logger.Logger
	courses     services.CourseService
	enrollments services.EnrollmentService
	read        selectors.CourseSelector
}

func NewCourseHandler(
	log *logger.Logger,
	courses services.CourseService,
	enrollments services.EnrollmentService,
	read selectors.CourseSelector,
) *CourseHandler {
	return &CourseHandler{
		log:         log.With("handler", "CourseHandler"),
		courses:     courses,
		enrollments: enrollments,
		read:        read,
	}
}

// GET /api/courses?name=&running_at=&starts_after=&starts_before=&order_by=&desc=&page=&page_size=&with_enrollment=
func (h *CourseHandler) List(c *gin.Context) {
	filter := selectors.CourseFilter{
		NameContains: strings.TrimSpace(c.Query("name")),
		OrderBy:      strings.TrimSpace(c.Query("order_by")),
		Desc:         queryBool(c, "desc"),
		Page:         queryInt(c, "page"),
		PageSize:     queryInt(c, "page_size"),
	}
	var err error
	if filter.RunningAt, err = queryDate(c, "running_at"); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if filter.StartsAfter, err = queryDate(c, "starts_after"); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if filter.StartsBefore, err = queryDate(c, "starts_before"); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	if queryBool(c, "with_enrollment") {
		page, err := h.read.ListWithEnrollment(c.Request.Context(), filter)
		if err != nil {
			response.RespondDomainError(c, err)
			return
		}
		response.RespondOK(c, page)
		return
	}
	page, err := h.read.List(c.Request.Context(), filter)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := h.read.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	seats, err := h.read.SeatsLeft(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": view, "seats_left": seats})
}

type createCourseRequest struct {
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Capacity  int             `json:"capacity"`
	Metadata  json.RawMessage `json:"metadata"`
}

// POST /api/courses
func (h *CourseHandler) Create(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in := services.CourseCreateInput{
		Name:     req.Name,
		Slug:     req.Slug,
		Capacity: req.Capacity,
	}
	var err error
	if in.StartDate, err = requestDate("start_date", req.StartDate); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if in.EndDate, err = requestDate("end_date", req.EndDate); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.Metadata) > 0 && string(req.Metadata) != "null" {
		in.Metadata = datatypes.JSON(req.Metadata)
	}

	created, err := h.courses.Create(c.Request.Context(), in)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"course": created})
}

// PATCH /api/courses/:id
// body: any of { "name", "start_date", "end_date", "capacity" } plus optional "version"
func (h *CourseHandler) Update(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req struct {
		Name      *string `json:"name"`
		StartDate *string `json:"start_date"`
		EndDate   *string `json:"end_date"`
		Capacity  *int    `json:"capacity"`
		Version   *int    `json:"version"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in := services.CourseUpdateInput{
		Name:            req.Name,
		Capacity:        req.Capacity,
		ExpectedVersion: req.Version,
	}
	if in.StartDate, err = optionalDate(req.StartDate); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("start_date: %w", err))
		return
	}
	if in.EndDate, err = optionalDate(req.EndDate); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("end_date: %w", err))
		return
	}

	updated, err := h.courses.Update(c.Request.Context(), id, in)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": updated})
}

// DELETE /api/courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.courses.Delete(c.Request.Context(), id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/courses/:id/enrollments
func (h *CourseHandler) Enrollments(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rows, err := h.read.Enrollments(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollments": rows})
}

// POST /api/courses/:id/enrollments
// body: { "user_id": "..." } or { "user_ids": ["...", ...] } for an all-or-nothing batch
func (h *CourseHandler) Enroll(c *gin.Context) {
	courseID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req struct {
		UserID  uuid.UUID   `json:"user_id"`
		UserIDs []uuid.UUID `json:"user_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.UserIDs) > 0 {
		rows, err := h.enrollments.EnrollMany(c.Request.Context(), courseID, req.UserIDs)
		if err != nil {
			response.RespondDomainError(c, err)
			return
		}
		response.RespondCreated(c, gin.H{"enrollments": rows})
		return
	}
	e, err := h.enrollments.Enroll(c.Request.Context(), courseID, req.UserID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"enrollment": e})
}

// DELETE /api/courses/:id/enrollments/:user_id
func (h *CourseHandler) Unenroll(c *gin.Context) {
	courseID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	userID, err := uuidParam(c, "user_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.enrollments.Unenroll(c.Request.Context(), courseID, userID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// requestDate leaves a missing date zero so entity validation reports it.
func requestDate(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}
