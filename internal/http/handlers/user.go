package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/campus-backend/internal/http/response"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/selectors"
	"github.com/yungbote/campus-backend/internal/services"
)

type UserHandler struct {
	log         *logger.Logger
	userService services.UserService
	users       selectors.UserSelector
}

func NewUserHandler(log *logger.Logger, userService services.UserService, users selectors.UserSelector) *UserHandler {
	return &UserHandler{
		log:         log.With("handler", "UserHandler"),
		userService: userService,
		users:       users,
	}
}

// POST /api/users
func (uh *UserHandler) Create(c *gin.Context) {
	var req struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Password  string `json:"password"`
		Bio       string `json:"bio"`
		Timezone  string `json:"timezone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	u, err := uh.userService.Create(c.Request.Context(), services.UserCreateInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Bio:       req.Bio,
		Timezone:  req.Timezone,
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"user": u})
}

// GET /api/users/:id
func (uh *UserHandler) Get(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := uh.users.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// DELETE /api/users/:id
func (uh *UserHandler) Delete(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := uh.userService.Delete(c.Request.Context(), id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/users/:id/courses
func (uh *UserHandler) Courses(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	courses, err := uh.users.CoursesForUser(c.Request.Context(), id)
	if err != nil {
		uh.log.Warn("CoursesForUser failed", "error", err, "user_id", id)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}
