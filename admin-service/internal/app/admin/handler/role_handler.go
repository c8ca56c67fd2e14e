package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"orchardfleet/admin-service/internal/app/admin/entity"
	"orchardfleet/admin-service/internal/app/admin/service"
)

type RoleHandler struct {
	roleService *service.RoleService
	validator   *validator.Validate
}

func NewRoleHandler(roleService *service.RoleService) *RoleHandler {
	return &RoleHandler{
		roleService: roleService,
		validator:   validator.New(),
	}
}

// List возвращает страницу ролей с количеством пользователей
func (h *RoleHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	filter := entity.RoleListFilter{
		Name:     c.Query("name"),
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	}

	resp, err := h.roleService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to list roles",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Create создает роль
func (h *RoleHandler) Create(c *gin.Context) {
	var req entity.CreateRoleRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": formatValidationErrors(validationErrors),
		})
		return
	}

	role, err := h.roleService.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateCode) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Conflict",
				"message": "Role code already exists",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to create role",
		})
		return
	}

	c.JSON(http.StatusCreated, role)
}

// Update изменяет роль
func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req entity.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": formatValidationErrors(validationErrors),
		})
		return
	}

	role, err := h.roleService.Update(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRoleNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Role not found",
			})
		case errors.Is(err, service.ErrDuplicateCode):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Conflict",
				"message": "Role code already exists",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to update role",
			})
		}
		return
	}

	c.JSON(http.StatusOK, role)
}

// Delete удаляет роль; блокируется, пока роль назначена пользователям
func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.roleService.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrRoleNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Role not found",
			})
		case errors.Is(err, service.ErrRoleInUse):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Conflict",
				"message": "Role is assigned to users and cannot be deleted",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to delete role",
			})
		}
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message: "Role deleted",
	})
}

// AssignPermissions полностью заменяет набор разрешений роли и возвращает
// фактически назначенный набор (несуществующие id молча отброшены)
func (h *RoleHandler) AssignPermissions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req entity.AssignPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": formatValidationErrors(validationErrors),
		})
		return
	}

	ids := make([]int64, 0, len(req.PermissionIDs))
	for _, flexID := range req.PermissionIDs {
		ids = append(ids, flexID.Int64())
	}

	assigned, err := h.roleService.AssignPermissions(c.Request.Context(), id, ids)
	if err != nil {
		if errors.Is(err, service.ErrRoleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Role not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to assign permissions",
		})
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message: "Permissions assigned",
		Data:    assigned,
	})
}

// GetPermissions возвращает текущий набор разрешений роли
func (h *RoleHandler) GetPermissions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	permissions, err := h.roleService.GetPermissions(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrRoleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Role not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to get role permissions",
		})
		return
	}

	c.JSON(http.StatusOK, permissions)
}

// formatValidationErrors переводит первую ошибку валидации в текст для ответа
func formatValidationErrors(errs validator.ValidationErrors) string {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		switch err.Tag() {
		case "required":
			messages = append(messages, err.Field()+" is required")
		case "oneof":
			messages = append(messages, err.Field()+" must be one of: "+err.Param())
		default:
			messages = append(messages, err.Field()+" is invalid")
		}
	}
	if len(messages) == 0 {
		return "Validation failed"
	}
	return messages[0]
}

// pathID разбирает числовой идентификатор из пути
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid id",
		})
		return 0, false
	}
	return id, true
}
