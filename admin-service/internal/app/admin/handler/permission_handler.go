package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"orchardfleet/admin-service/internal/app/admin/entity"
	"orchardfleet/admin-service/internal/app/admin/service"
)

type PermissionHandler struct {
	permService *service.PermissionService
	validator   *validator.Validate
}

func NewPermissionHandler(permService *service.PermissionService) *PermissionHandler {
	return &PermissionHandler{
		permService: permService,
		validator:   validator.New(),
	}
}

// GetTree возвращает лес разрешений: menu, button или all (кнопки под меню)
func (h *PermissionHandler) GetTree(c *gin.Context) {
	treeType := c.DefaultQuery("type", service.TreeTypeAll)

	tree, err := h.permService.GetTree(c.Request.Context(), treeType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to build permission tree",
		})
		return
	}

	c.JSON(http.StatusOK, tree)
}

// Create создает узел разрешения
func (h *PermissionHandler) Create(c *gin.Context) {
	var req entity.CreatePermissionRequest

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

	perm, err := h.permService.Create(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateCode):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Conflict",
				"message": "Permission code already exists",
			})
		case errors.Is(err, service.ErrParentNotFound):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Bad Request",
				"message": "Parent permission does not exist",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to create permission",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, perm)
}

// Update изменяет узел разрешения
func (h *PermissionHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req entity.UpdatePermissionRequest
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

	perm, err := h.permService.Update(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Permission not found",
			})
		case errors.Is(err, service.ErrDuplicateCode):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Conflict",
				"message": "Permission code already exists",
			})
		case errors.Is(err, service.ErrParentNotFound):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Bad Request",
				"message": "Parent permission does not exist",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to update permission",
			})
		}
		return
	}

	c.JSON(http.StatusOK, perm)
}

// Delete удаляет узел; блокируется, пока есть дочерние узлы
func (h *PermissionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.permService.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Permission not found",
			})
		case errors.Is(err, service.ErrPermissionHasChildren):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Conflict",
				"message": "Permission has child nodes and cannot be deleted",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to delete permission",
			})
		}
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message: "Permission deleted",
	})
}

// GetByID возвращает один узел разрешения
func (h *PermissionHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	perm, err := h.permService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPermissionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Permission not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to get permission",
		})
		return
	}

	c.JSON(http.StatusOK, perm)
}
