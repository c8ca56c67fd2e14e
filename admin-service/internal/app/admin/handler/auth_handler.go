package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"orchardfleet/admin-service/internal/app/admin/entity"
	"orchardfleet/admin-service/internal/app/admin/service"
	"orchardfleet/pkg/metrics"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login - вход веб-администратора
func (h *AuthHandler) Login(c *gin.Context) {
	var req entity.LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		metrics.AuthLogins.WithLabelValues("admin", "failed").Inc()
		h.writeLoginError(c, err)
		return
	}

	metrics.AuthLogins.WithLabelValues("admin", "success").Inc()
	metrics.AuthTokensIssued.WithLabelValues("admin").Inc()

	c.JSON(http.StatusOK, resp)
}

// MiniAppLogin - вход полевого сотрудника из мини-приложения
func (h *AuthHandler) MiniAppLogin(c *gin.Context) {
	var req entity.MiniAppLoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
		return
	}

	resp, err := h.authService.MiniAppLogin(c.Request.Context(), &req)
	if err != nil {
		// Несовпадение устройства - единственный отказ с собственным
		// ответом: клиент должен просить сброс у администратора,
		// повтор запроса не поможет
		if errors.Is(err, service.ErrDeviceMismatch) {
			metrics.AuthLogins.WithLabelValues("miniapp", "failed").Inc()
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Conflict",
				"message": "Account is bound to another device, contact your administrator",
			})
			return
		}
		if errors.Is(err, service.ErrMiniAppLoginDisabled) {
			metrics.AuthLogins.WithLabelValues("miniapp", "failed").Inc()
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Mini-app login is not enabled for this account",
			})
			return
		}
		metrics.AuthLogins.WithLabelValues("miniapp", "failed").Inc()
		h.writeLoginError(c, err)
		return
	}

	metrics.AuthLogins.WithLabelValues("miniapp", "success").Inc()
	metrics.AuthTokensIssued.WithLabelValues("miniapp").Inc()

	c.JSON(http.StatusOK, resp)
}

// Logout отзывает текущий токен
func (h *AuthHandler) Logout(c *gin.Context) {
	token, exists := c.Get("token")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "Invalid or expired token",
		})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token.(string)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to logout",
		})
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message: "Successfully logged out",
	})
}

// GetEffectivePermissions возвращает итоговые права текущего пользователя:
// флаг суперадминистратора, объединение кодов разрешений и дерево меню
func (h *AuthHandler) GetEffectivePermissions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "Invalid or expired token",
		})
		return
	}

	perms, err := h.authService.GetEffectivePermissions(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to get effective permissions",
		})
		return
	}

	c.JSON(http.StatusOK, perms)
}

// ResetDevice безусловно снимает привязку устройства пользователя
func (h *AuthHandler) ResetDevice(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.authService.ResetDevice(c.Request.Context(), userID); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "User not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to reset device binding",
		})
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message: "Device binding cleared",
	})
}

// MiniAppProfile - показательный подписанный эндпоинт мини-приложения:
// профиль вместе с итоговыми правами
func (h *AuthHandler) MiniAppProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "Invalid or expired token",
		})
		return
	}

	perms, err := h.authService.GetEffectivePermissions(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to get profile",
		})
		return
	}

	username, _ := c.Get("username")
	c.JSON(http.StatusOK, gin.H{
		"user_id":     userID,
		"username":    username,
		"permissions": perms,
	})
}

// writeLoginError переводит ошибки входа в ответы. Неверные учетные данные,
// неверная подпись, устаревшая метка и повтор nonce не различаются
// в ответе - анти-оракул.
func (h *AuthHandler) writeLoginError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrSignatureInvalid),
		errors.Is(err, service.ErrTimestampOutOfWindow),
		errors.Is(err, service.ErrNonceReplayed):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "Invalid credentials or request",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to login",
		})
	}
}
