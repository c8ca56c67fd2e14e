package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"orchardfleet/admin-service/internal/app/admin/service"
	"orchardfleet/pkg/logger"
)

type AuthMiddleware struct {
	authService *service.AuthService
}

func NewAuthMiddleware(authService *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Authenticate проверяет bearer-токен и черный список.
// Все причины отказа (невалидный, истекший, отозванный) выходят наружу
// одинаковым ответом, чтобы не давать клиенту оракул; конкретная причина
// пишется только в лог.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c)
			return
		}

		claims, err := m.authService.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidToken),
				errors.Is(err, service.ErrTokenExpired),
				errors.Is(err, service.ErrTokenRevoked):
				logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("Token validation failed")
				unauthorized(c)
			default:
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   "Internal Server Error",
					"message": "Failed to validate token",
				})
				c.Abort()
			}
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("token", parts[1])

		c.Next()
	}
}

// RequirePermission проверяет код разрешения через резолвер авторизации.
// Суперадминистратор проходит по собственному пути выдачи. Отказ в правах
// отличается от отказа в аутентификации и называет недостающий код -
// для отладки администраторами, не для показа конечным пользователям.
func (m *AuthMiddleware) RequirePermission(code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			unauthorized(c)
			return
		}

		decision, err := m.authService.Authorize(c.Request.Context(), userID, code)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to check permission",
			})
			c.Abort()
			return
		}

		if !decision.Granted {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Missing permission: " + code,
			})
			c.Abort()
			return
		}

		c.Set("grant_reason", decision.Reason)
		c.Next()
	}
}

// VerifySignature проверяет подпись запроса аутентифицированного
// пользователя: обязательные параметры эндпоинта, окно свежести и
// одноразовость nonce. Набор обязательных параметров каждый подписанный
// эндпоинт объявляет сам - middleware его не выводит.
func (m *AuthMiddleware) VerifySignature(requiredParams ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			unauthorized(c)
			return
		}

		params, err := extractParams(c)
		if err != nil {
			signatureRejected(c)
			return
		}

		required := append([]string{"timestamp", "nonce", "signature"}, requiredParams...)
		for _, name := range required {
			if _, present := params[name]; !present {
				signatureRejected(c)
				return
			}
		}

		timestamp, err := paramInt64(params["timestamp"])
		if err != nil {
			signatureRejected(c)
			return
		}
		nonce, _ := params["nonce"].(string)
		signature, _ := params["signature"].(string)

		err = m.authService.VerifySignedRequest(c.Request.Context(), userID, params, timestamp, nonce, signature)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrSignatureInvalid),
				errors.Is(err, service.ErrTimestampOutOfWindow),
				errors.Is(err, service.ErrNonceReplayed):
				logger.Warn().Err(err).Int64("user_id", userID).Str("path", c.Request.URL.Path).Msg("Signed request rejected")
				signatureRejected(c)
			default:
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   "Internal Server Error",
					"message": "Failed to verify request",
				})
				c.Abort()
			}
			return
		}

		c.Next()
	}
}

// extractParams собирает параметры запроса для пересчета подписи:
// для GET из строки запроса, иначе из JSON-тела. Тело восстанавливается,
// чтобы обработчик мог разобрать его повторно. Числа сохраняются как
// json.Number - каноническая строка не должна зависеть от float-представления.
func extractParams(c *gin.Context) (map[string]interface{}, error) {
	params := map[string]interface{}{}

	if c.Request.Method == http.MethodGet {
		for key, values := range c.Request.URL.Query() {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}
		return params, nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&params); err != nil {
		return nil, err
	}

	return params, nil
}

func paramInt64(v interface{}) (int64, error) {
	switch val := v.(type) {
	case json.Number:
		return val.Int64()
	case string:
		var n json.Number = json.Number(val)
		return n.Int64()
	case float64:
		return int64(val), nil
	default:
		return 0, errors.New("timestamp is not a number")
	}
}

func currentUserID(c *gin.Context) (int64, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	userID, ok := value.(int64)
	return userID, ok
}

// unauthorized - единый ответ на любой сбой аутентификации
func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":   "Unauthorized",
		"message": "Invalid or expired token",
	})
	c.Abort()
}

// signatureRejected - единый ответ на любой отказ проверки подписи:
// неверная подпись, устаревшая метка времени и повтор nonce неразличимы
// для клиента
func signatureRejected(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Bad Request",
		"message": "Request verification failed",
	})
	c.Abort()
}
