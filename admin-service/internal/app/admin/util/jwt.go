package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenClaims - полезная нагрузка токена доступа.
// jti (RegisteredClaims.ID) используется как ключ черного списка при выходе.
type TokenClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет подписанные токены доступа.
// Время жизни различается для веб-администраторов и мини-приложения.
type TokenManager struct {
	secretKey       string
	adminDuration   time.Duration
	miniAppDuration time.Duration
}

func NewTokenManager(secretKey string, adminDuration, miniAppDuration time.Duration) *TokenManager {
	return &TokenManager{
		secretKey:       secretKey,
		adminDuration:   adminDuration,
		miniAppDuration: miniAppDuration,
	}
}

// GenerateAdminToken выпускает токен для веб-администратора
func (m *TokenManager) GenerateAdminToken(userID int64, username string) (string, error) {
	return m.generate(userID, username, m.adminDuration)
}

// GenerateMiniAppToken выпускает токен для пользователя мини-приложения
func (m *TokenManager) GenerateMiniAppToken(userID int64, username string) (string, error) {
	return m.generate(userID, username, m.miniAppDuration)
}

func (m *TokenManager) generate(userID int64, username string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secretKey))
}

// ValidateToken проверяет подпись и срок действия токена.
// Проверка черного списка выполняется выше, в сервисном слое.
func (m *TokenManager) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&TokenClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(m.secretKey), nil
		},
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (m *TokenManager) GetAdminDuration() time.Duration {
	return m.adminDuration
}

func (m *TokenManager) GetMiniAppDuration() time.Duration {
	return m.miniAppDuration
}
