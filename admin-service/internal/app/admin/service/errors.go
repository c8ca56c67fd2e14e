package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrDuplicateCode          = errors.New("code already exists")
	ErrRoleNotFound           = errors.New("role not found")
	ErrRoleInUse              = errors.New("role is assigned to users")
	ErrPermissionNotFound     = errors.New("permission not found")
	ErrPermissionHasChildren  = errors.New("permission has child nodes")
	ErrParentNotFound         = errors.New("parent permission not found")
	ErrUserNotFound           = errors.New("user not found")

	// Ошибки токенов. Наружу все три выходят одинаковым Unauthorized,
	// конкретная причина остается в логах.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenRevoked = errors.New("token has been revoked")

	// Ошибки подписанных запросов. Наружу выходят одним статусом отказа.
	ErrSignatureInvalid     = errors.New("request signature invalid")
	ErrTimestampOutOfWindow = errors.New("request timestamp out of freshness window")
	ErrNonceReplayed        = errors.New("request nonce already used")

	// ErrDeviceMismatch выходит наружу отдельно: клиент должен просить
	// администратора сбросить привязку, а не повторять запрос.
	ErrDeviceMismatch = errors.New("device does not match bound device")

	ErrMiniAppLoginDisabled = errors.New("mini-app login not enabled for user roles")
	ErrForbidden            = errors.New("access forbidden")
)
