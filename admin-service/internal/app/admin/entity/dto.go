package entity

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexID - идентификатор, который клиенты присылают то числом, то строкой.
// Нормализуем к int64 на границе разбора, до любой логики дерева.
type FlexID int64

// UnmarshalJSON принимает как 42, так и "42"
func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*f = FlexID(v)
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(f))
}

func (f FlexID) Int64() int64 {
	return int64(f)
}

// LoginRequest - запрос на вход администратора.
// Пароль передается в обфусцированном виде, запрос подписан.
type LoginRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"` // обфусцированный пароль
	Timestamp int64  `json:"timestamp" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// MiniAppLoginRequest - запрос на вход из мини-приложения.
// Дополнительно несет идентификатор устройства для привязки.
type MiniAppLoginRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	DeviceID  string `json:"device_id" binding:"required"`
	Timestamp int64  `json:"timestamp" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// LoginResponse - ответ с токеном и сводкой по пользователю
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"` // время жизни токена в секундах
	User        UserSummary `json:"user"`
}

// UserSummary - краткая информация о пользователе для ответа на вход
type UserSummary struct {
	ID           int64    `json:"id"`
	Username     string   `json:"username"`
	Name         string   `json:"name"`
	IsSuperAdmin bool     `json:"is_super_admin"`
	Roles        []string `json:"roles"`
}

// CreatePermissionRequest - запрос на создание узла разрешения
type CreatePermissionRequest struct {
	Name      string `json:"name" validate:"required"`
	Code      string `json:"code" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=menu button"`
	ParentID  FlexID `json:"parent_id"`
	Path      string `json:"path"`
	Component string `json:"component"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
	Status    string `json:"status" validate:"omitempty,oneof=normal disabled"`
}

// UpdatePermissionRequest - запрос на изменение узла разрешения
type UpdatePermissionRequest struct {
	Name      string  `json:"name"`
	Code      string  `json:"code"`
	ParentID  *FlexID `json:"parent_id"`
	Path      *string `json:"path"`
	Component *string `json:"component"`
	Icon      *string `json:"icon"`
	SortOrder *int    `json:"sort_order"`
	Status    string  `json:"status" validate:"omitempty,oneof=normal disabled"`
}

// CreateRoleRequest - запрос на создание роли
type CreateRoleRequest struct {
	Name         string `json:"name" validate:"required"`
	Code         string `json:"code" validate:"required"`
	Description  string `json:"description"`
	MiniAppLogin bool   `json:"mini_app_login"`
}

// UpdateRoleRequest - запрос на изменение роли
type UpdateRoleRequest struct {
	Name         string  `json:"name"`
	Code         string  `json:"code"`
	Description  *string `json:"description"`
	Status       string  `json:"status" validate:"omitempty,oneof=enabled disabled"`
	MiniAppLogin *bool   `json:"mini_app_login"`
}

// AssignPermissionsRequest - запрос на назначение разрешений роли.
// Набор полностью заменяет текущий: пустой массив снимает все разрешения.
type AssignPermissionsRequest struct {
	PermissionIDs []FlexID `json:"permission_ids" validate:"required"`
}

// RoleListFilter - фильтры и пагинация списка ролей
type RoleListFilter struct {
	Name     string
	Status   string
	Page     int
	PageSize int
}

// RoleListResponse - страница списка ролей с количеством пользователей
type RoleListResponse struct {
	Roles []RoleWithCount `json:"roles"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
}

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse - стандартный ответ об успехе
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
