package entity

import (
	"time"
)

// Типы узлов дерева разрешений
const (
	PermissionTypeMenu   = "menu"   // пункт меню (страница)
	PermissionTypeButton = "button" // кнопка внутри страницы
)

// Статусы записей
const (
	StatusNormal   = "normal"
	StatusDisabled = "disabled"
)

// Статусы ролей
const (
	RoleStatusEnabled  = "enabled"
	RoleStatusDisabled = "disabled"
)

// RoleCodeSuperAdmin - зарезервированный код роли суперадминистратора.
// Наличие этой роли у пользователя обходит проверку разрешений полностью.
const RoleCodeSuperAdmin = "super_admin"

// Permission представляет узел дерева разрешений (меню или кнопка)
type Permission struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Code      string `json:"code" db:"code"`           // уникальный код, например menu.customers
	Type      string `json:"type" db:"type"`           // menu | button
	ParentID  int64  `json:"parent_id" db:"parent_id"` // 0 = корень
	Path      string `json:"path,omitempty" db:"path"`
	Component string `json:"component,omitempty" db:"component"`
	Icon      string `json:"icon,omitempty" db:"icon"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
	Status    string `json:"status" db:"status"`
}

// PermissionTreeNode - узел разрешения вместе с дочерними узлами
type PermissionTreeNode struct {
	Permission
	Children []*PermissionTreeNode `json:"children"`
}

// Role представляет роль пользователя
type Role struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Code         string `json:"code" db:"code"` // глобально уникальный код
	Description  string `json:"description,omitempty" db:"description"`
	Status       string `json:"status" db:"status"`
	MiniAppLogin bool   `json:"mini_app_login" db:"mini_app_login"` // роли разрешен вход через мини-приложение
}

// RoleWithCount - роль с количеством пользователей, которым она назначена
type RoleWithCount struct {
	Role
	UserCount int64 `json:"user_count"`
}

// User представляет принципала: веб-администратора или полевого сотрудника
// (водитель/продавец мини-приложения)
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"` // не возвращаем в JSON
	Status       string    `json:"status" db:"status"`
	DeviceID     *string   `json:"device_id,omitempty" db:"device_id"` // привязанное устройство мини-приложения, nil = не привязано
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// EffectivePermissions - итоговый набор прав принципала:
// объединение кодов разрешений по всем его ролям плюс дерево меню
type EffectivePermissions struct {
	IsSuperAdmin    bool                  `json:"is_super_admin"`
	PermissionCodes []string              `json:"permission_codes"`
	Menus           []*PermissionTreeNode `json:"menus"`
}

// Причины выдачи доступа
const (
	GrantReasonUnion      = "grant_union" // код найден в объединении разрешений ролей
	GrantReasonSuperAdmin = "super_admin" // обход проверки зарезервированной ролью
)

// Decision - помеченный результат авторизации. Позволяет вызывающему коду
// и тестам отличить обычную выдачу от суперадминского обхода.
type Decision struct {
	Granted bool   `json:"granted"`
	Reason  string `json:"reason,omitempty"`
}

// Типы событий безопасности, публикуемых в Kafka
const (
	EventLoginSuccess     = "login_success"
	EventLoginFailed      = "login_failed"
	EventLogout           = "logout"
	EventSignatureReject  = "signature_reject"
	EventNonceReplay      = "nonce_replay"
	EventDeviceMismatch   = "device_mismatch"
	EventDeviceReset      = "device_reset"
	EventPermissionChange = "permission_change"
)

// SecurityEvent - событие безопасности для аудита
type SecurityEvent struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id,omitempty"`
	Username   string    `json:"username,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
