package repository

import (
	"context"
	"errors"
	"time"

	"orchardfleet/admin-service/internal/app/admin/entity"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateCode = errors.New("duplicate code")
)

type PermissionRepository interface {
	Create(ctx context.Context, p *entity.Permission) error
	GetByID(ctx context.Context, id int64) (*entity.Permission, error)
	Update(ctx context.Context, p *entity.Permission) error
	Delete(ctx context.Context, id int64) error

	// ListActive возвращает узлы со статусом normal в порядке sort_order
	ListActive(ctx context.Context) ([]entity.Permission, error)
	ListActiveByType(ctx context.Context, permType string) ([]entity.Permission, error)
	CountChildren(ctx context.Context, id int64) (int64, error)
}

type RoleRepository interface {
	Create(ctx context.Context, role *entity.Role) error
	GetByID(ctx context.Context, id int64) (*entity.Role, error)
	Update(ctx context.Context, role *entity.Role) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter entity.RoleListFilter) ([]entity.Role, int64, error)

	CountUsers(ctx context.Context, roleID int64) (int64, error)

	// ReplacePermissions полностью заменяет набор разрешений роли одной
	// транзакцией. Несуществующие id молча отбрасываются.
	ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	GetPermissionsByRoleID(ctx context.Context, roleID int64) ([]entity.Permission, error)

	GetRolesByUserID(ctx context.Context, userID int64) ([]entity.Role, error)
	GetPermissionsByUserID(ctx context.Context, userID int64) ([]entity.Permission, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)

	// UpdateDeviceID устанавливает или сбрасывает (nil) привязку устройства
	UpdateDeviceID(ctx context.Context, userID int64, deviceID *string) error
}

type SessionRepository interface {
	// BlacklistToken отзывает токен по jti; TTL равен остатку срока действия
	BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)

	// StoreNonce атомарно регистрирует nonce в окне свежести.
	// Возвращает false, если nonce уже был использован.
	StoreNonce(ctx context.Context, nonce string, window time.Duration) (bool, error)
}
