package repository

import (
	"context"
	"errors"
	"fmt"

	"orchardfleet/admin-service/internal/app/admin/entity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type roleRepository struct {
	db *pgxpool.Pool
}

// NewRoleRepository создает новый репозиторий ролей
func NewRoleRepository(db *pgxpool.Pool) RoleRepository {
	return &roleRepository{db: db}
}

// Create создает роль
func (r *roleRepository) Create(ctx context.Context, role *entity.Role) error {
	query := `
		INSERT INTO roles (name, code, description, status, mini_app_login)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRow(
		ctx, query,
		role.Name, role.Code, role.Description, role.Status, role.MiniAppLogin,
	).Scan(&role.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("failed to create role: %w", err)
	}

	return nil
}

// GetByID получает роль по ID
func (r *roleRepository) GetByID(ctx context.Context, id int64) (*entity.Role, error) {
	query := `SELECT id, name, code, description, status, mini_app_login FROM roles WHERE id = $1`

	var role entity.Role
	err := r.db.QueryRow(ctx, query, id).Scan(
		&role.ID, &role.Name, &role.Code, &role.Description, &role.Status, &role.MiniAppLogin,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get role by id: %w", err)
	}

	return &role, nil
}

// Update обновляет роль
func (r *roleRepository) Update(ctx context.Context, role *entity.Role) error {
	query := `
		UPDATE roles
		SET name = $1, code = $2, description = $3, status = $4, mini_app_login = $5
		WHERE id = $6
	`

	result, err := r.db.Exec(
		ctx, query,
		role.Name, role.Code, role.Description, role.Status, role.MiniAppLogin, role.ID,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("failed to update role: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete удаляет роль вместе с назначенными ей разрешениями
func (r *roleRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete role permissions: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

// List возвращает страницу ролей по фильтрам вместе с общим количеством
func (r *roleRepository) List(ctx context.Context, filter entity.RoleListFilter) ([]entity.Role, int64, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}

	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		where += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM roles`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count roles: %w", err)
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := fmt.Sprintf(
		`SELECT id, name, code, description, status, mini_app_login FROM roles%s ORDER BY id LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []entity.Role
	for rows.Next() {
		var role entity.Role
		err := rows.Scan(&role.ID, &role.Name, &role.Code, &role.Description, &role.Status, &role.MiniAppLogin)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating roles: %w", err)
	}

	return roles, total, nil
}

// CountUsers считает пользователей, которым назначена роль.
// Вызывается по одному разу на роль при выводе списка - принятая цена N+1
// на админских объемах.
func (r *roleRepository) CountUsers(ctx context.Context, roleID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM user_roles WHERE role_id = $1`, roleID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count role users: %w", err)
	}
	return count, nil
}

// ReplacePermissions полностью заменяет набор разрешений роли.
// Пустой список снимает все разрешения. Вставка идет через SELECT по таблице
// permissions, поэтому несуществующие id отбрасываются молча, без ошибки.
func (r *roleRepository) ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", err)
	}

	if len(permissionIDs) > 0 {
		query := `
			INSERT INTO role_permissions (role_id, permission_id)
			SELECT $1, id FROM permissions WHERE id = ANY($2)
		`
		if _, err := tx.Exec(ctx, query, roleID, permissionIDs); err != nil {
			return fmt.Errorf("failed to assign permissions: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetPermissionsByRoleID возвращает разрешения, назначенные роли
func (r *roleRepository) GetPermissionsByRoleID(ctx context.Context, roleID int64) ([]entity.Permission, error) {
	query := `
		SELECT p.id, p.name, p.code, p.type, p.parent_id, p.path, p.component, p.icon, p.sort_order, p.status
		FROM permissions p
		INNER JOIN role_permissions rp ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.sort_order, p.id
	`

	return r.scanPermissions(ctx, query, roleID)
}

// GetRolesByUserID возвращает включенные роли пользователя
func (r *roleRepository) GetRolesByUserID(ctx context.Context, userID int64) ([]entity.Role, error) {
	query := `
		SELECT r.id, r.name, r.code, r.description, r.status, r.mini_app_login
		FROM roles r
		INNER JOIN user_roles ur ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND r.status = 'enabled'
		ORDER BY r.id
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	defer rows.Close()

	var roles []entity.Role
	for rows.Next() {
		var role entity.Role
		err := rows.Scan(&role.ID, &role.Name, &role.Code, &role.Description, &role.Status, &role.MiniAppLogin)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}

	return roles, nil
}

// GetPermissionsByUserID возвращает объединение активных разрешений
// по всем включенным ролям пользователя, без дубликатов
func (r *roleRepository) GetPermissionsByUserID(ctx context.Context, userID int64) ([]entity.Permission, error) {
	query := `
		SELECT DISTINCT p.id, p.name, p.code, p.type, p.parent_id, p.path, p.component, p.icon, p.sort_order, p.status
		FROM permissions p
		INNER JOIN role_permissions rp ON p.id = rp.permission_id
		INNER JOIN user_roles ur ON rp.role_id = ur.role_id
		INNER JOIN roles r ON ur.role_id = r.id
		WHERE ur.user_id = $1 AND r.status = 'enabled' AND p.status = 'normal'
		ORDER BY p.sort_order, p.id
	`

	return r.scanPermissions(ctx, query, userID)
}

func (r *roleRepository) scanPermissions(ctx context.Context, query string, args ...interface{}) ([]entity.Permission, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	var permissions []entity.Permission
	for rows.Next() {
		var p entity.Permission
		err := rows.Scan(
			&p.ID, &p.Name, &p.Code, &p.Type, &p.ParentID,
			&p.Path, &p.Component, &p.Icon, &p.SortOrder, &p.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permissions: %w", err)
	}

	return permissions, nil
}
