package repository

import (
	"context"
	"errors"
	"fmt"

	"orchardfleet/admin-service/internal/app/admin/entity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type permissionRepository struct {
	db *pgxpool.Pool
}

// NewPermissionRepository создает новый репозиторий узлов разрешений
func NewPermissionRepository(db *pgxpool.Pool) PermissionRepository {
	return &permissionRepository{db: db}
}

// isUniqueViolation распознает нарушение уникального ограничения PostgreSQL.
// Это единственный сигнал, по которому сервисный слой видит DuplicateCode.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create создает узел разрешения
func (r *permissionRepository) Create(ctx context.Context, p *entity.Permission) error {
	query := `
		INSERT INTO permissions (name, code, type, parent_id, path, component, icon, sort_order, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.db.QueryRow(
		ctx, query,
		p.Name, p.Code, p.Type, p.ParentID, p.Path, p.Component, p.Icon, p.SortOrder, p.Status,
	).Scan(&p.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("failed to create permission: %w", err)
	}

	return nil
}

// GetByID получает узел разрешения по ID
func (r *permissionRepository) GetByID(ctx context.Context, id int64) (*entity.Permission, error) {
	query := `
		SELECT id, name, code, type, parent_id, path, component, icon, sort_order, status
		FROM permissions WHERE id = $1
	`

	var p entity.Permission
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Code, &p.Type, &p.ParentID,
		&p.Path, &p.Component, &p.Icon, &p.SortOrder, &p.Status,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get permission by id: %w", err)
	}

	return &p, nil
}

// Update обновляет узел разрешения
func (r *permissionRepository) Update(ctx context.Context, p *entity.Permission) error {
	query := `
		UPDATE permissions
		SET name = $1, code = $2, parent_id = $3, path = $4, component = $5,
		    icon = $6, sort_order = $7, status = $8
		WHERE id = $9
	`

	result, err := r.db.Exec(
		ctx, query,
		p.Name, p.Code, p.ParentID, p.Path, p.Component, p.Icon, p.SortOrder, p.Status, p.ID,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("failed to update permission: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete удаляет узел разрешения вместе со связями с ролями
func (r *permissionRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE permission_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete permission assignments: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

// ListActive возвращает активные узлы в порядке sort_order.
// parent_id всегда сканируется как int64 - нормализация представления
// выполняется здесь, до любой логики построения дерева.
func (r *permissionRepository) ListActive(ctx context.Context) ([]entity.Permission, error) {
	query := `
		SELECT id, name, code, type, parent_id, path, component, icon, sort_order, status
		FROM permissions
		WHERE status = 'normal'
		ORDER BY sort_order, id
	`

	return r.queryPermissions(ctx, query)
}

// ListActiveByType возвращает активные узлы одного типа (menu или button)
func (r *permissionRepository) ListActiveByType(ctx context.Context, permType string) ([]entity.Permission, error) {
	query := `
		SELECT id, name, code, type, parent_id, path, component, icon, sort_order, status
		FROM permissions
		WHERE status = 'normal' AND type = $1
		ORDER BY sort_order, id
	`

	return r.queryPermissions(ctx, query, permType)
}

// CountChildren считает дочерние узлы; используется как защита от удаления
func (r *permissionRepository) CountChildren(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM permissions WHERE parent_id = $1`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count children: %w", err)
	}
	return count, nil
}

func (r *permissionRepository) queryPermissions(ctx context.Context, query string, args ...interface{}) ([]entity.Permission, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
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
