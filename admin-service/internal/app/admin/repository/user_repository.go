package repository

import (
	"context"
	"errors"
	"fmt"

	"orchardfleet/admin-service/internal/app/admin/entity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository создает новый репозиторий пользователей
func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &userRepository{db: db}
}

// GetByID получает пользователя по ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `
		SELECT id, username, name, password_hash, status, device_id, created_at
		FROM users WHERE id = $1
	`

	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

// GetByUsername получает пользователя по имени входа
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	query := `
		SELECT id, username, name, password_hash, status, device_id, created_at
		FROM users WHERE username = $1
	`

	return r.scanUser(r.db.QueryRow(ctx, query, username))
}

// UpdateDeviceID устанавливает привязку устройства; nil снимает привязку
func (r *userRepository) UpdateDeviceID(ctx context.Context, userID int64, deviceID *string) error {
	result, err := r.db.Exec(ctx, `UPDATE users SET device_id = $1 WHERE id = $2`, deviceID, userID)
	if err != nil {
		return fmt.Errorf("failed to update device binding: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *userRepository) scanUser(row pgx.Row) (*entity.User, error) {
	var user entity.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Name, &user.PasswordHash,
		&user.Status, &user.DeviceID, &user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}
