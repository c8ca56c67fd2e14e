package repository

import (
	"context"
	"time"

	"orchardfleet/audit-worker-service/internal/app/audit-worker/entity"
)

// AuditRepository интерфейс для работы с журналом аудита в MongoDB
type AuditRepository interface {
	// Insert сохраняет запись аудита
	Insert(ctx context.Context, record *entity.AuditRecord) error

	// CountByTypeBetween считает события по типам в интервале [from, to)
	CountByTypeBetween(ctx context.Context, from, to time.Time) (map[string]int64, error)

	// ListByUser возвращает последние записи аудита пользователя
	ListByUser(ctx context.Context, userID int64, limit int64) ([]entity.AuditRecord, error)
}

// StatsRepository интерфейс для работы с суточной статистикой в PostgreSQL
type StatsRepository interface {
	// Upsert записывает счетчик; при повторной агрегации того же дня
	// счетчик перезаписывается
	Upsert(ctx context.Context, stat *entity.DailyStat) error

	// GetByDay возвращает все счетчики за день
	GetByDay(ctx context.Context, day time.Time) ([]entity.DailyStat, error)
}
