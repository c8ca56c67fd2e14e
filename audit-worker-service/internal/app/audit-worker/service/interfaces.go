package service

import (
	"context"
	"time"

	"orchardfleet/audit-worker-service/internal/app/audit-worker/entity"
)

// AuditServiceInterface определяет интерфейс сервиса аудита
type AuditServiceInterface interface {
	// ProcessEvent сохраняет событие безопасности в журнал аудита
	ProcessEvent(ctx context.Context, event *entity.SecurityEvent) error

	// GetUserTrail возвращает последние записи аудита пользователя
	GetUserTrail(ctx context.Context, userID int64, limit int64) ([]entity.AuditRecord, error)

	// AggregateDay пересчитывает суточные счетчики событий за указанный день
	AggregateDay(ctx context.Context, day time.Time) error
}
