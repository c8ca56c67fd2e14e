package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"orchardfleet/audit-worker-service/internal/app/audit-worker/entity"
	"orchardfleet/audit-worker-service/internal/app/audit-worker/repository"
	"orchardfleet/pkg/metrics"
)

// AuditService сохраняет события безопасности в журнал аудита
// и считает суточную статистику
type AuditService struct {
	auditRepo repository.AuditRepository
	statsRepo repository.StatsRepository
}

// NewAuditService создает новый сервис аудита
func NewAuditService(
	auditRepo repository.AuditRepository,
	statsRepo repository.StatsRepository,
) *AuditService {
	return &AuditService{
		auditRepo: auditRepo,
		statsRepo: statsRepo,
	}
}

// ProcessEvent сохраняет событие безопасности в MongoDB.
// Событие без типа отбрасывается: ошибку не возвращаем, чтобы
// consumer закоммитил offset и не зациклился на битом сообщении.
func (s *AuditService) ProcessEvent(ctx context.Context, event *entity.SecurityEvent) error {
	start := time.Now()

	if event.Type == "" {
		log.Printf("Skipping security event without type (user_id: %d)", event.UserID)
		return nil
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	record := &entity.AuditRecord{
		Type:       event.Type,
		UserID:     event.UserID,
		Username:   event.Username,
		Detail:     event.Detail,
		OccurredAt: occurredAt,
	}

	if err := s.auditRepo.Insert(ctx, record); err != nil {
		metrics.WorkerEventsStored.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to store audit record: %w", err)
	}

	metrics.WorkerEventsStored.WithLabelValues("success").Inc()
	metrics.WorkerProcessingDuration.Observe(time.Since(start).Seconds())

	log.Printf("Stored %s event for user %d (%s)", event.Type, event.UserID, event.Username)

	return nil
}

// Лимиты выборки истории пользователя
const (
	defaultTrailLimit = 50
	maxTrailLimit     = 200
)

// GetUserTrail возвращает последние записи аудита пользователя,
// от новых к старым. Лимит вне диапазона приводится к значению по умолчанию.
func (s *AuditService) GetUserTrail(ctx context.Context, userID int64, limit int64) ([]entity.AuditRecord, error) {
	if limit <= 0 || limit > maxTrailLimit {
		limit = defaultTrailLimit
	}

	records, err := s.auditRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}

	return records, nil
}

// AggregateDay пересчитывает суточные счетчики событий за указанный день.
// Интервал [00:00, 24:00) берется в UTC. Повторный запуск за тот же день
// перезаписывает счетчики.
func (s *AuditService) AggregateDay(ctx context.Context, day time.Time) error {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	counts, err := s.auditRepo.CountByTypeBetween(ctx, from, to)
	if err != nil {
		metrics.WorkerStatsRuns.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to count audit records: %w", err)
	}

	for eventType, count := range counts {
		stat := &entity.DailyStat{
			Day:       from,
			EventType: eventType,
			Count:     count,
		}
		if err := s.statsRepo.Upsert(ctx, stat); err != nil {
			metrics.WorkerStatsRuns.WithLabelValues("failed").Inc()
			return fmt.Errorf("failed to upsert stat for %s: %w", eventType, err)
		}
	}

	metrics.WorkerStatsRuns.WithLabelValues("success").Inc()

	log.Printf("Aggregated %d event types for %s", len(counts), from.Format("2006-01-02"))

	return nil
}
