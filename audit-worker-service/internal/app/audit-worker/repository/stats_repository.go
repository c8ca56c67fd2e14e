package repository

import (
	"context"
	"fmt"
	"time"

	"orchardfleet/audit-worker-service/internal/app/audit-worker/entity"
	"orchardfleet/pkg/metrics"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const statsTable = "security_daily_stats"

// statsRepository реализует StatsRepository для работы с PostgreSQL через GORM
type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository создает новый репозиторий суточной статистики
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

// Upsert записывает счетчик за день. Конфликт по паре (day, event_type)
// перезаписывает count - повторная агрегация того же дня идемпотентна.
func (r *statsRepository) Upsert(ctx context.Context, stat *entity.DailyStat) error {
	timer := metrics.NewDbTimer("audit-worker-service", metrics.DbOpUpsert, statsTable)
	defer timer.ObserveDuration()

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}, {Name: "event_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"count", "updated_at"}),
	}).Create(stat)

	if result.Error != nil {
		metrics.RecordDbError("audit-worker-service", metrics.DbOpUpsert)
		return fmt.Errorf("failed to upsert daily stat: %w", result.Error)
	}

	return nil
}

// GetByDay возвращает все счетчики за день
func (r *statsRepository) GetByDay(ctx context.Context, day time.Time) ([]entity.DailyStat, error) {
	var stats []entity.DailyStat

	timer := metrics.NewDbTimer("audit-worker-service", metrics.DbOpSelect, statsTable)
	defer timer.ObserveDuration()

	result := r.db.WithContext(ctx).
		Where("day = ?", day.Format("2006-01-02")).
		Order("event_type").
		Find(&stats)

	if result.Error != nil {
		metrics.RecordDbError("audit-worker-service", metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get daily stats: %w", result.Error)
	}

	return stats, nil
}
