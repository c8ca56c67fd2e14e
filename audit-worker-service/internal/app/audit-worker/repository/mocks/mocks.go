package mocks

import (
	"context"
	"time"

	"orchardfleet/audit-worker-service/internal/app/audit-worker/entity"

	"github.com/stretchr/testify/mock"
)

// MockAuditRepository мок для AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, record *entity.AuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuditRepository) CountByTypeBetween(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockAuditRepository) ListByUser(ctx context.Context, userID int64, limit int64) ([]entity.AuditRecord, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AuditRecord), args.Error(1)
}

// MockStatsRepository мок для StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) Upsert(ctx context.Context, stat *entity.DailyStat) error {
	args := m.Called(ctx, stat)
	return args.Error(0)
}

func (m *MockStatsRepository) GetByDay(ctx context.Context, day time.Time) ([]entity.DailyStat, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.DailyStat), args.Error(1)
}
