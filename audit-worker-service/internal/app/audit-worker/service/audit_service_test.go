package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"orchardfleet/audit-worker-service/internal/app/audit-worker/entity"
	"orchardfleet/audit-worker-service/internal/app/audit-worker/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==================== ProcessEvent Tests ====================

func TestAuditService_ProcessEvent_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	auditRepo := new(mocks.MockAuditRepository)
	statsRepo := new(mocks.MockStatsRepository)

	occurredAt := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)
	event := &entity.SecurityEvent{
		Type:       entity.EventLoginSuccess,
		UserID:     42,
		Username:   "warehouse_admin",
		Detail:     "admin login",
		OccurredAt: occurredAt,
	}

	auditRepo.On("Insert", ctx, mock.MatchedBy(func(r *entity.AuditRecord) bool {
		return r.Type == entity.EventLoginSuccess &&
			r.UserID == 42 &&
			r.Username == "warehouse_admin" &&
			r.OccurredAt.Equal(occurredAt)
	})).Return(nil)

	service := NewAuditService(auditRepo, statsRepo)

	// Act
	err := service.ProcessEvent(ctx, event)

	// Assert
	require.NoError(t, err)
	auditRepo.AssertExpectations(t)
}

func TestAuditService_ProcessEvent_MissingTypeSkipped(t *testing.T) {
	// Arrange - событие без типа отбрасывается без ошибки,
	// чтобы consumer закоммитил offset
	ctx := context.Background()
	auditRepo := new(mocks.MockAuditRepository)
	statsRepo := new(mocks.MockStatsRepository)

	service := NewAuditService(auditRepo, statsRepo)

	// Act
	err := service.ProcessEvent(ctx, &entity.SecurityEvent{UserID: 42})

	// Assert
	require.NoError(t, err)
	auditRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestAuditService_ProcessEvent_ZeroOccurredAt(t *testing.T) {
	// Arrange - событие без метки времени получает текущее время
	ctx := context.Background()
	auditRepo := new(mocks.MockAuditRepository)
	statsRepo := new(mocks.MockStatsRepository)

	auditRepo.On("Insert", ctx, mock.MatchedBy(func(r *entity.AuditRecord) bool {
		return !r.OccurredAt.IsZero()
	})).Return(nil)

	service := NewAuditService(auditRepo, statsRepo)

	// Act
	err := service.ProcessEvent(ctx, &entity.SecurityEvent{Type: entity.EventLogout, UserID: 42})

	// Assert
	require.NoError(t, err)
	auditRepo.AssertExpectations(t)
}

func TestAuditService_ProcessEvent_InsertError(t *testing.T) {
	// Arrange - сбой хранилища возвращается наверх, offset не коммитится
	ctx := context.Background()
	auditRepo := new(mocks.MockAuditRepository)
	statsRepo := new(mocks.MockStatsRepository)

	auditRepo.On("Insert", ctx, mock.Anything).Return(errors.New("mongo unavailable"))

	service := NewAuditService(auditRepo, statsRepo)

	event := &entity.SecurityEvent{
		Type:       entity.EventLoginFailed,
		UserID:     42,
		OccurredAt: time.Now(),
	}

	// Act
	err := service.ProcessEvent(ctx, event)

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store audit record")
}

// ==================== GetUserTrail Tests ====================

func TestAuditService_GetUserTrail_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	auditRepo := new(mocks.MockAuditRepository)
	statsRepo := new(mocks.MockStatsRepository)

	records := []entity.AuditRecord{
		{Type: entity.EventLogout, UserID: 42},
		{Type: entity.EventLoginSuccess, UserID: 42},
	}
	auditRepo.On("ListByUser", ctx, int64(42), int64(20)).Return(records, nil)

	service := NewAuditService(auditRepo, statsRepo)

	// Act
	trail, err := service.GetUserTrail(ctx, 42, 20)

	// Assert
	require.NoError(t, err)
	assert.Len(t, trail, 2)
	auditRepo.AssertExpectations(t)
}

func TestAuditService_GetUserTrail_LimitClamped(t *testing.T) {
	// Arrange - лимит вне диапазона приводится к значению по умолчанию
	ctx := context.Background()
	auditRepo := new(mocks.MockAuditRepository)
	statsRepo := new(mocks.MockStatsRepository)

	auditRepo.On("ListByUser", ctx, int64(42), int64(defaultTrailLimit)).Return([]entity.AuditRecord{}, nil).Twice()

	service := NewAuditService(auditRepo, statsRepo)

	// Act
	_, errZero := service.GetUserTrail(ctx, 42, 0)
	_, errHuge := service.GetUserTrail(ctx, 42, 100000)

	// Assert
	require.NoError(t, errZero)
	require.NoError(t, errHuge)
	auditRepo.AssertExpectations(t)
}

func TestAuditService_GetUserTrail_RepoError(t *testing.T) {
	// Arrange
	ctx := context.Background()
	auditRepo := new(mocks.MockAuditRepository)
	statsRepo := new(mocks.MockStatsRepository)

	auditRepo.On("ListByUser", ctx, int64(42), mock.AnythingOfType("int64")).Return(nil, errors.New("mongo unavailable"))

	service := NewAuditService(auditRepo, statsRepo)

	// Act
	trail, err := service.GetUserTrail(ctx, 42, 10)

	// Assert
	assert.Nil(t, trail)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list audit records")
}

// ==================== AggregateDay Tests ====================

func TestAuditService_AggregateDay_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	auditRepo := new(mocks.MockAuditRepository)
	statsRepo := new(mocks.MockStatsRepository)

	day := time.Date(2026, 8, 28, 15, 45, 0, 0, time.UTC) // время внутри суток не важно
	from := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	counts := map[string]int64{
		entity.EventLoginSuccess: 120,
		entity.EventLoginFailed:  7,
	}

	auditRepo.On("CountByTypeBetween", ctx, from, to).Return(counts, nil)
	statsRepo.On("Upsert", ctx, mock.MatchedBy(func(s *entity.DailyStat) bool {
		return s.Day.Equal(from) && s.EventType == entity.EventLoginSuccess && s.Count == 120
	})).Return(nil)
	statsRepo.On("Upsert", ctx, mock.MatchedBy(func(s *entity.DailyStat) bool {
		return s.Day.Equal(from) && s.EventType == entity.EventLoginFailed && s.Count == 7
	})).Return(nil)

	service := NewAuditService(auditRepo, statsRepo)

	// Act
	err := service.AggregateDay(ctx, day)

	// Assert
	require.NoError(t, err)
	auditRepo.AssertExpectations(t)
	statsRepo.AssertExpectations(t)
}

func TestAuditService_AggregateDay_EmptyDay(t *testing.T) {
	// Arrange - день без событий не пишет статистику
	ctx := context.Background()
	auditRepo := new(mocks.MockAuditRepository)
	statsRepo := new(mocks.MockStatsRepository)

	auditRepo.On("CountByTypeBetween", ctx, mock.Anything, mock.Anything).Return(map[string]int64{}, nil)

	service := NewAuditService(auditRepo, statsRepo)

	// Act
	err := service.AggregateDay(ctx, time.Now())

	// Assert
	require.NoError(t, err)
	statsRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestAuditService_AggregateDay_CountError(t *testing.T) {
	// Arrange
	ctx := context.Background()
	auditRepo := new(mocks.MockAuditRepository)
	statsRepo := new(mocks.MockStatsRepository)

	auditRepo.On("CountByTypeBetween", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("mongo unavailable"))

	service := NewAuditService(auditRepo, statsRepo)

	// Act
	err := service.AggregateDay(ctx, time.Now())

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count audit records")
	statsRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestAuditService_AggregateDay_UpsertError(t *testing.T) {
	// Arrange
	ctx := context.Background()
	auditRepo := new(mocks.MockAuditRepository)
	statsRepo := new(mocks.MockStatsRepository)

	counts := map[string]int64{entity.EventLogout: 3}
	auditRepo.On("CountByTypeBetween", ctx, mock.Anything, mock.Anything).Return(counts, nil)
	statsRepo.On("Upsert", ctx, mock.Anything).Return(errors.New("postgres unavailable"))

	service := NewAuditService(auditRepo, statsRepo)

	// Act
	err := service.AggregateDay(ctx, time.Now())

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upsert stat")
}
