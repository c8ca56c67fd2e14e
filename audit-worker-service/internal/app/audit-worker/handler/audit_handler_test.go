package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orchardfleet/audit-worker-service/internal/app/audit-worker/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuditService мок для AuditServiceInterface
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) ProcessEvent(ctx context.Context, event *entity.SecurityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditService) GetUserTrail(ctx context.Context, userID int64, limit int64) ([]entity.AuditRecord, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AuditRecord), args.Error(1)
}

func (m *MockAuditService) AggregateDay(ctx context.Context, day time.Time) error {
	args := m.Called(ctx, day)
	return args.Error(0)
}

// ===================== GetUserTrail Tests =====================

func TestAuditTrailHandler_GetUserTrail_Success(t *testing.T) {
	// Arrange
	auditSvc := new(MockAuditService)

	records := []entity.AuditRecord{
		{Type: entity.EventLogout, UserID: 42},
		{Type: entity.EventLoginSuccess, UserID: 42},
	}
	auditSvc.On("GetUserTrail", mock.Anything, int64(42), int64(5)).Return(records, nil)

	handler := NewAuditTrailHandler(auditSvc)

	req := httptest.NewRequest(http.MethodGet, "/audit/trail?user_id=42&limit=5", nil)
	rec := httptest.NewRecorder()

	// Act
	handler.GetUserTrail(rec, req)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)

	var got []entity.AuditRecord
	err := json.Unmarshal(rec.Body.Bytes(), &got)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, entity.EventLogout, got[0].Type)

	auditSvc.AssertExpectations(t)
}

func TestAuditTrailHandler_GetUserTrail_InvalidUserID(t *testing.T) {
	// Arrange
	auditSvc := new(MockAuditService)
	handler := NewAuditTrailHandler(auditSvc)

	testCases := []string{
		"/audit/trail",
		"/audit/trail?user_id=abc",
		"/audit/trail?user_id=0",
	}

	for _, url := range testCases {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rec := httptest.NewRecorder()

		// Act
		handler.GetUserTrail(rec, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	auditSvc.AssertNotCalled(t, "GetUserTrail", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuditTrailHandler_GetUserTrail_ServiceError(t *testing.T) {
	// Arrange
	auditSvc := new(MockAuditService)
	auditSvc.On("GetUserTrail", mock.Anything, int64(42), mock.AnythingOfType("int64")).
		Return(nil, errors.New("mongo unavailable"))

	handler := NewAuditTrailHandler(auditSvc)

	req := httptest.NewRequest(http.MethodGet, "/audit/trail?user_id=42", nil)
	rec := httptest.NewRecorder()

	// Act
	handler.GetUserTrail(rec, req)

	// Assert
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuditTrailHandler_GetUserTrail_MethodNotAllowed(t *testing.T) {
	// Arrange
	auditSvc := new(MockAuditService)
	handler := NewAuditTrailHandler(auditSvc)

	req := httptest.NewRequest(http.MethodPost, "/audit/trail?user_id=42", nil)
	rec := httptest.NewRecorder()

	// Act
	handler.GetUserTrail(rec, req)

	// Assert
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	auditSvc.AssertNotCalled(t, "GetUserTrail", mock.Anything, mock.Anything, mock.Anything)
}
