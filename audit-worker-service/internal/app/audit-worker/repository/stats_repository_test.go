package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"orchardfleet/audit-worker-service/internal/app/audit-worker/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// StatsRepositoryTestSuite тестовый suite для PostgreSQL repository
type StatsRepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	mock  sqlmock.Sqlmock
	repo  StatsRepository
	sqlDB *sql.DB
}

func TestStatsRepositorySuite(t *testing.T) {
	suite.Run(t, new(StatsRepositoryTestSuite))
}

func (s *StatsRepositoryTestSuite) SetupTest() {
	var err error
	s.sqlDB, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	dialector := postgres.New(postgres.Config{
		Conn:       s.sqlDB,
		DriverName: "postgres",
	})

	s.db, err = gorm.Open(dialector, &gorm.Config{})
	require.NoError(s.T(), err)

	s.repo = NewStatsRepository(s.db)
}

func (s *StatsRepositoryTestSuite) TearDownTest() {
	s.sqlDB.Close()
}

// ===================== Upsert Tests =====================

func (s *StatsRepositoryTestSuite) TestUpsert_Success() {
	ctx := context.Background()

	stat := &entity.DailyStat{
		Day:       time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		EventType: entity.EventLoginSuccess,
		Count:     120,
	}

	s.mock.ExpectBegin()
	// ON CONFLICT по (day, event_type) перезаписывает счетчик
	s.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "security_daily_stats"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	s.mock.ExpectCommit()

	// Act
	err := s.repo.Upsert(ctx, stat)

	// Assert
	s.NoError(err)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *StatsRepositoryTestSuite) TestUpsert_DBError() {
	ctx := context.Background()

	stat := &entity.DailyStat{
		Day:       time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		EventType: entity.EventLoginFailed,
		Count:     7,
	}

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "security_daily_stats"`)).
		WillReturnError(sql.ErrConnDone)
	s.mock.ExpectRollback()

	// Act
	err := s.repo.Upsert(ctx, stat)

	// Assert
	s.Error(err)
	s.Contains(err.Error(), "failed to upsert daily stat")

	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== GetByDay Tests =====================

func (s *StatsRepositoryTestSuite) TestGetByDay_Success() {
	ctx := context.Background()
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "day", "event_type", "count", "updated_at"}).
		AddRow(1, day, entity.EventLoginFailed, 7, time.Now()).
		AddRow(2, day, entity.EventLoginSuccess, 120, time.Now())

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "security_daily_stats" WHERE day = $1 ORDER BY event_type`)).
		WithArgs("2026-08-28").
		WillReturnRows(rows)

	// Act
	stats, err := s.repo.GetByDay(ctx, day)

	// Assert
	s.NoError(err)
	s.Len(stats, 2)
	s.Equal(entity.EventLoginFailed, stats[0].EventType)
	s.Equal(int64(7), stats[0].Count)
	s.Equal(entity.EventLoginSuccess, stats[1].EventType)
	s.Equal(int64(120), stats[1].Count)

	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *StatsRepositoryTestSuite) TestGetByDay_Empty() {
	ctx := context.Background()
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "day", "event_type", "count", "updated_at"})

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "security_daily_stats" WHERE day = $1 ORDER BY event_type`)).
		WithArgs("2026-08-29").
		WillReturnRows(rows)

	// Act
	stats, err := s.repo.GetByDay(ctx, day)

	// Assert
	s.NoError(err)
	s.Empty(stats)

	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *StatsRepositoryTestSuite) TestGetByDay_DBError() {
	ctx := context.Background()
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "security_daily_stats"`)).
		WillReturnError(sql.ErrConnDone)

	// Act
	stats, err := s.repo.GetByDay(ctx, day)

	// Assert
	s.Error(err)
	s.Nil(stats)
	s.Contains(err.Error(), "failed to get daily stats")

	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== NewStatsRepository Tests =====================

func TestNewStatsRepository(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	dialector := postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	})

	db, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	// Act
	repo := NewStatsRepository(db)

	// Assert
	assert.NotNil(t, repo)
}
