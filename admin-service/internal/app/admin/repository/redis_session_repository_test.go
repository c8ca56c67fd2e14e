package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// SessionRepositoryTestSuite тестовый suite для Redis repository
type SessionRepositoryTestSuite struct {
	suite.Suite
	miniRedis *miniredis.Miniredis
	client    *redis.Client
	repo      SessionRepository
}

func TestSessionRepositorySuite(t *testing.T) {
	suite.Run(t, new(SessionRepositoryTestSuite))
}

func (s *SessionRepositoryTestSuite) SetupSuite() {
	var err error
	s.miniRedis, err = miniredis.Run()
	require.NoError(s.T(), err)

	s.client = redis.NewClient(&redis.Options{
		Addr: s.miniRedis.Addr(),
	})

	s.repo = NewRedisSessionRepository(s.client)
}

func (s *SessionRepositoryTestSuite) SetupTest() {
	s.miniRedis.FlushAll()
}

func (s *SessionRepositoryTestSuite) TearDownSuite() {
	s.client.Close()
	s.miniRedis.Close()
}

// ===================== BlacklistToken Tests =====================

func (s *SessionRepositoryTestSuite) TestBlacklistToken_Success() {
	ctx := context.Background()

	// Act
	err := s.repo.BlacklistToken(ctx, "jti-123", 1*time.Hour)

	// Assert
	s.NoError(err)

	revoked, err := s.repo.IsTokenBlacklisted(ctx, "jti-123")
	s.NoError(err)
	s.True(revoked)
}

func (s *SessionRepositoryTestSuite) TestBlacklistToken_ExpiredTokenSkipped() {
	ctx := context.Background()

	// Act - TTL <= 0 означает что токен уже истек, запись не нужна
	err := s.repo.BlacklistToken(ctx, "jti-expired", -1*time.Minute)

	// Assert
	s.NoError(err)

	revoked, err := s.repo.IsTokenBlacklisted(ctx, "jti-expired")
	s.NoError(err)
	s.False(revoked)
}

func (s *SessionRepositoryTestSuite) TestBlacklistToken_EntryExpiresWithToken() {
	ctx := context.Background()

	// Arrange
	err := s.repo.BlacklistToken(ctx, "jti-short", 1*time.Second)
	s.NoError(err)

	// Act - перематываем время за пределы TTL
	s.miniRedis.FastForward(2 * time.Second)

	// Assert - запись ушла вместе со сроком токена
	revoked, err := s.repo.IsTokenBlacklisted(ctx, "jti-short")
	s.NoError(err)
	s.False(revoked)
}

func (s *SessionRepositoryTestSuite) TestIsTokenBlacklisted_UnknownToken() {
	ctx := context.Background()

	// Act
	revoked, err := s.repo.IsTokenBlacklisted(ctx, "jti-unknown")

	// Assert
	s.NoError(err)
	s.False(revoked)
}

// ===================== StoreNonce Tests =====================

func (s *SessionRepositoryTestSuite) TestStoreNonce_FirstUse() {
	ctx := context.Background()

	// Act
	ok, err := s.repo.StoreNonce(ctx, "nonce-abc", 5*time.Minute)

	// Assert
	s.NoError(err)
	s.True(ok)
}

func (s *SessionRepositoryTestSuite) TestStoreNonce_Replay() {
	ctx := context.Background()

	// Arrange - первый запрос регистрирует nonce
	ok, err := s.repo.StoreNonce(ctx, "nonce-abc", 5*time.Minute)
	s.NoError(err)
	s.True(ok)

	// Act - повтор того же nonce в пределах окна
	ok, err = s.repo.StoreNonce(ctx, "nonce-abc", 5*time.Minute)

	// Assert
	s.NoError(err)
	s.False(ok)
}

func (s *SessionRepositoryTestSuite) TestStoreNonce_ReusableAfterWindow() {
	ctx := context.Background()

	// Arrange
	ok, _ := s.repo.StoreNonce(ctx, "nonce-abc", 1*time.Second)
	s.True(ok)

	// Act - за пределами окна свежести nonce освобождается
	s.miniRedis.FastForward(2 * time.Second)
	ok, err := s.repo.StoreNonce(ctx, "nonce-abc", 1*time.Second)

	// Assert
	s.NoError(err)
	s.True(ok)
}

// ===================== Redis Key Format Tests =====================

func (s *SessionRepositoryTestSuite) TestRedisKeyFormat() {
	ctx := context.Background()

	s.repo.BlacklistToken(ctx, "jti-123", 1*time.Hour)
	s.repo.StoreNonce(ctx, "nonce-abc", 5*time.Minute)

	// Ключи черного списка и nonce живут в разных пространствах имен
	blacklistKeys, err := s.client.Keys(ctx, "blacklist:*").Result()
	s.NoError(err)
	s.Contains(blacklistKeys, "blacklist:jti-123")

	nonceKeys, err := s.client.Keys(ctx, "nonce:*").Result()
	s.NoError(err)
	s.Contains(nonceKeys, "nonce:nonce-abc")
}
