//go:build integration

package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shiftguard/internal/evaluation/lock"
	"shiftguard/pkg/testutil/containers"
)

type RedisLockerSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	locker *lock.RedisLocker
}

func TestRedisLockerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockerSuite))
}

func (s *RedisLockerSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.locker = lock.NewRedis(s.redis.Client)
}

func (s *RedisLockerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLockerSuite) TestExclusive() {
	ctx := context.Background()

	release, ok, err := s.locker.TryAcquire(ctx, "tenant:a", time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)

	_, ok, err = s.locker.TryAcquire(ctx, "tenant:a", time.Minute)
	s.Require().NoError(err)
	s.False(ok, "second holder must not acquire")

	_, ok, err = s.locker.TryAcquire(ctx, "tenant:b", time.Minute)
	s.Require().NoError(err)
	s.True(ok, "locks are per key")

	s.Require().NoError(release(ctx))
	_, ok, err = s.locker.TryAcquire(ctx, "tenant:a", time.Minute)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RedisLockerSuite) TestExpiredLeaseIsNotReleasedByOldHolder() {
	ctx := context.Background()

	stale, ok, err := s.locker.TryAcquire(ctx, "tenant:a", 100*time.Millisecond)
	s.Require().NoError(err)
	s.Require().True(ok)

	s.Eventually(func() bool {
		_, ok, err := s.locker.TryAcquire(ctx, "tenant:a", time.Minute)
		return err == nil && ok
	}, 2*time.Second, 50*time.Millisecond)

	// The old holder's release must leave the new lease alone.
	s.Require().NoError(stale(ctx))
	_, ok, err = s.locker.TryAcquire(ctx, "tenant:a", time.Minute)
	s.Require().NoError(err)
	s.False(ok)
}
