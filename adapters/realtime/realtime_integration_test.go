package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/khoahotran/stdtrack/adapters/persistence/memory"
	"github.com/khoahotran/stdtrack/internal/domain/chat"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

type RealtimeIntegrationTestSuite struct {
	suite.Suite
	container testcontainers.Container
	rdb       *redis.Client
}

func (s *RealtimeIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		s.T().Fatalf("Failed to start redis container: %s", err)
	}
	s.container = container

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		s.T().Fatalf("Failed to get redis endpoint: %s", err)
	}
	s.rdb = redis.NewClient(&redis.Options{Addr: endpoint})
}

func (s *RealtimeIntegrationTestSuite) TearDownSuite() {
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	if s.container != nil {
		if err := s.container.Terminate(context.Background()); err != nil {
			s.T().Fatalf("Failed to terminate redis container: %s", err)
		}
	}
}

func TestRealtimeIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode.")
	}
	suite.Run(t, new(RealtimeIntegrationTestSuite))
}

type snapshotLog struct {
	mu    sync.Mutex
	sizes []int
}

func (l *snapshotLog) record(msgs []chat.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sizes = append(l.sizes, len(msgs))
}

func (l *snapshotLog) last() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.sizes) == 0 {
		return 0, -1
	}
	return len(l.sizes), l.sizes[len(l.sizes)-1]
}

func (s *RealtimeIntegrationTestSuite) Test_HubPushesSnapshotsAcrossInstances() {
	ctx := context.Background()
	store := memory.NewChatStore()
	writer := NewRedisHub(store, s.rdb, logger.NewNop())
	reader := NewRedisHub(store, s.rdb, logger.NewNop())

	key := chat.NewThreadKey(uuid.New(), "r1", "Dart basics")
	var log snapshotLog
	unsubscribe, err := reader.Subscribe(ctx, key, log.record)
	s.Require().NoError(err)
	defer unsubscribe()

	count, size := log.last()
	s.Equal(1, count)
	s.Equal(0, size)

	_, err = writer.Append(ctx, key, chat.Message{Role: chat.RoleUser, Text: "Hi", Timestamp: 1})
	s.Require().NoError(err)
	s.Eventually(func() bool { _, n := log.last(); return n == 1 }, 3*time.Second, 20*time.Millisecond)

	_, err = writer.ClearResult(ctx, key.OwnerID, key.ResultID)
	s.Require().NoError(err)
	s.Eventually(func() bool { _, n := log.last(); return n == 0 }, 3*time.Second, 20*time.Millisecond)

	unsubscribe()
	unsubscribe()
}

func (s *RealtimeIntegrationTestSuite) Test_InflightGuardIsExclusive() {
	ctx := context.Background()
	guard := NewRedisInflightGuard(s.rdb)
	key := "owner/" + uuid.NewString()

	release, ok, err := guard.TryAcquire(ctx, key, time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)

	_, ok, err = guard.TryAcquire(ctx, key, time.Minute)
	s.Require().NoError(err)
	s.False(ok)

	release()
	release()

	release2, ok, err := guard.TryAcquire(ctx, key, time.Minute)
	s.Require().NoError(err)
	s.True(ok)
	release2()
}
