package repositories

import (
	"context"

	"floorview/internal/core/ports"
	"floorview/internal/infrastructure/repositories/memory"
	redisrepo "floorview/internal/infrastructure/repositories/redis"
	"floorview/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory hands out the linesim stores. Policies and the event log
// live in Redis when it is configured and reachable, in memory otherwise.
type RepositoryFactory struct {
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory never fails on an unreachable Redis; it logs and
// falls back to memory so the simulator still starts.
func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) *RepositoryFactory {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	f := &RepositoryFactory{logger: logger}

	rc := cfg.Simulator.Redis
	if !rc.Enabled {
		logger.Info("using memory repositories")
		return f
	}

	client, err := redisrepo.Connect(ctx, redisrepo.ClientOptions{
		Address:  rc.Address,
		Password: rc.Password,
		DB:       rc.DB,
		PoolSize: rc.PoolSize,
	}, logger)
	if err != nil {
		logger.Warnw("falling back to memory repositories", "error", err)
		return f
	}
	f.redisClient = client
	logger.Infow("using Redis repositories", "address", rc.Address)
	return f
}

func (f *RepositoryFactory) CreatePolicyRepository() ports.PolicyRepository {
	if f.redisClient != nil {
		return redisrepo.NewRedisPolicyRepository(f.redisClient)
	}
	return memory.NewMemoryPolicyRepository()
}

func (f *RepositoryFactory) CreateEventRepository() ports.EventRepository {
	if f.redisClient != nil {
		return redisrepo.NewRedisEventRepository(f.redisClient, memory.DefaultEventCapacity)
	}
	return memory.NewMemoryEventRepository(memory.DefaultEventCapacity)
}

// CreateDocumentRepository always returns a memory repository; uploaded
// documents do not outlive the process.
func (f *RepositoryFactory) CreateDocumentRepository() ports.DocumentRepository {
	return memory.NewMemoryDocumentRepository()
}

// RedisClient returns the shared client, or nil when running on memory.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	return f.redisClient
}

func (f *RepositoryFactory) Close() error {
	if f.redisClient == nil {
		return nil
	}
	return f.redisClient.Close()
}
