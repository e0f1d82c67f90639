// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"slidekit-ai-api/internal/application/export"
	"slidekit-ai-api/internal/application/search"
	"slidekit-ai-api/internal/config"
	"slidekit-ai-api/internal/domain/repository"
	"slidekit-ai-api/internal/infrastructure/embedding"
	"slidekit-ai-api/internal/infrastructure/messaging"
	"slidekit-ai-api/internal/infrastructure/persistence/milvus"
	"slidekit-ai-api/internal/infrastructure/persistence/postgres"
	"slidekit-ai-api/internal/infrastructure/persistence/redis"
	"slidekit-ai-api/internal/interfaces/http/handler"
	"slidekit-ai-api/internal/interfaces/http/middleware"
	"slidekit-ai-api/internal/interfaces/http/router"
	einoobs "slidekit-ai-api/internal/observability/eino"
	"slidekit-ai-api/pkg/logger"
)

// Worker 异步任务消费侧依赖容器
type Worker struct {
	PgClient      *postgres.Client
	RedisClient   *redis.Client
	DeckRepo      *postgres.DeckRecordRepository
	ExportService *export.Service
	Indexer       *search.Indexer
}

// Bootstrap 建库建表依赖容器
type Bootstrap struct {
	PgClient     *postgres.Client
	UserRepo     *postgres.UserRepository
	MilvusClient *milvus.Client
	MilvusRepo   *milvus.Repository
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideMilvusClientOptional 提供可选的 Milvus 客户端，不可达时禁用向量能力
func ProvideMilvusClientOptional(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Warn(ctx, "milvus not available, vector features disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMilvusRepositoryOptional 提供可选的 Milvus 仓储
func ProvideMilvusRepositoryOptional(client *milvus.Client) *milvus.Repository {
	if client == nil {
		return nil
	}
	return milvus.NewRepository(client)
}

// ProvideSearchVectorRepositoryOptional 提供可选的向量检索仓储
// Milvus 不可用时返回 nil 接口，Indexer/Service 据此降级。
func ProvideSearchVectorRepositoryOptional(repo *milvus.Repository) search.VectorRepository {
	if repo == nil {
		return nil
	}
	return milvus.NewSearchVectorRepository(repo)
}

// ProvideEmbedderOptional 提供可选的 Embedder
func ProvideEmbedderOptional(ctx context.Context, cfg *config.Config) search.Embedder {
	client, err := embedding.NewClient(ctx, &cfg.Embedding)
	if err != nil {
		logger.Warn(ctx, "embedding not available, vector features disabled", "error", err.Error())
		return nil
	}
	return client
}

// ProvideIndexer 提供文稿向量索引器
func ProvideIndexer(cfg *config.Config, embedder search.Embedder, vectorRepo search.VectorRepository) *search.Indexer {
	bs := 0
	if cfg != nil {
		bs = cfg.Embedding.BatchSize
	}
	return search.NewIndexer(embedder, vectorRepo, bs)
}

// ProvideBrainstormConfig 提供会话配置
func ProvideBrainstormConfig(cfg *config.Config) config.BrainstormConfig {
	return cfg.Brainstorm
}

// ProvideAuthHandler 提供认证处理器
func ProvideAuthHandler(cfg *config.Config, userRepo repository.UserRepository) *handler.AuthHandler {
	return handler.NewAuthHandler(middleware.AuthConfig{
		Secret: cfg.Security.JWT.Secret,
		Issuer: cfg.Security.JWT.Issuer,
	}, cfg.Security.JWT.Expiration, cfg.Security.JWT.RefreshExpiration, userRepo)
}

// ProvideRouter 提供 HTTP 路由器，并注册 Eino 全局观测回调
func ProvideRouter(cfg *config.Config, handlers *router.Handlers, rateLimiter middleware.RateLimiter, llmRepo repository.LLMUsageEventRepository) *router.Router {
	einoobs.Init(llmRepo)
	return router.New(cfg, handlers, rateLimiter)
}
