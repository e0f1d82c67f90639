//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"slidekit-ai-api/internal/application/brainstorm"
	"slidekit-ai-api/internal/application/deck"
	"slidekit-ai-api/internal/application/deckstore"
	"slidekit-ai-api/internal/application/export"
	"slidekit-ai-api/internal/application/search"
	"slidekit-ai-api/internal/config"
	"slidekit-ai-api/internal/domain/repository"
	"slidekit-ai-api/internal/infrastructure/llm"
	"slidekit-ai-api/internal/infrastructure/persistence/postgres"
	"slidekit-ai-api/internal/infrastructure/persistence/redis"
	"slidekit-ai-api/internal/interfaces/http/handler"
	"slidekit-ai-api/internal/interfaces/http/middleware"
	"slidekit-ai-api/internal/interfaces/http/router"
)

// InitializeApp 初始化 API 网关应用
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		EmbeddingSet,
		MilvusSet,
		SearchSet,
		DeckSet,
		BrainstormSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化异步任务消费侧依赖
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		EmbeddingSet,
		MilvusSet,
		ProvideIndexer,
		export.NewService,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// InitializeBootstrap 初始化建库建表依赖
func InitializeBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		postgres.NewUserRepository,
		ProvideMilvusClientOptional,
		ProvideMilvusRepositoryOptional,
		wire.Struct(new(Bootstrap), "*"),
	)
	return nil, nil, nil
}

// RepoSet PostgreSQL 仓储提供者集合
var RepoSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewUserRepository,
	postgres.NewBrainstormSessionRepository,
	postgres.NewBrainstormTurnRepository,
	postgres.NewDeckRecordRepository,
	postgres.NewLLMUsageEventRepository,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.UserRepository), new(*postgres.UserRepository)),
	wire.Bind(new(repository.BrainstormSessionRepository), new(*postgres.BrainstormSessionRepository)),
	wire.Bind(new(repository.BrainstormTurnRepository), new(*postgres.BrainstormTurnRepository)),
	wire.Bind(new(repository.DeckRecordRepository), new(*postgres.DeckRecordRepository)),
	wire.Bind(new(repository.LLMUsageEventRepository), new(*postgres.LLMUsageEventRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
)

// MilvusSet API 网关可选 Milvus（不可达时禁用向量能力，不阻塞启动）
var MilvusSet = wire.NewSet(
	ProvideMilvusClientOptional,
	ProvideMilvusRepositoryOptional,
	ProvideSearchVectorRepositoryOptional,
)

// EmbeddingSet 可选 Embedder（不可用时禁用向量检索/索引）
var EmbeddingSet = wire.NewSet(
	ProvideEmbedderOptional,
)

// SearchSet 语义检索提供者集合
var SearchSet = wire.NewSet(
	ProvideIndexer,
	search.NewService,
)

// DeckSet 文稿编排提供者集合
var DeckSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(deck.ChatModelFactory), new(*llm.EinoFactory)),
	deck.NewClassifier,
	deck.NewClarifyGenerator,
	deck.NewDeckGenerator,
	deck.NewReviseGenerator,
	deck.NewCodeDeckGenerator,
	deck.NewCommandRunner,
	deck.NewOrchestrator,
	deckstore.NewService,
	deckstore.NewExportPublisher,
	wire.Bind(new(deck.DeckStore), new(*deckstore.Service)),
	wire.Bind(new(deck.ExportPublisher), new(*deckstore.ExportPublisher)),
)

// BrainstormSet 会话服务提供者集合
var BrainstormSet = wire.NewSet(
	ProvideBrainstormConfig,
	brainstorm.NewService,
	wire.Bind(new(brainstorm.TurnRunner), new(*deck.Orchestrator)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideAuthHandler,
	handler.NewHealthHandler,
	handler.NewBrainstormHandler,
	handler.NewDeckHandler,
	wire.Struct(new(router.Handlers), "*"),
	ProvideRouter,
)
