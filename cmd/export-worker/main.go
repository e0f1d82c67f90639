// Package main 导出/索引异步任务消费者入口
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"slidekit-ai-api/internal/application/search"
	"slidekit-ai-api/internal/config"
	"slidekit-ai-api/internal/infrastructure/messaging"
	"slidekit-ai-api/internal/wire"
	"slidekit-ai-api/pkg/logger"
	"slidekit-ai-api/pkg/tracer"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting export-worker", "env", cfg.App.Env)

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "export-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	consumerName := hostnameConsumerName()
	streamCfg := cfg.Messaging.RedisStream

	// 导出消费者：渲染 Markdown 并回写文稿记录
	exportConsumer := messaging.NewConsumer(worker.RedisClient.Redis(), messaging.ConsumerConfig{
		Stream:       messaging.StreamDeckExport,
		Group:        messaging.ConsumerGroupExportWorker,
		ConsumerName: consumerName,
		BlockTimeout: streamCfg.BlockTimeout,
		RetryLimit:   streamCfg.RetryLimit,
	})
	exportConsumer.RegisterHandler(messaging.TypeDeckExport, func(ctx context.Context, msg *messaging.Message) error {
		var job messaging.DeckExportMessage
		if err := msg.UnmarshalPayload(&job); err != nil {
			return fmt.Errorf("unmarshal export job: %w", err)
		}
		return worker.ExportService.Export(ctx, job.RecordID)
	})

	// 索引消费者：将文稿分页写入向量库；向量能力未启用时直接确认
	indexConsumer := messaging.NewConsumer(worker.RedisClient.Redis(), messaging.ConsumerConfig{
		Stream:       messaging.StreamDeckIndex,
		Group:        messaging.ConsumerGroupIndexWorker,
		ConsumerName: consumerName,
		BlockTimeout: streamCfg.BlockTimeout,
		RetryLimit:   streamCfg.RetryLimit,
	})
	indexConsumer.RegisterHandler(messaging.TypeDeckIndex, func(ctx context.Context, msg *messaging.Message) error {
		if !worker.Indexer.Enabled() {
			logger.Warn(ctx, "vector indexing disabled, skipping", "message_id", msg.ID)
			return nil
		}
		var job messaging.DeckIndexMessage
		if err := msg.UnmarshalPayload(&job); err != nil {
			return fmt.Errorf("unmarshal index job: %w", err)
		}
		record, err := worker.DeckRepo.GetByID(ctx, job.RecordID)
		if err != nil {
			return fmt.Errorf("load deck record %s: %w", job.RecordID, err)
		}
		if err := worker.Indexer.IndexRecord(ctx, record); err != nil {
			if errors.Is(err, search.ErrVectorDisabled) {
				return nil
			}
			return err
		}
		return nil
	})

	if err := exportConsumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start export consumer", err)
	}
	if err := indexConsumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start index consumer", err)
	}

	go exportConsumer.MonitorDLQ(ctx, 100)
	go indexConsumer.MonitorDLQ(ctx, 100)

	log.Info("export-worker started", "consumer", consumerName)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down export-worker...")
	exportConsumer.Stop()
	indexConsumer.Stop()
	log.Info("export-worker exited")
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
