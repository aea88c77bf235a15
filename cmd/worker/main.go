package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchmaking/config"
	"matchmaking/internal/bus"
	"matchmaking/internal/logger"
	"matchmaking/internal/matchmaker"
	"matchmaking/internal/storage"
	"matchmaking/monitoring"
)

func main() {
	lg := logger.New("worker")

	cfg, err := config.Load()
	if err != nil {
		lg.Fatal("config load failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := storage.InitRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		lg.Fatal("redis init failed", "err", err)
	}
	defer rdb.Close()

	producer, err := bus.NewKafkaProducer(cfg.Kafka.Brokers)
	if err != nil {
		lg.Fatal("kafka producer init failed", "err", err)
	}
	defer producer.Close()

	consumer, err := bus.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.WorkerGroup, cfg.Kafka.RequestTopic)
	if err != nil {
		lg.Fatal("kafka consumer init failed", "err", err)
	}
	defer consumer.Close()

	queue := matchmaker.NewWaitingQueue(rdb)
	former := matchmaker.NewFormer(queue, producer, cfg.Kafka.CompleteTopic, cfg.Matchmaking.PlayersPerMatch, lg)
	ingestor := matchmaker.NewIngestor(consumer, queue, former, matchmaker.LoopConfig{
		PollTimeout:    cfg.Matchmaking.PollTimeout,
		TopicBackoff:   cfg.Matchmaking.TopicBackoff,
		ConsumeBackoff: cfg.Matchmaking.ConsumeBackoff,
	}, lg)

	monitor := monitoring.NewMonitor(rdb, matchmaker.WaitingKey)
	go monitor.Run(ctx, 30*time.Second)

	if err := ingestor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		lg.Fatal("worker stopped", "err", err)
	}
	lg.Info("worker shut down")
}
