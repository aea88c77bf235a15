package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"matchmaking/config"
	"matchmaking/internal/bus"
	"matchmaking/internal/logger"
	"matchmaking/internal/matchmaker"
	"matchmaking/internal/storage"
	"matchmaking/monitoring"
)

func main() {
	lg := logger.New("api")

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

	consumer, err := bus.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.ServiceGroup, cfg.Kafka.CompleteTopic)
	if err != nil {
		lg.Fatal("kafka consumer init failed", "err", err)
	}
	defer consumer.Close()

	limiter := matchmaker.NewRateLimiter(rdb, cfg.Matchmaking.MinRequestInterval, cfg.Matchmaking.RateLimitTTL)
	cache := matchmaker.NewMatchCache(rdb, cfg.Matchmaking.MatchTTL)
	svc := matchmaker.NewService(limiter, cache, producer, cfg.Kafka.RequestTopic, lg)

	loopCfg := matchmaker.LoopConfig{
		PollTimeout:    cfg.Matchmaking.PollTimeout,
		TopicBackoff:   cfg.Matchmaking.TopicBackoff,
		ConsumeBackoff: cfg.Matchmaking.ConsumeBackoff,
	}
	completion := matchmaker.NewCompletion(consumer, cache, loopCfg, lg)
	go func() {
		if err := completion.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error("completion processor stopped", "err", err)
			stop()
		}
	}()

	monitor := monitoring.NewMonitor(rdb, matchmaker.WaitingKey)
	go monitor.Run(ctx, 30*time.Second)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	mh := matchmaker.NewHandler(svc)
	r.POST("/matchmaking/search", mh.Search)
	r.GET("/matchmaking/match", mh.GetMatch)

	srv := &http.Server{Addr: cfg.Server.Port, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Error("server shutdown failed", "err", err)
		}
	}()

	lg.Info("server running", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Fatal("server failed", "err", err)
	}
}
