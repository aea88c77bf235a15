package config

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Kafka struct {
		Brokers       string
		RequestTopic  string
		CompleteTopic string
		WorkerGroup   string
		ServiceGroup  string
	}
	Matchmaking struct {
		PlayersPerMatch    int
		MinRequestInterval time.Duration
		RateLimitTTL       time.Duration
		MatchTTL           time.Duration
		PollTimeout        time.Duration
		TopicBackoff       time.Duration
		ConsumeBackoff     time.Duration
	}
}

func setDefaults() {
	viper.SetDefault("server.port", ":8080")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("kafka.brokers", "localhost:9092")
	viper.SetDefault("kafka.requesttopic", "matchmaking.request")
	viper.SetDefault("kafka.completetopic", "matchmaking.complete")
	viper.SetDefault("kafka.workergroup", "matchmaking-worker")
	viper.SetDefault("kafka.servicegroup", "matchmaking-service")
	viper.SetDefault("matchmaking.playerspermatch", 3)
	viper.SetDefault("matchmaking.minrequestinterval", 100*time.Millisecond)
	viper.SetDefault("matchmaking.ratelimitttl", time.Second)
	viper.SetDefault("matchmaking.matchttl", time.Hour)
	viper.SetDefault("matchmaking.polltimeout", 100*time.Millisecond)
	viper.SetDefault("matchmaking.topicbackoff", 2*time.Second)
	viper.SetDefault("matchmaking.consumebackoff", time.Second)
}

// Load reads config/config.yaml on top of the built-in defaults. A missing
// file is not an error so the binaries can run with defaults alone.
func Load() (*Config, error) {
	setDefaults()
	viper.SetConfigFile("config/config.yaml")
	if err := viper.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
