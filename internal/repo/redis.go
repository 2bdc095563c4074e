package repo

import (
	"context"
	"time"

	"pokernight/internal/config"
	"pokernight/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var RDB *redis.Client

func redisOptions(conf config.RedisConfig) (*redis.Options, error) {
	if conf.URL != "" {
		return redis.ParseURL(conf.URL)
	}
	return &redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	}, nil
}

func InitRedis(conf config.RedisConfig) error {
	opts, err := redisOptions(conf)
	if err != nil {
		return err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		logger.Log.Error("Failed to connect to Redis", zap.Error(err))
		_ = client.Close()
		return err
	}
	RDB = client
	return nil
}
