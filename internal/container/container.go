package container

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"remindme/internal/cache"
	"remindme/internal/config"
	"remindme/internal/database"
	"remindme/internal/logger"
	"remindme/internal/repository"
	"remindme/internal/services"
)

type Container struct {
	Mongo           *mongo.Client
	Redis           *redis.Client
	Logger          *logrus.Logger
	AuthService     *services.AuthService
	ReminderService *services.ReminderService
	Sweeper         *services.Sweeper
}

func New(ctx context.Context) (*Container, error) {
	log := logger.Get()

	secret := config.JWTSecret()
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	uri, databaseName := config.MongoConfig()
	client, err := database.Connect(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mongo: %w", err)
	}
	db := client.Database(databaseName)
	log.Info("Mongo connection successful")

	// Cache is optional: a missing Redis degrades reads, nothing more.
	redisClient, err := cache.Connect(ctx)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without reminder cache")
		redisClient = nil
	} else {
		log.Info("Redis connection successful")
	}

	userRepo := repository.NewUserRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	push := services.NewExpoPushSender(config.PushURL(), log)
	reminderService := services.NewReminderService(reminderRepo, userRepo, redisClient, push, log)

	return &Container{
		Mongo:           client,
		Redis:           redisClient,
		Logger:          log,
		AuthService:     services.NewAuthService(userRepo, secret, log),
		ReminderService: reminderService,
		Sweeper:         services.NewSweeper(reminderService, config.SweepInterval(), log),
	}, nil
}

func (c *Container) Close() {
	if c.Redis != nil {
		c.Redis.Close()
		c.Logger.Info("Redis connection closed")
	}
	if c.Mongo != nil {
		if err := database.Disconnect(c.Mongo); err != nil {
			c.Logger.WithError(err).Warn("Mongo disconnect failed")
		} else {
			c.Logger.Info("Mongo connection closed")
		}
	}
}
