package service

import (
	"context"
	"time"

	"cardroom/internal/config"
	"cardroom/internal/service/admin"
	"cardroom/internal/service/cosmetics"
	"cardroom/internal/service/dispatch"
	"cardroom/internal/service/game"
	"cardroom/internal/service/registry"
	"cardroom/internal/service/rewards"
	"cardroom/internal/service/session"
	"cardroom/internal/service/user"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Container struct {
	Admin      *admin.Service
	User       *user.Service
	Registry   *registry.Registry
	Sessions   *session.Manager
	Rewards    *rewards.Service
	Cosmetics  *cosmetics.Resolver
	Dispatcher *dispatch.Dispatcher
}

func NewContainer(db *gorm.DB, rdb *redis.Client, logger *zap.Logger) *Container {
	cfg := config.GlobalConfig.Lobby

	reg := registry.New(registry.Config{
		PublicPokerCodes: cfg.PublicPokerCodes,
		PublicUnoCodes:   cfg.PublicUnoCodes,
		MaxPlayers:       cfg.MaxPlayers,
		SmallBlind:       cfg.SmallBlind,
		BigBlind:         cfg.BigBlind,
		StartingStack:    cfg.StartingStack,
	})
	sessions := session.New()
	rewardSvc := rewards.New(db)
	cosmeticsResolver := cosmetics.NewResolver(cosmetics.StaticSource{}, logger)
	rng := game.CryptoSource{}
	dispatcher := dispatch.New(reg, sessions, rewardSvc, cosmeticsResolver, rng, logger)

	return &Container{
		Admin:      admin.NewService(db),
		User:       user.NewService(db),
		Registry:   reg,
		Sessions:   sessions,
		Rewards:    rewardSvc,
		Cosmetics:  cosmeticsResolver,
		Dispatcher: dispatcher,
	}
}

func (c *Container) Start(ctx context.Context) error {
	if err := c.Admin.EnsureDefaultAdmin(ctx); err != nil {
		return err
	}
	c.Registry.Bootstrap(time.Now())
	go c.Dispatcher.RunTimeoutSweep(ctx)
	return nil
}
