package service

import (
	"time"

	"pokernight/internal/config"
	"pokernight/internal/roster"
	"pokernight/internal/roster/memory"
	rosterRedis "pokernight/internal/roster/redis"
	"pokernight/internal/service/player"
	"pokernight/internal/service/table"
	"pokernight/internal/ws"
	pkgAuth "pokernight/pkg/auth"
	"pokernight/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Container struct {
	Player *player.Service
	Table  *table.Service
	Hub    *ws.Hub
	Roster roster.Store
	Signer *pkgAuth.Signer
	Config *config.Config
}

// NewContainer wires the services. rdb may be nil, in which case rosters are
// kept in memory regardless of roster.store.
func NewContainer(db *gorm.DB, rdb *redis.Client, conf *config.Config) *Container {
	ttl := time.Duration(conf.Session.Expire) * time.Hour

	var store roster.Store
	if conf.Roster.Store == config.RosterStoreRedis && rdb != nil {
		store = rosterRedis.New(rdb, ttl)
	} else {
		if conf.Roster.Store == config.RosterStoreRedis {
			logger.Log.Warn("redis roster store requested without a redis client, using memory")
		}
		store = memory.New(ttl)
	}
	logger.Log.Info("roster store ready", zap.String("store", conf.Roster.Store))

	hub := ws.NewHub()
	players := player.NewService(db)
	return &Container{
		Player: players,
		Table: table.NewService(players, table.Config{
			PropagateTables: conf.Roster.PropagateTables,
			ReuseByName:     conf.Players.ReuseByName,
		}, hub),
		Hub:    hub,
		Roster: store,
		Signer: pkgAuth.NewSigner(conf.Session.Secret, ttl),
		Config: conf,
	}
}
