package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"breakauction/internal/breaks"
	"breakauction/internal/config"
	"breakauction/internal/database/db_client"
	"breakauction/internal/database/schema"
	"breakauction/internal/http/http_server"
	"breakauction/internal/notify"
	"breakauction/internal/redis/redis_client"
	"breakauction/internal/redis/watcher/deadlinewatcher"
	"breakauction/internal/scheduler"
	"breakauction/internal/services/bidengine"
	"breakauction/internal/services/breakadmin"
	"breakauction/internal/services/settlement"
	"breakauction/internal/store"
	"breakauction/internal/store/memstore"
	"breakauction/internal/store/pgstore"
	"breakauction/internal/syncboard"
	"breakauction/internal/ws"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// @title			Break Auction API
// @version		1.0
// @description	Timed multi-group auctions with anti-sniping extension.
// @BasePath		/
func main() {
	var err error
	var cfg *config.Config
	var redisClient *redis.Client
	var auctionStore store.IAuctionStore

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	log := newLogger(cfg.LogDevelopment)
	defer log.Sync()
	zap.ReplaceGlobals(log)
	log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Storage
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		auctionStore = memstore.New()
		log.Warn("store.memory", zap.String("hint", "state is lost on restart"))
	default:
		var pgDb *sql.DB
		pgDb, err = db_client.Open(ctx, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
		if err != nil {
			log.Fatal("pg-open", zap.Error(err))
		}
		defer pgDb.Close()
		if cfg.ApplySchema {
			if err := schema.Apply(ctx, pgDb); err != nil {
				log.Fatal("pg-schema", zap.Error(err))
			}
		}
		auctionStore = pgstore.New(pgDb)
	}

	// 4. Redis, only when something needs it
	if cfg.UsesRedis() {
		redisClient, err = redis_client.NewRedisClient(ctx, cfg.RedisHost, int(cfg.RedisPort))
		if err != nil {
			log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
	}

	// 5. Notifications
	dispatcher := notify.NewDispatcher(cfg.NotifyWorkers, cfg.NotifyQueueSize, cfg.NotifyTimeout)
	defer dispatcher.Close()

	hub := ws.NewHub()
	var (
		gateway   notify.Gateway   = notify.LogGateway{}
		publisher notify.Publisher = hub
	)
	var timer *deadlinewatcher.Timer
	if redisClient != nil {
		rg := notify.NewRedisGateway(redisClient)
		gateway, publisher = rg, rg
		timer = deadlinewatcher.NewTimer(redisClient)
	}

	// 6. Services
	settler := settlement.NewSettlementService(auctionStore, dispatcher, gateway)
	engineOpts := bidengine.Options{
		Policy:    breaks.ExtensionPolicy{Threshold: cfg.ExtendThreshold, Window: cfg.ExtendWindow},
		Gateway:   gateway,
		Publisher: publisher,
	}
	var adminTimer breakadmin.DeadlineTimer
	if timer != nil {
		engineOpts.Timer = timer
		adminTimer = timer
	}
	bids := bidengine.NewBidEngine(auctionStore, dispatcher, engineOpts)
	admin := breakadmin.NewBreakService(auctionStore, settler, adminTimer)

	// 7. Background: periodic sweep, plus expiry-driven sweeps and board cache
	sched := scheduler.New(auctionStore, settler, cfg.SettleTimeout)
	sched.Run(ctx, cfg.SweepInterval)
	if redisClient != nil {
		go deadlinewatcher.Run(ctx, redisClient, sched)
		syncboard.Run(ctx, redisClient, admin, cfg.BoardSyncInterval)
	}

	// 8. HTTP + WS server
	wsSrv := ws.NewWsServer(hub, redisClient, bids, admin)
	defer wsSrv.Close()
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, admin, bids)

	go func() {
		<-ctx.Done()
		_ = httpServer.Dispose()
	}()
	if err := httpServer.Start(); err != nil {
		log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
	log.Info("shutdown complete")
}

func newLogger(development bool) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}
