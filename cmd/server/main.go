package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"channelbuyer/internal/bot"
	"channelbuyer/internal/chain"
	"channelbuyer/internal/config"
	cronrunner "channelbuyer/internal/cron"
	"channelbuyer/internal/db"
	"channelbuyer/internal/feed"
	"channelbuyer/internal/handler"
	"channelbuyer/internal/holdergate"
	"channelbuyer/internal/logger"
	gormrepository "channelbuyer/internal/repository/gorm"
	"channelbuyer/internal/service"
	"channelbuyer/internal/trade"
	"channelbuyer/internal/watcher"

	_ "channelbuyer/docs"
)

func main() {
	cfgPath := os.Getenv("CB_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("CB_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}
	defaultUser, err := store.UpsertUserByAPIKey(context.Background(), cfg.App.APIKey)
	if err != nil {
		logger.Fatal("ensure default user failed", zap.Error(err))
	}

	chainClient, err := chain.NewEVMClient(cfg.Chain)
	if err != nil {
		logger.Fatal("chain client init failed", zap.Error(err))
	}
	defer chainClient.Close()
	if _, hasSigner := chainClient.SignerAddress(); !hasSigner {
		logger.Warn("no signer key configured; live trades will be rejected")
	}

	gate, err := holdergate.New(cfg.HolderGate, chainClient)
	if err != nil {
		logger.Fatal("holder gate init failed", zap.Error(err))
	}

	hub := feed.NewHub()
	engineSvc := trade.NewEngine(store, chainClient, logger, trade.Options{
		TreasuryFallback: cfg.Trade.TreasuryAddress,
		DeadlineWindow:   cfg.Trade.DeadlineWindow,
		ConfirmTimeout:   cfg.Chain.ConfirmTimeout,
	})
	engineSvc.Flags = settingsSvc
	engineSvc.Feed = hub

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(handler.APIKeyMiddleware(store))

	healthHandler := &handler.HealthHandler{DB: dbConn, Chain: chainClient}
	healthHandler.Register(engine)
	walletHandler := &handler.WalletHandler{Repo: store, Gate: gate, ChainDefault: cfg.Chain.ChainID}
	walletHandler.Register(engine)
	profileHandler := &handler.ProfileHandler{Repo: store, Gate: gate, TreasuryFallback: cfg.Trade.TreasuryAddress}
	profileHandler.Register(engine)
	channelHandler := &handler.ChannelHandler{Repo: store, Gate: gate}
	channelHandler.Register(engine)
	tradeHandler := &handler.TradeHandler{Repo: store, Engine: engineSvc}
	tradeHandler.Register(engine)
	settingsHandler := &handler.SettingsHandler{Settings: settingsSvc}
	settingsHandler.Register(engine)
	streamHandler := &handler.StreamHandler{Feed: hub, Logger: logger}
	streamHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.ChainProbe, func(ctx context.Context) {
			probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := chainClient.Ping(probeCtx); err != nil {
				logger.Warn("chain probe failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register chain probe failed", zap.Error(err))
		}
		_, err = cronRunner.Add(cfg.Cron.LedgerStats, func(ctx context.Context) {
			counts, err := store.CountTradeLogsByStatusSince(ctx, db.NowUTC().Add(-24*time.Hour))
			if err != nil {
				logger.Warn("ledger stats failed", zap.Error(err))
				return
			}
			fields := make([]zap.Field, 0, len(counts))
			for _, c := range counts {
				fields = append(fields, zap.Int64(strings.ToLower(c.Status), c.Count))
			}
			logger.Info("trade ledger last 24h", fields...)
		})
		if err != nil {
			logger.Warn("cron register ledger stats failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Telegram.Enabled {
		tg := watcher.NewTelegramWatcher(cfg.Telegram, store, engineSvc, defaultUser.ID, logger)
		group.Go(func() error {
			err := tg.Run(groupCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("telegram watcher stopped", zap.Error(err))
			}
			return nil
		})
	}

	if cfg.Telegram.Enabled && strings.TrimSpace(cfg.Telegram.ControlBotToken) != "" {
		control := bot.New(cfg.Telegram.ControlBotToken, defaultUser.ID, store, logger)
		group.Go(func() error {
			err := control.Run(groupCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("control bot stopped", zap.Error(err))
			}
			return nil
		})
	}

	group.Go(func() error {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,x-api-key")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
