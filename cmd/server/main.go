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
	"go.uber.org/zap"

	"tokenarena/internal/auth"
	"tokenarena/internal/client/birdeye"
	"tokenarena/internal/config"
	cronrunner "tokenarena/internal/cron"
	"tokenarena/internal/db"
	"tokenarena/internal/handler"
	"tokenarena/internal/logger"
	"tokenarena/internal/notify"
	gormrepository "tokenarena/internal/repository/gorm"
	"tokenarena/internal/service"
)

func main() {
	cfgPath := os.Getenv("TA_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("TA_ENV_ONLY"); envOnlyRaw != "" {
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

	marketHTTP := &http.Client{Timeout: cfg.Market.Timeout}
	marketClient := birdeye.NewClient(marketHTTP, cfg.Market.BaseURL, cfg.Market.APIKey)
	store := gormrepository.New(dbConn.Gorm)

	engine := &service.PnLEngine{Repo: store, Logger: logger}
	board := &service.Leaderboard{Repo: store}
	plays := &service.Plays{Repo: store, Logger: logger, MaxPicks: cfg.Round.MaxPicks}
	tokenList := &service.DailyTokenList{
		Repo:      store,
		Addresses: cfg.Market.Addresses,
		Limit:     cfg.Round.ContestSize,
	}
	marketSync := &service.MarketSync{
		Repo:          store,
		Client:        marketClient,
		Addresses:     cfg.Market.Addresses,
		Pace:          cfg.Market.Pace,
		HistoryWindow: cfg.Market.HistoryWindow,
		Logger:        logger,
	}

	var roundNotify service.RoundNotifier
	var sender *notify.TelegramSender
	if cfg.Telegram.Enabled {
		sender, err = notify.NewTelegramSender(cfg.Telegram.BotToken)
		if err != nil {
			logger.Warn("telegram sender init failed (notifications disabled)", zap.Error(err))
		} else {
			roundNotify = &notify.Dispatcher{Repo: store, Sender: sender, Logger: logger}
		}
	}

	scheduler := &service.Scheduler{
		Repo:        store,
		Engine:      engine,
		Board:       board,
		Tokens:      tokenList,
		Notify:      roundNotify,
		Logger:      logger,
		BlockSize:   cfg.Round.BlockSize,
		ContestSize: cfg.Round.ContestSize,
	}

	sessions := &auth.Sessions{Secret: []byte(cfg.Auth.JWTSecret), TTL: cfg.Auth.TokenTTL}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.CORSMiddleware())
	router.Use(handler.OptionalSession(sessions))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(router)
	authHandler := &handler.AuthHandler{
		BotToken:       cfg.Auth.BotToken,
		Sessions:       sessions,
		Logger:         logger,
		MaxInitDataAge: 24 * time.Hour,
	}
	authHandler.Register(router)
	roundHandler := &handler.RoundHandler{Repo: store, Board: board}
	roundHandler.Register(router)
	playHandler := &handler.PlayHandler{Repo: store, Plays: plays, Board: board}
	playHandler.Register(router, handler.RequireSession(sessions))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		_, err = cronRunner.Add(cfg.Cron.Tick, func(ctx context.Context) {
			if err := scheduler.Tick(ctx); err != nil {
				logger.Warn("round tick failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register round tick failed", zap.Error(err))
		}
		_, err = cronRunner.Add(cfg.Cron.MarketSync, func(ctx context.Context) {
			result, err := marketSync.SyncOnce(ctx)
			if err != nil {
				logger.Warn("market sync failed", zap.Error(err))
				return
			}
			logger.Info("market sync ok",
				zap.Int("tokens", result.Tokens),
				zap.Int("points", result.Points),
				zap.Int("errors", result.Errors),
			)
		})
		if err != nil {
			logger.Warn("cron register market sync failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()

		// First sync right away so the opening round has prices to draw on.
		go func() {
			if _, err := marketSync.SyncOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("initial market sync failed (continuing)", zap.Error(err))
			}
		}()
	}

	if sender != nil {
		bot := &notify.Bot{
			Bot:    sender.Bot,
			Sender: sender,
			Repo:   store,
			Board:  board,
			Logger: logger,
		}
		go func() {
			if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("telegram bot stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
