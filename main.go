package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock-game-frontend/auth"
	"stock-game-frontend/backend"
	"stock-game-frontend/config"
	"stock-game-frontend/database"
	"stock-game-frontend/feed"
	"stock-game-frontend/handlers"
	"stock-game-frontend/middleware"
	"stock-game-frontend/session"
	"stock-game-frontend/trade"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := config.InitRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	journal, closeJournal, err := database.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open trade journal", zap.Error(err))
	}

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)

	guard := auth.NewGuard(client, session.NewRedisStore(rdb), auth.Options{
		Secret:          []byte(cfg.Auth.SecretKey),
		SessionTTL:      cfg.Auth.SessionTTL,
		RequirePasscode: cfg.Auth.SignupPasscodeHash != "",
		PasscodeHash:    cfg.Auth.SignupPasscodeHash,
	}, logger)

	var push feed.PushSource
	if cfg.Backend.PushURL != "" {
		push = feed.NewWSPushSource(cfg.Backend.PushURL, logger)
	}
	synchronizer := feed.NewSynchronizer(client, push, cfg.Feed.PollInterval, logger)

	hub := feed.NewHub(synchronizer.View, logger)
	leaderboard := feed.NewLeaderboard(client, cfg.Feed.LeaderboardInterval, logger)
	recorder := database.NewPriceRecorder(journal, 8, logger)
	synchronizer.Subscribe(func(c feed.Change) { hub.Broadcast(c.Table) })
	synchronizer.Subscribe(recorder.OnChange)

	executor := trade.NewExecutor(client, synchronizer, journal, trade.NewPortfolioCache(client), rdb, trade.Options{
		SubmitTimeout: cfg.Trade.SubmitTimeout,
		PriceCacheTTL: cfg.Trade.PriceCacheTTL,
	}, logger)

	h := handlers.New(handlers.Deps{
		Guard:       guard,
		Feed:        synchronizer,
		Hub:         hub,
		Executor:    executor,
		Journal:     journal,
		Forwarder:   client,
		Community:   client,
		Leaderboard: leaderboard,
		Cookies: middleware.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.App.IsProduction(),
			MaxAge: cfg.Auth.SessionTTL,
		},
		Logger: logger,
	})

	var wg sync.WaitGroup
	wg.Add(5)
	go func() {
		defer wg.Done()
		synchronizer.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		recorder.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		leaderboard.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		h.SweepSessions(ctx, min(time.Hour, cfg.Auth.SessionTTL), cfg.Auth.SessionTTL)
	}()

	srv := &http.Server{Addr: cfg.App.Port, Handler: h.Router()}

	go func() {
		logger.Info("Server Started", zap.String("port", cfg.App.Port), zap.String("backend", cfg.Backend.BaseURL))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("Shutdown signal received, stopping server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	cancel()
	wg.Wait()

	if err := closeJournal(shutdownCtx); err != nil {
		logger.Error("Error closing journal", zap.Error(err))
	}
	rdb.Close()
	logger.Info("Shutdown Complete")
}
