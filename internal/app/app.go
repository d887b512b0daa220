package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vendstars/VendStarsEconomy/internal/balance"
	"github.com/vendstars/VendStarsEconomy/internal/config"
	"github.com/vendstars/VendStarsEconomy/internal/db"
	"github.com/vendstars/VendStarsEconomy/internal/entitlement"
	"github.com/vendstars/VendStarsEconomy/internal/http/api/admin"
	"github.com/vendstars/VendStarsEconomy/internal/http/api/front"
	"github.com/vendstars/VendStarsEconomy/internal/purchase"
	"github.com/vendstars/VendStarsEconomy/internal/reward"
	"github.com/vendstars/VendStarsEconomy/internal/settings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

const shutdownGrace = 10 * time.Second

// Migrate opens the database and runs migrations, then exits. Deploy hook.
func Migrate(ctx context.Context, appCfg config.AppConfig) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(appCfg.ConfigPath))
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the economy service: storage, runtime settings, the pack
// expiry sweeper and the HTTP surface. It blocks until ctx is cancelled,
// then drains in-flight requests.
func RunServer(ctx context.Context, appCfg config.AppConfig) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(appCfg.ConfigPath))
	if errLoad != nil {
		return errLoad
	}
	initLogging(cfg.Log)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		return fmt.Errorf("app: refresh settings snapshot: %w", errRefresh)
	}
	if errSeed := seedEconomySettings(ctx, conn, cfg.Economy); errSeed != nil {
		return fmt.Errorf("app: seed economy settings: %w", errSeed)
	}

	table, errTable := reward.NewPrizeTable(cfg.Economy.PrizeTable)
	if errTable != nil {
		return errTable
	}

	tracker := entitlement.NewTracker(conn)
	entitlement.NewPackSweeper(tracker).Start(ctx)

	router := BuildRouter(conn, table)
	server := &nethttp.Server{
		Addr:    cfg.Server.Address(),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			log.WithError(errShutdown).Warn("server shutdown")
		}
	}()

	log.Infof("economy service listening on %s", server.Addr)
	if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, nethttp.ErrServerClosed) {
		return errServe
	}
	return nil
}

// BuildRouter assembles the gin engine with all economy routes. Separated
// from RunServer so handler tests can drive the full surface in-process.
func BuildRouter(conn *gorm.DB, table *reward.PrizeTable) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"status": "ok"})
	})

	balances := balance.NewService(conn)
	tracker := entitlement.NewTracker(conn)
	engine := reward.NewEngine(conn, balances, table)
	coordinator := purchase.NewCoordinator(conn, balances, tracker,
		purchase.NewQRCodeGenerator(), purchase.NewWalletCreditor(conn))

	front.RegisterFrontRoutes(router, front.Deps{
		Balances:    balances,
		Tracker:     tracker,
		Engine:      engine,
		Coordinator: coordinator,
	})
	admin.RegisterAdminRoutes(router, conn, tracker)
	return router
}

// seedEconomySettings writes the config file's economy numbers into the
// settings table for keys no admin has touched yet. The settings table wins
// afterwards.
func seedEconomySettings(ctx context.Context, conn *gorm.DB, economy config.EconomyConfig) error {
	seeds := map[string]int{
		settings.BaseSpinRewardKey:      economy.BaseSpinReward,
		settings.FirstSpinBonusKey:      economy.FirstSpinBonus,
		settings.VoteRewardKey:          economy.VoteReward,
		settings.PartnerSharePercentKey: economy.PartnerSharePercent,
	}
	for key, value := range seeds {
		if _, exists := settings.DBConfigValue(key); exists {
			continue
		}
		raw := json.RawMessage(strconv.Itoa(value))
		if errUpsert := settings.Upsert(ctx, conn, key, raw); errUpsert != nil {
			return errUpsert
		}
	}
	return nil
}

func initLogging(cfg config.LogConfig) {
	level, errParse := log.ParseLevel(cfg.Level)
	if errParse != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.File == "" {
		return
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
}
