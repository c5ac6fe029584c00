package app

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/config"
	"github.com/bhumi3292/VaultLease-sub001/db"
	"github.com/bhumi3292/VaultLease-sub001/session"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	WA     *webauthn.WebAuthn
	Config config.Config
	Log    *slog.Logger

	Repo       *db.Repo
	AppSess    *session.AppSessionStore
	Ceremonies *session.Store
	Locker     *session.Locker
}

func MustNew(cfg config.Config) *App {
	logger := NewLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	router, err := NewRouter(cfg, logger)
	if err != nil {
		log.Fatalf("router: %v", err)
	}

	// --- DB: Postgres ---
	dbConn := db.ConnectDB(cfg.DB)

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	// --- WebAuthn RP ---
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.SMTP.AppName + " Passkeys",
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		log.Fatalf("webauthn: %v", err)
	}

	return &App{
		Router:     router,
		DB:         dbConn,
		RDB:        rdb,
		WA:         wa,
		Config:     cfg,
		Log:        logger,
		Repo:       db.NewRepo(dbConn),
		AppSess:    session.NewAppSessionStore(rdb, cfg.AppTTL),
		Ceremonies: session.NewStore(rdb, cfg.SessionTTL),
		Locker:     session.NewLocker(rdb),
	}
}

// NewLogger 生产环境输出 JSON，开发环境输出文本
func NewLogger(cfg config.Config) *slog.Logger {
	if cfg.Production() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// NewRouter builds the gin engine with recovery, request logging and CORS.
func NewRouter(cfg config.Config, logger *slog.Logger) (*gin.Engine, error) {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger))
	if err := useCORS(r, cfg.WebOrigin); err != nil {
		return nil, err
	}
	return r, nil
}

func (a *App) Close() {
	_ = a.RDB.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
