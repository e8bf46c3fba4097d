package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"Gin_postgres_redis_asset_loan/clock"
	"Gin_postgres_redis_asset_loan/config"
	"Gin_postgres_redis_asset_loan/db"
	"Gin_postgres_redis_asset_loan/logging"
	"Gin_postgres_redis_asset_loan/session"
)

// Short aliases for handlers.
type Ctx = gin.Context
type H = gin.H

// App holds the process-wide dependencies.
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	Repo   *db.Repo
	Clock  clock.Clock
	Config *config.Config

	appSess *session.AppSessionStore
	tokens  *session.Tokens
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }
func (a *App) Tokens() *session.Tokens               { return a.tokens }

// New wires an App around already opened stores.
func New(cfg *config.Config, conn *gorm.DB, rdb *redis.Client, clk clock.Clock) *App {
	if clk == nil {
		clk = clock.Real()
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logging.Log))
	useCORS(r, cfg.WebOrigin)

	return &App{
		Router:  r,
		DB:      conn,
		RDB:     rdb,
		Repo:    db.NewRepo(conn, clk, cfg.Location),
		Clock:   clk,
		Config:  cfg,
		appSess: session.NewAppSessionStore(rdb, cfg.SessionTTL, clk),
		tokens:  session.NewTokens(cfg.JWTSecret, cfg.SessionTTL, clk),
	}
}

// MustNew opens Postgres and redis from cfg and exits on failure.
func MustNew(cfg *config.Config) *App {
	clk := clock.Real()

	conn, err := db.Open(cfg.DSN(), clk)
	if err != nil {
		logging.Fatal("open database", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: cfg.RedisDB})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logging.Fatal("redis", zap.Error(err))
	}

	return New(cfg, conn, rdb, clk)
}

func (a *App) Close() {
	if a.RDB != nil {
		_ = a.RDB.Close()
	}
	if a.DB != nil {
		if err := db.Close(a.DB); err != nil {
			logging.Warn("close database", zap.Error(err))
		}
	}
}
