package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"bloghub.com/internal/api"
	"bloghub.com/internal/auth"
	"bloghub.com/internal/config"
	"bloghub.com/internal/constants"
	"bloghub.com/internal/domain"
	"bloghub.com/internal/event"
	"bloghub.com/internal/infra"
	"bloghub.com/internal/repository"
	"bloghub.com/internal/service"
)

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "bloghub",
		Short:        "Multi-user blog server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ./config/config.yaml)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, db, err := bootstrap()
				if err != nil {
					return err
				}
				defer closeDB(db)
				slog.Info("migration complete", "component", "main")
				return nil
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Create the default admin and demo accounts",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, db, err := bootstrap()
				if err != nil {
					return err
				}
				defer closeDB(db)

				users, _ := newServices(cfg, db, nil)
				return service.NewSeeder(users, cfg.Seed).Run(cmd.Context())
			},
		},
	)
	return cmd
}

// bootstrap loads config, installs the logger and opens the migrated database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	// 1. 加载配置
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	config.NewLogger(cfg.Log)

	// 2. 数据库
	db, err := infra.NewDatabase(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := infra.AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return cfg, db, nil
}

func newServices(cfg *config.Config, db *gorm.DB, events domain.EventPublisher) (*service.UserServiceImpl, *service.BlogPostServiceImpl) {
	userRepo := repository.NewUserRepo(db)
	postRepo := repository.NewBlogPostRepo(db)

	users := service.NewUserService(userRepo, postRepo, auth.NewPasswordHasher(cfg.Auth.BcryptCost), events)
	posts := service.NewBlogPostService(postRepo, cfg.Pagination, events)
	return users, posts
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer closeDB(db)

	// 3. Redis (可选): 令牌注销与事件广播
	var (
		rdb     *redis.Client
		revoked domain.TokenStore = infra.NewMemoryTokenStore()
	)
	if cfg.Redis.Enabled {
		rdb = infra.NewRedisClient(cfg.Redis)
		if err := infra.PingRedis(ctx, rdb); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		revoked = infra.NewRedisTokenStore(rdb)
	}

	// 4. 事件总线
	bus := event.NewBus(256)
	defer bus.Shutdown()

	feed := infra.NewFeedHub()
	bus.Subscribe(constants.EventPostPublished, feed.HandlePublished)
	if rdb != nil {
		infra.NewRedisEventPublisher(rdb).SubscribeAll(bus,
			constants.EventPostCreated,
			constants.EventPostUpdated,
			constants.EventPostDeleted,
			constants.EventPostPublished,
			constants.EventUserCreated,
			constants.EventUserUpdated,
			constants.EventUserDeleted,
		)
	}

	// 5. 业务服务
	users, posts := newServices(cfg, db, bus)
	if cfg.Seed.Enabled {
		if err := service.NewSeeder(users, cfg.Seed).Run(ctx); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	enforcer, err := auth.InitCasbin(db)
	if err != nil {
		return fmt.Errorf("init casbin: %w", err)
	}

	// 6. 设置 Fiber 服务器
	app := api.NewServer(cfg)
	api.NewRouter(app, api.Deps{
		Config:   cfg,
		Users:    users,
		Posts:    posts,
		Tokens:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Revoked:  revoked,
		Enforcer: enforcer,
		Feed:     feed,
	}).RegisterRoutes()

	// 7. 启动服务器, 收到信号后优雅退出
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "component", "main", "port", cfg.Server.Port, "driver", cfg.Database.Driver)
		errCh <- app.Listen(cfg.Server.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		slog.Info("shutting down", "component", "main", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
