package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"moving-team/backend/config"
	"moving-team/backend/internal/api/handler"
	"moving-team/backend/internal/api/router"
	"moving-team/backend/internal/notify"
	"moving-team/backend/internal/repository"
	"moving-team/backend/internal/scheduler"
	"moving-team/backend/internal/service"
	"moving-team/backend/pkg/database"
	"moving-team/backend/pkg/jwt"
	applogger "moving-team/backend/pkg/logger"
	"moving-team/backend/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("MOVING_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("timezone", cfg.Timezone),
		zap.String("notify_broker", cfg.Notify.Broker),
	)

	// 3. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：调度锁、跨实例广播）
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Redis 连接失败", zap.Error(err))
		}
	}

	// 后台任务（广播中继、定时批处理）共用的生命周期
	bgCtx, stopBackground := context.WithCancel(context.Background())

	// 5. 通知分发
	repo := repository.NewRepository(db)
	hub := notify.NewHub(logger)
	n, err := setupNotifier(bgCtx, cfg, repo, hub, rdb, logger)
	if err != nil {
		logger.Fatal("初始化通知分发失败", zap.Error(err))
	}

	// 6. 依赖注入: Repository → Service → Handler
	svc := service.NewService(cfg, repo, n.dispatcher, hub, logger)

	var (
		lock  scheduler.RunLock
		store scheduler.LastRunStore
	)
	if rdb != nil {
		lock = scheduler.NewRedisLock(rdb)
		store = scheduler.NewRedisStore(rdb)
	}
	completion := scheduler.NewCompletionScheduler(repo, lock, store, n.dispatcher, cfg.Scheduler, logger)
	if cfg.Scheduler.Enabled {
		completion.Start(bgCtx)
	}

	h := handler.NewHandler(svc, completion, logger)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwt.NewManager(&cfg.Auth), logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	// SSE 长连接不设 WriteTimeout
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(stopBackground)

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// SSE 长连接不会自行结束，超时后强制关闭
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("服务器关闭超时，强制断开剩余连接", zap.Error(err))
		srv.Close()
	}
	stopBackground()

	// 等待已提交事务的通知落地
	n.dispatcher.Wait()
	n.close()

	sqlDB.Close()
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
