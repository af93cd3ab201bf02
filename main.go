package main

import (
	"guess-the-word/internal/api/http"
	"guess-the-word/internal/config"
	"guess-the-word/internal/logger"
	"guess-the-word/internal/service"
	"guess-the-word/internal/state"
	"guess-the-word/internal/storage/sqlite"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg := config.InitConfig()

	// 初始化日志器
	logger.InitLogger(cfg.LogLevel, cfg.LogFormat)
	defer zap.L().Sync()

	opts := service.Options{
		CleanupInterval: cfg.CleanupInterval,
		FinishedGameTTL: cfg.FinishedGameTTL,
	}

	// 配置了数据库时持久化游戏
	if cfg.DBPath != "" {
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			zap.L().Fatal("打开数据库失败", zap.String("db_path", cfg.DBPath), zap.Error(err))
		}
		defer store.Close()

		opts.Repo = store
	}

	gameSvc := service.NewGameService(opts)
	defer gameSvc.Close()

	// 组装应用状态
	appState := state.NewAppState(
		cfg,
		gameSvc,
	)

	// 启动服务器
	zap.L().Info("服务器启动", zap.String("addr", cfg.Addr()))

	if err := http.RunServer(appState); err != nil {
		zap.L().Error("服务器退出", zap.Error(err))
	}
}
