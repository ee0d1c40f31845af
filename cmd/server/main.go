package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/jps1990/Night-Shade-V2/internal/bot"
	"github.com/jps1990/Night-Shade-V2/internal/config"
	"github.com/jps1990/Night-Shade-V2/internal/db"
	clog "github.com/jps1990/Night-Shade-V2/internal/log"
	"github.com/jps1990/Night-Shade-V2/internal/repository"
	"github.com/jps1990/Night-Shade-V2/internal/server"
	"github.com/jps1990/Night-Shade-V2/internal/store"
	"github.com/jps1990/Night-Shade-V2/internal/ws"
)

func main() {
	// main 负责加载配置、初始化日志、连接数据库、播种永久房间、
	// 启动清扫器与 Hub，最后拉起 Gin 服务。
	cfg := config.Load()
	clog.Init(cfg.Env)

	// DATABASE_DSN=memory 时不接数据库，进程内状态即事实源（本地模式）。
	var repo repository.Repository
	if cfg.DatabaseDSN == "memory" {
		log.Warn().Msg("running with in-memory repository, state is not durable")
		repo = repository.NewMemory()
	} else {
		gdb, err := db.Connect(cfg.DatabaseDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("db connect")
		}
		if err := db.Migrate(gdb); err != nil {
			log.Fatal().Err(err).Msg("db migrate")
		}
		repo = repository.NewGorm(gdb)
	}

	hub := ws.NewHub()
	go hub.Run()

	st, err := store.New(repo, hub, cfg.MessageTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("store init")
	}
	if err := st.EnsurePermanentRooms(); err != nil {
		log.Fatal().Err(err).Msg("seed permanent rooms")
	}

	sched := bot.NewScheduler(cfg.BotResponseProbability, cfg.BotSilenceThreshold, nil)
	gen := bot.NewCohereGenerator(cfg.CohereAPIKey, cfg.CohereBaseURL, cfg.GeneratorTimeout)
	bots := bot.NewService(st, sched, gen, cfg.GeneratorTimeout)

	go st.RunSweeper(context.Background(), cfg.SweepInterval)

	r := server.SetupRouter(cfg, st, hub, bots)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server run")
	}
}
