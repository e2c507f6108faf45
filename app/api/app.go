package api

import (
	"context"
	"fmt"

	"github.com/Macmachi/kasland/app/api/types"
	"github.com/Macmachi/kasland/pkg/catalog"
	"github.com/Macmachi/kasland/pkg/config"
	"github.com/Macmachi/kasland/pkg/db"
	"github.com/Macmachi/kasland/pkg/engine"
	"github.com/Macmachi/kasland/pkg/kaspa"
	"github.com/Macmachi/kasland/pkg/logging"
	"github.com/Macmachi/kasland/pkg/retry"
	"github.com/Macmachi/kasland/pkg/scheduler"
	"github.com/Macmachi/kasland/pkg/utils"
	"go.uber.org/zap"
)

// Initialize loads the configuration, opens the store, synchronizes the
// building catalog and registers the scheduled jobs.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	cfg, err := config.Load(utils.Env("KASLAND_CONFIG", ""))
	if err != nil {
		logger.Fatal("Unable to load configuration", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	cat, err := catalog.FromConfig(cfg.Buildings)
	if err != nil {
		logger.Fatal("Unable to build the building catalog", zap.Error(err))
	}

	store, err := db.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal("Unable to open the game database", zap.Error(err))
	}

	feed := kaspa.NewClient(kaspa.Opts{
		BaseURL: cfg.KaspaAPIBaseURL,
		Timeout: cfg.FeedTimeout(),
		Retry:   retry.Fixed(cfg.FeedRetryAttempts, cfg.FeedRetryDelay()),
	}, logger)

	eng := engine.New(store, cat, cfg, feed, logger)
	if err := eng.Bootstrap(ctx); err != nil {
		logger.Fatal("Unable to initialize game state", zap.Error(err))
	}

	sched := scheduler.New(ctx, scheduler.Opts{RunTimeout: cfg.FeedTimeout()}, logger)
	registerJobs(sched, eng, cfg, logger)

	return &types.App{
		Config:    cfg,
		Store:     store,
		Catalog:   cat,
		Engine:    eng,
		Scheduler: sched,
		Logger:    logger,
	}
}

// registerJobs wires the daily economy cycle and the feed pollers. The
// daily jobs run a minute apart so fees are settled before zkaspa is
// distributed and the stats snapshot sees the distributed balances.
func registerJobs(sched *scheduler.Scheduler, eng *engine.Engine, cfg *config.Config, logger *zap.Logger) {
	critical := []struct {
		spec, name string
		job        scheduler.Job
	}{
		{"0 0 0 * * *", "sweep_fees", eng.SweepFees},
		{"0 1 0 * * *", "distribute_zkaspa", eng.Distribute},
		{"0 2 0 * * *", "save_daily_stats", eng.SaveDailyStats},
	}
	for _, j := range critical {
		if err := sched.AddCritical(j.spec, j.name, j.job); err != nil {
			logger.Fatal("Unable to schedule job", zap.String("job", j.name), zap.Error(err))
		}
	}

	every := fmt.Sprintf("@every %ds", cfg.CheckIntervalSeconds)
	if err := sched.AddFrequent(every, "poll_transactions", eng.PollTransactions); err != nil {
		logger.Fatal("Unable to schedule job", zap.String("job", "poll_transactions"), zap.Error(err))
	}
	if err := sched.AddFrequent(every, "monitor_marketplace", eng.MonitorMarketplace); err != nil {
		logger.Fatal("Unable to schedule job", zap.String("job", "monitor_marketplace"), zap.Error(err))
	}
}
