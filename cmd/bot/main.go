// Package main is the entry point for the BitcoinFun bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/bot"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/config"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/health"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/pkg/db"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/pkg/lock"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/repository"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/scheduler"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/service"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/session"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Repositories
	accountRepo := repository.NewAccountRepository(dbPool.Pool)
	approvalRepo := repository.NewApprovalRepository(dbPool.Pool)
	tradeRepo := repository.NewTradeRepository(dbPool.Pool)

	// Shared infrastructure
	userLock := lock.NewUserLock()
	sessions := session.NewStore()
	sched := scheduler.New()

	// Services
	accountService := service.NewAccountService(accountRepo, cfg.Referral.Bonus, cfg.Referral.BoostDuration)
	flowService := service.NewFlowService(sessions, accountRepo, approvalRepo, cfg.Game.MinDeposit, cfg.Game.MinWithdrawal)
	approvalService := service.NewApprovalService(accountRepo, approvalRepo, userLock, cfg.Admin.ID)
	tradeService := service.NewTradeService(
		accountRepo, tradeRepo, userLock, sched,
		cfg.Game.MinDeposit, cfg.Game.TradeCooldown, cfg.Game.SettleDelay, cfg.Game.ProfitBps,
	)

	// Telegram bot (wires the notifier into the services)
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:          cfg,
		AccountService:  accountService,
		FlowService:     flowService,
		TradeService:    tradeService,
		ApprovalService: approvalService,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Re-engagement pings
	pingJob := scheduler.NewPingJob(accountRepo, telegramBot.Notifier(), cfg.Game.MinDeposit, cfg.Game.TradeCooldown)
	if err := sched.AddRecurring(cfg.Game.PingInterval, pingJob.Run); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule re-engagement pings")
	}
	sched.Start()

	// Keepalive HTTP server for the hosting platform
	healthServer := health.NewServer(cfg.HTTP.Port, dbPool)
	go healthServer.Start()

	// Start bot in a goroutine
	go telegramBot.Start()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown: stop taking updates, then flush timers, then HTTP.
	telegramBot.Stop()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Health server shutdown failed")
	}

	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: accounts table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			deposited BIGINT NOT NULL DEFAULT 0 CHECK (deposited >= 0),
			referral_count INT NOT NULL DEFAULT 0,
			referred_by BIGINT,
			last_trade_at TIMESTAMPTZ,
			trades_today INT NOT NULL DEFAULT 0,
			trade_day DATE,
			boost_until TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_last_trade ON accounts(last_trade_at) WHERE last_trade_at IS NOT NULL;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: accounts table created")

	// Migration 2: approval_requests table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS approval_requests (
			id UUID PRIMARY KEY,
			kind VARCHAR(16) NOT NULL,
			user_id BIGINT NOT NULL REFERENCES accounts(telegram_id) ON DELETE CASCADE,
			amount BIGINT NOT NULL CHECK (amount > 0),
			address TEXT,
			proof_file_id TEXT,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			decided_by BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			decided_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_approval_requests_pending ON approval_requests(created_at) WHERE status = 'pending';
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: approval_requests table created")

	// Migration 3: trades table (append-only history)
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS trades (
			id UUID PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES accounts(telegram_id) ON DELETE CASCADE,
			direction VARCHAR(8) NOT NULL,
			profit BIGINT NOT NULL,
			balance_after BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_trades_user_time ON trades(user_id, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: trades table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
