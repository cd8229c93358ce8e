package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"

	"loanshark/bot"
	"loanshark/config"
	"loanshark/database"
	"loanshark/events"
	"loanshark/repository"
	"loanshark/scheduler"
	"loanshark/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting loanshark bot...")

	cfg := config.Get()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	log.Info("Initializing services...")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	userService := service.NewUserService(uowFactory)
	diceService := service.NewDiceService(uowFactory, rng)
	blackjackService := service.NewBlackjackService(uowFactory, rng, nil)
	loanService := service.NewLoanService(uowFactory)

	log.Info("Starting settlement scheduler...")
	sched := scheduler.New(loanService)
	if err := sched.RegisterSettlement(cfg.SettlementHour); err != nil {
		return fmt.Errorf("failed to schedule settlement: %w", err)
	}
	sched.Start()

	log.Info("Initializing Discord bot...")
	botConfig := bot.Config{
		Token:         cfg.DiscordToken,
		GuildID:       cfg.DiscordGuildID,
		MemberRoleID:  cfg.MemberRoleID,
		AdminRoleID:   cfg.AdminRoleID,
		LoanChannelID: cfg.LoanChannelID,
	}
	discordBot, err := bot.New(botConfig, userService, diceService, blackjackService, loanService, eventBus)
	if err != nil {
		sched.Stop()
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Info("Discord bot initialized")

	log.Infof("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	log.Info("Shutting down...")

	sched.Stop()

	if err := discordBot.Close(); err != nil {
		log.Errorf("Error closing Discord bot: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Info("Shutdown completed")
	}

	return nil
}
