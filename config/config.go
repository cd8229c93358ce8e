package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken   string
	DiscordGuildID string
	MemberRoleID   string // role required to use economy commands
	AdminRoleID    string // role required for admin commands
	LoanChannelID  string // channel for settlement notices; empty disables them

	// Database configuration
	DatabaseURL string

	// Economy settings
	StartingBalance int64
	RollMax         int // upper bound of the dice wager range (inclusive)

	// Blackjack settings
	ShoeDecks int

	// Loan settings
	SettlementHour int // hour in UTC when daily settlement runs (0-23)

	// Environment
	Environment string // "development", "production", or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Discord
		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID: os.Getenv("DISCORD_GUILD_ID"),
		MemberRoleID:   os.Getenv("MEMBER_ROLE_ID"),
		AdminRoleID:    os.Getenv("ADMIN_ROLE_ID"),
		LoanChannelID:  os.Getenv("LOAN_CHANNEL_ID"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Defaults
		StartingBalance: 1000,
		RollMax:         100,
		ShoeDecks:       2,
		SettlementHour:  4, // 04:00 UTC, midnight EST

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if balance := os.Getenv("STARTING_BALANCE"); balance != "" {
		if parsed, err := strconv.ParseInt(balance, 10, 64); err == nil {
			config.StartingBalance = parsed
		}
	}
	if rollMax := os.Getenv("ROLL_MAX"); rollMax != "" {
		if parsed, err := strconv.Atoi(rollMax); err == nil && parsed > 1 {
			config.RollMax = parsed
		}
	}
	if decks := os.Getenv("SHOE_DECKS"); decks != "" {
		if parsed, err := strconv.Atoi(decks); err == nil && parsed > 0 {
			config.ShoeDecks = parsed
		}
	}
	if hour := os.Getenv("SETTLEMENT_HOUR"); hour != "" {
		if parsed, err := strconv.Atoi(hour); err == nil && parsed >= 0 && parsed <= 23 {
			config.SettlementHour = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
