package service

import (
	"context"
	"time"

	"loanshark/events"
	"loanshark/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByDiscordID retrieves a user by their Discord ID
	GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error)

	// Create creates a new user with the initial balance
	Create(ctx context.Context, discordID int64, username string, initialBalance int64) (*models.User, error)

	// UpdateBalance sets a user's balance to an absolute value
	UpdateBalance(ctx context.Context, discordID int64, newBalance int64) error

	// AddBalance adds to a user's balance atomically
	AddBalance(ctx context.Context, discordID int64, amount int64) error

	// DeductBalance deducts from a user's balance atomically, failing if insufficient funds
	DeductBalance(ctx context.Context, discordID int64, amount int64) error

	// GetAll returns all users
	GetAll(ctx context.Context) ([]*models.User, error)
}

// LoanRepository defines the interface for loan data access
type LoanRepository interface {
	// Create inserts a new loan with balance equal to principal
	Create(ctx context.Context, loan *models.Loan) error

	// GetActiveByUser returns a user's open loans, oldest first
	GetActiveByUser(ctx context.Context, discordID int64) ([]*models.Loan, error)

	// GetAllActive returns every open loan across all users
	GetAllActive(ctx context.Context) ([]*models.Loan, error)

	// GetAllActiveWithUsers returns every open loan joined with holder details
	GetAllActiveWithUsers(ctx context.Context) ([]*models.LoanWithUser, error)

	// RecordPayment applies a successful payment to a loan
	RecordPayment(ctx context.Context, loanID int64, newBalance float64, paidAt, nextDue time.Time) error

	// ApplySettlement writes a daily settlement outcome for a loan
	ApplySettlement(ctx context.Context, loanID int64, newBalance float64, missedPayments int, nextDue time.Time) error

	// ForgiveByUser zeroes every open loan for a user
	ForgiveByUser(ctx context.Context, discordID int64) (int, float64, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByUser returns balance history for a specific user
	GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.BalanceHistory, error)
}

// UserService defines the interface for account operations
type UserService interface {
	// GetOrCreateUser retrieves an existing user or creates a new one with the starting balance
	GetOrCreateUser(ctx context.Context, discordID int64, username string) (*models.User, error)

	// AdminCredit adds gold to a user's balance
	AdminCredit(ctx context.Context, discordID int64, username string, amount int64) (*models.User, error)

	// AdminSetBalance sets a user's balance to an absolute value
	AdminSetBalance(ctx context.Context, discordID int64, username string, amount int64) (*models.User, error)
}

// DiceService defines the interface for the high-low dice wager
type DiceService interface {
	// Roll wagers amount on a dice roll against the house; the player
	// must roll strictly higher to win
	Roll(ctx context.Context, discordID int64, username string, amount int64) (*models.RollResult, error)
}

// BlackjackService defines the interface for blackjack sessions
type BlackjackService interface {
	// StartGame deals a new hand for the user's wager
	StartGame(ctx context.Context, discordID int64, username string, wager int64) (*models.BlackjackState, error)

	// Hit draws one card into the player's hand
	Hit(ctx context.Context, discordID int64) (*models.BlackjackState, error)

	// Stand plays out the dealer's hand and settles the wager
	Stand(ctx context.Context, discordID int64) (*models.BlackjackState, error)

	// PeekCount sells the current shoe statistics, once per hand
	PeekCount(ctx context.Context, discordID int64) (*models.CountPeek, error)
}

// LoanService defines the interface for the loan ledger
type LoanService interface {
	// RequestLoan opens a new loan and credits the principal
	RequestLoan(ctx context.Context, discordID int64, username string, amount int64) (*models.Loan, error)

	// MakePayment pays down the user's oldest open loan
	MakePayment(ctx context.Context, discordID int64, amount int64) (*models.PaymentResult, error)

	// GetStatus returns the user's open loans
	GetStatus(ctx context.Context, discordID int64) ([]*models.Loan, error)

	// ListAllActive returns all open loans with holder details
	ListAllActive(ctx context.Context) ([]*models.LoanWithUser, error)

	// Forgive zeroes all of a user's open loans
	Forgive(ctx context.Context, discordID int64) (*models.ForgivenessResult, error)

	// ProcessDailySettlements sweeps all open loans, applying interest
	// and collecting minimum payments
	ProcessDailySettlements(ctx context.Context, now time.Time) (*models.SettlementReport, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	LoanRepository() LoanRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
