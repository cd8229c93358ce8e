package service

import (
	"context"
	"fmt"

	"loanshark/config"
	"loanshark/models"
)

// userService implements the UserService interface
type userService struct {
	uowFactory UnitOfWorkFactory
}

// NewUserService creates a new user service
func NewUserService(uowFactory UnitOfWorkFactory) UserService {
	return &userService{
		uowFactory: uowFactory,
	}
}

// GetOrCreateUser retrieves an existing user or creates a new one with
// the starting balance. Accounts are created lazily on first command.
func (s *userService) GetOrCreateUser(ctx context.Context, discordID int64, username string) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	user, err := getOrCreateUser(ctx, uow, discordID, username)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// getOrCreateUser is the shared in-transaction path used by every
// service whose command may be a user's first.
func getOrCreateUser(ctx context.Context, uow UnitOfWork, discordID int64, username string) (*models.User, error) {
	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if user != nil {
		return user, nil
	}

	// Database unique constraint on discord_id prevents duplicate users
	initialBalance := config.Get().StartingBalance
	user, err = uow.UserRepository().Create(ctx, discordID, username, initialBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	history := &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   0,
		BalanceAfter:    initialBalance,
		ChangeAmount:    initialBalance,
		TransactionType: models.TransactionTypeInitial,
		TransactionMetadata: map[string]any{
			"username": username,
		},
	}

	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record initial balance: %w", err)
	}

	return user, nil
}

// AdminCredit adds gold to a user's balance
func (s *userService) AdminCredit(ctx context.Context, discordID int64, username string, amount int64) (*models.User, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := getOrCreateUser(ctx, uow, discordID, username)
	if err != nil {
		return nil, err
	}

	if err := uow.UserRepository().AddBalance(ctx, discordID, amount); err != nil {
		return nil, fmt.Errorf("failed to credit user: %w", err)
	}

	newBalance := user.Balance + amount
	history := &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   user.Balance,
		BalanceAfter:    newBalance,
		ChangeAmount:    amount,
		TransactionType: models.TransactionTypeAdminCredit,
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	user.Balance = newBalance
	return user, nil
}

// AdminSetBalance sets a user's balance to an absolute value
func (s *userService) AdminSetBalance(ctx context.Context, discordID int64, username string, amount int64) (*models.User, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := getOrCreateUser(ctx, uow, discordID, username)
	if err != nil {
		return nil, err
	}

	if err := uow.UserRepository().UpdateBalance(ctx, discordID, amount); err != nil {
		return nil, fmt.Errorf("failed to set balance: %w", err)
	}

	history := &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   user.Balance,
		BalanceAfter:    amount,
		ChangeAmount:    amount - user.Balance,
		TransactionType: models.TransactionTypeAdminSet,
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	user.Balance = amount
	return user, nil
}
