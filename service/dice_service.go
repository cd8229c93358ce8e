package service

import (
	"context"
	"fmt"
	"math/rand"

	"loanshark/config"
	"loanshark/models"
)

// diceService implements the DiceService interface
type diceService struct {
	uowFactory UnitOfWorkFactory
	rng        *rand.Rand
}

// NewDiceService creates a new dice service. The rng is injected so
// tests can fix roll outcomes.
func NewDiceService(uowFactory UnitOfWorkFactory, rng *rand.Rand) DiceService {
	return &diceService{
		uowFactory: uowFactory,
		rng:        rng,
	}
}

// Roll wagers amount on a high-low roll against the house. Both sides
// roll uniformly in [1, RollMax]; the player must roll strictly higher
// to win. Ties favor the house.
func (s *diceService) Roll(ctx context.Context, discordID int64, username string, amount int64) (*models.RollResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	user, err := getOrCreateUser(ctx, uow, discordID, username)
	if err != nil {
		return nil, err
	}

	if amount > user.Balance {
		return nil, ErrInsufficientFunds
	}

	rollMax := config.Get().RollMax
	playerRoll := s.rng.Intn(rollMax) + 1
	houseRoll := s.rng.Intn(rollMax) + 1
	won := playerRoll > houseRoll

	var newBalance int64
	var transactionType models.TransactionType
	var changeAmount int64

	if won {
		newBalance = user.Balance + amount
		changeAmount = amount
		transactionType = models.TransactionTypeRollWin
		if err := uow.UserRepository().AddBalance(ctx, discordID, amount); err != nil {
			return nil, fmt.Errorf("failed to add winnings: %w", err)
		}
	} else {
		newBalance = user.Balance - amount
		changeAmount = -amount
		transactionType = models.TransactionTypeRollLoss
		if err := uow.UserRepository().DeductBalance(ctx, discordID, amount); err != nil {
			return nil, fmt.Errorf("failed to deduct wager: %w", err)
		}
	}

	history := &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   user.Balance,
		BalanceAfter:    newBalance,
		ChangeAmount:    changeAmount,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"bet_amount":  amount,
			"player_roll": playerRoll,
			"house_roll":  houseRoll,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.RollResult{
		PlayerRoll: playerRoll,
		HouseRoll:  houseRoll,
		Won:        won,
		BetAmount:  amount,
		NewBalance: newBalance,
	}, nil
}
