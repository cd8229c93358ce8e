package testutil

import (
	"time"

	"loanshark/models"
)

// CreateTestUser creates a test user with default values
func CreateTestUser(discordID int64, username string) *models.User {
	now := time.Now()
	return &models.User{
		DiscordID: discordID,
		Username:  username,
		Balance:   1000,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestUserWithBalance creates a test user with a specific balance
func CreateTestUserWithBalance(discordID int64, username string, balance int64) *models.User {
	user := CreateTestUser(discordID, username)
	user.Balance = balance
	return user
}

// CreateTestBalanceHistory creates a test balance history entry
func CreateTestBalanceHistory(discordID int64, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   1000,
		BalanceAfter:    900,
		ChangeAmount:    -100,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
		CreatedAt: time.Now(),
	}
}

// CreateTestBalanceHistoryWithAmounts creates a test balance history with specific amounts
func CreateTestBalanceHistoryWithAmounts(discordID int64, before, after, change int64, transactionType models.TransactionType) *models.BalanceHistory {
	history := CreateTestBalanceHistory(discordID, transactionType)
	history.BalanceBefore = before
	history.BalanceAfter = after
	history.ChangeAmount = change
	return history
}

// CreateTestLoan creates an open loan with the default rate, due at the
// next day's cutoff
func CreateTestLoan(discordID int64, principal int64) *models.Loan {
	return &models.Loan{
		DiscordID:         discordID,
		Principal:         principal,
		CurrentBalance:    float64(principal),
		DailyInterestRate: models.DefaultDailyInterestRate,
		NextPaymentDue:    time.Now().UTC().AddDate(0, 0, 1).Truncate(time.Hour),
	}
}

// CreateTestLoanWithBalance creates a loan whose outstanding balance
// differs from its principal
func CreateTestLoanWithBalance(discordID int64, principal int64, balance float64) *models.Loan {
	loan := CreateTestLoan(discordID, principal)
	loan.CurrentBalance = balance
	return loan
}
