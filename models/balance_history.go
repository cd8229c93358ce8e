package models

import (
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial          TransactionType = "initial"
	TransactionTypeRollWin          TransactionType = "roll_win"
	TransactionTypeRollLoss         TransactionType = "roll_loss"
	TransactionTypeBlackjackWin     TransactionType = "blackjack_win"
	TransactionTypeBlackjackLoss    TransactionType = "blackjack_loss"
	TransactionTypeBlackjackPush    TransactionType = "blackjack_push"
	TransactionTypeCountFee         TransactionType = "count_fee"
	TransactionTypeLoanDisbursement TransactionType = "loan_disbursement"
	TransactionTypeLoanPayment      TransactionType = "loan_payment"
	TransactionTypeInterestPayment  TransactionType = "interest_payment"
	TransactionTypeLateFee          TransactionType = "late_fee"
	TransactionTypeLoanForgiveness  TransactionType = "loan_forgiveness"
	TransactionTypeAdminCredit      TransactionType = "admin_credit"
	TransactionTypeAdminSet         TransactionType = "admin_set"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeLoan RelatedType = "loan"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	DiscordID           int64           `db:"discord_id"`
	BalanceBefore       int64           `db:"balance_before"`
	BalanceAfter        int64           `db:"balance_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedID           *int64          `db:"related_id"`
	RelatedType         *RelatedType    `db:"related_type"`
	CreatedAt           time.Time       `db:"created_at"`
}
