package models

import (
	"math"
	"time"
)

// DefaultDailyInterestRate is the daily rate applied to every new loan.
const DefaultDailyInterestRate = 0.0005

// Loan represents an outstanding debt. Balances accrue daily interest
// and are tracked fractionally; a loan is active while CurrentBalance
// is above zero. Loans are never deleted, only zeroed.
type Loan struct {
	ID                int64      `db:"id"`
	DiscordID         int64      `db:"discord_id"`
	Principal         int64      `db:"principal"`
	CurrentBalance    float64    `db:"current_balance"`
	DailyInterestRate float64    `db:"daily_interest_rate"`
	CreatedAt         time.Time  `db:"created_at"`
	NextPaymentDue    time.Time  `db:"next_payment_due"`
	MissedPayments    int        `db:"missed_payments"`
	LastPaymentDate   *time.Time `db:"last_payment_date"`
}

// MinimumPayment returns the smallest payment accepted at settlement:
// 3% of the current balance rounded up, floored at 25.
func (l *Loan) MinimumPayment() int64 {
	minimum := int64(math.Ceil(l.CurrentBalance * 0.03))
	if minimum < 25 {
		minimum = 25
	}
	return minimum
}

// IsActive reports whether the loan still carries debt.
func (l *Loan) IsActive() bool {
	return l.CurrentBalance > 0
}

// LoanWithUser joins a loan to its holder's username and balance for
// admin listings.
type LoanWithUser struct {
	Loan
	Username    string `db:"username"`
	UserBalance int64  `db:"balance"`
}
