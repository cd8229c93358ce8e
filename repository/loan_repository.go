package repository

import (
	"context"
	"fmt"
	"time"

	"loanshark/database"
	"loanshark/models"
)

// LoanRepository implements the service.LoanRepository interface
type LoanRepository struct {
	q queryable
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *database.DB) *LoanRepository {
	return &LoanRepository{q: db.Pool}
}

// newLoanRepositoryWithTx creates a new loan repository with a transaction
func newLoanRepositoryWithTx(tx queryable) *LoanRepository {
	return &LoanRepository{q: tx}
}

// Create inserts a new loan with balance equal to principal
func (r *LoanRepository) Create(ctx context.Context, loan *models.Loan) error {
	query := `
		INSERT INTO loans (discord_id, principal, current_balance, daily_interest_rate, next_payment_due)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, missed_payments
	`

	err := r.q.QueryRow(ctx, query,
		loan.DiscordID,
		loan.Principal,
		loan.CurrentBalance,
		loan.DailyInterestRate,
		loan.NextPaymentDue,
	).Scan(&loan.ID, &loan.CreatedAt, &loan.MissedPayments)

	if err != nil {
		return fmt.Errorf("failed to create loan for user %d: %w", loan.DiscordID, err)
	}

	return nil
}

const loanColumns = `id, discord_id, principal, current_balance, daily_interest_rate,
	       created_at, next_payment_due, missed_payments, last_payment_date`

func scanLoan(row interface{ Scan(dest ...any) error }) (*models.Loan, error) {
	var loan models.Loan
	err := row.Scan(
		&loan.ID,
		&loan.DiscordID,
		&loan.Principal,
		&loan.CurrentBalance,
		&loan.DailyInterestRate,
		&loan.CreatedAt,
		&loan.NextPaymentDue,
		&loan.MissedPayments,
		&loan.LastPaymentDate,
	)
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// GetActiveByUser returns a user's open loans, oldest first. Payments
// always apply to the first entry.
func (r *LoanRepository) GetActiveByUser(ctx context.Context, discordID int64) ([]*models.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE discord_id = $1 AND current_balance > 0
		ORDER BY created_at ASC
	`

	rows, err := r.q.Query(ctx, query, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active loans for user %d: %w", discordID, err)
	}
	defer rows.Close()

	var loans []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loans: %w", err)
	}

	return loans, nil
}

// GetAllActive returns every open loan across all users, for the daily
// settlement sweep.
func (r *LoanRepository) GetAllActive(ctx context.Context) ([]*models.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE current_balance > 0
		ORDER BY created_at ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active loans: %w", err)
	}
	defer rows.Close()

	var loans []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loans: %w", err)
	}

	return loans, nil
}

// GetAllActiveWithUsers returns every open loan joined with the
// holder's username and balance, for admin listings.
func (r *LoanRepository) GetAllActiveWithUsers(ctx context.Context) ([]*models.LoanWithUser, error) {
	query := `
		SELECT l.id, l.discord_id, l.principal, l.current_balance, l.daily_interest_rate,
		       l.created_at, l.next_payment_due, l.missed_payments, l.last_payment_date,
		       u.username, u.balance
		FROM loans l
		JOIN users u ON u.discord_id = l.discord_id
		WHERE l.current_balance > 0
		ORDER BY l.current_balance DESC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active loans with users: %w", err)
	}
	defer rows.Close()

	var loans []*models.LoanWithUser
	for rows.Next() {
		var lw models.LoanWithUser
		err := rows.Scan(
			&lw.ID,
			&lw.DiscordID,
			&lw.Principal,
			&lw.CurrentBalance,
			&lw.DailyInterestRate,
			&lw.CreatedAt,
			&lw.NextPaymentDue,
			&lw.MissedPayments,
			&lw.LastPaymentDate,
			&lw.Username,
			&lw.UserBalance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan with user: %w", err)
		}
		loans = append(loans, &lw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loans with users: %w", err)
	}

	return loans, nil
}

// RecordPayment applies a successful payment: sets the new balance,
// resets the missed counter, stamps the payment time, and advances the
// due date.
func (r *LoanRepository) RecordPayment(ctx context.Context, loanID int64, newBalance float64, paidAt, nextDue time.Time) error {
	query := `
		UPDATE loans
		SET current_balance = $1, missed_payments = 0, last_payment_date = $2, next_payment_due = $3
		WHERE id = $4
	`

	result, err := r.q.Exec(ctx, query, newBalance, paidAt, nextDue, loanID)
	if err != nil {
		return fmt.Errorf("failed to record payment for loan %d: %w", loanID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("loan %d not found", loanID)
	}

	return nil
}

// ApplySettlement writes the daily settlement outcome for one loan:
// new balance, missed-payment counter, and the next due date.
func (r *LoanRepository) ApplySettlement(ctx context.Context, loanID int64, newBalance float64, missedPayments int, nextDue time.Time) error {
	query := `
		UPDATE loans
		SET current_balance = $1, missed_payments = $2, next_payment_due = $3
		WHERE id = $4
	`

	result, err := r.q.Exec(ctx, query, newBalance, missedPayments, nextDue, loanID)
	if err != nil {
		return fmt.Errorf("failed to apply settlement for loan %d: %w", loanID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("loan %d not found", loanID)
	}

	return nil
}

// ForgiveByUser zeroes every open loan for a user. Rows are kept; only
// the balance is cleared. Returns the number of loans forgiven and the
// total debt wiped.
func (r *LoanRepository) ForgiveByUser(ctx context.Context, discordID int64) (int, float64, error) {
	// Read the outstanding total first, then zero; callers run this
	// inside a unit of work so the pair is atomic.
	var total float64
	var count int
	sumQuery := `
		SELECT COALESCE(SUM(current_balance), 0), COUNT(*)
		FROM loans
		WHERE discord_id = $1 AND current_balance > 0
	`
	if err := r.q.QueryRow(ctx, sumQuery, discordID).Scan(&total, &count); err != nil {
		return 0, 0, fmt.Errorf("failed to total active loans for user %d: %w", discordID, err)
	}

	if count == 0 {
		return 0, 0, nil
	}

	query := `
		UPDATE loans
		SET current_balance = 0
		WHERE discord_id = $1 AND current_balance > 0
	`
	if _, err := r.q.Exec(ctx, query, discordID); err != nil {
		return 0, 0, fmt.Errorf("failed to forgive loans for user %d: %w", discordID, err)
	}

	return count, total, nil
}
