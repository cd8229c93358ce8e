package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"loanshark/config"
	"loanshark/events"
	"loanshark/models"

	log "github.com/sirupsen/logrus"
)

const (
	// CollateralRatio is the fraction of the requested principal the
	// borrower must already hold.
	CollateralRatio = 0.10

	// LateFee is added to a loan's balance when the borrower cannot
	// cover the minimum payment at settlement.
	LateFee = 50
)

// loanService implements the LoanService interface
type loanService struct {
	uowFactory UnitOfWorkFactory
}

// NewLoanService creates a new loan service
func NewLoanService(uowFactory UnitOfWorkFactory) LoanService {
	return &loanService{
		uowFactory: uowFactory,
	}
}

// RequestLoan opens a new loan and credits the principal. The loan row
// and the balance credit land in one transaction; a half-applied loan
// is never visible.
func (s *loanService) RequestLoan(ctx context.Context, discordID int64, username string, amount int64) (*models.Loan, error) {
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

	existing, err := uow.LoanRepository().GetActiveByUser(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing loans: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrExistingDebt
	}

	collateral := int64(math.Ceil(float64(amount) * CollateralRatio))
	if user.Balance < collateral {
		return nil, ErrInsufficientCollateral
	}

	cfg := config.Get()
	loan := &models.Loan{
		DiscordID:         discordID,
		Principal:         amount,
		CurrentBalance:    float64(amount),
		DailyInterestRate: models.DefaultDailyInterestRate,
		NextPaymentDue:    NextSettlementCutoff(time.Now(), cfg.SettlementHour),
	}

	if err := uow.LoanRepository().Create(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}

	if err := uow.UserRepository().AddBalance(ctx, discordID, amount); err != nil {
		return nil, fmt.Errorf("failed to disburse loan: %w", err)
	}

	relatedType := models.RelatedTypeLoan
	history := &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   user.Balance,
		BalanceAfter:    user.Balance + amount,
		ChangeAmount:    amount,
		TransactionType: models.TransactionTypeLoanDisbursement,
		RelatedID:       &loan.ID,
		RelatedType:     &relatedType,
		TransactionMetadata: map[string]any{
			"principal":  amount,
			"daily_rate": loan.DailyInterestRate,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	uow.EventBus().Publish(events.LoanOpenedEvent{
		LoanID:    loan.ID,
		DiscordID: discordID,
		Principal: amount,
		DueDate:   loan.NextPaymentDue.Format(time.RFC3339),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return loan, nil
}

// MakePayment pays down the user's oldest open loan. Overpayment is
// clamped: the loan balance never goes negative.
func (s *loanService) MakePayment(ctx context.Context, discordID int64, amount int64) (*models.PaymentResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrNoDebt
	}

	loans, err := uow.LoanRepository().GetActiveByUser(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active loans: %w", err)
	}
	if len(loans) == 0 {
		return nil, ErrNoDebt
	}

	if amount > user.Balance {
		return nil, ErrInsufficientFunds
	}

	// FIFO: payments always hit the oldest loan
	loan := loans[0]
	newLoanBalance := loan.CurrentBalance - float64(amount)
	if newLoanBalance < 0 {
		newLoanBalance = 0
	}

	now := time.Now()
	nextDue := NextSettlementCutoff(now, config.Get().SettlementHour)
	if err := uow.LoanRepository().RecordPayment(ctx, loan.ID, newLoanBalance, now, nextDue); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	if err := uow.UserRepository().DeductBalance(ctx, discordID, amount); err != nil {
		return nil, fmt.Errorf("failed to deduct payment: %w", err)
	}

	relatedType := models.RelatedTypeLoan
	history := &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   user.Balance,
		BalanceAfter:    user.Balance - amount,
		ChangeAmount:    -amount,
		TransactionType: models.TransactionTypeLoanPayment,
		RelatedID:       &loan.ID,
		RelatedType:     &relatedType,
		TransactionMetadata: map[string]any{
			"remaining_debt": newLoanBalance,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.PaymentResult{
		LoanID:         loan.ID,
		AmountPaid:     amount,
		RemainingDebt:  newLoanBalance,
		NewBalance:     user.Balance - amount,
		FullyPaid:      newLoanBalance == 0,
		NextPaymentDue: nextDue,
	}, nil
}

// GetStatus returns the user's open loans
func (s *loanService) GetStatus(ctx context.Context, discordID int64) ([]*models.Loan, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	loans, err := uow.LoanRepository().GetActiveByUser(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active loans: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return loans, nil
}

// ListAllActive returns all open loans with holder details
func (s *loanService) ListAllActive(ctx context.Context) ([]*models.LoanWithUser, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	loans, err := uow.LoanRepository().GetAllActiveWithUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active loans: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return loans, nil
}

// Forgive zeroes all of a user's open loans. Rows stay for the audit
// trail.
func (s *loanService) Forgive(ctx context.Context, discordID int64) (*models.ForgivenessResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	count, total, err := uow.LoanRepository().ForgiveByUser(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to forgive loans: %w", err)
	}

	if count > 0 {
		user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if user != nil {
			history := &models.BalanceHistory{
				DiscordID:       discordID,
				BalanceBefore:   user.Balance,
				BalanceAfter:    user.Balance,
				ChangeAmount:    0,
				TransactionType: models.TransactionTypeLoanForgiveness,
				TransactionMetadata: map[string]any{
					"loans_forgiven": count,
					"total_forgiven": total,
				},
			}
			if err := RecordBalanceChange(ctx, uow, history); err != nil {
				return nil, fmt.Errorf("failed to record balance change: %w", err)
			}
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.ForgivenessResult{
		LoansForgiven: count,
		TotalForgiven: total,
	}, nil
}

// ProcessDailySettlements sweeps every open loan once: accrues
// interest, collects the minimum payment when the borrower can afford
// it, otherwise applies the late fee. Each loan settles in its own
// transaction; one failure never aborts the sweep.
func (s *loanService) ProcessDailySettlements(ctx context.Context, now time.Time) (*models.SettlementReport, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	loans, err := uow.LoanRepository().GetAllActive(ctx)
	if err != nil {
		uow.Rollback()
		return nil, fmt.Errorf("failed to get active loans: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	report := &models.SettlementReport{RunAt: now}

	for _, loan := range loans {
		if now.Before(loan.NextPaymentDue) {
			report.LoansSkipped++
			continue
		}

		settlement, err := s.settleLoan(ctx, loan, now)
		if err != nil {
			report.LoansFailed++
			log.WithFields(log.Fields{
				"loanID":    loan.ID,
				"discordID": loan.DiscordID,
				"error":     err,
			}).Error("Failed to settle loan")
			continue
		}

		report.LoansProcessed++
		report.PaymentsTotal += settlement.PaymentMade
		if settlement.LateFeeApplied {
			report.LateFees++
		}
		report.Settlements = append(report.Settlements, *settlement)
	}

	log.WithFields(log.Fields{
		"processed": report.LoansProcessed,
		"skipped":   report.LoansSkipped,
		"failed":    report.LoansFailed,
		"collected": report.PaymentsTotal,
		"lateFees":  report.LateFees,
	}).Info("Daily loan settlement complete")

	return report, nil
}

// settleLoan applies one day of interest and payment collection to a
// single loan inside its own transaction.
func (s *loanService) settleLoan(ctx context.Context, loan *models.Loan, now time.Time) (*models.LoanSettlement, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Re-read inside the transaction; a user payment may have landed
	// since the sweep listed this loan
	current, err := uow.LoanRepository().GetActiveByUser(ctx, loan.DiscordID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read loan: %w", err)
	}
	var fresh *models.Loan
	for _, l := range current {
		if l.ID == loan.ID {
			fresh = l
			break
		}
	}
	if fresh == nil || now.Before(fresh.NextPaymentDue) {
		// Paid off or already settled
		return &models.LoanSettlement{LoanID: loan.ID, DiscordID: loan.DiscordID}, uow.Commit()
	}

	user, err := uow.UserRepository().GetByDiscordID(ctx, fresh.DiscordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get borrower: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("borrower %d not found", fresh.DiscordID)
	}

	interest := fresh.CurrentBalance * fresh.DailyInterestRate
	accrued := fresh.CurrentBalance + interest
	minPayment := int64(math.Ceil(accrued * 0.03))
	if minPayment < 25 {
		minPayment = 25
	}

	nextDue := AdvanceSettlementCutoff(now, config.Get().SettlementHour)
	settlement := &models.LoanSettlement{
		LoanID:          fresh.ID,
		DiscordID:       fresh.DiscordID,
		InterestAccrued: interest,
	}
	relatedType := models.RelatedTypeLoan

	if user.Balance >= minPayment {
		newBalance := accrued - float64(minPayment)
		if newBalance < 0 {
			newBalance = 0
		}

		if err := uow.UserRepository().DeductBalance(ctx, fresh.DiscordID, minPayment); err != nil {
			return nil, fmt.Errorf("failed to collect payment: %w", err)
		}
		if err := uow.LoanRepository().RecordPayment(ctx, fresh.ID, newBalance, now, nextDue); err != nil {
			return nil, fmt.Errorf("failed to record payment: %w", err)
		}

		history := &models.BalanceHistory{
			DiscordID:       fresh.DiscordID,
			BalanceBefore:   user.Balance,
			BalanceAfter:    user.Balance - minPayment,
			ChangeAmount:    -minPayment,
			TransactionType: models.TransactionTypeInterestPayment,
			RelatedID:       &fresh.ID,
			RelatedType:     &relatedType,
			TransactionMetadata: map[string]any{
				"interest":       interest,
				"remaining_debt": newBalance,
			},
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return nil, fmt.Errorf("failed to record balance change: %w", err)
		}

		settlement.PaymentMade = minPayment
		settlement.NewLoanBalance = newBalance

		uow.EventBus().Publish(events.LoanSettledEvent{
			LoanID:         fresh.ID,
			DiscordID:      fresh.DiscordID,
			PaymentMade:    minPayment,
			NewLoanBalance: newBalance,
			FullyPaid:      newBalance == 0,
		})
	} else {
		// Cannot afford the minimum: late fee on the debt, account
		// untouched
		newBalance := accrued + LateFee
		missed := fresh.MissedPayments + 1

		if err := uow.LoanRepository().ApplySettlement(ctx, fresh.ID, newBalance, missed, nextDue); err != nil {
			return nil, fmt.Errorf("failed to apply late fee: %w", err)
		}

		history := &models.BalanceHistory{
			DiscordID:       fresh.DiscordID,
			BalanceBefore:   user.Balance,
			BalanceAfter:    user.Balance,
			ChangeAmount:    0,
			TransactionType: models.TransactionTypeLateFee,
			RelatedID:       &fresh.ID,
			RelatedType:     &relatedType,
			TransactionMetadata: map[string]any{
				"late_fee":        LateFee,
				"new_loan_debt":   newBalance,
				"missed_payments": missed,
			},
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return nil, fmt.Errorf("failed to record balance change: %w", err)
		}

		settlement.LateFeeApplied = true
		settlement.NewLoanBalance = newBalance
		settlement.MissedPayments = missed

		uow.EventBus().Publish(events.LoanPaymentMissedEvent{
			LoanID:         fresh.ID,
			DiscordID:      fresh.DiscordID,
			LateFee:        LateFee,
			NewLoanBalance: newBalance,
			MissedPayments: missed,
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return settlement, nil
}
