package scheduler

import (
	"context"
	"fmt"
	"time"

	"loanshark/service"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// settlementTimeout bounds one full sweep of the loan book
const settlementTimeout = 10 * time.Minute

// Scheduler runs the daily loan settlement on a cron timer
type Scheduler struct {
	cron  *cron.Cron
	loans service.LoanService
}

// New creates a scheduler. All schedules are evaluated in UTC.
func New(loans service.LoanService) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		loans: loans,
	}
}

// RegisterSettlement schedules the daily settlement sweep at the given
// UTC hour
func (s *Scheduler) RegisterSettlement(hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("settlement hour must be 0-23, got %d", hour)
	}

	spec := fmt.Sprintf("0 0 %d * * *", hour)
	if _, err := s.cron.AddFunc(spec, s.runSettlement); err != nil {
		return fmt.Errorf("failed to register settlement job: %w", err)
	}

	log.WithField("hour_utc", hour).Info("Daily settlement scheduled")
	return nil
}

// Start begins running scheduled jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info("Scheduler started")
}

// Stop halts the scheduler, waiting for any running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Scheduler stopped")
}

func (s *Scheduler) runSettlement() {
	// A panicking sweep must not take the cron runner down with it
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Settlement sweep panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), settlementTimeout)
	defer cancel()

	report, err := s.loans.ProcessDailySettlements(ctx, time.Now().UTC())
	if err != nil {
		log.WithError(err).Error("Settlement sweep failed")
		return
	}

	log.WithFields(log.Fields{
		"processed":      report.LoansProcessed,
		"skipped":        report.LoansSkipped,
		"failed":         report.LoansFailed,
		"payments_total": report.PaymentsTotal,
		"late_fees":      report.LateFees,
	}).Info("Settlement sweep complete")
}
