package models

import "time"

// RollResult is the outcome of a dice wager.
type RollResult struct {
	PlayerRoll int
	HouseRoll  int
	Won        bool
	BetAmount  int64
	NewBalance int64
}

// BlackjackOutcome is the terminal result of a blackjack hand.
type BlackjackOutcome string

const (
	OutcomeInProgress BlackjackOutcome = "in_progress"
	OutcomeNatural    BlackjackOutcome = "natural"
	OutcomePush       BlackjackOutcome = "push"
	OutcomeWin        BlackjackOutcome = "win"
	OutcomeLoss       BlackjackOutcome = "loss"
	OutcomeBust       BlackjackOutcome = "bust"
	OutcomeDealerBust BlackjackOutcome = "dealer_bust"
)

// Resolved reports whether the outcome ends the hand.
func (o BlackjackOutcome) Resolved() bool {
	return o != OutcomeInProgress
}

// BlackjackState is what the chat layer renders after any blackjack
// action. Dealer cards are pre-rendered so the hidden-card rule stays
// in one place.
type BlackjackState struct {
	SessionID    string
	Wager        int64
	PlayerHand   string
	PlayerValue  int
	DealerHand   string
	DealerValue  int
	DealerHidden bool
	Outcome      BlackjackOutcome
	NetChange    int64
	NewBalance   int64
	Reshuffled   bool
}

// CountPeek is the paid card-counting readout for an active hand.
type CountPeek struct {
	RunningCount   int
	TrueCount      float64
	CardsRemaining int
	Cost           int64
	NewBalance     int64
}

// PaymentResult is the outcome of a loan payment.
type PaymentResult struct {
	LoanID         int64
	AmountPaid     int64
	RemainingDebt  float64
	NewBalance     int64
	FullyPaid      bool
	NextPaymentDue time.Time
}

// ForgivenessResult reports an admin loan forgiveness.
type ForgivenessResult struct {
	LoansForgiven int
	TotalForgiven float64
}

// LoanSettlement is the per-loan outcome of a daily settlement pass.
type LoanSettlement struct {
	LoanID          int64
	DiscordID       int64
	InterestAccrued float64
	PaymentMade     int64
	LateFeeApplied  bool
	NewLoanBalance  float64
	MissedPayments  int
}

// SettlementReport summarizes one full settlement sweep.
type SettlementReport struct {
	RunAt          time.Time
	LoansProcessed int
	LoansSkipped   int
	LoansFailed    int
	PaymentsTotal  int64
	LateFees       int
	Settlements    []LoanSettlement
}
