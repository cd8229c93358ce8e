package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"loanshark/cards"
	"loanshark/config"
	"loanshark/models"

	"github.com/google/uuid"
)

// blackjackSession is one in-flight hand. At most one exists per user;
// it is removed from the registry when the hand resolves.
type blackjackSession struct {
	id       string
	wager    int64
	player   *cards.Hand
	dealer   *cards.Hand
	peeked   bool
	finished bool
}

// blackjackService implements the BlackjackService interface. Sessions
// and shoes live in process memory only; a restart forfeits nothing
// because wagers are settled on resolution, not on deal.
type blackjackService struct {
	uowFactory UnitOfWorkFactory
	rng        *rand.Rand
	now        func() time.Time

	mu       sync.Mutex
	sessions map[int64]*blackjackSession
	shoes    map[int64]*cards.Shoe
}

// NewBlackjackService creates a new blackjack service. The rng and
// clock are injected so tests can fix shuffles and shoe expiry.
func NewBlackjackService(uowFactory UnitOfWorkFactory, rng *rand.Rand, now func() time.Time) BlackjackService {
	if now == nil {
		now = time.Now
	}
	return &blackjackService{
		uowFactory: uowFactory,
		rng:        rng,
		now:        now,
		sessions:   make(map[int64]*blackjackSession),
		shoes:      make(map[int64]*cards.Shoe),
	}
}

// ensureShoe returns the user's shoe, replacing it when depleted or
// expired. Returns true when a fresh shoe was built, which resets the
// running count.
func (s *blackjackService) ensureShoe(discordID int64) (*cards.Shoe, bool) {
	shoe, ok := s.shoes[discordID]
	if ok && !shoe.NeedsRefresh(s.now()) {
		return shoe, false
	}
	shoe = cards.NewShoe(config.Get().ShoeDecks, s.rng, s.now())
	s.shoes[discordID] = shoe
	return shoe, true
}

// draw deals one card, rebuilding the shoe first if it is empty.
func (s *blackjackService) draw(discordID int64, shoe *cards.Shoe, reshuffled *bool) (cards.Card, *cards.Shoe) {
	if shoe.Remaining() == 0 {
		shoe = cards.NewShoe(config.Get().ShoeDecks, s.rng, s.now())
		s.shoes[discordID] = shoe
		*reshuffled = true
	}
	return shoe.Draw(), shoe
}

// StartGame deals a new hand for the user's wager. A natural 21
// resolves immediately: push against a dealer natural, otherwise a
// 2.5x gross payout.
func (s *blackjackService) StartGame(ctx context.Context, discordID int64, username string, wager int64) (*models.BlackjackState, error) {
	if wager <= 0 {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[discordID]; exists {
		return nil, ErrGameAlreadyActive
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

	if wager > user.Balance {
		return nil, ErrInsufficientFunds
	}

	shoe, reshuffled := s.ensureShoe(discordID)

	session := &blackjackSession{
		id:     uuid.NewString(),
		wager:  wager,
		player: &cards.Hand{},
		dealer: &cards.Hand{},
	}

	var card cards.Card
	for i := 0; i < 2; i++ {
		card, shoe = s.draw(discordID, shoe, &reshuffled)
		session.player.Add(card)
		card, shoe = s.draw(discordID, shoe, &reshuffled)
		session.dealer.Add(card)
	}

	if session.player.IsBlackjack() {
		// Natural: resolved before the session is ever registered
		state := &models.BlackjackState{
			SessionID:   session.id,
			Wager:       wager,
			PlayerHand:  session.player.String(),
			PlayerValue: session.player.Value(),
			DealerHand:  session.dealer.String(),
			DealerValue: session.dealer.Value(),
			Reshuffled:  reshuffled,
		}

		if session.dealer.IsBlackjack() {
			state.Outcome = models.OutcomePush
			state.NewBalance = user.Balance
			history := &models.BalanceHistory{
				DiscordID:       discordID,
				BalanceBefore:   user.Balance,
				BalanceAfter:    user.Balance,
				ChangeAmount:    0,
				TransactionType: models.TransactionTypeBlackjackPush,
				TransactionMetadata: map[string]any{
					"wager":   wager,
					"natural": true,
				},
			}
			if err := RecordBalanceChange(ctx, uow, history); err != nil {
				return nil, fmt.Errorf("failed to record balance change: %w", err)
			}
		} else {
			// Gross payout 2.5x the wager; the stake was never taken,
			// so the net credit is 1.5x
			net := int64(float64(wager)*2.5) - wager
			state.Outcome = models.OutcomeNatural
			state.NetChange = net
			state.NewBalance = user.Balance + net
			if err := uow.UserRepository().AddBalance(ctx, discordID, net); err != nil {
				return nil, fmt.Errorf("failed to pay natural: %w", err)
			}
			history := &models.BalanceHistory{
				DiscordID:       discordID,
				BalanceBefore:   user.Balance,
				BalanceAfter:    state.NewBalance,
				ChangeAmount:    net,
				TransactionType: models.TransactionTypeBlackjackWin,
				TransactionMetadata: map[string]any{
					"wager":   wager,
					"natural": true,
				},
			}
			if err := RecordBalanceChange(ctx, uow, history); err != nil {
				return nil, fmt.Errorf("failed to record balance change: %w", err)
			}
		}

		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return state, nil
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.sessions[discordID] = session

	upcard := session.dealer.Cards[1]
	return &models.BlackjackState{
		SessionID:    session.id,
		Wager:        wager,
		PlayerHand:   session.player.String(),
		PlayerValue:  session.player.Value(),
		DealerHand:   session.dealer.StringHidden(),
		DealerValue:  cards.CardValue(upcard, 0),
		DealerHidden: true,
		Outcome:      models.OutcomeInProgress,
		NewBalance:   user.Balance,
		Reshuffled:   reshuffled,
	}, nil
}

// Hit draws one card into the player's hand. A bust settles the wager
// and closes the session.
func (s *blackjackService) Hit(ctx context.Context, discordID int64) (*models.BlackjackState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[discordID]
	if !exists {
		return nil, ErrNoActiveGame
	}
	if session.finished {
		return nil, ErrGameFinished
	}

	reshuffled := false
	shoe, fresh := s.ensureShoe(discordID)
	reshuffled = fresh

	var card cards.Card
	card, _ = s.draw(discordID, shoe, &reshuffled)
	session.player.Add(card)

	if !session.player.IsBust() {
		upcard := session.dealer.Cards[1]
		return &models.BlackjackState{
			SessionID:    session.id,
			Wager:        session.wager,
			PlayerHand:   session.player.String(),
			PlayerValue:  session.player.Value(),
			DealerHand:   session.dealer.StringHidden(),
			DealerValue:  cards.CardValue(upcard, 0),
			DealerHidden: true,
			Outcome:      models.OutcomeInProgress,
			Reshuffled:   reshuffled,
		}, nil
	}

	// Bust: the wager is forfeited
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
		return nil, fmt.Errorf("user %d not found", discordID)
	}

	newBalance := user.Balance - session.wager
	if newBalance < 0 {
		// Balance changed mid-hand (loan payment, settlement); take
		// whatever is left rather than fail the resolution
		newBalance = 0
	}
	if err := uow.UserRepository().UpdateBalance(ctx, discordID, newBalance); err != nil {
		return nil, fmt.Errorf("failed to deduct wager: %w", err)
	}

	history := &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   user.Balance,
		BalanceAfter:    newBalance,
		ChangeAmount:    newBalance - user.Balance,
		TransactionType: models.TransactionTypeBlackjackLoss,
		TransactionMetadata: map[string]any{
			"wager": session.wager,
			"bust":  true,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	session.finished = true
	delete(s.sessions, discordID)

	return &models.BlackjackState{
		SessionID:   session.id,
		Wager:       session.wager,
		PlayerHand:  session.player.String(),
		PlayerValue: session.player.Value(),
		DealerHand:  session.dealer.String(),
		DealerValue: session.dealer.Value(),
		Outcome:     models.OutcomeBust,
		NetChange:   newBalance - user.Balance,
		NewBalance:  newBalance,
		Reshuffled:  reshuffled,
	}, nil
}

// Stand plays the dealer's hand to at least 17 and settles the wager.
func (s *blackjackService) Stand(ctx context.Context, discordID int64) (*models.BlackjackState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[discordID]
	if !exists {
		return nil, ErrNoActiveGame
	}
	if session.finished {
		return nil, ErrGameFinished
	}

	reshuffled := false
	shoe, fresh := s.ensureShoe(discordID)
	reshuffled = fresh

	// Dealer hits below 17, stands at or above
	var card cards.Card
	for session.dealer.Value() < 17 {
		card, shoe = s.draw(discordID, shoe, &reshuffled)
		session.dealer.Add(card)
	}

	playerValue := session.player.Value()
	dealerValue := session.dealer.Value()

	var outcome models.BlackjackOutcome
	var netChange int64
	switch {
	case session.dealer.IsBust():
		outcome = models.OutcomeDealerBust
		netChange = session.wager
	case playerValue > dealerValue:
		outcome = models.OutcomeWin
		netChange = session.wager
	case playerValue < dealerValue:
		outcome = models.OutcomeLoss
		netChange = -session.wager
	default:
		outcome = models.OutcomePush
		netChange = 0
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
		return nil, fmt.Errorf("user %d not found", discordID)
	}

	newBalance := user.Balance + netChange
	if newBalance < 0 {
		netChange = -user.Balance
		newBalance = 0
	}

	var transactionType models.TransactionType
	switch {
	case netChange > 0:
		transactionType = models.TransactionTypeBlackjackWin
		if err := uow.UserRepository().AddBalance(ctx, discordID, netChange); err != nil {
			return nil, fmt.Errorf("failed to add winnings: %w", err)
		}
	case netChange < 0:
		transactionType = models.TransactionTypeBlackjackLoss
		if err := uow.UserRepository().UpdateBalance(ctx, discordID, newBalance); err != nil {
			return nil, fmt.Errorf("failed to deduct wager: %w", err)
		}
	default:
		transactionType = models.TransactionTypeBlackjackPush
	}

	history := &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   user.Balance,
		BalanceAfter:    newBalance,
		ChangeAmount:    netChange,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"wager":        session.wager,
			"player_value": playerValue,
			"dealer_value": dealerValue,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	session.finished = true
	delete(s.sessions, discordID)

	return &models.BlackjackState{
		SessionID:   session.id,
		Wager:       session.wager,
		PlayerHand:  session.player.String(),
		PlayerValue: playerValue,
		DealerHand:  session.dealer.String(),
		DealerValue: dealerValue,
		Outcome:     outcome,
		NetChange:   netChange,
		NewBalance:  newBalance,
		Reshuffled:  reshuffled,
	}, nil
}

// PeekCount sells the current shoe statistics, once per hand. Cost is
// 10% of the wager, floored at 1.
func (s *blackjackService) PeekCount(ctx context.Context, discordID int64) (*models.CountPeek, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[discordID]
	if !exists {
		return nil, ErrNoActiveGame
	}
	if session.finished {
		return nil, ErrGameFinished
	}
	if session.peeked {
		return nil, ErrAlreadyPeeked
	}

	cost := session.wager / 10
	if cost < 1 {
		cost = 1
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Re-read the balance inside the transaction; it may have moved
	// since the deal
	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", discordID)
	}
	if user.Balance < cost {
		return nil, ErrInsufficientFunds
	}

	if err := uow.UserRepository().DeductBalance(ctx, discordID, cost); err != nil {
		return nil, fmt.Errorf("failed to charge count fee: %w", err)
	}

	newBalance := user.Balance - cost
	history := &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   user.Balance,
		BalanceAfter:    newBalance,
		ChangeAmount:    -cost,
		TransactionType: models.TransactionTypeCountFee,
		TransactionMetadata: map[string]any{
			"wager": session.wager,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	session.peeked = true

	shoe := s.shoes[discordID]
	return &models.CountPeek{
		RunningCount:   shoe.RunningCount(),
		TrueCount:      shoe.TrueCount(),
		CardsRemaining: shoe.Remaining(),
		Cost:           cost,
		NewBalance:     newBalance,
	}, nil
}
