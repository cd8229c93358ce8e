package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"loanshark/cards"
	"loanshark/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// stackShoe builds a shoe that deals the given ranks in order, padded
// with neutral cards so the shuffle threshold never triggers mid-test.
func stackShoe(now time.Time, dealt ...string) *cards.Shoe {
	stack := make([]cards.Card, 0, 20+len(dealt))
	for i := 0; i < 20; i++ {
		stack = append(stack, cards.Card{Rank: "7", Suit: cards.Clubs})
	}
	// Draw order is back-to-front
	for i := len(dealt) - 1; i >= 0; i-- {
		stack = append(stack, cards.Card{Rank: dealt[i], Suit: cards.Spades})
	}
	return cards.NewShoeFromCards(stack, now)
}

func newBlackjackFixture(t *testing.T) (*blackjackService, *MockUnitOfWorkFactory, *MockUnitOfWork, *MockUserRepository, *MockBalanceHistoryRepository) {
	t.Helper()
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockLoanRepo := new(MockLoanRepository)
	mockBalanceHistoryRepo := new(MockBalanceHistoryRepository)
	mockUoW.SetRepositories(mockUserRepo, mockLoanRepo, mockBalanceHistoryRepo)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewBlackjackService(mockFactory, rand.New(rand.NewSource(1)), func() time.Time { return now }).(*blackjackService)
	return svc, mockFactory, mockUoW, mockUserRepo, mockBalanceHistoryRepo
}

func TestBlackjackService_StartGame_InvalidWager(t *testing.T) {
	svc, _, _, _, _ := newBlackjackFixture(t)

	_, err := svc.StartGame(context.Background(), 42, "gambler", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestBlackjackService_StartGame_AlreadyActive(t *testing.T) {
	svc, _, _, _, _ := newBlackjackFixture(t)
	svc.sessions[42] = &blackjackSession{id: "existing", wager: 10, player: &cards.Hand{}, dealer: &cards.Hand{}}

	_, err := svc.StartGame(context.Background(), 42, "gambler", 100)
	assert.ErrorIs(t, err, ErrGameAlreadyActive)
}

func TestBlackjackService_StartGame_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	svc, mockFactory, mockUoW, mockUserRepo, _ := newBlackjackFixture(t)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	user := &models.User{DiscordID: 42, Username: "gambler", Balance: 50}
	mockUserRepo.On("GetByDiscordID", ctx, int64(42)).Return(user, nil)

	_, err := svc.StartGame(ctx, 42, "gambler", 100)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NotContains(t, svc.sessions, int64(42))
}

func TestBlackjackService_StartGame_NaturalPaysThreeToTwo(t *testing.T) {
	ctx := context.Background()
	svc, mockFactory, mockUoW, mockUserRepo, mockBalanceHistoryRepo := newBlackjackFixture(t)

	// Player: A K (natural). Dealer: 9 6.
	svc.shoes[42] = stackShoe(svc.now(), "A", "9", "K", "6")

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	user := &models.User{DiscordID: 42, Username: "gambler", Balance: 1000}
	mockUserRepo.On("GetByDiscordID", ctx, int64(42)).Return(user, nil)
	mockUserRepo.On("AddBalance", ctx, int64(42), int64(150)).Return(nil)
	mockBalanceHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.ChangeAmount == 150 && h.TransactionType == models.TransactionTypeBlackjackWin
	})).Return(nil)

	state, err := svc.StartGame(ctx, 42, "gambler", 100)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeNatural, state.Outcome)
	assert.Equal(t, int64(150), state.NetChange)
	assert.Equal(t, int64(1150), state.NewBalance)
	assert.Equal(t, 21, state.PlayerValue)
	assert.False(t, state.DealerHidden)

	// Resolved immediately; no session survives
	assert.NotContains(t, svc.sessions, int64(42))
	mockUserRepo.AssertExpectations(t)
}

func TestBlackjackService_StartGame_DoubleNaturalPushes(t *testing.T) {
	ctx := context.Background()
	svc, mockFactory, mockUoW, mockUserRepo, mockBalanceHistoryRepo := newBlackjackFixture(t)

	// Player: A K. Dealer: Q A. Both natural.
	svc.shoes[42] = stackShoe(svc.now(), "A", "Q", "K", "A")

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	user := &models.User{DiscordID: 42, Username: "gambler", Balance: 1000}
	mockUserRepo.On("GetByDiscordID", ctx, int64(42)).Return(user, nil)
	mockBalanceHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.ChangeAmount == 0 && h.TransactionType == models.TransactionTypeBlackjackPush
	})).Return(nil)

	state, err := svc.StartGame(ctx, 42, "gambler", 100)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomePush, state.Outcome)
	assert.Equal(t, int64(0), state.NetChange)
	assert.Equal(t, int64(1000), state.NewBalance)
	assert.NotContains(t, svc.sessions, int64(42))
	mockUserRepo.AssertNotCalled(t, "AddBalance", mock.Anything, mock.Anything, mock.Anything)
	mockUserRepo.AssertNotCalled(t, "DeductBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestBlackjackService_StartGame_InProgressHidesDealer(t *testing.T) {
	ctx := context.Background()
	svc, mockFactory, mockUoW, mockUserRepo, _ := newBlackjackFixture(t)

	// Player: 10 7 (17). Dealer: 9 6.
	svc.shoes[42] = stackShoe(svc.now(), "10", "9", "7", "6")

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	user := &models.User{DiscordID: 42, Username: "gambler", Balance: 1000}
	mockUserRepo.On("GetByDiscordID", ctx, int64(42)).Return(user, nil)

	state, err := svc.StartGame(ctx, 42, "gambler", 100)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeInProgress, state.Outcome)
	assert.Equal(t, 17, state.PlayerValue)
	assert.True(t, state.DealerHidden)
	assert.Contains(t, state.DealerHand, "🃏")
	assert.Contains(t, svc.sessions, int64(42))
	assert.NotEmpty(t, state.SessionID)
}

func TestBlackjackService_Hit_BustClosesSession(t *testing.T) {
	ctx := context.Background()
	svc, mockFactory, mockUoW, mockUserRepo, mockBalanceHistoryRepo := newBlackjackFixture(t)

	player := &cards.Hand{}
	player.Add(cards.Card{Rank: "K", Suit: cards.Spades})
	player.Add(cards.Card{Rank: "9", Suit: cards.Hearts})
	dealer := &cards.Hand{}
	dealer.Add(cards.Card{Rank: "9", Suit: cards.Diamonds})
	dealer.Add(cards.Card{Rank: "6", Suit: cards.Clubs})

	svc.sessions[42] = &blackjackSession{id: "hand-1", wager: 100, player: player, dealer: dealer}
	svc.shoes[42] = stackShoe(svc.now(), "Q") // 19 + Q = 29, bust

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	user := &models.User{DiscordID: 42, Username: "gambler", Balance: 1000}
	mockUserRepo.On("GetByDiscordID", ctx, int64(42)).Return(user, nil)
	mockUserRepo.On("UpdateBalance", ctx, int64(42), int64(900)).Return(nil)
	mockBalanceHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.ChangeAmount == -100 && h.TransactionType == models.TransactionTypeBlackjackLoss
	})).Return(nil)

	state, err := svc.Hit(ctx, 42)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeBust, state.Outcome)
	assert.Equal(t, int64(-100), state.NetChange)
	assert.Equal(t, int64(900), state.NewBalance)
	assert.NotContains(t, svc.sessions, int64(42))

	// The hand is gone; further actions are rejected
	_, err = svc.Hit(ctx, 42)
	assert.ErrorIs(t, err, ErrNoActiveGame)
	_, err = svc.Stand(ctx, 42)
	assert.ErrorIs(t, err, ErrNoActiveGame)
}

func TestBlackjackService_Hit_StaysInProgress(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, _ := newBlackjackFixture(t)

	player := &cards.Hand{}
	player.Add(cards.Card{Rank: "5", Suit: cards.Spades})
	player.Add(cards.Card{Rank: "9", Suit: cards.Hearts})
	dealer := &cards.Hand{}
	dealer.Add(cards.Card{Rank: "9", Suit: cards.Diamonds})
	dealer.Add(cards.Card{Rank: "6", Suit: cards.Clubs})

	svc.sessions[42] = &blackjackSession{id: "hand-1", wager: 100, player: player, dealer: dealer}
	svc.shoes[42] = stackShoe(svc.now(), "3") // 14 + 3 = 17

	state, err := svc.Hit(ctx, 42)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeInProgress, state.Outcome)
	assert.Equal(t, 17, state.PlayerValue)
	assert.True(t, state.DealerHidden)
	assert.Contains(t, svc.sessions, int64(42))
}

func TestBlackjackService_Stand_DealerBusts(t *testing.T) {
	ctx := context.Background()
	svc, mockFactory, mockUoW, mockUserRepo, mockBalanceHistoryRepo := newBlackjackFixture(t)

	player := &cards.Hand{}
	player.Add(cards.Card{Rank: "K", Suit: cards.Spades})
	player.Add(cards.Card{Rank: "Q", Suit: cards.Hearts})
	dealer := &cards.Hand{}
	dealer.Add(cards.Card{Rank: "9", Suit: cards.Diamonds})
	dealer.Add(cards.Card{Rank: "7", Suit: cards.Clubs})

	svc.sessions[42] = &blackjackSession{id: "hand-1", wager: 100, player: player, dealer: dealer}
	svc.shoes[42] = stackShoe(svc.now(), "K") // dealer 16 -> 26, bust

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	user := &models.User{DiscordID: 42, Username: "gambler", Balance: 1000}
	mockUserRepo.On("GetByDiscordID", ctx, int64(42)).Return(user, nil)
	mockUserRepo.On("AddBalance", ctx, int64(42), int64(100)).Return(nil)
	mockBalanceHistoryRepo.On("Record", ctx, mock.Anything).Return(nil)

	state, err := svc.Stand(ctx, 42)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeDealerBust, state.Outcome)
	assert.Equal(t, int64(100), state.NetChange)
	assert.Equal(t, int64(1100), state.NewBalance)
	assert.GreaterOrEqual(t, state.DealerValue, 22)
	assert.NotContains(t, svc.sessions, int64(42))
}

func TestBlackjackService_Stand_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		playerRanks []string
		dealerRanks []string
		outcome     models.BlackjackOutcome
		netChange   int64
	}{
		{"player wins high", []string{"K", "Q"}, []string{"K", "8"}, models.OutcomeWin, 100},
		{"player loses low", []string{"K", "7"}, []string{"K", "9"}, models.OutcomeLoss, -100},
		{"equal totals push", []string{"K", "8"}, []string{"K", "8"}, models.OutcomePush, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, mockFactory, mockUoW, mockUserRepo, mockBalanceHistoryRepo := newBlackjackFixture(t)

			player := &cards.Hand{}
			for _, r := range tt.playerRanks {
				player.Add(cards.Card{Rank: r, Suit: cards.Spades})
			}
			dealer := &cards.Hand{}
			for _, r := range tt.dealerRanks {
				dealer.Add(cards.Card{Rank: r, Suit: cards.Hearts})
			}

			svc.sessions[42] = &blackjackSession{id: "hand-1", wager: 100, player: player, dealer: dealer}
			svc.shoes[42] = stackShoe(svc.now()) // dealer already >= 17

			mockFactory.On("Create").Return(mockUoW)
			mockUoW.On("Begin", ctx).Return(nil)
			mockUoW.On("Commit").Return(nil)
			mockUoW.On("Rollback").Return(nil)

			user := &models.User{DiscordID: 42, Username: "gambler", Balance: 1000}
			mockUserRepo.On("GetByDiscordID", ctx, int64(42)).Return(user, nil)
			mockUserRepo.On("AddBalance", ctx, int64(42), int64(100)).Return(nil).Maybe()
			mockUserRepo.On("UpdateBalance", ctx, int64(42), int64(900)).Return(nil).Maybe()
			mockBalanceHistoryRepo.On("Record", ctx, mock.Anything).Return(nil)

			state, err := svc.Stand(ctx, 42)
			require.NoError(t, err)

			assert.Equal(t, tt.outcome, state.Outcome)
			assert.Equal(t, tt.netChange, state.NetChange)
			assert.Equal(t, int64(1000)+tt.netChange, state.NewBalance)
			assert.NotContains(t, svc.sessions, int64(42))
		})
	}
}

func TestBlackjackService_PeekCount(t *testing.T) {
	ctx := context.Background()
	svc, mockFactory, mockUoW, mockUserRepo, mockBalanceHistoryRepo := newBlackjackFixture(t)

	svc.sessions[42] = &blackjackSession{id: "hand-1", wager: 100, player: &cards.Hand{}, dealer: &cards.Hand{}}

	// Draw three low cards so the running count is +3
	shoe := stackShoe(svc.now(), "2", "3", "4")
	shoe.Draw()
	shoe.Draw()
	shoe.Draw()
	svc.shoes[42] = shoe

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	user := &models.User{DiscordID: 42, Username: "gambler", Balance: 1000}
	mockUserRepo.On("GetByDiscordID", ctx, int64(42)).Return(user, nil)
	mockUserRepo.On("DeductBalance", ctx, int64(42), int64(10)).Return(nil)
	mockBalanceHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.ChangeAmount == -10 && h.TransactionType == models.TransactionTypeCountFee
	})).Return(nil)

	peek, err := svc.PeekCount(ctx, 42)
	require.NoError(t, err)

	assert.Equal(t, 3, peek.RunningCount)
	assert.Equal(t, int64(10), peek.Cost)
	assert.Equal(t, 20, peek.CardsRemaining)
	assert.Equal(t, int64(990), peek.NewBalance)

	// Second peek on the same hand is rejected
	_, err = svc.PeekCount(ctx, 42)
	assert.ErrorIs(t, err, ErrAlreadyPeeked)
}

func TestBlackjackService_PeekCount_MinimumCost(t *testing.T) {
	ctx := context.Background()
	svc, mockFactory, mockUoW, mockUserRepo, mockBalanceHistoryRepo := newBlackjackFixture(t)

	// 10% of a 5-coin wager rounds down to 0; the fee floors at 1
	svc.sessions[42] = &blackjackSession{id: "hand-1", wager: 5, player: &cards.Hand{}, dealer: &cards.Hand{}}
	svc.shoes[42] = stackShoe(svc.now())

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	user := &models.User{DiscordID: 42, Username: "gambler", Balance: 1000}
	mockUserRepo.On("GetByDiscordID", ctx, int64(42)).Return(user, nil)
	mockUserRepo.On("DeductBalance", ctx, int64(42), int64(1)).Return(nil)
	mockBalanceHistoryRepo.On("Record", ctx, mock.Anything).Return(nil)

	peek, err := svc.PeekCount(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), peek.Cost)
}

func TestBlackjackService_PeekCount_NoGame(t *testing.T) {
	svc, _, _, _, _ := newBlackjackFixture(t)

	_, err := svc.PeekCount(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNoActiveGame)
}

func TestBlackjackService_ShoeRefreshOnExpiry(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockLoanRepo := new(MockLoanRepository)
	mockBalanceHistoryRepo := new(MockBalanceHistoryRepository)
	mockUoW.SetRepositories(mockUserRepo, mockLoanRepo, mockBalanceHistoryRepo)

	svc := NewBlackjackService(mockFactory, rand.New(rand.NewSource(1)), func() time.Time { return clock }).(*blackjackService)

	// Shoe built over an hour ago must be replaced on the next deal
	svc.shoes[42] = cards.NewShoeFromCards(make([]cards.Card, 104), clock.Add(-2*time.Hour))

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	user := &models.User{DiscordID: 42, Username: "gambler", Balance: 1000}
	mockUserRepo.On("GetByDiscordID", ctx, int64(42)).Return(user, nil)
	mockUserRepo.On("AddBalance", ctx, int64(42), mock.Anything).Return(nil).Maybe()
	mockBalanceHistoryRepo.On("Record", ctx, mock.Anything).Return(nil).Maybe()

	state, err := svc.StartGame(ctx, 42, "gambler", 100)
	require.NoError(t, err)
	assert.True(t, state.Reshuffled)
}
