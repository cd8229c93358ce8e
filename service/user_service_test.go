package service

import (
	"context"
	"errors"
	"testing"

	"loanshark/config"
	"loanshark/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestUserService_GetOrCreateUser_ExistingUser(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockLoanRepo := new(MockLoanRepository)
	mockBalanceHistoryRepo := new(MockBalanceHistoryRepository)
	mockUoW.SetRepositories(mockUserRepo, mockLoanRepo, mockBalanceHistoryRepo)

	service := NewUserService(mockFactory)

	existingUser := &models.User{
		DiscordID: 123456,
		Username:  "testuser",
		Balance:   500,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetByDiscordID", ctx, int64(123456)).Return(existingUser, nil)

	user, err := service.GetOrCreateUser(ctx, 123456, "testuser")

	assert.NoError(t, err)
	assert.Equal(t, existingUser, user)

	mockFactory.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
	mockBalanceHistoryRepo.AssertNotCalled(t, "Record")
}

func TestUserService_GetOrCreateUser_NewUser(t *testing.T) {
	ctx := context.Background()
	startingBalance := config.Get().StartingBalance

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockLoanRepo := new(MockLoanRepository)
	mockBalanceHistoryRepo := new(MockBalanceHistoryRepository)
	mockUoW.SetRepositories(mockUserRepo, mockLoanRepo, mockBalanceHistoryRepo)

	service := NewUserService(mockFactory)

	newUser := &models.User{
		DiscordID: 123456,
		Username:  "newuser",
		Balance:   startingBalance,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetByDiscordID", ctx, int64(123456)).Return(nil, nil)
	mockUserRepo.On("Create", ctx, int64(123456), "newuser", startingBalance).Return(newUser, nil)

	mockBalanceHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.DiscordID == 123456 &&
			h.BalanceBefore == 0 &&
			h.BalanceAfter == startingBalance &&
			h.ChangeAmount == startingBalance &&
			h.TransactionType == models.TransactionTypeInitial
	})).Return(nil)

	user, err := service.GetOrCreateUser(ctx, 123456, "newuser")

	assert.NoError(t, err)
	assert.Equal(t, newUser, user)

	mockFactory.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
	mockBalanceHistoryRepo.AssertExpectations(t)
}

func TestUserService_GetOrCreateUser_RepositoryError(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockLoanRepo := new(MockLoanRepository)
	mockBalanceHistoryRepo := new(MockBalanceHistoryRepository)
	mockUoW.SetRepositories(mockUserRepo, mockLoanRepo, mockBalanceHistoryRepo)

	service := NewUserService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	dbErr := errors.New("connection refused")
	mockUserRepo.On("GetByDiscordID", ctx, int64(123456)).Return(nil, dbErr)

	user, err := service.GetOrCreateUser(ctx, 123456, "testuser")

	assert.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.Nil(t, user)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestUserService_AdminCredit(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockLoanRepo := new(MockLoanRepository)
	mockBalanceHistoryRepo := new(MockBalanceHistoryRepository)
	mockUoW.SetRepositories(mockUserRepo, mockLoanRepo, mockBalanceHistoryRepo)

	service := NewUserService(mockFactory)

	existingUser := &models.User{DiscordID: 42, Username: "gambler", Balance: 100}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetByDiscordID", ctx, int64(42)).Return(existingUser, nil)
	mockUserRepo.On("AddBalance", ctx, int64(42), int64(250)).Return(nil)

	mockBalanceHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.ChangeAmount == 250 &&
			h.BalanceAfter == 350 &&
			h.TransactionType == models.TransactionTypeAdminCredit
	})).Return(nil)

	user, err := service.AdminCredit(ctx, 42, "gambler", 250)

	assert.NoError(t, err)
	assert.Equal(t, int64(350), user.Balance)
	mockUserRepo.AssertExpectations(t)
}

func TestUserService_AdminCredit_InvalidAmount(t *testing.T) {
	service := NewUserService(new(MockUnitOfWorkFactory))

	_, err := service.AdminCredit(context.Background(), 42, "gambler", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = service.AdminCredit(context.Background(), 42, "gambler", -5)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestUserService_AdminSetBalance(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockLoanRepo := new(MockLoanRepository)
	mockBalanceHistoryRepo := new(MockBalanceHistoryRepository)
	mockUoW.SetRepositories(mockUserRepo, mockLoanRepo, mockBalanceHistoryRepo)

	service := NewUserService(mockFactory)

	existingUser := &models.User{DiscordID: 42, Username: "gambler", Balance: 900}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetByDiscordID", ctx, int64(42)).Return(existingUser, nil)
	mockUserRepo.On("UpdateBalance", ctx, int64(42), int64(100)).Return(nil)

	mockBalanceHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.BalanceBefore == 900 &&
			h.BalanceAfter == 100 &&
			h.ChangeAmount == -800 &&
			h.TransactionType == models.TransactionTypeAdminSet
	})).Return(nil)

	user, err := service.AdminSetBalance(ctx, 42, "gambler", 100)

	assert.NoError(t, err)
	assert.Equal(t, int64(100), user.Balance)
	mockUserRepo.AssertExpectations(t)
}
