package repository

import (
	"context"
	"testing"
	"time"

	"loanshark/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanRepository_Create(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	userRepo := NewUserRepository(testDB.DB)
	repo := NewLoanRepository(testDB.DB)
	ctx := context.Background()

	_, err := userRepo.Create(ctx, 123456, "borrower", 1000)
	require.NoError(t, err)

	t.Run("successful creation", func(t *testing.T) {
		loan := testutil.CreateTestLoan(123456, 500)

		err := repo.Create(ctx, loan)
		require.NoError(t, err)

		assert.NotZero(t, loan.ID)
		assert.False(t, loan.CreatedAt.IsZero())
		assert.Equal(t, 0, loan.MissedPayments)
	})

	t.Run("unknown borrower is rejected", func(t *testing.T) {
		loan := testutil.CreateTestLoan(999999, 500)

		err := repo.Create(ctx, loan)
		assert.Error(t, err)
	})
}

func TestLoanRepository_GetActiveByUser(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	userRepo := NewUserRepository(testDB.DB)
	repo := NewLoanRepository(testDB.DB)
	ctx := context.Background()

	_, err := userRepo.Create(ctx, 123456, "borrower", 1000)
	require.NoError(t, err)
	_, err = userRepo.Create(ctx, 789012, "other", 1000)
	require.NoError(t, err)

	t.Run("no loans", func(t *testing.T) {
		loans, err := repo.GetActiveByUser(ctx, 123456)
		require.NoError(t, err)
		assert.Empty(t, loans)
	})

	t.Run("oldest first, settled loans excluded", func(t *testing.T) {
		first := testutil.CreateTestLoan(123456, 300)
		require.NoError(t, repo.Create(ctx, first))

		second := testutil.CreateTestLoan(123456, 700)
		require.NoError(t, repo.Create(ctx, second))

		settled := testutil.CreateTestLoanWithBalance(123456, 200, 0)
		require.NoError(t, repo.Create(ctx, settled))

		otherUsers := testutil.CreateTestLoan(789012, 400)
		require.NoError(t, repo.Create(ctx, otherUsers))

		loans, err := repo.GetActiveByUser(ctx, 123456)
		require.NoError(t, err)
		require.Len(t, loans, 2)

		assert.Equal(t, first.ID, loans[0].ID)
		assert.Equal(t, second.ID, loans[1].ID)
		assert.Equal(t, float64(300), loans[0].CurrentBalance)
	})
}

func TestLoanRepository_GetAllActive(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	userRepo := NewUserRepository(testDB.DB)
	repo := NewLoanRepository(testDB.DB)
	ctx := context.Background()

	_, err := userRepo.Create(ctx, 111111, "user1", 1000)
	require.NoError(t, err)
	_, err = userRepo.Create(ctx, 222222, "user2", 1000)
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, testutil.CreateTestLoan(111111, 300)))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestLoan(222222, 500)))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestLoanWithBalance(222222, 400, 0)))

	loans, err := repo.GetAllActive(ctx)
	require.NoError(t, err)
	assert.Len(t, loans, 2)
}

func TestLoanRepository_GetAllActiveWithUsers(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	userRepo := NewUserRepository(testDB.DB)
	repo := NewLoanRepository(testDB.DB)
	ctx := context.Background()

	_, err := userRepo.Create(ctx, 111111, "smalldebt", 2500)
	require.NoError(t, err)
	_, err = userRepo.Create(ctx, 222222, "bigdebt", 100)
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, testutil.CreateTestLoan(111111, 300)))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestLoan(222222, 5000)))

	loans, err := repo.GetAllActiveWithUsers(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 2)

	// Largest outstanding balance first
	assert.Equal(t, "bigdebt", loans[0].Username)
	assert.Equal(t, int64(100), loans[0].UserBalance)
	assert.Equal(t, float64(5000), loans[0].CurrentBalance)
	assert.Equal(t, "smalldebt", loans[1].Username)
}

func TestLoanRepository_RecordPayment(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	userRepo := NewUserRepository(testDB.DB)
	repo := NewLoanRepository(testDB.DB)
	ctx := context.Background()

	_, err := userRepo.Create(ctx, 123456, "borrower", 1000)
	require.NoError(t, err)

	t.Run("updates balance and resets missed payments", func(t *testing.T) {
		loan := testutil.CreateTestLoan(123456, 1000)
		require.NoError(t, repo.Create(ctx, loan))

		// Simulate a prior missed payment
		nextDue := loan.NextPaymentDue.Add(24 * time.Hour)
		require.NoError(t, repo.ApplySettlement(ctx, loan.ID, 1050.5, 1, nextDue))

		paidAt := time.Now().UTC()
		newDue := nextDue.Add(24 * time.Hour)
		err := repo.RecordPayment(ctx, loan.ID, 969.5, paidAt, newDue)
		require.NoError(t, err)

		loans, err := repo.GetActiveByUser(ctx, 123456)
		require.NoError(t, err)
		require.Len(t, loans, 1)

		assert.Equal(t, 969.5, loans[0].CurrentBalance)
		assert.Equal(t, 0, loans[0].MissedPayments)
		require.NotNil(t, loans[0].LastPaymentDate)
		assert.WithinDuration(t, paidAt, *loans[0].LastPaymentDate, time.Second)
		assert.WithinDuration(t, newDue, loans[0].NextPaymentDue, time.Second)
	})

	t.Run("loan not found", func(t *testing.T) {
		err := repo.RecordPayment(ctx, 999999, 100, time.Now(), time.Now())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestLoanRepository_ApplySettlement(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	userRepo := NewUserRepository(testDB.DB)
	repo := NewLoanRepository(testDB.DB)
	ctx := context.Background()

	_, err := userRepo.Create(ctx, 123456, "borrower", 1000)
	require.NoError(t, err)

	t.Run("writes balance, missed count, and due date", func(t *testing.T) {
		loan := testutil.CreateTestLoan(123456, 1000)
		require.NoError(t, repo.Create(ctx, loan))

		nextDue := loan.NextPaymentDue.Add(24 * time.Hour)
		err := repo.ApplySettlement(ctx, loan.ID, 1050.5, 2, nextDue)
		require.NoError(t, err)

		loans, err := repo.GetActiveByUser(ctx, 123456)
		require.NoError(t, err)
		require.Len(t, loans, 1)

		assert.Equal(t, 1050.5, loans[0].CurrentBalance)
		assert.Equal(t, 2, loans[0].MissedPayments)
		assert.WithinDuration(t, nextDue, loans[0].NextPaymentDue, time.Second)
		assert.Nil(t, loans[0].LastPaymentDate)
	})

	t.Run("loan not found", func(t *testing.T) {
		err := repo.ApplySettlement(ctx, 999999, 100, 1, time.Now())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestLoanRepository_ForgiveByUser(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	userRepo := NewUserRepository(testDB.DB)
	repo := NewLoanRepository(testDB.DB)
	ctx := context.Background()

	_, err := userRepo.Create(ctx, 123456, "borrower", 1000)
	require.NoError(t, err)
	_, err = userRepo.Create(ctx, 789012, "untouched", 1000)
	require.NoError(t, err)

	t.Run("no active loans", func(t *testing.T) {
		count, total, err := repo.ForgiveByUser(ctx, 123456)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.Equal(t, float64(0), total)
	})

	t.Run("zeroes all open loans but keeps the rows", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, testutil.CreateTestLoanWithBalance(123456, 1000, 1050.5)))
		require.NoError(t, repo.Create(ctx, testutil.CreateTestLoan(123456, 200)))
		require.NoError(t, repo.Create(ctx, testutil.CreateTestLoan(789012, 400)))

		count, total, err := repo.ForgiveByUser(ctx, 123456)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, 1250.5, total)

		// Nothing active left for the forgiven user
		loans, err := repo.GetActiveByUser(ctx, 123456)
		require.NoError(t, err)
		assert.Empty(t, loans)

		// Rows persist with zeroed balances
		var rowCount int
		err = testDB.DB.Pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM loans WHERE discord_id = $1`, int64(123456)).Scan(&rowCount)
		require.NoError(t, err)
		assert.Equal(t, 2, rowCount)

		// Other users' loans are untouched
		otherLoans, err := repo.GetActiveByUser(ctx, 789012)
		require.NoError(t, err)
		assert.Len(t, otherLoans, 1)
	})
}
