package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"loanshark/models"

	"github.com/stretchr/testify/assert"
)

// TestEventDeliveryIntegration tests the complete event flow from TransactionalBus to main Bus
func TestEventDeliveryIntegration(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan BalanceChangeEvent, 1)
	var wg sync.WaitGroup
	wg.Add(1)

	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		defer wg.Done()
		if balanceEvent, ok := event.(BalanceChangeEvent); ok {
			select {
			case eventReceived <- balanceEvent:
			case <-time.After(1 * time.Second):
				t.Error("Timeout sending event to channel")
			}
		} else {
			t.Errorf("Expected BalanceChangeEvent, got %T", event)
		}
	})

	testEvent := BalanceChangeEvent{
		DiscordID:       123456,
		OldBalance:      1000,
		NewBalance:      1100,
		TransactionType: models.TransactionTypeRollWin,
		ChangeAmount:    100,
	}

	// Publish inside the "transaction", then flush as if it committed
	transactionalBus.Publish(testEvent)
	err := transactionalBus.Flush(context.Background())
	assert.NoError(t, err)

	wg.Wait()

	select {
	case receivedEvent := <-eventReceived:
		assert.Equal(t, testEvent, receivedEvent)
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

// TestMultipleEventsDelivery tests delivering multiple events in sequence
func TestMultipleEventsDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventsReceived := make(chan LoanSettledEvent, 3)
	var wg sync.WaitGroup
	wg.Add(3)

	mainBus.Subscribe(EventTypeLoanSettled, func(ctx context.Context, event Event) {
		defer wg.Done()
		if settled, ok := event.(LoanSettledEvent); ok {
			eventsReceived <- settled
		}
	})

	published := []LoanSettledEvent{
		{LoanID: 1, DiscordID: 11, PaymentMade: 25, NewLoanBalance: 500},
		{LoanID: 2, DiscordID: 22, PaymentMade: 31, NewLoanBalance: 969.5},
		{LoanID: 3, DiscordID: 33, PaymentMade: 40, NewLoanBalance: 0, FullyPaid: true},
	}
	for _, event := range published {
		transactionalBus.Publish(event)
	}

	err := transactionalBus.Flush(context.Background())
	assert.NoError(t, err)

	wg.Wait()

	// Handlers run concurrently, so collect by loan ID
	receivedLoans := make(map[int64]bool)
	for i := 0; i < 3; i++ {
		select {
		case event := <-eventsReceived:
			receivedLoans[event.LoanID] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("Only received %d out of 3 events", len(receivedLoans))
		}
	}

	assert.True(t, receivedLoans[1])
	assert.True(t, receivedLoans[2])
	assert.True(t, receivedLoans[3])
}

// TestTransactionalBusDiscard tests that discarded events are not delivered
func TestTransactionalBusDiscard(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan bool, 1)

	mainBus.Subscribe(EventTypeLoanPaymentMissed, func(ctx context.Context, event Event) {
		eventReceived <- true
	})

	transactionalBus.Publish(LoanPaymentMissedEvent{
		LoanID:         1,
		DiscordID:      123456,
		LateFee:        50,
		NewLoanBalance: 1050.5,
		MissedPayments: 1,
	})

	// Discard instead of flush, as a rollback would
	transactionalBus.Discard()

	select {
	case <-eventReceived:
		t.Fatal("Event was received despite being discarded")
	case <-time.After(100 * time.Millisecond):
		// Expected
	}
}
