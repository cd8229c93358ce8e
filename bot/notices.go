package bot

import (
	"context"
	"fmt"

	"loanshark/events"

	log "github.com/sirupsen/logrus"
)

// subscribeLoanNotices posts settlement outcomes to the configured loan
// channel. No channel configured means no notices.
func (b *Bot) subscribeLoanNotices() {
	if b.config.LoanChannelID == "" {
		log.Info("Loan channel not configured; settlement notices disabled")
		return
	}

	b.eventBus.Subscribe(events.EventTypeLoanSettled, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.LoanSettledEvent)
		if !ok {
			return
		}
		var message string
		if e.FullyPaid {
			message = fmt.Sprintf("🏦 <@%d> made their final payment of **%s gold** — loan #%d is paid off!",
				e.DiscordID, FormatBalance(e.PaymentMade), e.LoanID)
		} else {
			message = fmt.Sprintf("🏦 Collected **%s gold** from <@%d> for loan #%d. Remaining: **%.2f gold**",
				FormatBalance(e.PaymentMade), e.DiscordID, e.LoanID, e.NewLoanBalance)
		}
		b.postLoanNotice(message)
	})

	b.eventBus.Subscribe(events.EventTypeLoanPaymentMissed, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.LoanPaymentMissedEvent)
		if !ok {
			return
		}
		b.postLoanNotice(fmt.Sprintf(
			"⚠️ <@%d> missed a payment on loan #%d. Late fee **%s gold** applied — debt now **%.2f gold** (%d missed).",
			e.DiscordID, e.LoanID, FormatBalance(e.LateFee), e.NewLoanBalance, e.MissedPayments))
	})

	b.eventBus.Subscribe(events.EventTypeLoanOpened, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.LoanOpenedEvent)
		if !ok {
			return
		}
		b.postLoanNotice(fmt.Sprintf("🏦 <@%d> took out a loan of **%s gold**. First payment due %s.",
			e.DiscordID, FormatBalance(e.Principal), e.DueDate))
	})
}

func (b *Bot) postLoanNotice(message string) {
	if _, err := b.session.ChannelMessageSend(b.config.LoanChannelID, message); err != nil {
		log.Errorf("Failed to post loan notice: %v", err)
	}
}
