package bot

import (
	"errors"
	"fmt"
	"strings"

	"loanshark/models"
	"loanshark/service"

	"github.com/bwmarrin/discordgo"
)

// Discord color constants
const (
	ColorPrimary = 0x5865F2 // Discord blurple
	ColorSuccess = 0x57F287 // Green
	ColorDanger  = 0xED4245 // Red
	ColorWarning = 0xFEE75C // Yellow
)

// denialMessage maps a sentinel error to the exact denial text the user
// sees. Unknown errors return false and get the generic failure line.
func denialMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		return "Amount must be a positive number.", true
	case errors.Is(err, service.ErrInsufficientFunds):
		return "You don't have enough gold for that.", true
	case errors.Is(err, service.ErrGameAlreadyActive):
		return "You already have a blackjack hand in progress. Finish it with /hit or /stand.", true
	case errors.Is(err, service.ErrNoActiveGame):
		return "You don't have a blackjack hand in progress. Start one with /blackjack.", true
	case errors.Is(err, service.ErrGameFinished):
		return "That hand is already over.", true
	case errors.Is(err, service.ErrAlreadyPeeked):
		return "You've already bought the count for this hand.", true
	case errors.Is(err, service.ErrExistingDebt):
		return "You already have an outstanding loan. Pay it off before taking another.", true
	case errors.Is(err, service.ErrInsufficientCollateral):
		return "You need gold on hand worth at least 10% of the loan amount.", true
	case errors.Is(err, service.ErrNoDebt):
		return "You don't have any outstanding loans.", true
	}
	return "", false
}

func buildRollEmbed(displayName string, result *models.RollResult) *discordgo.MessageEmbed {
	rolls := fmt.Sprintf("You rolled **%d** — the house rolled **%d**", result.PlayerRoll, result.HouseRoll)

	if result.Won {
		return &discordgo.MessageEmbed{
			Title:       "🎲 Roll — You Win!",
			Description: fmt.Sprintf("%s\n\n%s won **%s gold**. New balance: **%s gold**", rolls, displayName, FormatBalance(result.BetAmount), FormatBalance(result.NewBalance)),
			Color:       ColorSuccess,
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🎲 Roll — House Wins",
		Description: fmt.Sprintf("%s\n\n%s lost **%s gold**. New balance: **%s gold**", rolls, displayName, FormatBalance(result.BetAmount), FormatBalance(result.NewBalance)),
		Color:       ColorDanger,
	}
	if result.PlayerRoll == result.HouseRoll {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Ties go to the house."}
	}
	return embed
}

func buildBlackjackEmbed(state *models.BlackjackState) *discordgo.MessageEmbed {
	var title, outcome string
	color := ColorPrimary

	switch state.Outcome {
	case models.OutcomeInProgress:
		title = "🂡 Blackjack"
		outcome = "Hit, stand, or buy the count."
	case models.OutcomeNatural:
		title = "🂡 Blackjack — Natural 21!"
		outcome = fmt.Sprintf("Blackjack pays 3:2 — you win **%s gold**.", FormatBalance(state.NetChange))
		color = ColorSuccess
	case models.OutcomePush:
		title = "🂡 Blackjack — Push"
		outcome = "Stand-off. Your wager is returned."
		color = ColorWarning
	case models.OutcomeWin:
		title = "🂡 Blackjack — You Win!"
		outcome = fmt.Sprintf("You win **%s gold**.", FormatBalance(state.NetChange))
		color = ColorSuccess
	case models.OutcomeDealerBust:
		title = "🂡 Blackjack — Dealer Busts!"
		outcome = fmt.Sprintf("Dealer busts — you win **%s gold**.", FormatBalance(state.NetChange))
		color = ColorSuccess
	case models.OutcomeLoss:
		title = "🂡 Blackjack — Dealer Wins"
		outcome = fmt.Sprintf("You lose **%s gold**.", FormatBalance(-state.NetChange))
		color = ColorDanger
	case models.OutcomeBust:
		title = "🂡 Blackjack — Bust"
		outcome = fmt.Sprintf("Over 21 — you lose **%s gold**.", FormatBalance(-state.NetChange))
		color = ColorDanger
	}

	dealerName := "Dealer"
	if state.DealerHidden {
		dealerName = "Dealer (showing)"
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   fmt.Sprintf("Your hand (%d)", state.PlayerValue),
			Value:  state.PlayerHand,
			Inline: true,
		},
		{
			Name:   dealerHeader(dealerName, state),
			Value:  state.DealerHand,
			Inline: true,
		},
	}

	if state.Outcome.Resolved() {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Balance",
			Value:  fmt.Sprintf("**%s gold**", FormatBalance(state.NewBalance)),
			Inline: false,
		})
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: outcome,
		Color:       color,
		Fields:      fields,
	}
	if state.Reshuffled {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "♻️ The shoe was reshuffled."}
	}
	return embed
}

func dealerHeader(name string, state *models.BlackjackState) string {
	if state.DealerHidden {
		return name
	}
	return fmt.Sprintf("%s (%d)", name, state.DealerValue)
}

func buildCountEmbed(peek *models.CountPeek) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "🔢 Card Count",
		Description: fmt.Sprintf(
			"Running count: **%+d**\nTrue count: **%+.1f**\nCards remaining: **%d**",
			peek.RunningCount, peek.TrueCount, peek.CardsRemaining),
		Color: ColorPrimary,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Cost: %s gold • Balance: %s gold", FormatBalance(peek.Cost), FormatBalance(peek.NewBalance)),
		},
	}
}

func buildLoanOpenedEmbed(displayName string, loan *models.Loan, newBalance int64) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "🏦 Loan Approved",
		Description: fmt.Sprintf("%s borrowed **%s gold**. New balance: **%s gold**",
			displayName, FormatBalance(loan.Principal), FormatBalance(newBalance)),
		Color: ColorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Terms",
				Value: fmt.Sprintf("• Daily interest: %.2f%%\n• First payment due: %s\n• Minimum payment: **%s gold**",
					loan.DailyInterestRate*100,
					FormatDiscordTimestamp(loan.NextPaymentDue, "F"),
					FormatBalance(loan.MinimumPayment())),
				Inline: false,
			},
		},
	}
}

func buildLoanStatusEmbed(displayName string, loans []*models.Loan) *discordgo.MessageEmbed {
	if len(loans) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "🏦 Loan Status",
			Description: fmt.Sprintf("%s has no outstanding loans. 🎉", displayName),
			Color:       ColorSuccess,
		}
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(loans))
	for _, loan := range loans {
		value := fmt.Sprintf("• Owed: **%.2f gold** (borrowed %s)\n• Minimum payment: **%s gold**\n• Next payment: %s",
			loan.CurrentBalance,
			FormatBalance(loan.Principal),
			FormatBalance(loan.MinimumPayment()),
			FormatDiscordTimestamp(loan.NextPaymentDue, "R"))
		if loan.MissedPayments > 0 {
			value += fmt.Sprintf("\n• ⚠️ Missed payments: **%d**", loan.MissedPayments)
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("Loan #%d", loan.ID),
			Value:  value,
			Inline: false,
		})
	}

	return &discordgo.MessageEmbed{
		Title:       "🏦 Loan Status",
		Description: fmt.Sprintf("Outstanding loans for %s:", displayName),
		Color:       ColorWarning,
		Fields:      fields,
	}
}

func buildPaymentEmbed(displayName string, result *models.PaymentResult) *discordgo.MessageEmbed {
	if result.FullyPaid {
		return &discordgo.MessageEmbed{
			Title: "🏦 Loan Paid Off!",
			Description: fmt.Sprintf("%s paid **%s gold** and cleared loan #%d. Balance: **%s gold**",
				displayName, FormatBalance(result.AmountPaid), result.LoanID, FormatBalance(result.NewBalance)),
			Color: ColorSuccess,
		}
	}

	return &discordgo.MessageEmbed{
		Title: "🏦 Payment Received",
		Description: fmt.Sprintf("%s paid **%s gold** toward loan #%d.\nRemaining debt: **%.2f gold** • Balance: **%s gold**",
			displayName, FormatBalance(result.AmountPaid), result.LoanID,
			result.RemainingDebt, FormatBalance(result.NewBalance)),
		Color: ColorPrimary,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Next payment due " + result.NextPaymentDue.UTC().Format("Jan 2 15:04 MST"),
		},
	}
}

func buildLoanBookEmbed(loans []*models.LoanWithUser) *discordgo.MessageEmbed {
	if len(loans) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "🏦 Loan Book",
			Description: "No outstanding loans.",
			Color:       ColorSuccess,
		}
	}

	var sb strings.Builder
	var total float64
	for _, loan := range loans {
		total += loan.CurrentBalance
		line := fmt.Sprintf("**%s** — owes **%.2f gold** (holds %s gold", loan.Username, loan.CurrentBalance, FormatBalance(loan.UserBalance))
		if loan.MissedPayments > 0 {
			line += fmt.Sprintf(", %d missed", loan.MissedPayments)
		}
		sb.WriteString(line + ")\n")
	}

	return &discordgo.MessageEmbed{
		Title:       "🏦 Loan Book",
		Description: sb.String(),
		Color:       ColorWarning,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d loans • %.2f gold outstanding", len(loans), total),
		},
	}
}
