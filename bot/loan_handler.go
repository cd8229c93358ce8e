package bot

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) handleLoan(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	discordID, err := callerID(i)
	if err != nil {
		log.Errorf("Error parsing Discord ID %s: %v", i.Member.User.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		b.respondWithError(s, i, "Please provide an amount to borrow.")
		return
	}
	amount := options[0].IntValue()

	loan, err := b.loanService.RequestLoan(ctx, discordID, i.Member.User.Username, amount)
	if err != nil {
		b.respondToServiceError(s, i, err)
		return
	}

	user, err := b.userService.GetOrCreateUser(ctx, discordID, i.Member.User.Username)
	if err != nil {
		log.Errorf("Error reading balance for user %d after loan: %v", discordID, err)
		b.respondWithError(s, i, "Loan approved, but the balance readout failed.")
		return
	}

	displayName := GetDisplayName(s, i.GuildID, i.Member.User.ID)
	b.respondWithEmbed(s, i, buildLoanOpenedEmbed(displayName, loan, user.Balance))
}

func (b *Bot) handleLoans(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	discordID, err := callerID(i)
	if err != nil {
		log.Errorf("Error parsing Discord ID %s: %v", i.Member.User.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	loans, err := b.loanService.GetStatus(ctx, discordID)
	if err != nil {
		b.respondToServiceError(s, i, err)
		return
	}

	displayName := GetDisplayName(s, i.GuildID, i.Member.User.ID)
	b.respondWithEmbed(s, i, buildLoanStatusEmbed(displayName, loans))
}

func (b *Bot) handlePayLoan(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	discordID, err := callerID(i)
	if err != nil {
		log.Errorf("Error parsing Discord ID %s: %v", i.Member.User.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		b.respondWithError(s, i, "Please provide an amount to pay.")
		return
	}
	amount := options[0].IntValue()

	result, err := b.loanService.MakePayment(ctx, discordID, amount)
	if err != nil {
		b.respondToServiceError(s, i, err)
		return
	}

	displayName := GetDisplayName(s, i.GuildID, i.Member.User.ID)
	b.respondWithEmbed(s, i, buildPaymentEmbed(displayName, result))
}

func (b *Bot) handleAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		b.respondWithError(s, i, "Missing subcommand.")
		return
	}

	switch options[0].Name {
	case "give":
		b.handleAdminGive(s, i, options[0].Options)
	case "setgold":
		b.handleAdminSetGold(s, i, options[0].Options)
	case "forgiveloan":
		b.handleAdminForgiveLoan(s, i, options[0].Options)
	case "viewloans":
		b.handleAdminViewLoans(s, i)
	}
}

// adminTarget extracts the user and amount options of an admin subcommand
func adminTarget(s *discordgo.Session, opts []*discordgo.ApplicationCommandInteractionDataOption) (*discordgo.User, int64) {
	var target *discordgo.User
	var amount int64
	for _, opt := range opts {
		switch opt.Name {
		case "user":
			target = opt.UserValue(s)
		case "amount":
			amount = opt.IntValue()
		}
	}
	return target, amount
}

func (b *Bot) handleAdminGive(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()

	target, amount := adminTarget(s, opts)
	if target == nil {
		b.respondWithError(s, i, "Invalid target user.")
		return
	}

	targetID, err := strconv.ParseInt(target.ID, 10, 64)
	if err != nil {
		log.Errorf("Error parsing target Discord ID %s: %v", target.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	user, err := b.userService.AdminCredit(ctx, targetID, target.Username, amount)
	if err != nil {
		b.respondToServiceError(s, i, err)
		return
	}

	targetName := GetDisplayName(s, i.GuildID, target.ID)
	message := fmt.Sprintf("💰 Credited **%s gold** to **%s**. New balance: **%s gold**",
		FormatBalance(amount), targetName, FormatBalance(user.Balance))
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: message},
	})
	if err != nil {
		log.Errorf("Error responding to admin give command: %v", err)
	}
}

func (b *Bot) handleAdminSetGold(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()

	target, amount := adminTarget(s, opts)
	if target == nil {
		b.respondWithError(s, i, "Invalid target user.")
		return
	}

	targetID, err := strconv.ParseInt(target.ID, 10, 64)
	if err != nil {
		log.Errorf("Error parsing target Discord ID %s: %v", target.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	user, err := b.userService.AdminSetBalance(ctx, targetID, target.Username, amount)
	if err != nil {
		b.respondToServiceError(s, i, err)
		return
	}

	targetName := GetDisplayName(s, i.GuildID, target.ID)
	message := fmt.Sprintf("💰 Set **%s**'s balance to **%s gold**", targetName, FormatBalance(user.Balance))
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: message},
	})
	if err != nil {
		log.Errorf("Error responding to admin setgold command: %v", err)
	}
}

func (b *Bot) handleAdminForgiveLoan(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()

	target, _ := adminTarget(s, opts)
	if target == nil {
		b.respondWithError(s, i, "Invalid target user.")
		return
	}

	targetID, err := strconv.ParseInt(target.ID, 10, 64)
	if err != nil {
		log.Errorf("Error parsing target Discord ID %s: %v", target.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	result, err := b.loanService.Forgive(ctx, targetID)
	if err != nil {
		b.respondToServiceError(s, i, err)
		return
	}

	targetName := GetDisplayName(s, i.GuildID, target.ID)
	var message string
	if result.LoansForgiven == 0 {
		message = fmt.Sprintf("**%s** has no outstanding loans to forgive.", targetName)
	} else {
		message = fmt.Sprintf("🕊️ Forgave **%d** loan(s) for **%s**, wiping **%.2f gold** of debt.",
			result.LoansForgiven, targetName, result.TotalForgiven)
	}
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: message},
	})
	if err != nil {
		log.Errorf("Error responding to admin forgiveloan command: %v", err)
	}
}

func (b *Bot) handleAdminViewLoans(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	loans, err := b.loanService.ListAllActive(ctx)
	if err != nil {
		b.respondToServiceError(s, i, err)
		return
	}

	b.respondWithEmbed(s, i, buildLoanBookEmbed(loans))
}
