package bot

import (
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) registerCommands() error {
	minAmount := float64(1)

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "balance",
			Description: "Check your current gold balance",
		},
		{
			Name:        "roll",
			Description: "Wager gold on a high-low dice roll against the house",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Amount of gold to wager",
					Required:    true,
					MinValue:    &minAmount,
				},
			},
		},
		{
			Name:        "blackjack",
			Description: "Start a blackjack hand",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "wager",
					Description: "Amount of gold to wager",
					Required:    true,
					MinValue:    &minAmount,
				},
			},
		},
		{
			Name:        "hit",
			Description: "Draw another card in your blackjack hand",
		},
		{
			Name:        "stand",
			Description: "Stand and let the dealer play out the hand",
		},
		{
			Name:        "count",
			Description: "Buy the current card count for your blackjack hand",
		},
		{
			Name:        "loan",
			Description: "Take out a loan against your collateral",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Amount of gold to borrow",
					Required:    true,
					MinValue:    &minAmount,
				},
			},
		},
		{
			Name:        "loans",
			Description: "Check your outstanding loans",
		},
		{
			Name:        "payloan",
			Description: "Pay down your oldest outstanding loan",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Amount of gold to pay",
					Required:    true,
					MinValue:    &minAmount,
				},
			},
		},
		{
			Name:        "admin",
			Description: "Administrative commands",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "give",
					Description: "Credit gold to a player",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "Player to credit",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "Amount of gold to credit",
							Required:    true,
							MinValue:    &minAmount,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "setgold",
					Description: "Set a player's balance to an exact amount",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "Player whose balance to set",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "New balance",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "forgiveloan",
					Description: "Forgive all of a player's outstanding loans",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "Player whose loans to forgive",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "viewloans",
					Description: "List every outstanding loan",
				},
			},
		},
	}

	for _, cmd := range commands {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}

	return nil
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.Member == nil {
		b.respondWithError(s, i, "These commands only work in a server.")
		return
	}

	name := i.ApplicationCommandData().Name

	if !b.memberHasRole(i.Member, b.config.MemberRoleID) {
		b.respondWithError(s, i, "You don't have access to the economy commands.")
		return
	}

	if name == "admin" && !b.memberHasRole(i.Member, b.config.AdminRoleID) {
		b.respondWithError(s, i, "You don't have access to admin commands.")
		return
	}

	switch name {
	case "balance":
		b.handleBalance(s, i)
	case "roll":
		b.handleRoll(s, i)
	case "blackjack":
		b.handleBlackjack(s, i)
	case "hit":
		b.handleHit(s, i)
	case "stand":
		b.handleStand(s, i)
	case "count":
		b.handleCount(s, i)
	case "loan":
		b.handleLoan(s, i)
	case "loans":
		b.handleLoans(s, i)
	case "payloan":
		b.handlePayLoan(s, i)
	case "admin":
		b.handleAdmin(s, i)
	}
}

// memberHasRole reports whether the member carries the role. An empty
// role ID means the gate is disabled.
func (b *Bot) memberHasRole(member *discordgo.Member, roleID string) bool {
	if roleID == "" {
		return true
	}
	for _, r := range member.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// callerID parses the invoking member's Discord ID
func callerID(i *discordgo.InteractionCreate) (int64, error) {
	return strconv.ParseInt(i.Member.User.ID, 10, 64)
}

func (b *Bot) respondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Errorf("Error sending error response: %v", err)
	}
}

func (b *Bot) respondWithEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	if err != nil {
		log.Errorf("Error responding to %s command: %v", i.ApplicationCommandData().Name, err)
	}
}

// respondToServiceError maps known sentinel errors to a denial message,
// everything else to a generic failure. Internals never reach chat.
func (b *Bot) respondToServiceError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	if msg, ok := denialMessage(err); ok {
		b.respondWithError(s, i, msg)
		return
	}
	log.Errorf("Error handling %s command: %v", i.ApplicationCommandData().Name, err)
	b.respondWithError(s, i, "Something went wrong. Please try again.")
}
