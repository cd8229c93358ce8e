package bot

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) handleBlackjack(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	discordID, err := callerID(i)
	if err != nil {
		log.Errorf("Error parsing Discord ID %s: %v", i.Member.User.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		b.respondWithError(s, i, "Please provide a wager.")
		return
	}
	wager := options[0].IntValue()

	state, err := b.blackjackService.StartGame(ctx, discordID, i.Member.User.Username, wager)
	if err != nil {
		b.respondToServiceError(s, i, err)
		return
	}

	b.respondWithEmbed(s, i, buildBlackjackEmbed(state))
}

func (b *Bot) handleHit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	discordID, err := callerID(i)
	if err != nil {
		log.Errorf("Error parsing Discord ID %s: %v", i.Member.User.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	state, err := b.blackjackService.Hit(ctx, discordID)
	if err != nil {
		b.respondToServiceError(s, i, err)
		return
	}

	b.respondWithEmbed(s, i, buildBlackjackEmbed(state))
}

func (b *Bot) handleStand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	discordID, err := callerID(i)
	if err != nil {
		log.Errorf("Error parsing Discord ID %s: %v", i.Member.User.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	state, err := b.blackjackService.Stand(ctx, discordID)
	if err != nil {
		b.respondToServiceError(s, i, err)
		return
	}

	b.respondWithEmbed(s, i, buildBlackjackEmbed(state))
}

func (b *Bot) handleCount(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	discordID, err := callerID(i)
	if err != nil {
		log.Errorf("Error parsing Discord ID %s: %v", i.Member.User.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	peek, err := b.blackjackService.PeekCount(ctx, discordID)
	if err != nil {
		b.respondToServiceError(s, i, err)
		return
	}

	// The count is paid information; keep it between us
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{buildCountEmbed(peek)},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Errorf("Error responding to count command: %v", err)
	}
}
