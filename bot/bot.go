package bot

import (
	"fmt"

	"loanshark/events"
	"loanshark/service"

	"github.com/bwmarrin/discordgo"
)

// Config holds bot configuration
type Config struct {
	Token         string
	GuildID       string
	MemberRoleID  string
	AdminRoleID   string
	LoanChannelID string
}

type Bot struct {
	config           Config
	session          *discordgo.Session
	userService      service.UserService
	diceService      service.DiceService
	blackjackService service.BlackjackService
	loanService      service.LoanService
	eventBus         *events.Bus
}

func New(config Config, userService service.UserService, diceService service.DiceService, blackjackService service.BlackjackService, loanService service.LoanService, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildMessages

	bot := &Bot{
		config:           config,
		session:          dg,
		userService:      userService,
		diceService:      diceService,
		blackjackService: blackjackService,
		loanService:      loanService,
		eventBus:         eventBus,
	}

	dg.AddHandler(bot.handleCommands)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	// Post settlement outcomes to the loan channel as they happen
	bot.subscribeLoanNotices()

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}
