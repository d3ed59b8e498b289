package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"dicewager/service"
)

const commandTimeout = 30 * time.Second

// Config holds bot configuration
type Config struct {
	Token   string
	GuildID string
	Rules   service.WagerRules
}

// privateCommands reply only to the invoking user
var privateCommands = map[string]bool{
	"register":  true,
	"balance":   true,
	"invite":    true,
	"history":   true,
	"wallet":    true,
	"deposit":   true,
	"withdraw":  true,
	"transfers": true,
}

type Bot struct {
	config  Config
	session *discordgo.Session
	router  *commandRouter
	limiter *CommandLimiter
}

// NewSession creates the Discord session without connecting it
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsDirectMessages
	return dg, nil
}

// New connects the session and registers the slash commands
func New(config Config, session *discordgo.Session, services Services, limiter *CommandLimiter, dice Dice) (*Bot, error) {
	bot := &Bot{
		config:  config,
		session: session,
		router:  newCommandRouter(services, dice, config.Rules),
		limiter: limiter,
	}

	session.AddHandler(bot.handleCommands)

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	if err := bot.registerCommands(); err != nil {
		session.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	log.WithField("guild_id", config.GuildID).Info("Discord bot connected")
	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// interactionUser returns the invoking user for guild and DM interactions
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	user := interactionUser(i)
	if user == nil {
		return
	}
	userID, err := strconv.ParseInt(user.ID, 10, 64)
	if err != nil {
		log.WithError(err).WithField("user_id", user.ID).Error("Invalid Discord user ID")
		return
	}

	if !b.limiter.Allow(userID, data.Name) {
		b.respondWithError(s, i, "You're sending commands too quickly. Please wait a moment.")
		return
	}

	var flags discordgo.MessageFlags
	if privateCommands[data.Name] {
		flags = discordgo.MessageFlagsEphemeral
	}
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
	if err != nil {
		log.WithError(err).WithField("command", data.Name).Error("Failed to defer interaction")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	reply, err := b.router.execute(ctx, invocation{userID: userID, username: user.Username, data: data})
	if err != nil {
		if !service.IsUserError(err) {
			log.WithFields(log.Fields{
				"command": data.Name,
				"user_id": userID,
				"error":   err,
			}).Error("Command failed")
		}
		b.followUpWithError(s, i, b.router.errorMessage(err))
		return
	}

	if _, err := s.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
		Content: reply,
		Flags:   flags,
	}); err != nil {
		log.WithError(err).WithField("command", data.Name).Error("Failed to send command reply")
	}
}

// respondWithError sends an ephemeral error response to an interaction
func (b *Bot) respondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("❌ %s", message),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("Error responding with error message: %v", err)
	}
}

// followUpWithError sends an error message as a follow-up to a deferred interaction
func (b *Bot) followUpWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	_, err := s.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
		Content: fmt.Sprintf("❌ %s", message),
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		log.Printf("Error sending follow-up error message: %v", err)
	}
}
