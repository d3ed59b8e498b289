package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"dicewager/service"
)

func wagerIDOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "id",
		Description: description,
		Required:    true,
	}
}

// commandDefinitions lists every slash command the bot serves
func commandDefinitions(rules service.WagerRules) []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "register",
			Description: "Join the game with another player's invite code",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "code",
					Description: "Invite code",
					Required:    true,
				},
			},
		},
		{
			Name:        "balance",
			Description: "Check your current balance",
		},
		{
			Name:        "invite",
			Description: "Show your invite code and earnings",
		},
		{
			Name:        "wager",
			Description: "Create and manage dice wagers",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "create",
					Description: "Open a wager and escrow your stake",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "stake",
							Description: "Stake, " + FormatStakeRule(rules),
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "join",
					Description: "Join an open wager",
					Options:     []*discordgo.ApplicationCommandOption{wagerIDOption("Wager ID to join")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "cancel",
					Description: "Cancel your wager before it is decided",
					Options:     []*discordgo.ApplicationCommandOption{wagerIDOption("Wager ID to cancel")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "open",
					Description: "List wagers waiting for an opponent",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List your active wagers",
				},
			},
		},
		{
			Name:        "roll",
			Description: "Throw your next die in a wager",
			Options:     []*discordgo.ApplicationCommandOption{wagerIDOption("Wager ID to roll in")},
		},
		{
			Name:        "history",
			Description: "Show your finished games",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "status",
					Description: "Only show games with this result",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "completed", Value: "completed"},
						{Name: "cancelled", Value: "cancelled"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "page",
					Description: "Page number",
				},
			},
		},
		{
			Name:        "exchange",
			Description: "Show the token exchange rate",
		},
		{
			Name:        "wallet",
			Description: "Link the wallet used for deposits and withdrawals",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "address",
					Description: "Wallet address (0x...)",
					Required:    true,
				},
			},
		},
		{
			Name:        "deposit",
			Description: "Claim tokens you sent to the bridge",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "tx",
					Description: "Transaction hash of your token transfer",
					Required:    true,
				},
			},
		},
		{
			Name:        "withdraw",
			Description: "Exchange game balance for tokens",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Amount of game balance to withdraw",
					Required:    true,
				},
			},
		},
		{
			Name:        "transfers",
			Description: "List your recent deposits and withdrawals",
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	for _, cmd := range commandDefinitions(b.config.Rules) {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}

	return nil
}
