package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// DMNotifier delivers notifications as direct messages
type DMNotifier struct {
	session *discordgo.Session
	skip    map[int64]bool
}

// NewDMNotifier creates a notifier. Accounts in skip, such as the house, never receive messages.
func NewDMNotifier(session *discordgo.Session, skip ...int64) *DMNotifier {
	n := &DMNotifier{session: session, skip: make(map[int64]bool)}
	for _, id := range skip {
		n.skip[id] = true
	}
	return n
}

// Notify sends message to the account's DM channel
func (n *DMNotifier) Notify(ctx context.Context, accountID int64, message string) error {
	if n.skip[accountID] {
		return nil
	}

	channel, err := n.session.UserChannelCreate(strconv.FormatInt(accountID, 10), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel with %d: %w", accountID, err)
	}
	if _, err := n.session.ChannelMessageSend(channel.ID, message, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send DM to %d: %w", accountID, err)
	}
	return nil
}
