package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicewager/service"
)

func TestCommandDefinitions_HaveHandlers(t *testing.T) {
	router := newCommandRouter(Services{}, NewRandomDice(), testRules)
	names := make(map[string]bool)

	for _, cmd := range commandDefinitions(testRules) {
		assert.False(t, names[cmd.Name], "duplicate command %s", cmd.Name)
		names[cmd.Name] = true
		assert.Contains(t, router.handlers, cmd.Name)
		assert.NotEmpty(t, cmd.Description)
	}
	assert.Len(t, router.handlers, len(names))
}

func TestCommandDefinitions_StakeDescriptionFollowsRules(t *testing.T) {
	rules := service.WagerRules{StakeUnit: 50, MinStake: 50, MaxStake: 5000}

	var stake *discordgo.ApplicationCommandOption
	for _, cmd := range commandDefinitions(rules) {
		if cmd.Name != "wager" {
			continue
		}
		for _, sub := range cmd.Options {
			if sub.Name == "create" {
				stake = sub.Options[0]
			}
		}
	}
	require.NotNil(t, stake)
	assert.Equal(t, "Stake, a multiple of 50 between 50 and 5,000", stake.Description)
}
