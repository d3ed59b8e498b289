package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicewager/bot"
)

// scriptedDice replays a fixed sequence of faces
type scriptedDice struct {
	faces []int
	next  int
}

func (d *scriptedDice) Roll() int {
	v := d.faces[d.next%len(d.faces)]
	d.next++
	return v
}

func TestSimulate_ConservesStakes(t *testing.T) {
	// creator throws 6,6,6 and opponent 1,1,1 every wager
	dice := &scriptedDice{faces: []int{6, 6, 6, 1, 1, 1}}

	report := Simulate(10, 200, dice)

	assert.Equal(t, 10, report.CreatorWins)
	assert.Zero(t, report.OpponentWins)
	assert.Zero(t, report.Ties)
	assert.Equal(t, int64(10*180), report.CreatorNet)
	assert.Equal(t, int64(-10*200), report.OpponentNet)
	assert.Equal(t, int64(10*20), report.FeesTaken)
	assert.Zero(t, report.CreatorNet+report.OpponentNet+report.FeesTaken)
	assert.Equal(t, [6]int{30, 0, 0, 0, 0, 30}, report.Faces)
}

func TestSimulate_Ties(t *testing.T) {
	dice := &scriptedDice{faces: []int{3}}

	report := Simulate(4, 1000, dice)

	assert.Equal(t, 4, report.Ties)
	assert.Zero(t, report.CreatorNet)
	assert.Zero(t, report.FeesTaken)
}

func TestSimulate_RandomDiceIsFair(t *testing.T) {
	report := Simulate(20000, 100, bot.NewRandomDice())

	assert.Equal(t, report.Trials, report.CreatorWins+report.OpponentWins+report.Ties)
	// 99.99th percentile of chi-squared with 5 degrees of freedom
	assert.Less(t, report.FaceChiSquared(), 25.7)
	assert.InDelta(t, report.CreatorWins, report.OpponentWins, float64(report.Trials)*0.05)

	var out bytes.Buffer
	_, err := report.WriteTo(&out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "20000 wagers at stake 100")
}
