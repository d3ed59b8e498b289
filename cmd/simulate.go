package cmd

import (
	"fmt"
	"io"
	"math"
	"strings"

	"dicewager/bot"
	"dicewager/models"
	"dicewager/service"
)

// SimulationReport summarizes many simulated wagers between two players
type SimulationReport struct {
	Trials       int
	Stake        int64
	CreatorWins  int
	OpponentWins int
	Ties         int
	Faces        [6]int
	// Net result of each player and the fees taken, in game units
	CreatorNet  int64
	OpponentNet int64
	FeesTaken   int64
}

// Simulate plays trials complete wagers with the given dice and settles them with the production fee rules
func Simulate(trials int, stake int64, dice bot.Dice) SimulationReport {
	report := SimulationReport{Trials: trials, Stake: stake}

	for i := 0; i < trials; i++ {
		creator := throwSequence(dice, &report)
		opponent := throwSequence(dice, &report)

		outcome := service.Settle(creator, opponent, stake)
		switch outcome.Kind {
		case models.OutcomeTie:
			report.Ties++
		case models.OutcomeCreatorWin:
			report.CreatorWins++
			report.CreatorNet += outcome.WinnerPayout - stake
			report.OpponentNet -= stake
		case models.OutcomeOpponentWin:
			report.OpponentWins++
			report.OpponentNet += outcome.WinnerPayout - stake
			report.CreatorNet -= stake
		}
		report.FeesTaken += outcome.InviterFee + outcome.ProjectFee
	}
	return report
}

func throwSequence(dice bot.Dice, report *SimulationReport) int {
	total := 0
	for i := 0; i < models.RollsPerPlayer; i++ {
		v := dice.Roll()
		if v >= 1 && v <= 6 {
			report.Faces[v-1]++
		}
		total += v
	}
	return total
}

// FaceChiSquared measures how far the face counts are from a uniform die
func (r SimulationReport) FaceChiSquared() float64 {
	var total int
	for _, c := range r.Faces {
		total += c
	}
	if total == 0 {
		return 0
	}
	expected := float64(total) / 6
	var chi float64
	for _, c := range r.Faces {
		chi += math.Pow(float64(c)-expected, 2) / expected
	}
	return chi
}

// WriteTo prints the report in a human readable form
func (r SimulationReport) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	pct := func(n int) float64 { return float64(n) / float64(max(r.Trials, 1)) * 100 }

	fmt.Fprintf(&sb, "=== Dice wager simulation: %d wagers at stake %d ===\n", r.Trials, r.Stake)
	fmt.Fprintf(&sb, "Creator wins:  %7d (%.2f%%)\n", r.CreatorWins, pct(r.CreatorWins))
	fmt.Fprintf(&sb, "Opponent wins: %7d (%.2f%%)\n", r.OpponentWins, pct(r.OpponentWins))
	fmt.Fprintf(&sb, "Ties:          %7d (%.2f%%)\n", r.Ties, pct(r.Ties))
	fmt.Fprintf(&sb, "\nExpected value per wager:\n")
	fmt.Fprintf(&sb, "  Creator:  %+.3f\n", float64(r.CreatorNet)/float64(max(r.Trials, 1)))
	fmt.Fprintf(&sb, "  Opponent: %+.3f\n", float64(r.OpponentNet)/float64(max(r.Trials, 1)))
	fmt.Fprintf(&sb, "  Fees:     %.3f\n", float64(r.FeesTaken)/float64(max(r.Trials, 1)))

	fmt.Fprintf(&sb, "\nFace distribution (chi-squared %.2f, 5 degrees of freedom):\n", r.FaceChiSquared())
	for i, c := range r.Faces {
		fmt.Fprintf(&sb, "  %d: %d\n", i+1, c)
	}

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}
