package bot

import "math/rand/v2"

// Dice throws one six-sided die
type Dice interface {
	Roll() int
}

type randomDice struct{}

// NewRandomDice returns dice backed by the runtime's random source
func NewRandomDice() Dice {
	return randomDice{}
}

func (randomDice) Roll() int {
	return rand.IntN(6) + 1
}
