package bot

import "dicewager/service"

var testRules = service.WagerRules{StakeUnit: 100, MinStake: 100, MaxStake: 1000}

type fixedDice struct {
	value int
}

func (d fixedDice) Roll() int {
	return d.value
}
