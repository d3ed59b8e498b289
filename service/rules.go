package service

import (
	"fmt"

	"dicewager/config"
	"dicewager/models"
)

// WagerRules holds the stake constraints of new wagers
type WagerRules struct {
	StakeUnit int64
	MinStake  int64
	MaxStake  int64
}

// WagerRulesFromConfig reads the stake constraints from configuration
func WagerRulesFromConfig(cfg *config.Config) WagerRules {
	return WagerRules{
		StakeUnit: cfg.StakeUnit,
		MinStake:  cfg.MinStake,
		MaxStake:  cfg.MaxStake,
	}
}

// ValidateStake checks that stake is a positive multiple of the unit within [min, max]
func (r WagerRules) ValidateStake(stake int64) error {
	if stake <= 0 {
		return fmt.Errorf("%w: stake must be positive", models.ErrInvalidStake)
	}
	if r.StakeUnit > 0 && stake%r.StakeUnit != 0 {
		return fmt.Errorf("%w: stake must be a multiple of %d", models.ErrInvalidStake, r.StakeUnit)
	}
	if stake < r.MinStake || stake > r.MaxStake {
		return fmt.Errorf("%w: stake must be between %d and %d", models.ErrInvalidStake, r.MinStake, r.MaxStake)
	}
	return nil
}
