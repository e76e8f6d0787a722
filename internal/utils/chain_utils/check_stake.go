// Package chainutils holds metagraph and weight helpers shared by the neurons.
package chainutils

import "strings"

const (
	rootStakeWeight = 0.18

	devValidatorStake  = 1000
	prodValidatorStake = 10000
)

// CheckIfMiner reports whether the effective stake is below the validator
// threshold for the environment.
func CheckIfMiner(alphaStake, rootStake float64, environment string) bool {
	effectiveStake := alphaStake + rootStake*rootStakeWeight

	stakeFilter := float64(devValidatorStake)
	if strings.ToLower(environment) == "prod" {
		stakeFilter = prodValidatorStake
	}

	return effectiveStake < stakeFilter
}
