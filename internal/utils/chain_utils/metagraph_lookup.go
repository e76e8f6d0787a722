package chainutils

import (
	"github.com/tensorplex-labs/fakenews/internal/kami"
)

// IsServing reports whether uid has announced a reachable axon.
func IsServing(metagraph *kami.SubnetMetagraph, uid int) bool {
	if uid >= len(metagraph.Axons) {
		return false
	}
	axon := metagraph.Axons[uid]
	return axon.Port != 0 && axon.IP != "" && axon.IP != "0.0.0.0"
}

// AvailableMinerUIDs lists uids that serve an axon, are not staked like a
// validator and do not belong to excludeHotkey.
func AvailableMinerUIDs(metagraph *kami.SubnetMetagraph, excludeHotkey, environment string) []int64 {
	uids := make([]int64, 0, len(metagraph.Hotkeys))
	for uid, hotkey := range metagraph.Hotkeys {
		if hotkey == excludeHotkey || !IsServing(metagraph, uid) {
			continue
		}
		if !CheckIfMiner(valueAt(metagraph.AlphaStake, uid), valueAt(metagraph.TaoStake, uid), environment) {
			continue
		}
		uids = append(uids, int64(uid))
	}
	return uids
}

func valueAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}
