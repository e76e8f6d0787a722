package kami

// UIDByHotkey returns the uid registered to hotkey.
func UIDByHotkey(metagraph *SubnetMetagraph, hotkey string) (int, bool) {
	for uid, currHotkey := range metagraph.Hotkeys {
		if currHotkey == hotkey {
			return uid, true
		}
	}
	return 0, false
}

func GetHotkey(k *Kami) (string, error) {
	keyringPair, err := k.GetKeyringPair()
	if err != nil {
		return "", err
	}
	return keyringPair.Data.KeyringPair.Address, nil
}
