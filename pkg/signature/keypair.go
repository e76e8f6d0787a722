package signature

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
)

var ErrMissingSecretPhrase = errors.New("secretPhrase not found in hotkey file")

// HotkeyPath returns <bittensorDir>/wallets/<coldkey>/hotkeys/<hotkey>.
func HotkeyPath(bittensorDir, coldkeyName, hotkeyName string) (string, error) {
	if bittensorDir == "" {
		bittensorDir = DefaultBittensorDir
	}
	if coldkeyName == "" {
		coldkeyName = DefaultWalletColdkey
	}
	if hotkeyName == "" {
		hotkeyName = DefaultWalletHotkey
	}

	if bittensorDir == "~" || strings.HasPrefix(bittensorDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		bittensorDir = filepath.Join(home, strings.TrimPrefix(bittensorDir, "~"))
	}
	return filepath.Join(bittensorDir, "wallets", coldkeyName, "hotkeys", hotkeyName), nil
}

func LoadMnemonic(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to read hotkey file")
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	var kf keyfile
	if err := sonic.Unmarshal(data, &kf); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to parse hotkey JSON")
		return "", fmt.Errorf("failed to parse JSON: %w", err)
	}
	if kf.SecretPhrase == "" {
		return "", ErrMissingSecretPhrase
	}
	return kf.SecretPhrase, nil
}

// LoadKeypairFromHotkey reads the mnemonic of a bittensor wallet hotkey and
// derives its sr25519 keypair.
func LoadKeypairFromHotkey(bittensorDir, coldkeyName, hotkeyName string) (*sr25519.Keypair, error) {
	path, err := HotkeyPath(bittensorDir, coldkeyName, hotkeyName)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", path).Str("hotkey_name", hotkeyName).Msg("Loading keypair from hotkey path")

	mnemonic, err := LoadMnemonic(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed phrase: %w", err)
	}

	keypair, err := sr25519.NewKeypairFromMnenomic(mnemonic, "")
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to create keypair from seed phrase")
		return nil, fmt.Errorf("failed to create keypair from seed phrase: %w", err)
	}

	return keypair, nil
}
