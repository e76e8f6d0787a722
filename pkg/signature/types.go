// Package signature signs and verifies messages with sr25519 hotkeys.
package signature

import "github.com/ChainSafe/gossamer/lib/crypto/sr25519"

const (
	SubstrateNetworkId = 42

	DefaultBittensorDir  = "~/.bittensor"
	DefaultWalletColdkey = "default"
	DefaultWalletHotkey  = "default"
)

type SignatureVerifier interface {
	// Verify checks if the provided signature is valid for the given message and SS58 address.
	Verify(message, signature, ss58Address string) (bool, error)
}

// Verifier is a concrete implementation of SignatureVerifier
type Verifier struct{}

type SignatureProvider interface {
	Sign(message string) (string, error)
	Hotkey() string
}

// Provider signs with a wallet hotkey.
type Provider struct {
	keypair *sr25519.Keypair
	hotkey  string
}

// keyfile is the subset of a bittensor hotkey file we read.
type keyfile struct {
	SecretPhrase string `json:"secretPhrase"`
	SS58Address  string `json:"ss58Address"`
}
