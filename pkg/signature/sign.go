package signature

import (
	"encoding/hex"
	"fmt"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/rs/zerolog/log"
	"github.com/vedhavyas/go-subkey"
)

func NewProvider(keypair *sr25519.Keypair) (*Provider, error) {
	if keypair == nil {
		return nil, fmt.Errorf("keypair is nil")
	}
	return &Provider{
		keypair: keypair,
		hotkey:  ToSs58Address(keypair),
	}, nil
}

// Hotkey is the SS58 address of the signing key.
func (p *Provider) Hotkey() string {
	return p.hotkey
}

// Sign returns a 0x prefixed hex signature of message.
func (p *Provider) Sign(message string) (string, error) {
	if p.keypair == nil {
		return "", fmt.Errorf("private key not initialized")
	}

	signature, err := p.keypair.Sign([]byte(message))
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign message")
		return "", fmt.Errorf("failed to sign message: %w", err)
	}

	return "0x" + hex.EncodeToString(signature), nil
}

// BasicAuth returns the (hotkey, signature of hotkey) pair services use to
// authenticate a neuron.
func (p *Provider) BasicAuth() (string, string, error) {
	sig, err := p.Sign(p.hotkey)
	if err != nil {
		return "", "", err
	}
	return p.hotkey, sig, nil
}

func ToSs58Address(keypair *sr25519.Keypair) string {
	return subkey.SS58Encode(keypair.Public().Encode(), SubstrateNetworkId)
}
