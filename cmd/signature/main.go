// Command signature signs a message with the configured wallet hotkey, or
// verifies a signature when -verify is given.
package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/internal/config"
	"github.com/tensorplex-labs/fakenews/internal/utils/logger"
	"github.com/tensorplex-labs/fakenews/pkg/signature"
)

func main() {
	message := flag.String("message", "", "message to sign or verify, defaults to the hotkey address")
	verify := flag.String("verify", "", "0x signature to verify instead of signing")
	address := flag.String("address", "", "ss58 address of the signer when verifying")
	logger.Init()

	if *verify != "" {
		ok, err := signature.Verify(*message, *verify, *address)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to verify signature")
		}
		log.Info().Bool("valid", ok).Str("address", *address).Msg("Signature checked")
		return
	}

	wallet, err := config.LoadWalletEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load wallet configuration")
	}
	keypair, err := signature.LoadKeypairFromHotkey(wallet.BittensorDir, wallet.WalletColdkey, wallet.WalletHotkey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load hotkey")
	}
	provider, err := signature.NewProvider(keypair)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create signature provider")
	}

	msg := *message
	if msg == "" {
		msg = provider.Hotkey()
	}
	sig, err := provider.Sign(msg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign message")
	}
	log.Info().Str("hotkey", provider.Hotkey()).Str("message", msg).Str("signature", sig).Msg("Signed")
}
