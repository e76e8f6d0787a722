package synapse

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/pkg/signature"
)

// ZstdMiddleware decompresses zstd request bodies and compresses responses for
// clients that accept zstd.
func ZstdMiddleware(whitelistedRoutes []string) fiber.Handler {
	decoder, decErr := zstd.NewReader(nil)
	encoder, encErr := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))

	return func(c *fiber.Ctx) error {
		if slices.Contains(whitelistedRoutes, c.Path()) {
			return c.Next()
		}

		if strings.EqualFold(c.Get(fiber.HeaderContentEncoding), "zstd") {
			if decErr != nil {
				log.Error().Err(decErr).Msg("zstd: decoder unavailable")
				return c.Status(fiber.StatusInternalServerError).
					JSON(createResponse(map[string]any{}, decErr))
			}
			// raw body, fiber cannot decode zstd itself
			decompressed, err := decoder.DecodeAll(c.Request().Body(), nil)
			if err != nil {
				log.Err(err).Msg("Failed to decompress request")
				return c.Status(fiber.StatusBadRequest).JSON(
					createResponse(map[string]any{}, fmt.Errorf("failed to decompress zstd data: %w", err)))
			}
			c.Request().SetBody(decompressed)
			c.Request().Header.Del(fiber.HeaderContentEncoding)
			c.Request().Header.Set(fiber.HeaderContentLength, strconv.Itoa(len(decompressed)))
		}

		if err := c.Next(); err != nil {
			return err
		}

		if encErr != nil || !strings.Contains(strings.ToLower(c.Get(fiber.HeaderAcceptEncoding)), "zstd") {
			return nil
		}
		responseBody := c.Response().Body()
		if len(responseBody) == 0 {
			return nil
		}
		compressed := encoder.EncodeAll(responseBody, nil)
		c.Response().SetBody(compressed)
		c.Set(fiber.HeaderContentEncoding, "zstd")
		c.Set(fiber.HeaderVary, fiber.HeaderAcceptEncoding)

		log.Trace().
			Int("original_size", len(responseBody)).
			Int("compressed_size", len(compressed)).
			Msg("Response body compressed")
		return nil
	}
}

// SignatureMiddleware rejects requests whose x-signature does not sign
// AuthMessage(x-hotkey, x-timestamp) with the x-hotkey key.
func SignatureMiddleware(verifier signature.SignatureVerifier, whitelistedRoutes []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if slices.Contains(whitelistedRoutes, c.Path()) {
			return c.Next()
		}

		sig := c.Get(SignatureHeader)
		hotkey := c.Get(HotkeyHeader)
		timestamp := c.Get(TimestampHeader)
		if sig == "" || hotkey == "" || timestamp == "" {
			log.Warn().
				Bool("missing_sig", sig == "").
				Bool("missing_hotkey", hotkey == "").
				Bool("missing_timestamp", timestamp == "").
				Msg("Missing signature headers")
			return c.Status(fiber.StatusBadRequest).JSON(createResponse(map[string]any{},
				fmt.Errorf("%s, missing headers, expected: %s, %s, %s",
					http.StatusText(http.StatusBadRequest), SignatureHeader, HotkeyHeader, TimestampHeader)))
		}

		valid, err := verifier.Verify(AuthMessage(hotkey, timestamp), sig, hotkey)
		if err != nil {
			log.Warn().Err(err).Str("hotkey", hotkey).Msg("Signature verification error")
			return c.Status(fiber.StatusUnauthorized).JSON(createResponse(map[string]any{},
				fmt.Errorf("signature verification error: %w", err)))
		}
		if !valid {
			log.Warn().Str("hotkey", hotkey).Msg("Invalid signature")
			return c.Status(fiber.StatusForbidden).JSON(createResponse(map[string]any{},
				fmt.Errorf("%s due to invalid signature", http.StatusText(http.StatusForbidden))))
		}

		c.Locals(HotkeyHeader, strings.Clone(hotkey))
		return c.Next()
	}
}
