package synapse

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/internal/config"
	"github.com/tensorplex-labs/fakenews/pkg/signature"
)

type Client struct {
	restyClient *resty.Client
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
	signer      signature.SignatureProvider
}

// NewClient creates a client that signs every request with signer.
func NewClient(cfg *config.ClientEnvConfig, signer signature.SignatureProvider) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if signer == nil {
		return nil, fmt.Errorf("signature provider cannot be nil")
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	restyClient := resty.New().
		SetTimeout(cfg.ClientTimeout).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	return &Client{
		restyClient: restyClient,
		encoder:     encoder,
		decoder:     decoder,
		signer:      signer,
	}, nil
}

func (c *Client) Close() {
	c.encoder.Close()
	c.decoder.Close()
}

func (c *Client) authHeaders() (map[string]string, error) {
	hotkey := c.signer.Hotkey()
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	sig, err := c.signer.Sign(AuthMessage(hotkey, timestamp))
	if err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}
	return map[string]string{
		"Content-Type":     "application/json",
		"Accept-Encoding":  "zstd",
		"Content-Encoding": "zstd",
		HotkeyHeader:       hotkey,
		TimestampHeader:    timestamp,
		SignatureHeader:    sig,
	}, nil
}

// Query sends req to a single axon and returns the miner's answer.
func (c *Client) Query(ctx context.Context, axon Axon, req ArticleSynapse) (ArticleSynapse, error) {
	var out ArticleSynapse

	headers, err := c.authHeaders()
	if err != nil {
		return out, err
	}
	payload, err := sonic.Marshal(req)
	if err != nil {
		return out, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimSuffix(axon.URL(), "/") + ArticleSynapseRoute
	resp, err := c.restyClient.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(c.encoder.EncodeAll(payload, nil)).
		Post(endpoint)
	if err != nil {
		return out, fmt.Errorf("failed to make request: %w", err)
	}

	body := resp.Body()
	if strings.EqualFold(resp.Header().Get("Content-Encoding"), "zstd") {
		body, err = c.decoder.DecodeAll(body, nil)
		if err != nil {
			return out, fmt.Errorf("failed to decompress response: %w", err)
		}
	}
	if resp.IsError() {
		return out, fmt.Errorf("HTTP error %d: %s", resp.StatusCode(), string(body))
	}

	var std StdResponse[ArticleSynapse]
	if err := sonic.Unmarshal(body, &std); err != nil {
		return out, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if std.Error != nil {
		return out, fmt.Errorf("server error: %s", *std.Error)
	}
	return std.Body, nil
}

// QueryAll queries every axon concurrently. Responses are aligned with axons;
// a failed query yields req unchanged, so its placeholder probabilities are
// scored as invalid.
func (c *Client) QueryAll(ctx context.Context, axons []Axon, req ArticleSynapse) []ArticleSynapse {
	responses := make([]ArticleSynapse, len(axons))
	var wg sync.WaitGroup
	wg.Add(len(axons))

	for i, axon := range axons {
		go func(index int, axon Axon) {
			defer wg.Done()
			resp, err := c.Query(ctx, axon, req)
			if err != nil {
				log.Debug().
					Err(err).
					Int64("uid", axon.UID).
					Str("hotkey", axon.Hotkey).
					Msg("Miner query failed")
				responses[index] = req
				return
			}
			responses[index] = resp
		}(i, axon)
	}

	wg.Wait()
	return responses
}
