// Package miner answers ArticleSynapse requests with LLM fake probabilities.
package miner

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/internal/config"
	"github.com/tensorplex-labs/fakenews/internal/kami"
	"github.com/tensorplex-labs/fakenews/internal/llm"
	"github.com/tensorplex-labs/fakenews/internal/scoring"
	"github.com/tensorplex-labs/fakenews/internal/synapse"
	chainutils "github.com/tensorplex-labs/fakenews/internal/utils/chain_utils"
	"github.com/tensorplex-labs/fakenews/pkg/signature"
)

// Predictor scores every article with the probability it is fake.
type Predictor interface {
	Predict(ctx context.Context, original *string, articles []string) ([]float64, error)
}

// LLMPredictor asks a chat completions model for the probabilities.
type LLMPredictor struct {
	Client *llm.Client
}

func (p LLMPredictor) Predict(ctx context.Context, original *string, articles []string) ([]float64, error) {
	return llm.Run[[]float64](ctx, p.Client, llm.ProbabilitiesPrompt{
		OriginalArticle:  original,
		ArticlesToReview: articles,
	})
}

// Chain announces the axon on chain.
type Chain interface {
	ServeAxon(params kami.ServeAxonParams) (kami.ExtrinsicHashResponse, error)
}

type Miner struct {
	cfg       *config.AppConfig
	srv       *synapse.Server
	chain     Chain
	predictor Predictor
}

func NewMiner(cfg *config.AppConfig, chain Chain, predictor Predictor, verifier signature.SignatureVerifier) (*Miner, error) {
	if cfg == nil || chain == nil || predictor == nil {
		return nil, fmt.Errorf("miner dependencies cannot be nil")
	}
	m := &Miner{
		cfg:       cfg,
		srv:       synapse.NewServer(&cfg.ServerEnvConfig, verifier),
		chain:     chain,
		predictor: predictor,
	}
	m.srv.ServeArticles(m.Forward)
	return m, nil
}

// Forward fills the request's fake probabilities from the predictor. Missing
// predictions keep their placeholder.
func (m *Miner) Forward(ctx context.Context, callerHotkey string, req synapse.ArticleSynapse) (synapse.ArticleSynapse, error) {
	predictions, err := m.predictor.Predict(ctx, req.OriginalArticle, req.ArticlesToReview)
	if err != nil {
		return req, fmt.Errorf("predict: %w", err)
	}

	if len(req.FakeProbabilities) != len(req.ArticlesToReview) {
		req.FakeProbabilities = scoring.DefaultProbabilities(len(req.ArticlesToReview))
	}
	for i, pred := range predictions {
		if i >= len(req.FakeProbabilities) {
			log.Warn().Int("predictions", len(predictions)).Int("articles", len(req.ArticlesToReview)).Msg("Model returned extra predictions")
			break
		}
		req.FakeProbabilities[i] = scoring.NewRawProbability(pred)
	}

	log.Info().
		Str("validator", callerHotkey).
		Floats64("predictions", predictions).
		Msg("Forwarding results")
	return req, nil
}

// Run announces the axon and serves requests until ctx is cancelled.
func (m *Miner) Run(ctx context.Context) error {
	ip, err := resolveAxonIP(ctx, m.cfg.Address)
	if err != nil {
		return err
	}
	if err := m.serveAxon(ip); err != nil {
		return err
	}
	return m.srv.Start(ctx)
}

func (m *Miner) serveAxon(ip net.IP) error {
	ipInt, err := chainutils.IPv4ToInt(ip)
	if err != nil {
		return fmt.Errorf("axon ip %s: %w", ip, err)
	}

	params := kami.ServeAxonParams{
		Version: 1,
		IP:      int(ipInt),
		Port:    m.cfg.Port,
		IPType:  4,
		Netuid:  m.cfg.Netuid,
	}
	resp, err := m.chain.ServeAxon(params)
	if err != nil {
		return fmt.Errorf("serve axon: %w", err)
	}
	log.Info().Str("ip", ip.String()).Int("port", params.Port).Str("extrinsic", resp.Data).Msg("Axon served")
	return nil
}

// resolveAxonIP parses or looks up address, falling back to the external IP.
func resolveAxonIP(ctx context.Context, address string) (net.IP, error) {
	if address != "" {
		if ip := net.ParseIP(address); ip != nil && ip.To4() != nil {
			return ip.To4(), nil
		}
		addrs, err := net.DefaultResolver.LookupIP(ctx, "ip4", address)
		if err == nil && len(addrs) > 0 {
			return addrs[0].To4(), nil
		}
		log.Warn().Str("address", address).Msg("could not resolve axon address, falling back to external IP")
	}

	ip, err := chainutils.GetExternalIP(ctx)
	if err != nil {
		return nil, fmt.Errorf("determine external ip: %w", err)
	}
	return ip, nil
}
