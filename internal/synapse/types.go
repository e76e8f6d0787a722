// Package synapse carries ArticleSynapse requests between validators and miners.
package synapse

import (
	"context"
	"fmt"

	"github.com/tensorplex-labs/fakenews/internal/scoring"
)

const (
	SignatureHeader = "x-signature"
	HotkeyHeader    = "x-hotkey"
	TimestampHeader = "x-timestamp"

	ArticleSynapseRoute = "/ArticleSynapse"
	HealthRoute         = "/health"

	DefaultBodyLimit = 4 * 1024 * 1024
)

// ArticleSynapse asks a miner for the probability that each article is fake.
// OriginalArticle is nil for tasks that do not reveal the source article.
type ArticleSynapse struct {
	ArticlesToReview  []string                 `json:"articles_to_review"`
	OriginalArticle   *string                  `json:"original_article,omitempty"`
	FakeProbabilities []scoring.RawProbability `json:"fake_probabilities"`
}

// NewArticleSynapse fills FakeProbabilities with the invalid placeholder.
func NewArticleSynapse(articles []string, original *string) ArticleSynapse {
	return ArticleSynapse{
		ArticlesToReview:  articles,
		OriginalArticle:   original,
		FakeProbabilities: scoring.DefaultProbabilities(len(articles)),
	}
}

// Axon is a served miner endpoint.
type Axon struct {
	UID    int64
	Hotkey string
	IP     string
	Port   int
}

func (a Axon) GetHotkey() string {
	return a.Hotkey
}

func (a Axon) URL() string {
	return fmt.Sprintf("http://%s:%d", a.IP, a.Port)
}

// StdResponse wraps every server reply.
type StdResponse[T any] struct {
	Body  T       `json:"body"`
	Error *string `json:"error,omitempty"`
}

// Handler answers an ArticleSynapse on behalf of the validator identified by
// callerHotkey.
type Handler func(ctx context.Context, callerHotkey string, req ArticleSynapse) (ArticleSynapse, error)

func createResponse[T any](body T, err error) StdResponse[T] {
	if err != nil {
		errMsg := err.Error()
		return StdResponse[T]{Body: body, Error: &errMsg}
	}
	return StdResponse[T]{Body: body}
}

// AuthMessage is the message signed for a request sent at timestamp.
func AuthMessage(hotkey, timestamp string) string {
	return fmt.Sprintf("%s.%s.i am a fakenews validator, please verify me!", hotkey, timestamp)
}
