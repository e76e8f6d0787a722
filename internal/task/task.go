// Package task prepares validator rounds: it fetches a source article, asks
// an LLM for labelled rewrites and packs them into an ArticleSynapse.
package task

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/tensorplex-labs/fakenews/internal/llm"
	"github.com/tensorplex-labs/fakenews/internal/newsapi"
	"github.com/tensorplex-labs/fakenews/internal/synapse"
)

var ErrNoTasks = errors.New("no tasks to select from")

// Task is a kind of validator round.
type Task interface {
	Name() string
	RewardWeight() float64
	ForwardProbability() float64
	Timeout() time.Duration
	Metadata() Metadata
	// PrepareSynapse builds the request sent to miners together with the
	// label of every article in it.
	PrepareSynapse(ctx context.Context) (synapse.ArticleSynapse, []float64, error)
	// SaveDataset uploads the articles generated by the last PrepareSynapse.
	SaveDataset(ctx context.Context) error
}

// ArticleSource is the news API as seen by tasks.
type ArticleSource interface {
	FetchArticle(ctx context.Context) (*newsapi.Article, error)
	SaveArticlesDataset(ctx context.Context, dataset newsapi.Dataset) error
}

// Rewriter produces the rewritten article for a prompt.
type Rewriter interface {
	Rewrite(ctx context.Context, prompt llm.RewritePrompt) (string, error)
}

// LLMRewriter runs rewrite prompts against a chat completions client.
type LLMRewriter struct {
	Client *llm.Client
}

func (r LLMRewriter) Rewrite(ctx context.Context, prompt llm.RewritePrompt) (string, error) {
	return llm.Run[string](ctx, r.Client, prompt)
}

// GeneratedArticle is one rewrite shown to miners.
type GeneratedArticle struct {
	Body          string  `json:"body"`
	Label         float64 `json:"label"`
	ModelVersion  string  `json:"model_version"`
	PromptVersion string  `json:"prompt_version"`
}

type OriginalArticle struct {
	ID         int64    `json:"id"`
	Body       string   `json:"body"`
	URL        string   `json:"url"`
	Categories []string `json:"categories"`
}

// Metadata describes a task and the round it last prepared.
type Metadata struct {
	TaskName           string             `json:"task_name"`
	RewardWeight       float64            `json:"reward_weight"`
	ForwardProbability float64            `json:"forward_probability"`
	GeneratedArticles  []GeneratedArticle `json:"generated_articles,omitempty"`
	OriginalArticle    *OriginalArticle   `json:"original_article,omitempty"`
}

// Select picks a task with probability proportional to its forward
// probability.
func Select(rng *rand.Rand, tasks []Task) (Task, error) {
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	weights := make([]float64, len(tasks))
	for i, t := range tasks {
		weights[i] = t.ForwardProbability()
	}
	return tasks[weightedChoice(rng, weights)], nil
}

// weightedChoice returns an index drawn proportionally to weights. Weights
// that are all zero fall back to a uniform draw.
func weightedChoice(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return rng.IntN(len(weights))
	}

	r := rng.Float64() * total
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if r < w {
			return i
		}
		r -= w
		last = i
	}
	return last
}
