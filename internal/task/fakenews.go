package task

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tensorplex-labs/fakenews/internal/llm"
	"github.com/tensorplex-labs/fakenews/internal/newsapi"
	"github.com/tensorplex-labs/fakenews/internal/synapse"
)

const (
	FakenewsDetectionWithOriginalName = "FakenewsDetectionWithOriginal"
	FakenewsDetectionNoOriginalName   = "FakenewsDetectionNoOriginal"

	defaultRewardWeight       = 0.5
	defaultForwardProbability = 0.5
	defaultTimeout            = 15 * time.Second
)

type weightedTemplate struct {
	template llm.RewriteTemplate
	weight   float64
}

// sampler picks the rewrite templates used for one round.
type sampler func(rng *rand.Rand) []llm.RewriteTemplate

// FakenewsDetection asks miners to score LLM rewrites of a news article. The
// two variants differ in whether the source article is revealed and in how
// rewrite templates are sampled.
type FakenewsDetection struct {
	name               string
	rewardWeight       float64
	forwardProbability float64
	timeout            time.Duration
	withOriginal       bool
	sample             sampler

	source   ArticleSource
	rewriter Rewriter

	mu        sync.Mutex
	rng       *rand.Rand
	original  *OriginalArticle
	generated []GeneratedArticle
}

// NewFakenewsDetectionWithOriginal shows miners the source article next to
// two rewrites drawn with replacement from all templates.
func NewFakenewsDetectionWithOriginal(source ArticleSource, rewriter Rewriter, rng *rand.Rand) *FakenewsDetection {
	return &FakenewsDetection{
		name:               FakenewsDetectionWithOriginalName,
		rewardWeight:       defaultRewardWeight,
		forwardProbability: defaultForwardProbability,
		timeout:            defaultTimeout,
		withOriginal:       true,
		sample:             sampleAnyTwo,
		source:             source,
		rewriter:           rewriter,
		rng:                rng,
	}
}

// NewFakenewsDetectionNoOriginal hides the source article and always sends
// one fabricated and one faithful rewrite.
func NewFakenewsDetectionNoOriginal(source ArticleSource, rewriter Rewriter, rng *rand.Rand) *FakenewsDetection {
	return &FakenewsDetection{
		name:               FakenewsDetectionNoOriginalName,
		rewardWeight:       defaultRewardWeight,
		forwardProbability: defaultForwardProbability,
		timeout:            defaultTimeout,
		withOriginal:       false,
		sample:             sampleFakeAndOriginal,
		source:             source,
		rewriter:           rewriter,
		rng:                rng,
	}
}

func (t *FakenewsDetection) Name() string                { return t.name }
func (t *FakenewsDetection) RewardWeight() float64       { return t.rewardWeight }
func (t *FakenewsDetection) ForwardProbability() float64 { return t.forwardProbability }
func (t *FakenewsDetection) Timeout() time.Duration      { return t.timeout }

func (t *FakenewsDetection) Metadata() Metadata {
	t.mu.Lock()
	defer t.mu.Unlock()

	md := Metadata{
		TaskName:           t.name,
		RewardWeight:       t.rewardWeight,
		ForwardProbability: t.forwardProbability,
		OriginalArticle:    t.original,
	}
	if len(t.generated) > 0 {
		md.GeneratedArticles = append([]GeneratedArticle(nil), t.generated...)
	}
	return md
}

func (t *FakenewsDetection) PrepareSynapse(ctx context.Context) (synapse.ArticleSynapse, []float64, error) {
	article, err := t.source.FetchArticle(ctx)
	if err != nil {
		return synapse.ArticleSynapse{}, nil, fmt.Errorf("fetch article: %w", err)
	}

	t.mu.Lock()
	templates := t.sample(t.rng)
	t.mu.Unlock()

	generated := make([]GeneratedArticle, len(templates))
	g, gCtx := errgroup.WithContext(ctx)
	for i, tmpl := range templates {
		g.Go(func() error {
			prompt := tmpl.For(article.Body)
			body, err := t.rewriter.Rewrite(gCtx, prompt)
			if err != nil {
				return fmt.Errorf("rewrite with %s: %w", prompt.Version(), err)
			}
			generated[i] = GeneratedArticle{
				Body:          body,
				Label:         prompt.Label(),
				ModelVersion:  prompt.TargetModel(),
				PromptVersion: prompt.Version(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return synapse.ArticleSynapse{}, nil, err
	}

	t.mu.Lock()
	t.rng.Shuffle(len(generated), func(i, j int) {
		generated[i], generated[j] = generated[j], generated[i]
	})
	t.original = &OriginalArticle{
		ID:         article.ID,
		Body:       article.Body,
		URL:        article.URL,
		Categories: article.Categories,
	}
	t.generated = generated
	t.mu.Unlock()

	labels := make([]float64, len(generated))
	articles := make([]string, len(generated))
	for i, a := range generated {
		labels[i] = a.Label
		articles[i] = a.Body
	}

	var original *string
	if t.withOriginal {
		body := article.Body
		original = &body
	}

	log.Debug().
		Str("task", t.name).
		Int64("article_id", article.ID).
		Floats64("labels", labels).
		Msg("Prepared synapse")

	return synapse.NewArticleSynapse(articles, original), labels, nil
}

func (t *FakenewsDetection) SaveDataset(ctx context.Context) error {
	t.mu.Lock()
	original, generated := t.original, t.generated
	t.mu.Unlock()

	if original == nil || len(generated) == 0 {
		return nil
	}

	dataset := make(newsapi.Dataset, len(generated))
	for i, a := range generated {
		articleType := newsapi.ArticleTypeParaphrased
		if a.Label == 1 {
			articleType = newsapi.ArticleTypeFake
		}
		dataset[i] = newsapi.RewrittenArticle{
			OriginalID:    original.ID,
			Body:          a.Body,
			Type:          articleType,
			ModelVersion:  a.ModelVersion,
			PromptVersion: a.PromptVersion,
		}
	}
	return t.source.SaveArticlesDataset(ctx, dataset)
}

func sampleAnyTwo(rng *rand.Rand) []llm.RewriteTemplate {
	all := []weightedTemplate{
		{llm.WeakFakeV4, 0.25},
		{llm.StrongFakeV1, 0.25},
		{llm.StrongOriginalV5, 0.25},
		{llm.WeakOriginalV1, 0.25},
	}
	return []llm.RewriteTemplate{choose(rng, all), choose(rng, all)}
}

func sampleFakeAndOriginal(rng *rand.Rand) []llm.RewriteTemplate {
	fakes := []weightedTemplate{
		{llm.WeakFakeV4, 0.6},
		{llm.StrongFakeV1, 0.4},
	}
	paraphrases := []weightedTemplate{
		{llm.WeakOriginalV1, 0.4},
		{llm.StrongOriginalV5, 0.6},
	}
	templates := []llm.RewriteTemplate{choose(rng, fakes), choose(rng, paraphrases)}
	rng.Shuffle(len(templates), func(i, j int) {
		templates[i], templates[j] = templates[j], templates[i]
	})
	return templates
}

func choose(rng *rand.Rand, options []weightedTemplate) llm.RewriteTemplate {
	weights := make([]float64, len(options))
	for i, o := range options {
		weights[i] = o.weight
	}
	return options[weightedChoice(rng, weights)].template
}
