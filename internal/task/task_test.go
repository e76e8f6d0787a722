package task

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorplex-labs/fakenews/internal/llm"
	"github.com/tensorplex-labs/fakenews/internal/newsapi"
	"github.com/tensorplex-labs/fakenews/internal/synapse"
)

type fakeSource struct {
	article  *newsapi.Article
	fetchErr error

	mu    sync.Mutex
	saved []newsapi.Dataset
}

func (f *fakeSource) FetchArticle(ctx context.Context) (*newsapi.Article, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.article, nil
}

func (f *fakeSource) SaveArticlesDataset(ctx context.Context, dataset newsapi.Dataset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, dataset)
	return nil
}

// echoRewriter tags the article with the prompt version.
type echoRewriter struct {
	failVersion string
}

func (r echoRewriter) Rewrite(ctx context.Context, prompt llm.RewritePrompt) (string, error) {
	if prompt.Version() == r.failVersion {
		return "", errors.New("upstream unavailable")
	}
	return prompt.Version() + ": " + prompt.Messages()[1].Content, nil
}

type stubTask struct {
	name string
	prob float64
}

func (s stubTask) Name() string                { return s.name }
func (s stubTask) RewardWeight() float64       { return 1 }
func (s stubTask) ForwardProbability() float64 { return s.prob }
func (s stubTask) Timeout() time.Duration      { return time.Second }
func (s stubTask) Metadata() Metadata          { return Metadata{TaskName: s.name} }
func (s stubTask) SaveDataset(context.Context) error {
	return nil
}

func (s stubTask) PrepareSynapse(context.Context) (synapse.ArticleSynapse, []float64, error) {
	return synapse.ArticleSynapse{}, nil, nil
}

func newRNG() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func testArticle() *newsapi.Article {
	return &newsapi.Article{ID: 42, Title: "Title", Body: "Original body", Categories: []string{"science"}, URL: "https://news.example/42"}
}

func TestSelect(t *testing.T) {
	_, err := Select(newRNG(), nil)
	assert.ErrorIs(t, err, ErrNoTasks)

	tasks := []Task{stubTask{name: "never", prob: 0}, stubTask{name: "always", prob: 1}}
	rng := newRNG()
	for range 100 {
		selected, err := Select(rng, tasks)
		require.NoError(t, err)
		assert.Equal(t, "always", selected.Name())
	}
}

func TestWeightedChoiceDistribution(t *testing.T) {
	rng := newRNG()
	counts := make([]int, 2)
	for range 10000 {
		counts[weightedChoice(rng, []float64{0.6, 0.4})]++
	}
	assert.InDelta(t, 0.6, float64(counts[0])/10000, 0.03)

	for range 100 {
		i := weightedChoice(rng, []float64{0, 0, 0})
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 3)
	}
}

func TestSampleFakeAndOriginal(t *testing.T) {
	rng := newRNG()
	for range 200 {
		templates := sampleFakeAndOriginal(rng)
		require.Len(t, templates, 2)
		assert.ElementsMatch(t, []float64{0, 1}, []float64{templates[0].Label, templates[1].Label})
	}
}

func TestSampleAnyTwo(t *testing.T) {
	rng := newRNG()
	versions := make(map[string]bool)
	for range 500 {
		templates := sampleAnyTwo(rng)
		require.Len(t, templates, 2)
		for _, tmpl := range templates {
			versions[tmpl.PromptVersion] = true
		}
	}
	assert.Len(t, versions, 4)
}

func TestPrepareSynapseWithOriginal(t *testing.T) {
	source := &fakeSource{article: testArticle()}
	task := NewFakenewsDetectionWithOriginal(source, echoRewriter{}, newRNG())

	syn, labels, err := task.PrepareSynapse(context.Background())
	require.NoError(t, err)

	require.Len(t, labels, 2)
	require.Len(t, syn.ArticlesToReview, 2)
	require.Len(t, syn.FakeProbabilities, 2)
	require.NotNil(t, syn.OriginalArticle)
	assert.Equal(t, "Original body", *syn.OriginalArticle)

	md := task.Metadata()
	assert.Equal(t, FakenewsDetectionWithOriginalName, md.TaskName)
	assert.Equal(t, 0.5, md.RewardWeight)
	require.NotNil(t, md.OriginalArticle)
	assert.Equal(t, int64(42), md.OriginalArticle.ID)
	require.Len(t, md.GeneratedArticles, 2)
	for i, a := range md.GeneratedArticles {
		assert.Equal(t, a.Body, syn.ArticlesToReview[i])
		assert.Equal(t, a.Label, labels[i])
		assert.True(t, strings.HasPrefix(a.Body, a.PromptVersion+": "))
		assert.True(t, strings.HasSuffix(a.Body, "Original body"))
	}
}

func TestPrepareSynapseNoOriginal(t *testing.T) {
	source := &fakeSource{article: testArticle()}
	task := NewFakenewsDetectionNoOriginal(source, echoRewriter{}, newRNG())

	syn, labels, err := task.PrepareSynapse(context.Background())
	require.NoError(t, err)
	assert.Nil(t, syn.OriginalArticle)
	assert.ElementsMatch(t, []float64{0, 1}, labels)
}

func TestPrepareSynapseErrors(t *testing.T) {
	t.Run("fetch", func(t *testing.T) {
		source := &fakeSource{fetchErr: newsapi.ErrUnauthorized}
		task := NewFakenewsDetectionWithOriginal(source, echoRewriter{}, newRNG())
		_, _, err := task.PrepareSynapse(context.Background())
		assert.ErrorIs(t, err, newsapi.ErrUnauthorized)
	})

	t.Run("rewrite", func(t *testing.T) {
		source := &fakeSource{article: testArticle()}
		task := NewFakenewsDetectionNoOriginal(source, echoRewriter{failVersion: llm.StrongOriginalV5.PromptVersion}, newRNG())
		// every round draws a paraphrase, so some round will hit the failing template
		var err error
		for range 50 {
			if _, _, err = task.PrepareSynapse(context.Background()); err != nil {
				break
			}
		}
		require.Error(t, err)
		assert.Contains(t, err.Error(), "strong_original_v5")
	})
}

func TestSaveDataset(t *testing.T) {
	source := &fakeSource{article: testArticle()}
	task := NewFakenewsDetectionNoOriginal(source, echoRewriter{}, newRNG())

	require.NoError(t, task.SaveDataset(context.Background()))
	assert.Empty(t, source.saved, "nothing prepared yet")

	_, labels, err := task.PrepareSynapse(context.Background())
	require.NoError(t, err)
	require.NoError(t, task.SaveDataset(context.Background()))

	require.Len(t, source.saved, 1)
	dataset := source.saved[0]
	require.Len(t, dataset, 2)
	for i, a := range dataset {
		assert.Equal(t, int64(42), a.OriginalID)
		if labels[i] == 1 {
			assert.Equal(t, newsapi.ArticleTypeFake, a.Type)
		} else {
			assert.Equal(t, newsapi.ArticleTypeParaphrased, a.Type)
		}
		assert.NotEmpty(t, a.ModelVersion)
	}
}
