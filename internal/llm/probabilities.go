package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

var ErrInvalidProbabilities = errors.New("response is not a JSON array of numbers")

const probabilitiesSystem = `You are a professional journalist who is skilled at telling credible articles from fabricated ones.
%s
Score every article between 0 and 1:
- 0: completely truthful and fully trustworthy.
- 0.5 and less: contains errors but enough truth to be cited cautiously.
- 0.6 and more: mostly fabricated and should not be referenced.
- 1: entirely false with no factual basis.
Judge factual accuracy, logical consistency and whether the tone is sensational.
Return only a JSON array with one score per article, for example:
[
    0.4,
    0.7
]`

const withOriginalContext = "You get the original article and several rewritten versions that may contain fabricated facts.\nOriginal article:\n```\n%s\n```"

const noOriginalContext = "You get several news articles, some of which may contain fabricated facts."

// ProbabilitiesPrompt asks for a fake probability per article. The original
// article is optional.
type ProbabilitiesPrompt struct {
	OriginalArticle  *string
	ArticlesToReview []string
}

func (p ProbabilitiesPrompt) Version() string {
	if p.OriginalArticle == nil {
		return "probabilities_no_original_v1"
	}
	return "probabilities_v1"
}

func (p ProbabilitiesPrompt) TargetModel() string { return "gpt-4o-mini" }

func (p ProbabilitiesPrompt) Messages() []Message {
	intro := noOriginalContext
	if p.OriginalArticle != nil {
		intro = fmt.Sprintf(withOriginalContext, *p.OriginalArticle)
	}

	var articles strings.Builder
	for i, article := range p.ArticlesToReview {
		if i > 0 {
			articles.WriteString("\n")
		}
		fmt.Fprintf(&articles, "```%d. \n%s\n```", i+1, article)
	}

	return []Message{
		{Role: "system", Content: fmt.Sprintf(probabilitiesSystem, intro)},
		{Role: "user", Content: articles.String()},
	}
}

func (p ProbabilitiesPrompt) Normalize(response string) ([]float64, error) {
	return ParseProbabilities(response)
}

// ParseProbabilities reads a JSON array of numbers, tolerating markdown code
// fences and a leading json tag.
func ParseProbabilities(response string) ([]float64, error) {
	cleaned := strings.TrimSpace(strings.Trim(response, "\n`"))
	cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "json"))
	cleaned = strings.TrimSpace(strings.Trim(cleaned, "`"))

	var values []any
	if err := sonic.UnmarshalString(cleaned, &values); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProbabilities, cleaned)
	}

	probs := make([]float64, len(values))
	for i, v := range values {
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: item %d is %T", ErrInvalidProbabilities, i, v)
		}
		probs[i] = f
	}
	return probs, nil
}
