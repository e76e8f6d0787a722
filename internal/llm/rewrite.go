package llm

import (
	"errors"
	"fmt"
	"strings"
)

const articleAnchor = "Article: ####"

var ErrMissingAnchor = errors.New("article anchor not found in response")

// RewriteTemplate describes one way of rewriting a news article. Label is the
// ground truth of the result: 1 for fabricated, 0 for faithful paraphrases.
type RewriteTemplate struct {
	PromptVersion string
	Model         string
	Label         float64
	System        string
}

// For binds the template to an article.
func (t RewriteTemplate) For(article string) RewritePrompt {
	return RewritePrompt{template: t, article: article}
}

type RewritePrompt struct {
	template RewriteTemplate
	article  string
}

func (p RewritePrompt) Version() string     { return p.template.PromptVersion }
func (p RewritePrompt) TargetModel() string { return p.template.Model }
func (p RewritePrompt) Label() float64      { return p.template.Label }

func (p RewritePrompt) Messages() []Message {
	return []Message{
		{Role: "system", Content: p.template.System},
		{Role: "user", Content: p.article},
	}
}

// Normalize keeps the text after the article anchor.
func (p RewritePrompt) Normalize(response string) (string, error) {
	return ExtractArticle(response)
}

func ExtractArticle(response string) (string, error) {
	start := strings.Index(response, articleAnchor)
	if start == -1 {
		return "", fmt.Errorf("%w: %q", ErrMissingAnchor, response)
	}
	article := response[start+len(articleAnchor):]
	return strings.TrimSpace(strings.ReplaceAll(article, "####", "")), nil
}

var (
	WeakFakeV4 = RewriteTemplate{
		PromptVersion: "weak_fake_v4",
		Model:         "gpt-4o-mini",
		Label:         1.0,
		System: `You rewrite news articles to introduce misinformation. The article is delimited by ####.
Step 1: list the key objects, events, relations and opinions in the article, one per line starting with '*'.
Step 2: pick the persona whose motive fits the article best: financial gain, political agenda,
social media attention, mischief, hate, distrust of mainstream media, personal vendetta or
supernatural belief.
Step 3: as that persona, change a few critical facts so the meaning of the article shifts while
the tone, length and structure stay close to the original. Do not mention the persona.
Only output the result of step 3 and always start it with: Article: ####`,
	}

	StrongFakeV1 = RewriteTemplate{
		PromptVersion: "strong_fake_v1",
		Model:         "gpt-4o-mini",
		Label:         1.0,
		System: `You are an editor producing a fabricated version of a news article.
Step 1: identify the central claims, figures, names and dates.
Step 2: decide which of them can be altered so the story becomes false but stays plausible.
Step 3: rewrite the whole article with those alterations, keeping the original style and length.
Always start your step 3 answer with: Article: ####`,
	}

	WeakOriginalV1 = RewriteTemplate{
		PromptVersion: "weak_original_v1",
		Model:         "gpt-4o-mini",
		Label:         0.0,
		System: `Paraphrase the news article you are given. Keep every fact, number, name and date unchanged
and do not add new information.
Always start your answer with: Article: ####`,
	}

	StrongOriginalV5 = RewriteTemplate{
		PromptVersion: "strong_original_v5",
		Model:         "gpt-4o",
		Label:         0.0,
		System: `You are a senior news editor. Rewrite the article in your own words, restructuring sentences and
paragraphs freely, while preserving every fact exactly. Do not speculate, omit key facts or add opinions.
Always start your answer with: Article: ####`,
	}
)
