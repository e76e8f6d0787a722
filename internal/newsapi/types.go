package newsapi

type Article struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Categories []string `json:"categories"`
	URL        string   `json:"url"`
}

type ArticleType string

const (
	ArticleTypeFake        ArticleType = "fake"
	ArticleTypeParaphrased ArticleType = "paraphrased"
)

// RewrittenArticle is one LLM generated variant of a source article.
type RewrittenArticle struct {
	OriginalID    int64       `json:"original_id"`
	Body          string      `json:"body"`
	Type          ArticleType `json:"type"`
	ModelVersion  string      `json:"model_version"`
	PromptVersion string      `json:"prompt_version"`
}

// Dataset is posted as a plain JSON array.
type Dataset []RewrittenArticle
