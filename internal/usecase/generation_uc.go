// File: internal/usecase/generation_uc.go
package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"ai-article-queue/internal/domain/model"
	"ai-article-queue/internal/domain/ports/adapter"
	"ai-article-queue/internal/domain/ports/repository"
	"ai-article-queue/internal/infra/logging"
)

// articleSystemPrompt instructs the model to emit HTML articles the
// extraction step can split apart.
const articleSystemPrompt = `
You are an expert content writer and blogger. Your primary task is to generate well-structured, engaging articles in HTML format based on the user's request.

**Your Instructions:**

1.  **Role**: Act as a professional writer. Your tone should be informative and engaging.
2.  **Output Format**: The entire response must be formatted using HTML tags.
3.  **HTML Tags**:
    * Use ` + "`<h1>`" + ` for the main title of the article.
    * Use ` + "`<h2>`" + ` for major sections or subheadings.
    * Use ` + "`<p>`" + ` for all paragraphs.
    * Use ` + "`<ul>`" + ` with ` + "`<li>`" + ` for bullet points and ` + "`<strong>`" + ` for important keywords.
    * **Crucially, do NOT include ` + "`<html>`, `<head>`, or `<body>`" + ` tags.** Only generate the HTML content that would go inside the ` + "`<body>`" + ` of a webpage.
    * Each complete article MUST be wrapped in its own ` + "`<article>`" + ` tag.
4.  **Multiple Articles**: If the user asks for more than one article, wrap each complete article in its own ` + "`<article>`" + ` tag. Separate each ` + "`<article>`" + ` tag with an ` + "`<hr>`" + ` (horizontal rule) for clear visual division. Ensure you generate the requested number of distinct articles, each with its own heading and content.

Analyze the user's query below and generate the content according to these rules.
`

var (
	articleBlockPattern = regexp.MustCompile(`(?s)<article>(.*?)</article>`)
	hrPattern           = regexp.MustCompile(`(?i)<hr\s*/?>`)
	titlePattern        = regexp.MustCompile(`(?s)<h1>(.*?)</h1>`)
	slugStripPattern    = regexp.MustCompile(`[^\w\s-]`)
)

// Compile-time check
var _ GenerationUseCase = (*generationUC)(nil)

// GenerationUseCase runs one queued job end to end and returns the
// terminal status with its result. It never returns an error; every
// failure is folded into a FAILED result so the batch loop stays simple.
type GenerationUseCase interface {
	Process(ctx context.Context, job *model.Job) (model.JobStatus, *model.JobResult)
}

type generationUC struct {
	ai           adapter.AIServiceAdapter
	publisher    adapter.PublisherAdapter
	jobs         repository.JobRepository
	systemPrompt string
	log          zerolog.Logger
}

// NewGenerationUseCase builds the job processor. An empty systemPrompt
// selects the built-in article prompt.
func NewGenerationUseCase(ai adapter.AIServiceAdapter, publisher adapter.PublisherAdapter, jobs repository.JobRepository, systemPrompt string, logger zerolog.Logger) *generationUC {
	if systemPrompt == "" {
		systemPrompt = articleSystemPrompt
	}
	return &generationUC{
		ai:           ai,
		publisher:    publisher,
		jobs:         jobs,
		systemPrompt: systemPrompt,
		log:          logger.With().Str("component", "generation_uc").Logger(),
	}
}

func (g *generationUC) Process(ctx context.Context, job *model.Job) (model.JobStatus, *model.JobResult) {
	defer logging.TraceDuration(&g.log, "GenerationUC.Process")()

	log := g.log.With().Str("request_id", job.RequestID).Logger()

	// Login is best effort. With an empty token each publish fails on its
	// own and the rejection lands in that article's outcome.
	token, err := g.publisher.Login(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("publisher login errored, continuing without token")
		token = ""
	}

	raw, err := g.ai.Generate(ctx, job.Model, g.systemPrompt, job.UserQuery)
	if err != nil {
		log.Error().Err(err).Msg("model call failed")
		return model.JobStatusFailed, failedResult(
			fmt.Sprintf("An unexpected error occurred during processing: %v", err), err.Error())
	}

	blocks := extractArticleBlocks(raw)
	if len(blocks) == 0 {
		return model.JobStatusFailed, failedResult(
			"No articles could be generated or extracted from the model response.",
			"model did not return a valid article structure")
	}

	outcomes := make([]model.ArticleOutcome, 0, len(blocks))
	publishedIDs := make([]int64, 0, len(blocks))
	for i, block := range blocks {
		article := buildArticle(block, i)
		outcome := g.publisher.Publish(ctx, token, adapter.Article{
			Title:   article.Title,
			Slug:    article.Slug,
			Name:    job.Name,
			Content: article.Content,
		})
		if outcome.OK && outcome.PublishedID != 0 {
			publishedIDs = append(publishedIDs, outcome.PublishedID)
		}
		outcomes = append(outcomes, model.ArticleOutcome{
			Title:          article.Title,
			Slug:           article.Slug,
			ContentSnippet: snippet(article.Content, 200),
			Publish:        outcome,
		})
	}

	if len(publishedIDs) > 0 {
		// Secondary write; the job result itself already records each
		// publish outcome.
		if err := g.jobs.SavePublishedIDs(ctx, nil, job.RequestID, publishedIDs); err != nil {
			log.Warn().Err(err).Msg("published ids not saved")
		}
	}

	log.Info().Int("articles", len(outcomes)).Int("published", len(publishedIDs)).Msg("job processed")
	return model.JobStatusSuccess, &model.JobResult{
		Message:    "Article(s) generated and posted successfully.",
		RawContent: raw,
		Articles:   outcomes,
	}
}

type extractedArticle struct {
	Title   string
	Slug    string
	Content string
}

// extractArticleBlocks splits the model output into per-article chunks.
// Output without <article> markers is treated as one article as long as
// it is non-empty.
func extractArticleBlocks(raw string) []string {
	matches := articleBlockPattern.FindAllStringSubmatch(raw, -1)
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, m[1])
	}
	if len(blocks) == 0 && strings.TrimSpace(raw) != "" {
		blocks = []string{raw}
	}
	return blocks
}

func buildArticle(block string, index int) extractedArticle {
	body := strings.TrimSpace(hrPattern.ReplaceAllString(strings.TrimSpace(block), ""))

	title := fmt.Sprintf("No Title Found (Article %d)", index+1)
	if m := titlePattern.FindStringSubmatch(body); m != nil {
		title = strings.TrimSpace(m[1])
	}

	content := body
	if loc := titlePattern.FindStringIndex(body); loc != nil {
		content = strings.TrimSpace(body[:loc[0]] + body[loc[1]:])
	}

	return extractedArticle{
		Title:   title,
		Slug:    slugify(title),
		Content: content,
	}
}

// slugify keeps word characters, spaces and dashes, then lowercases with
// spaces turned into dashes.
func slugify(title string) string {
	s := slugStripPattern.ReplaceAllString(title, "")
	s = strings.ReplaceAll(s, " ", "-")
	return strings.ToLower(s)
}

// snippet truncates to limit characters, not bytes, so a multibyte rune
// in model output is never split.
func snippet(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "..."
}

func failedResult(message, details string) *model.JobResult {
	return &model.JobResult{
		Message:      message,
		ErrorDetails: &details,
	}
}
