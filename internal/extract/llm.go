package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/readlist/readlist-cli/internal/model"
	"github.com/readlist/readlist-cli/internal/resilience"
	"github.com/readlist/readlist-cli/pkg/anthropic"
)

const noBooksSentinel = "No books found"

const extractionSystemPrompt = `You are a precise assistant that extracts book recommendations from podcast show notes. Only extract actual book recommendations. Format titles cleanly without leading dashes, numbering, or surrounding quotes.`

const extractionPromptTemplate = `Extract every book recommendation from the text below.

Rules:
- Output one book per line in exactly the format: Title by Author
- Do not number the lines or add bullets.
- Do not include anything that is not a book recommendation.
- If the text contains no book recommendations, reply with exactly: %s

Text to analyze:
%s

Books found:`

// ModelParser escalates a section span to a language model when the manual
// parse is not trusted.
type ModelParser struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	retry     resilience.RetryConfig
}

// NewModelParser builds a ModelParser around an anthropic client.
func NewModelParser(client anthropic.Client, modelID string, maxTokens int64, timeout time.Duration) *ModelParser {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("anthropic", "fallback_parse")
	return &ModelParser{
		client:    client,
		model:     modelID,
		maxTokens: maxTokens,
		timeout:   timeout,
		retry:     retry,
	}
}

// Parse sends the section span to the model and parses its reply. A reply the
// parser cannot make sense of yields zero candidates, not an error; errors are
// reserved for transport and timeout failures.
func (p *ModelParser) Parse(ctx context.Context, span string) ([]model.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	temp := 0.1
	req := anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		System:      extractionSystemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(extractionPromptTemplate, noBooksSentinel, span)},
		},
	}

	resp, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return p.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: fallback parse")
	}

	resp.Usage.LogCost(p.model, "fallback_parse")

	cands := parseModelReply(resp.Text())
	if len(cands) == 0 {
		zap.L().Debug("model reply yielded no candidates",
			zap.String("model", p.model),
			zap.Int("reply_len", len(resp.Text())),
		)
	}
	return cands, nil
}

// parseModelReply reads the model reply line by line, keeping only lines that
// fit the "Title by Author" shape. The model is prompted for a strict format
// but is not guaranteed to honor it.
func parseModelReply(reply string) []model.Candidate {
	reply = strings.TrimSpace(reply)
	if reply == "" || strings.Contains(reply, noBooksSentinel) {
		return nil
	}

	var out []model.Candidate
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, "Books found:") {
			continue
		}

		idx := strings.Index(line, " by ")
		if idx == -1 {
			continue
		}
		title := CleanTitle(line[:idx])
		author := CleanAuthor(line[idx+len(" by "):])
		if title == "" || author == "" {
			continue
		}
		out = append(out, model.Candidate{Title: title, Author: author, RawFragment: line})
	}
	return out
}
