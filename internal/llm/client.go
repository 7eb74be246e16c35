// Package llm wraps the Gemini API behind the three narrow capabilities the
// pipeline needs: single-turn generation, translation, and a moderation
// verdict. No conversation state is kept.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel = "gemini-2.0-flash"

	generationTemperature  = 0.7
	translationTemperature = 0.0
	moderationTemperature  = 0.0

	maxAttempts = 2
	retryDelay  = 500 * time.Millisecond
)

// Client is a thin Gemini wrapper. Safe for concurrent use.
type Client struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewClient builds a client. A missing API key is a configuration error and
// fails fast, before any request work begins.
func NewClient(apiKey, model string, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini API key is required (set GEMINI_API_KEY)")
	}
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: strings.TrimSpace(apiKey),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{client: client, model: model, logger: logger}, nil
}

// CompleteWithSystem runs one generation turn with a system instruction.
func (c *Client) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	return c.generate(ctx, system, user, generationTemperature)
}

// Complete runs one generation turn without a system instruction.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, "", prompt, generationTemperature)
}

func (c *Client) generate(ctx context.Context, system, user string, temperature float32) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](temperature),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	contents := []*genai.Content{
		genai.NewContentFromText(user, genai.RoleUser),
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
		if err != nil {
			lastErr = err
			c.logger.Warn("generation attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(retryDelay):
				}
			}
			continue
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("generation returned no candidates")
		}
		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
		return strings.TrimSpace(sb.String()), nil
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", maxAttempts, lastErr)
}

// Translate converts text between languages. No-ops: empty text, unknown
// source, source already the target. A model failure returns the original
// text rather than interrupting the user flow.
func (c *Client) Translate(ctx context.Context, text, source, target string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	src := strings.ToLower(strings.TrimSpace(source))
	tgt := strings.ToLower(strings.TrimSpace(target))
	if src == "" || src == "unknown" || tgt == "" {
		return text
	}
	if strings.HasPrefix(src, tgt) {
		return text
	}

	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s. Keep the meaning and tone as close as possible:\n\n%s",
		src, tgt, text)

	out, err := c.generate(ctx, "", prompt, translationTemperature)
	if err != nil || out == "" {
		c.logger.Warn("translation failed, passing original through",
			zap.String("source", src),
			zap.String("target", tgt),
			zap.Error(err))
		return text
	}
	return out
}

// Flag asks the model for a moderation verdict. Implements
// moderation.Classifier.
func (c *Client) Flag(ctx context.Context, text string) (bool, error) {
	system := "You are a strict content moderator. " +
		"Decide whether the user message contains insults, harassment, hate speech, or other abusive language. " +
		"Answer with exactly one word: YES or NO."
	out, err := c.generate(ctx, system, text, moderationTemperature)
	if err != nil {
		return false, err
	}
	verdict := strings.ToUpper(strings.TrimSpace(out))
	return strings.HasPrefix(verdict, "YES"), nil
}

// Close releases the underlying client. The genai client holds no
// resources that need explicit release.
func (c *Client) Close() error {
	return nil
}
