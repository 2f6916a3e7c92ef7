package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/satriahrh/nutriplanner/domain"
	"github.com/satriahrh/nutriplanner/utils/retry"
)

const DefaultModel = "gemini-1.5-flash"

var errMissingAPIKey = errors.New("authentication failed: GEMINI_API_KEY is not set")

type GeminiClient struct {
	client *genai.Client
	model  string
	policy retry.Policy
}

type GeminiOption func(*geminiOptions)

type geminiOptions struct {
	baseURL string
	policy  retry.Policy
}

// WithBaseURL points the client at a different endpoint, e.g. a test server.
func WithBaseURL(url string) GeminiOption {
	return func(o *geminiOptions) { o.baseURL = url }
}

// WithRetry enables the given retry policy around each call.
func WithRetry(p retry.Policy) GeminiOption {
	return func(o *geminiOptions) { o.policy = p }
}

// NewGeminiClient builds a Gemini API client. An empty apiKey is accepted:
// every call then fails with an authentication error.
func NewGeminiClient(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*GeminiClient, error) {
	o := geminiOptions{policy: retry.Once()}
	for _, opt := range opts {
		opt(&o)
	}
	if model == "" {
		model = DefaultModel
	}
	if apiKey == "" {
		return &GeminiClient{model: model, policy: o.policy}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: o.baseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiClient{client: client, model: model, policy: o.policy}, nil
}

var _ domain.Llm = (*GeminiClient)(nil)

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", errMissingAPIKey
	}

	var text string
	err := retry.WithRetry(ctx, g.policy, func() error {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			return fmt.Errorf("generate content: %w", err)
		}
		text = resp.Text()
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
