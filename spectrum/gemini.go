package spectrum

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"spectrum-monitor/models"
	"spectrum-monitor/utils"
)

const (
	defaultGeminiModel = "gemini-2.5-flash"

	// Bounded per-call budget; a hung inference call is treated like any
	// other classification failure.
	analysisCallTimeout = 30 * time.Second

	analysisMaxOutputTokens = 1024
)

// GeminiAnalyzer delegates the anomaly judgment to the Gemini API.
type GeminiAnalyzer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiAnalyzer builds an analyzer from the GEMINI_API_KEY / GEMINI_MODEL
// environment. A missing key is an error; callers are expected to fall back
// to an UnavailableAnalyzer rather than abort startup.
func NewGeminiAnalyzer(ctx context.Context) (*GeminiAnalyzer, error) {
	apiKey := utils.GetEnv("GEMINI_API_KEY", "")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiAnalyzer{
		client:  client,
		model:   utils.GetEnv("GEMINI_MODEL", defaultGeminiModel),
		timeout: analysisCallTimeout,
	}, nil
}

// Analyze sends the measurement prompt and parses the JSON verdict out of the
// reply. Errors propagate; the fail-open conversion happens in Classify.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, data *models.SpectrumData) (*AIAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	userContent := genai.NewContentFromText(BuildAnalysisPrompt(data), genai.RoleUser)
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(analysisMaxOutputTokens),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{userContent}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, errors.New("empty response from Gemini")
	}

	return ParseAnalysisResponse(text)
}
