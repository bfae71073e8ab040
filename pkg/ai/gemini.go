package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chatfic/pkg/domain"
	"chatfic/pkg/prompt"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultGeminiModel matches the model the product ships with.
	DefaultGeminiModel = "gemini-3-pro-preview"
)

// Sampling parameters are fixed product tuning, not configuration.
const (
	geminiTemperature = 0.85
	geminiTopP        = 0.95
	geminiTopK        = 64
)

// GeminiClient calls the Google AI Studio (Gemini) API.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGeminiClient constructs a client with the provided API key. An empty
// model selects DefaultGeminiModel. The key may be empty; the first
// request will then fail with ErrMissingCredential rather than at startup,
// so a misconfigured instance still boots and surfaces the problem
// in-thread.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultGeminiBaseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// GenerateChapter sends the full ordered history plus the composed system
// instruction and returns the generated text verbatim.
func (c *GeminiClient) GenerateChapter(ctx context.Context, history []domain.Message, style domain.StyleDirective, universe string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingCredential
	}
	contents := make([]geminiContent, 0, len(history))
	for _, msg := range history {
		contents = append(contents, geminiContent{
			Role:  string(msg.Role),
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	reqBody := geminiGenerateRequest{
		Contents: contents,
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: prompt.SystemInstruction(style, universe)}},
		},
		GenerationConfig: &geminiGenerationConfig{
			Temperature: geminiTemperature,
			TopP:        geminiTopP,
			TopK:        geminiTopK,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		if catErr := categorize(resp.StatusCode); catErr != nil {
			return "", catErr
		}
		var errResp geminiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return "", fmt.Errorf("gemini api error: %s", errResp.Error.Message)
		}
		return "", fmt.Errorf("gemini api error: %s", resp.Status)
	}

	var genResp geminiGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("gemini decode: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

// Gemini request/response types.

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
	TopK        int     `json:"topK"`
}

type geminiGenerateRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
