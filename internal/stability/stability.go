// Package stability is a client for the Stability AI text-to-image API.
package stability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/TheSinghX/AiImageCraft/internal/config"
	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"
)

// Fixed generation parameters.
const (
	NegativePrompt = "blurry, bad quality, distorted, disfigured"
	CfgScale       = 7.0
	ImageSize      = 1024
	Steps          = 30
	Samples        = 1
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

var (
	// ErrMissingAPIKey is returned when no API key is configured. No request is sent.
	ErrMissingAPIKey = errors.New("stability api key is not configured")
	// ErrEmptyPrompt is returned for a blank prompt. No request is sent.
	ErrEmptyPrompt = errors.New("prompt is required")
	// ErrConnection is returned when the API could not be reached.
	ErrConnection = errors.New("could not connect to stability api")
	// ErrTimeout is returned when the API did not answer in time.
	ErrTimeout = errors.New("stability api request timed out")
	// ErrEmptyResult is returned when the API succeeded but sent no image.
	ErrEmptyResult = errors.New("no image was generated")
)

// ProviderError is a non-success answer from the API.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("stability api returned status %d: %s", e.StatusCode, e.Message)
}

// TextPrompt is a weighted prompt term. Negative weights steer away from the text.
type TextPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// Request is the text-to-image request body.
type Request struct {
	TextPrompts []TextPrompt `json:"text_prompts"`
	CfgScale    float64      `json:"cfg_scale"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Samples     int          `json:"samples"`
	Steps       int          `json:"steps"`
}

// Artifact is a single generated image.
type Artifact struct {
	Base64       string `json:"base64"`
	Seed         int64  `json:"seed"`
	FinishReason string `json:"finishReason"`
}

type response struct {
	Artifacts []Artifact `json:"artifacts"`
}

// NewRequest builds the request body for a prompt.
func NewRequest(prompt string) Request {
	return Request{
		TextPrompts: []TextPrompt{
			{Text: prompt, Weight: 1.0},
			{Text: NegativePrompt, Weight: -1.0},
		},
		CfgScale: CfgScale,
		Height:   ImageSize,
		Width:    ImageSize,
		Samples:  Samples,
		Steps:    Steps,
	}
}

// Client represents a Stability AI API client.
type Client struct {
	apiKey     string
	url        string
	httpClient *http.Client
}

// New creates a new Stability AI API client.
func New(cfg *config.StabilityConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	url := cfg.URL
	if url == "" {
		url = config.DefaultStabilityURL
	}
	return &Client{
		apiKey:     cfg.APIKey,
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Generate sends a single text-to-image request and returns the first artifact.
// It never retries.
func (c *Client) Generate(ctx context.Context, prompt string) (*Artifact, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(NewRequest(prompt))
	if err != nil {
		return nil, fmt.Errorf("error encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log.Debug("Sending request to Stability AI", "prompt", prompt)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Error("Stability AI API error", "status", resp.StatusCode, "body", string(bodyBytes))
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, bodyBytes),
		}
	}

	var result response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	if len(result.Artifacts) == 0 || result.Artifacts[0].Base64 == "" {
		return nil, ErrEmptyResult
	}

	return &result.Artifacts[0], nil
}

// errorMessage extracts the provider's message, falling back to the status code.
func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "message").String(); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("API returned status code %d", status)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
}

func classifyTransportError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}
