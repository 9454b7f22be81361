package stability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TheSinghX/AiImageCraft/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	req := NewRequest("a red fox")

	require.Len(t, req.TextPrompts, 2)
	assert.Equal(t, TextPrompt{Text: "a red fox", Weight: 1.0}, req.TextPrompts[0])
	assert.Equal(t, TextPrompt{Text: NegativePrompt, Weight: -1.0}, req.TextPrompts[1])
	assert.Equal(t, 1024, req.Width)
	assert.Equal(t, 1024, req.Height)
	assert.Equal(t, 30, req.Steps)
	assert.Equal(t, 1, req.Samples)
	assert.InDelta(t, 7.0, req.CfgScale, 0.001)
}

func TestClient_Generate(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		wantBase64     string
		wantErr        error
		wantProvider   *ProviderError
	}{
		{
			name: "successful generation",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
				assert.Equal(t, "application/json", r.Header.Get("Accept"))

				var body Request
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "a red fox", body.TextPrompts[0].Text)

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
					"artifacts": []map[string]any{
						{"base64": "Zmlyc3Q=", "seed": 42, "finishReason": "SUCCESS"},
						{"base64": "c2Vjb25k", "seed": 43, "finishReason": "SUCCESS"},
					},
				})
			},
			wantBase64: "Zmlyc3Q=",
		},
		{
			name: "provider error with message",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"id":"x","name":"invalid_prompts","message":"Invalid prompts detected"}`)) //nolint:errcheck
			},
			wantProvider: &ProviderError{StatusCode: http.StatusBadRequest, Message: "Invalid prompts detected"},
		},
		{
			name: "provider error without json body",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("upstream down")) //nolint:errcheck
			},
			wantProvider: &ProviderError{StatusCode: http.StatusBadGateway, Message: "API returned status code 502"},
		},
		{
			name: "no artifacts",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"artifacts":[]}`)) //nolint:errcheck
			},
			wantErr: ErrEmptyResult,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
			defer server.Close()

			client := New(&config.StabilityConfig{APIKey: "test-key", URL: server.URL, Timeout: 5 * time.Second})

			artifact, err := client.Generate(context.Background(), "a red fox")
			switch {
			case tt.wantProvider != nil:
				var providerErr *ProviderError
				require.True(t, errors.As(err, &providerErr))
				assert.Equal(t, tt.wantProvider, providerErr)
				assert.Nil(t, artifact)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, artifact)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantBase64, artifact.Base64)
			}
		})
	}
}

func TestClient_Generate_NoRequestSent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	tests := []struct {
		name    string
		apiKey  string
		prompt  string
		wantErr error
	}{
		{name: "empty prompt", apiKey: "key", prompt: "", wantErr: ErrEmptyPrompt},
		{name: "blank prompt", apiKey: "key", prompt: "   ", wantErr: ErrEmptyPrompt},
		{name: "missing api key", apiKey: "", prompt: "a cat", wantErr: ErrMissingAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(&config.StabilityConfig{APIKey: tt.apiKey, URL: server.URL})
			_, err := client.Generate(context.Background(), tt.prompt)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Zero(t, calls.Load())
}

func TestClient_Generate_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()
	defer close(release)

	client := New(&config.StabilityConfig{APIKey: "key", URL: server.URL, Timeout: 50 * time.Millisecond})

	_, err := client.Generate(context.Background(), "slow prompt")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestClient_Generate_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(&config.StabilityConfig{APIKey: "key", URL: url, Timeout: time.Second})

	_, err := client.Generate(context.Background(), "a cat")
	assert.ErrorIs(t, err, ErrConnection)
}

func TestNew_Defaults(t *testing.T) {
	client := New(&config.StabilityConfig{APIKey: "key"})
	assert.Equal(t, config.DefaultStabilityURL, client.url)
	assert.Equal(t, 120*time.Second, client.httpClient.Timeout)
}
