package summary

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Stone-IT-Cloud/devreport/internal/log"
)

// Credentials authenticate the API backend. A credentials file wins over a key.
type Credentials struct {
	APIKey          string
	CredentialsFile string
}

// chatSession is the part of *genai.ChatSession the backend uses.
type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiBackend sends the context document to the Gemini API in one message.
type GeminiBackend struct {
	client     *genai.Client
	modelName  string
	maxChars   int
	retry      RetryConfig
	newSession func() chatSession
}

var _ Summarizer = (*GeminiBackend)(nil)

// NewGeminiBackend opens a client for modelName. Documents longer than maxChars
// characters are truncated before sending.
func NewGeminiBackend(ctx context.Context, creds Credentials, modelName string, maxChars int, retry RetryConfig) (*GeminiBackend, error) {
	var clientOpts []option.ClientOption
	switch {
	case creds.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(creds.CredentialsFile))
	case creds.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(creds.APIKey))
	default:
		return nil, fmt.Errorf("%w: neither an API key nor a credentials file is configured", ErrMissingCredential)
	}

	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize Gemini AI client: %v", ErrBackendUnavailable, err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	log.Debug("Initialized Gemini model %s", modelName)

	return &GeminiBackend{
		client:     client,
		modelName:  modelName,
		maxChars:   maxChars,
		retry:      retry,
		newSession: func() chatSession { return model.StartChat() },
	}, nil
}

// Name implements Summarizer.
func (b *GeminiBackend) Name() string { return "api" }

// Close releases the API client.
func (b *GeminiBackend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// Summarize implements Summarizer.
func (b *GeminiBackend) Summarize(ctx context.Context, contextPath string) (*Result, error) {
	// #nosec G304 -- The context file is the scratch file created by this process.
	data, err := os.ReadFile(contextPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read context file: %v", ErrNoResult, err)
	}
	message := Prompt + truncateChars(string(data), b.maxChars)

	log.Info("Sending context to Gemini model %s...", b.modelName)
	reply, err := withRetry(ctx, b.retry, "Gemini API call", func(ctx context.Context) (string, error) {
		resp, err := b.newSession().SendMessage(ctx, genai.Text(message))
		if err != nil {
			return "", err
		}
		return extractTextFromResponse(resp), nil
	})
	if err != nil {
		log.Error("Gemini API call failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrNoResult, err)
	}
	return decodeOrWarn(reply)
}

// truncateChars keeps at most maxChars characters (not bytes) of s.
func truncateChars(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == maxChars {
			return s[:i]
		}
		count++
	}
	return s
}

// extractTextFromResponse concatenates the text parts of every candidate.
func extractTextFromResponse(resp *genai.GenerateContentResponse) string {
	var builder strings.Builder
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if textPart, ok := part.(genai.Text); ok {
					builder.WriteString(string(textPart))
				}
			}
		}
	}
	return builder.String()
}
