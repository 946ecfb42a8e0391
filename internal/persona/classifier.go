package persona

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ragscout/ragscout/internal/config"
	"github.com/ragscout/ragscout/pkg/contracts"
)

// classifierTemperature keeps the persona choice near-deterministic.
const classifierTemperature = 0.3

// OpenAIClassifier implements contracts.Classifier against an
// OpenAI-compatible chat-completions endpoint with strict structured output.
type OpenAIClassifier struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewOpenAIClassifier creates a classifier. Returns nil when no API key is
// configured; a nil classifier disables the LLM selection path.
func NewOpenAIClassifier(cfg config.ClassifierConfig) *OpenAIClassifier {
	if cfg.APIKey == "" {
		return nil
	}
	return &OpenAIClassifier{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		endpoint: cfg.BaseURL + "/chat/completions",
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string                 `json:"name"`
	Strict bool                   `json:"strict"`
	Schema map[string]interface{} `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// selectionSchema is the structured-output contract: exactly the three
// fields, no additional properties, persona restricted to the five IDs.
var selectionSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"persona": map[string]interface{}{
			"type": "string",
			"enum": []string{"developer", "architect", "debugger", "learner", "tester"},
		},
		"reasoning":  map[string]interface{}{"type": "string"},
		"confidence": map[string]interface{}{"type": "number"},
	},
	"required":             []string{"persona", "reasoning", "confidence"},
	"additionalProperties": false,
}

// Classify runs one structured-output chat completion.
func (c *OpenAIClassifier) Classify(ctx context.Context, systemPrompt, userPrompt string) (*contracts.Classification, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: classifierTemperature,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchema{
				Name:   "persona_selection",
				Strict: true,
				Schema: selectionSchema,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("classifier error: %s (%s)", result.Error.Message, result.Error.Type)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("classifier returned no choices")
	}

	var classification contracts.Classification
	if err := json.Unmarshal([]byte(result.Choices[0].Message.Content), &classification); err != nil {
		return nil, fmt.Errorf("classifier output violates schema: %w", err)
	}
	if !classification.Persona.Valid() {
		return nil, fmt.Errorf("classifier returned unknown persona %q", classification.Persona)
	}
	if classification.Confidence < 0 || classification.Confidence > 1 {
		return nil, fmt.Errorf("classifier confidence %f out of range", classification.Confidence)
	}
	return &classification, nil
}
