package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/awantoch/scriptflow/config"
	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/model"
	"github.com/awantoch/scriptflow/templater"
	"github.com/awantoch/scriptflow/utils"
)

const promptTemplate = `Convert the following user flow script (short lines using If/Otherwise/Else or arrows '->' or '→') into a JSON object with 'nodes' and 'edges'. Each node should have id,type,label where type is one of {{ types|join:", " }}. Edges should have source,target,condition (if any). Only output JSON.

Script:
{{ script }}`

// OpenAI API structures
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OpenAIRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream"`
}

type OpenAIChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type OpenAIResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAIParser asks a chat-completion model to produce the graph.
type OpenAIParser struct {
	apiKey      string
	model       string
	endpoint    string
	maxTokens   int
	temperature float64
	client      *http.Client
	prompt      *templater.Template
}

// NewOpenAIParser builds a parser from cfg. An API key is required.
func NewOpenAIParser(cfg config.ParserConfig) (*OpenAIParser, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s is required for the openai parser", constants.EnvOpenAIKey)
	}
	prompt, err := templater.NewTemplater().Compile(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("compile prompt: %w", err)
	}
	p := &OpenAIParser{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		endpoint:    cfg.Endpoint,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client: &http.Client{
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		prompt: prompt,
	}
	if p.model == "" {
		p.model = constants.DefaultOpenAIModel
	}
	if p.endpoint == "" {
		p.endpoint = constants.DefaultOpenAIURL
	}
	if p.maxTokens == 0 {
		p.maxTokens = constants.DefaultMaxTokens
	}
	if cfg.TimeoutSeconds == 0 {
		p.client.Timeout = 60 * time.Second
	}
	return p, nil
}

func (p *OpenAIParser) Parse(ctx context.Context, script string) (*model.RawGraph, error) {
	text := strings.TrimSpace(script)
	if text == "" {
		return nil, ErrEmptyScript
	}
	prompt, err := p.prompt.Execute(map[string]any{
		"script": text,
		"types":  []string{string(model.NodeStart), string(model.NodeDecision), string(model.NodeAction)},
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}
	temperature := p.temperature
	maxTokens := p.maxTokens
	content, err := p.complete(ctx, OpenAIRequest{
		Model:       p.model,
		Messages:    []OpenAIMessage{{Role: "user", Content: prompt}},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, err
	}
	g, err := DecodeValidated([]byte(stripCodeFence(content)))
	if err != nil {
		return nil, err
	}
	utils.DebugCtx(ctx, "openai parse complete", "model", p.model, "nodes", len(g.Nodes), "edges", len(g.Edges))
	return g, nil
}

// complete sends one chat completion and returns the first choice's content.
func (p *OpenAIParser) complete(ctx context.Context, req OpenAIRequest) (string, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	httpReq.Header.Set(constants.HeaderAuthorization, "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("OpenAI API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read OpenAI response: %w", err)
	}
	var openaiResp OpenAIResponse
	decodeErr := json.Unmarshal(body, &openaiResp)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && openaiResp.Error != nil && openaiResp.Error.Message != "" {
			return "", fmt.Errorf("OpenAI API error: status %d: %s", resp.StatusCode, openaiResp.Error.Message)
		}
		return "", fmt.Errorf("OpenAI API error: status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode OpenAI response: %w", decodeErr)
	}
	if len(openaiResp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI response has no choices")
	}
	return openaiResp.Choices[0].Message.Content, nil
}

// stripCodeFence removes a surrounding Markdown code fence, if any.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
