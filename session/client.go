package session

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

	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/model"
	"github.com/awantoch/scriptflow/utils"
)

// APIError is a non-2xx answer from the parse service.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return e.Detail
}

// ParseRequest is the body of POST /parse and POST /flow.
type ParseRequest struct {
	Script string `json:"script"`
}

// Client talks to a running parse service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the service at baseURL. A nil httpClient
// gets a traced client with a 60 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = constants.DefaultParseEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Parse posts script to /parse and decodes the returned graph.
func (c *Client) Parse(ctx context.Context, script string) (*model.RawGraph, error) {
	body, err := json.Marshal(ParseRequest{Script: script})
	if err != nil {
		return nil, fmt.Errorf("encode parse request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+constants.RouteParse, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create parse request: %w", err)
	}
	req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	if reqID, ok := utils.RequestIDFromContext(ctx); ok {
		req.Header.Set(constants.HeaderRequestID, reqID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read parse response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Detail: detailFrom(resp.StatusCode, data)}
	}
	var g model.RawGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode parse response: %w", err)
	}
	return &g, nil
}

// detailFrom returns the string "detail" field of an error body, or a generic
// status message when there is none.
func detailFrom(status int, body []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload.Detail.(string); ok && s != "" {
			return s
		}
	}
	return fmt.Sprintf("Request failed with status code %d", status)
}
