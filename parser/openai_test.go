package parser

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/awantoch/scriptflow/config"
	"github.com/awantoch/scriptflow/model"
)

const llmGraph = `{"nodes":[{"id":"n1","type":"start","label":"Start"},{"id":"n2","type":"decision","label":"What does the user want?"},{"id":"n3","type":"action","label":"transfer"}],"edges":[{"source":"n1","target":"n2"},{"source":"n2","target":"n3","condition":"wants sales"}]}`

// fakeOpenAI answers chat completions with content and records the last request.
func fakeOpenAI(t *testing.T, status int, content string) (*httptest.Server, *OpenAIRequest) {
	t.Helper()
	var last OpenAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&last))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(OpenAIResponse{
			ID:      "chatcmpl-1",
			Choices: []OpenAIChoice{{Message: OpenAIMessage{Role: "assistant", Content: content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func newTestOpenAIParser(t *testing.T, endpoint string) *OpenAIParser {
	t.Helper()
	p, err := NewOpenAIParser(config.ParserConfig{APIKey: "sk-test", Endpoint: endpoint})
	require.NoError(t, err)
	return p
}

func TestOpenAIParser_Success(t *testing.T) {
	srv, last := fakeOpenAI(t, http.StatusOK, llmGraph)
	g, err := newTestOpenAIParser(t, srv.URL).Parse(context.Background(), "  "+sampleScript+"\n")
	require.NoError(t, err)

	require.Len(t, g.Nodes, 3)
	assert.Equal(t, model.NodeDecision, g.Nodes[1].Type)
	assert.Equal(t, "wants sales", g.Edges[1].Condition)

	assert.Equal(t, "gpt-4o-mini", last.Model)
	require.Len(t, last.Messages, 1)
	assert.Contains(t, last.Messages[0].Content, "If user wants sales -> transfer")
	assert.Contains(t, last.Messages[0].Content, "start, decision, action")
	require.NotNil(t, last.MaxTokens)
	assert.Equal(t, 600, *last.MaxTokens)
	require.NotNil(t, last.Temperature)
	assert.Equal(t, 0.0, *last.Temperature)
}

func TestOpenAIParser_CodeFencedReply(t *testing.T) {
	srv, _ := fakeOpenAI(t, http.StatusOK, "```json\n"+llmGraph+"\n```")
	g, err := newTestOpenAIParser(t, srv.URL).Parse(context.Background(), sampleScript)
	require.NoError(t, err)
	assert.Len(t, g.Edges, 2)
}

func TestOpenAIParser_Errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv, _ := fakeOpenAI(t, http.StatusTooManyRequests, "")
		_, err := newTestOpenAIParser(t, srv.URL).Parse(context.Background(), sampleScript)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
		assert.Contains(t, err.Error(), "rate limited")
	})
	t.Run("not json", func(t *testing.T) {
		srv, _ := fakeOpenAI(t, http.StatusOK, "Sure! Here is your flow.")
		_, err := newTestOpenAIParser(t, srv.URL).Parse(context.Background(), sampleScript)
		assert.Error(t, err)
	})
	t.Run("schema", func(t *testing.T) {
		srv, _ := fakeOpenAI(t, http.StatusOK, `{"nodes":[{"id":1,"type":"start"}]}`)
		_, err := newTestOpenAIParser(t, srv.URL).Parse(context.Background(), sampleScript)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema")
	})
	t.Run("empty", func(t *testing.T) {
		_, err := newTestOpenAIParser(t, "http://127.0.0.1:0").Parse(context.Background(), " ")
		assert.True(t, errors.Is(err, ErrEmptyScript))
	})
}

func TestNewOpenAIParser_RequiresKey(t *testing.T) {
	_, err := NewOpenAIParser(config.ParserConfig{})
	assert.Error(t, err)
}

func TestNewOpenAIParser_TracedClient(t *testing.T) {
	p, err := NewOpenAIParser(config.ParserConfig{APIKey: "sk-test", TimeoutSeconds: 5})
	require.NoError(t, err)
	assert.IsType(t, &otelhttp.Transport{}, p.client.Transport)
	assert.Equal(t, 5*time.Second, p.client.Timeout)
}

func TestWithFallback(t *testing.T) {
	var primaryCalls int32
	failing := Func(func(ctx context.Context, script string) (*model.RawGraph, error) {
		atomic.AddInt32(&primaryCalls, 1)
		return nil, errors.New("llm unavailable")
	})
	p := WithFallback(failing, NewRuleParser())

	g, err := p.Parse(context.Background(), sampleScript)
	require.NoError(t, err)
	assert.Equal(t, "start", g.Nodes[0].ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&primaryCalls))

	_, err = p.Parse(context.Background(), "   ")
	assert.True(t, errors.Is(err, ErrEmptyScript))
	assert.Equal(t, int32(1), atomic.LoadInt32(&primaryCalls), "empty script must not reach the primary")
}

func TestWithFallback_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	failing := Func(func(ctx context.Context, script string) (*model.RawGraph, error) {
		return nil, ctx.Err()
	})
	_, err := WithFallback(failing, NewRuleParser()).Parse(ctx, sampleScript)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWithFallback_NoFallbackReturnsPrimaryError(t *testing.T) {
	failing := Func(func(ctx context.Context, script string) (*model.RawGraph, error) {
		return nil, errors.New("boom")
	})
	_, err := WithFallback(failing, nil).Parse(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())
}

func TestNew_Drivers(t *testing.T) {
	p, err := New(config.ParserConfig{})
	require.NoError(t, err)
	g, err := p.Parse(context.Background(), "Otherwise hang up")
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)

	_, err = New(config.ParserConfig{Driver: "openai"})
	assert.Error(t, err, "openai without key")

	srv, _ := fakeOpenAI(t, http.StatusOK, "not a graph")
	p, err = New(config.ParserConfig{APIKey: "sk-test", Endpoint: srv.URL})
	require.NoError(t, err)
	g, err = p.Parse(context.Background(), sampleScript)
	require.NoError(t, err)
	assert.Equal(t, "decision0", g.Nodes[1].ID, "bad LLM output falls back to rules")

	_, err = New(config.ParserConfig{Driver: "magic"})
	assert.Error(t, err)
}

func TestDecodeValidated(t *testing.T) {
	g, err := DecodeValidated([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)

	g, err = DecodeValidated([]byte(`{"nodes":null,"edges":[{"source":"a","target":"b","condition":null}]}`))
	require.NoError(t, err)
	assert.Equal(t, "", g.Edges[0].Condition)

	for _, bad := range []string{`[]`, `{"edges":[{"source":"a"}]}`, `{"nodes":[{"id":""}]}`, `{"nodes":"x"}`} {
		_, err := DecodeValidated([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`  {"a":1} `))
	assert.Equal(t, "", stripCodeFence("```"))
	assert.True(t, strings.HasPrefix(stripCodeFence("plain text"), "plain"))
}
