// Package parser turns short conversational scripts into flow graphs.
package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/awantoch/scriptflow/config"
	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/model"
	"github.com/awantoch/scriptflow/utils"
)

// ErrEmptyScript is returned when a script has no content after trimming.
var ErrEmptyScript = errors.New("Empty script")

// Parser converts a script into a RawGraph.
type Parser interface {
	Parse(ctx context.Context, script string) (*model.RawGraph, error)
}

// Func adapts a plain function to the Parser interface.
type Func func(ctx context.Context, script string) (*model.RawGraph, error)

func (f Func) Parse(ctx context.Context, script string) (*model.RawGraph, error) {
	return f(ctx, script)
}

// New builds the parser selected by cfg. An empty driver picks openai when an
// API key is configured and the rule parser otherwise. The openai parser always
// falls back to the rule parser.
func New(cfg config.ParserConfig) (Parser, error) {
	driver := strings.ToLower(cfg.Driver)
	if driver == "" {
		driver = constants.ParserDriverRules
		if cfg.APIKey != "" {
			driver = constants.ParserDriverOpenAI
		}
	}
	switch driver {
	case constants.ParserDriverRules:
		return WithFallback(NewRuleParser(), nil), nil
	case constants.ParserDriverOpenAI:
		llm, err := NewOpenAIParser(cfg)
		if err != nil {
			return nil, err
		}
		return WithFallback(llm, NewRuleParser()), nil
	default:
		return nil, fmt.Errorf("unsupported parser driver: %s", cfg.Driver)
	}
}

type fallbackParser struct {
	primary  Parser
	fallback Parser
}

// WithFallback returns a Parser that rejects empty scripts, then tries primary
// and, if it fails, fallback. A nil fallback only adds the empty-script check.
func WithFallback(primary, fallback Parser) Parser {
	return &fallbackParser{primary: primary, fallback: fallback}
}

func (p *fallbackParser) Parse(ctx context.Context, script string) (*model.RawGraph, error) {
	if strings.TrimSpace(script) == "" {
		return nil, ErrEmptyScript
	}
	g, err := p.primary.Parse(ctx, script)
	if err == nil || p.fallback == nil || errors.Is(err, ErrEmptyScript) {
		return g, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	utils.WarnCtx(ctx, "primary parser failed, using fallback", "error", err.Error())
	return p.fallback.Parse(ctx, script)
}
