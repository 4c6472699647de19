package parser

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/awantoch/scriptflow/model"
)

const (
	startID         = "start"
	startLabel      = "Start"
	arrow           = "->"
	otherwiseLabel  = "otherwise"
	defaultActionID = "action"
)

var lineBreaks = regexp.MustCompile(`\r\n|\r|\n`)

// RuleParser understands a small line grammar:
//
//	If <condition> -> <action>      (also "then" or ":" as separator)
//	Otherwise <action> / Else <action>
//	<condition> -> <action>
//	<action>
//
// Every graph starts with a single start node. Decisions hang off start; an
// Otherwise branch attaches to the most recent decision.
type RuleParser struct{}

func NewRuleParser() *RuleParser {
	return &RuleParser{}
}

type ruleBuilder struct {
	g         model.RawGraph
	decisions int
}

func (p *RuleParser) Parse(_ context.Context, script string) (*model.RawGraph, error) {
	text := strings.TrimSpace(script)
	if text == "" {
		return nil, ErrEmptyScript
	}

	b := &ruleBuilder{}
	b.addNode(startID, model.NodeStart, startLabel)

	for _, raw := range lineBreaks.Split(text, -1) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		line = strings.ReplaceAll(line, "→", arrow)
		line = strings.ReplaceAll(line, "—", "-")

		switch {
		case hasPrefixFold(line, "if "):
			cond, action := splitCondition(line[3:])
			b.branch(cond, action)
		case hasPrefixFold(line, "otherwise"), hasPrefixFold(line, "else"):
			b.otherwise(restAfterKeyword(line))
		case strings.Contains(line, arrow):
			left, right, _ := strings.Cut(line, arrow)
			b.branch(strings.TrimSpace(left), strings.TrimSpace(right))
		default:
			id := b.nextActionID()
			b.addNode(id, model.NodeAction, line)
			b.addEdge(startID, id, "")
		}
	}
	return &b.g, nil
}

// branch adds a decision reached from start and an action reached from the
// decision under cond.
func (b *ruleBuilder) branch(cond, action string) {
	decisionID := fmt.Sprintf("decision%d", b.decisions)
	b.addNode(decisionID, model.NodeDecision, cond)
	actionID := b.nextActionID()
	b.addNode(actionID, model.NodeAction, action)
	b.addEdge(startID, decisionID, "")
	b.addEdge(decisionID, actionID, cond)
	b.decisions++
}

func (b *ruleBuilder) otherwise(action string) {
	actionID := b.nextActionID()
	b.addNode(actionID, model.NodeAction, action)
	source := startID
	if b.decisions > 0 {
		source = fmt.Sprintf("decision%d", b.decisions-1)
	}
	b.addEdge(source, actionID, otherwiseLabel)
}

func (b *ruleBuilder) nextActionID() string {
	return fmt.Sprintf("action_%d", len(b.g.Nodes))
}

func (b *ruleBuilder) addNode(id string, typ model.NodeType, label string) {
	b.g.Nodes = append(b.g.Nodes, model.RawNode{ID: id, Type: typ, Label: label})
}

func (b *ruleBuilder) addEdge(source, target, condition string) {
	b.g.Edges = append(b.g.Edges, model.RawEdge{Source: source, Target: target, Condition: condition})
}

// splitCondition separates "<cond> -> <action>", "<cond> then <action>",
// "<cond>: <action>", or as a last resort treats the final word as the action.
func splitCondition(s string) (cond, action string) {
	if left, right, ok := strings.Cut(s, arrow); ok {
		return strings.TrimSpace(left), strings.TrimSpace(right)
	}
	if i := indexFold(s, " then "); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len(" then "):])
	}
	if left, right, ok := strings.Cut(s, ":"); ok {
		return strings.TrimSpace(left), strings.TrimSpace(right)
	}
	words := strings.Fields(s)
	if len(words) > 1 {
		return strings.Join(words[:len(words)-1], " "), words[len(words)-1]
	}
	return strings.TrimSpace(s), defaultActionID
}

// restAfterKeyword returns everything after the first word, or "otherwise".
func restAfterKeyword(line string) string {
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return otherwiseLabel
	}
	if rest := strings.TrimSpace(line[i:]); rest != "" {
		return rest
	}
	return otherwiseLabel
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// indexFold is a case-insensitive strings.Index for ASCII separators.
func indexFold(s, sep string) int {
	for i := 0; i+len(sep) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sep)], sep) {
			return i
		}
	}
	return -1
}
