// Package templater renders Jinja-style (pongo2) templates, used for the
// prompts sent to language-model parsers.
package templater

import (
	"fmt"
	"maps"

	pongo2 "github.com/flosch/pongo2/v6"

	"github.com/awantoch/scriptflow/utils"
)

// Templater renders pongo2 templates. The zero value is ready to use.
type Templater struct{}

// NewTemplater creates a new Templater.
func NewTemplater() *Templater {
	return &Templater{}
}

// Compile parses tmpl once so it can be executed many times.
func (t *Templater) Compile(tmpl string) (*Template, error) {
	pl, err := pongo2.FromString(raw(tmpl))
	if err != nil {
		return nil, err
	}
	return &Template{tpl: pl}, nil
}

// Template is a parsed template. Safe for concurrent Execute calls.
type Template struct {
	tpl *pongo2.Template
}

func (t *Template) Execute(data map[string]any) (string, error) {
	if data == nil {
		return "", fmt.Errorf("template data is nil")
	}
	ctx := make(pongo2.Context, len(data))
	maps.Copy(ctx, data)
	utils.Debug("Template.Execute: %d context keys", len(ctx))
	return t.tpl.Execute(ctx)
}

// raw disables HTML autoescaping; prompts are plain text and scripts use "->".
func raw(tmpl string) string {
	return "{% autoescape off %}" + tmpl + "{% endautoescape %}"
}

