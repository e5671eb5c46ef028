// Package generator renders prompt templates and provides a deterministic
// template-only generator for offline use. Hosted-model adapters live in
// the anthropic and openai subpackages.
package generator

import (
	"context"
	"sort"
	"strings"

	"github.com/creatorops/outreach/core"
)

// Render substitutes prompt variables into the template. Placeholders use
// the {name} form the configuration document uses.
func Render(p core.Prompt) string {
	if len(p.Variables) == 0 {
		return p.Template
	}
	pairs := make([]string, 0, len(p.Variables)*2)
	for name, value := range p.Variables {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(p.Template)
}

// TemplateGenerator returns the rendered template verbatim, without calling
// a model. It keeps the messaging workflow usable when no API key is
// configured and gives tests deterministic drafts.
type TemplateGenerator struct{}

// NewTemplateGenerator returns a generator that echoes rendered templates.
func NewTemplateGenerator() *TemplateGenerator { return &TemplateGenerator{} }

// Generate implements core.Generator.
func (g *TemplateGenerator) Generate(_ context.Context, p core.Prompt) (string, error) {
	out := strings.TrimSpace(Render(p))
	if out != "" {
		return out, nil
	}
	// No template configured: fall back to a plain listing of the
	// variables so the draft is still reviewable.
	names := make([]string, 0, len(p.Variables))
	for name := range p.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(name + ": " + p.Variables[name])
	}
	return b.String(), nil
}

var _ core.Generator = (*TemplateGenerator)(nil)
